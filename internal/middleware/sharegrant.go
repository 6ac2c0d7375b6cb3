package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/docport/docport/internal/pkg/errcode"
	"github.com/docport/docport/internal/pkg/jwt"
	"github.com/docport/docport/internal/pkg/response"
)

const ContextShareGrantKey = "share_grant"

// ShareGrant guards share-scoped routes with a capability token minted at
// code verification. The token may arrive as a Bearer header or as a
// grant_token query parameter; either way its share id must match the route.
func ShareGrant(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			token = c.Query("grant_token")
		}
		if token == "" {
			response.Error(c, errcode.ErrUnauthorized, "missing grant token")
			c.Abort()
			return
		}
		claims, err := jwt.ParseShareToken(token, secret)
		if err != nil {
			response.Error(c, errcode.ErrUnauthorized, "invalid grant token")
			c.Abort()
			return
		}
		if claims.ShareID != c.Param("id") {
			response.Error(c, errcode.ErrForbidden, "grant does not cover this share")
			c.Abort()
			return
		}
		c.Set(ContextShareGrantKey, claims)
		c.Next()
	}
}
