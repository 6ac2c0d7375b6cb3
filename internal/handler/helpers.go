package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docport/docport/internal/middleware"
	"github.com/docport/docport/internal/pkg/errcode"
	appErr "github.com/docport/docport/internal/pkg/errors"
	"github.com/docport/docport/internal/pkg/jwt"
	"github.com/docport/docport/internal/pkg/response"
)

func getUserID(c *gin.Context) string {
	value, _ := c.Get(middleware.ContextUserIDKey)
	userID, _ := value.(string)
	return userID
}

func getShareGrant(c *gin.Context) *jwt.ShareClaims {
	value, _ := c.Get(middleware.ContextShareGrantKey)
	claims, _ := value.(*jwt.ShareClaims)
	return claims
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("user_id", getUserID(c)),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, errcode.ErrUnauthorized, "unauthorized")
	case errors.Is(err, appErr.ErrForbidden):
		response.Error(c, errcode.ErrForbidden, "forbidden")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, errcode.ErrConflict, "conflict")
	case errors.Is(err, appErr.ErrTooMany):
		response.Error(c, errcode.ErrTooMany, "too many requests, retry later")
	case errors.Is(err, appErr.ErrCodeMismatch):
		response.Error(c, errcode.ErrCodeMismatch, "incorrect code")
	case errors.Is(err, appErr.ErrShareExpired):
		response.Error(c, errcode.ErrShareExpired, "share link expired")
	case errors.Is(err, appErr.ErrShareLocked):
		response.Error(c, errcode.ErrShareLocked, "share locked after too many attempts")
	case errors.Is(err, appErr.ErrAIUnavailable):
		response.Error(c, errcode.ErrAIUnavailable, "summary service unavailable")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
