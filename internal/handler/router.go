package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docport/docport/internal/middleware"
)

type RouterDeps struct {
	Auth         *AuthHandler
	Tenants      *TenantHandler
	Documents    *DocumentHandler
	Shares       *ShareHandler
	JWTSecret    []byte
	PublicWindow time.Duration
	SendCooldown time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/auth/otp/send", middleware.RateLimit(deps.SendCooldown), deps.Auth.SendCode)
	api.POST("/auth/otp/verify", deps.Auth.VerifyCode)
	api.POST("/auth/logout", deps.Auth.Logout)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.GET("/tenants", deps.Tenants.List)
	authGroup.POST("/documents", deps.Documents.Upload)
	authGroup.GET("/documents", deps.Documents.List)
	authGroup.GET("/documents/:id/download", deps.Documents.Download)
	authGroup.DELETE("/documents/:id", deps.Documents.Delete)
	authGroup.POST("/documents/:id/shares", deps.Shares.Create)

	public := api.Group("/public")
	public.POST("/shares/:id/verify", middleware.RateLimit(deps.PublicWindow), deps.Shares.Verify)

	granted := public.Group("")
	granted.Use(middleware.ShareGrant(deps.JWTSecret))
	granted.GET("/shares/:id/download", deps.Shares.Download)
	granted.GET("/shares/:id/summary", deps.Shares.Summary)
	granted.GET("/shares/:id/summary/stream", deps.Shares.SummaryStream)
}
