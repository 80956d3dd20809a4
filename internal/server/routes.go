// Package server configures the HTTP server and routes.
package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleveque/webacquire/internal/config"
	"github.com/fleveque/webacquire/internal/handler"
	"github.com/fleveque/webacquire/internal/metrics"
	"github.com/fleveque/webacquire/internal/middleware"
)

func middlewareChain(m *metrics.Metrics, logger *zap.Logger) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		middleware.RequestID(),
		middleware.Logger(logger),
		m.Middleware(),
	}
}

// RegisterRoutes sets up all HTTP routes on the Gin engine.
// In Go, we pass dependencies explicitly: no DI container, no magic.
// Each handler gets exactly the dependencies it needs.
func RegisterRoutes(r *gin.Engine, cfg *config.Config, deps Deps, logger *zap.Logger) {
	healthHandler := handler.NewHealthHandler(deps.Version)
	acquireHandler := handler.NewAcquireHandler(deps.Acquirer, cfg.Settings(), logger)
	adminHandler := handler.NewAdminHandler(deps.Calls, logger)

	// Public endpoints (no auth)
	r.GET("/healthz", healthHandler.Healthz)
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	// CORS middleware applies to the entire API group.
	api := r.Group("/api/v1")
	api.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	// Preflights need a matched route for the group middleware to run;
	// CORS answers them before this handler is reached.
	api.OPTIONS("/*path", func(c *gin.Context) {})

	// Authenticated API endpoints. With no keys configured the service is
	// meant for localhost use only, so the auth layer is skipped.
	authed := api.Group("")
	if len(cfg.Auth.APIKeys) > 0 {
		authed.Use(middleware.APIKeyAuth(cfg.Auth.APIKeys))
	} else {
		logger.Warn("no API keys configured; /api/v1/acquire is unauthenticated")
	}
	authed.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	{
		authed.POST("/acquire", acquireHandler.Acquire)
	}

	// Admin endpoints (separate auth with admin keys). Without admin keys
	// they are not mounted at all.
	if len(cfg.Auth.AdminKeys) == 0 {
		return
	}
	admin := api.Group("/admin")
	admin.Use(middleware.AdminKeyAuth(cfg.Auth.AdminKeys))
	{
		admin.GET("/stats", adminHandler.Stats)
		admin.GET("/calls", adminHandler.Calls)
	}
}
