package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	infragin "github.com/jonesrussell/north-cloud/categorizer/infrastructure/gin"
	infralogger "github.com/jonesrussell/north-cloud/categorizer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/categorizer/internal/config"
)

// NewServer creates the HTTP server using the infrastructure gin package.
// Health routes are added by the builder.
func NewServer(
	handler *Handler,
	cfg *config.Config,
	metrics http.Handler,
	checks map[string]infragin.HealthChecker,
	log infralogger.Logger,
	middleware ...gin.HandlerFunc,
) *infragin.Server {
	builder := infragin.NewServerBuilder(cfg.Service.Name, cfg.Server.Port).
		WithLogger(log).
		WithHost(cfg.Server.Host).
		WithDebug(cfg.Service.Debug).
		WithVersion(cfg.Service.Version).
		WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout).
		WithMiddleware(middleware...).
		WithRoutes(func(router *gin.Engine) {
			SetupServiceRoutes(router, handler, cfg.Auth.JWTSecret, metrics)
		})
	for name, check := range checks {
		builder.WithHealthCheck(name, check)
	}
	return builder.Build()
}

// SetupServiceRoutes configures service-specific API routes (not health routes).
func SetupServiceRoutes(router *gin.Engine, handler *Handler, jwtSecret string, metrics http.Handler) {
	// API v1 routes - protected with JWT when a secret is configured
	v1 := infragin.ProtectedGroup(router, "/api/v1", jwtSecret)

	categorize := v1.Group("/categorize")
	categorize.POST("", handler.Categorize)            // POST /api/v1/categorize
	categorize.POST("/batch", handler.CategorizeBatch) // POST /api/v1/categorize/batch

	v1.POST("/validate", handler.Validate) // POST /api/v1/validate

	cfg := v1.Group("/config")
	cfg.GET("", handler.GetConfig)            // GET /api/v1/config
	cfg.PUT("", handler.ReplaceConfig)        // PUT /api/v1/config
	cfg.POST("/reload", handler.ReloadConfig) // POST /api/v1/config/reload

	if handler.records != nil {
		records := v1.Group("/records")
		records.GET("", handler.ListRecords)   // GET /api/v1/records
		records.GET("/:id", handler.GetRecord) // GET /api/v1/records/:id
	}

	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}
	router.GET("/ready", handler.ReadyCheck)
}
