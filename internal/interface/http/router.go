package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/points-dashboard/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *DashboardHandler, verifier TokenVerifier, logger *slog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestIDMiddleware(),
		requestLogger(logger),
		corsMiddleware(cfg.HTTP.CORSOrigins),
		errorHandlingMiddleware(logger),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1/dashboard")
	api.Use(
		rateLimitMiddleware(cfg.HTTP.RateLimit, logger),
		authMiddleware(verifier),
	)
	{
		api.GET("", handler.Get)
		api.GET("/stream", handler.Stream)
		api.POST("/refresh", handler.Refresh)
		api.POST("/visibility", handler.Visibility)
		api.DELETE("/cache", handler.ClearCache)
		api.POST("/rewards/:id/redeem", handler.Redeem)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
