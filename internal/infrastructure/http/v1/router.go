// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"retaildw/internal/infrastructure/http/v1/handlers"
	"retaildw/internal/infrastructure/http/v1/middleware"
	"retaildw/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Analytics answers every read endpoint
	Analytics handlers.AnalyticsService

	// Loads reports the bulk load history
	Loads handlers.LoadHistory

	// Health serves the probes
	Health *handlers.HealthHandler

	// Logger for request logging
	Logger *logger.Logger

	// Debug switches gin to debug mode
	Debug bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	if cfg.Health == nil {
		cfg.Health = handlers.NewHealthHandler(nil, "")
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	router.GET("/health", cfg.Health.Ready)
	health := router.Group("/health")
	{
		health.GET("/live", cfg.Health.Live)
		health.GET("/ready", cfg.Health.Ready)
		health.GET("/info", cfg.Health.Info)
	}

	base := handlers.NewBaseHandler()
	v1 := router.Group("/api/v1")
	{
		Mount(v1, "/sales", handlers.NewSalesHandler(base, cfg.Analytics))
		Mount(v1, "/promotions", handlers.NewPromotionsHandler(base, cfg.Analytics))
		Mount(v1, "/inventory", handlers.NewInventoryHandler(base, cfg.Analytics))
		Mount(v1, "/browse", handlers.NewBrowseHandler(base, cfg.Analytics))

		dashboard := handlers.NewDashboardHandler(base, cfg.Analytics, cfg.Loads)
		v1.GET("/dashboard", dashboard.Dashboard)
		v1.GET("/loads/last", dashboard.LastLoad)
	}

	return router
}
