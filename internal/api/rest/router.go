package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/palemoky/repo-project-id/internal/api/middleware"
	"github.com/palemoky/repo-project-id/internal/api/rest/handler"
	"github.com/palemoky/repo-project-id/internal/config"
	"github.com/palemoky/repo-project-id/internal/database"
	"github.com/palemoky/repo-project-id/internal/metrics"
	"github.com/palemoky/repo-project-id/internal/projectid"
)

// SetupRouter sets up the Gin router with all routes
func SetupRouter(cfg *config.Config, db *database.DB, repo *database.Repository) *gin.Engine {
	// Set Gin mode
	gin.SetMode(cfg.Server.Mode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())

	// CORS middleware
	router.Use(middleware.CORS())

	// Rate limiting middleware
	if cfg.RateLimit.Enabled {
		rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		router.Use(rateLimiter.Middleware())
	}

	if cfg.Metrics.Enabled {
		metrics.Register()
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	cached := database.NewCachedRepository(repo)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Health check
		v1.GET("/health", handler.HealthHandler(db, cached))

		// Statistics
		v1.GET("/stats", handler.StatsHandler(repo))

		// Identifier derivation
		idHandler := handler.NewIDHandler(projectid.NewDeriver(projectid.MD5))
		v1.GET("/id", idHandler.DeriveFromURL)
		v1.POST("/id", idHandler.DeriveTriple)

		// Registry routes
		projectHandler := handler.NewProjectHandler(cached)
		v1.GET("/projects", projectHandler.ListProjects)
		v1.POST("/projects", projectHandler.RegisterProject)
		v1.GET("/projects/lookup", projectHandler.LookupProject)
		v1.GET("/projects/:id", projectHandler.GetProject)

		v1.GET("/collisions", handler.CollisionsHandler(repo))
	}

	return router
}
