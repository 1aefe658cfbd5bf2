package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/palemoky/repo-project-id/internal/database"
	apierrors "github.com/palemoky/repo-project-id/internal/errors"
	"github.com/palemoky/repo-project-id/internal/logger"
)

// Pinger is anything whose connection can be checked
type Pinger interface {
	Ping() error
}

// StatsReader provides registry statistics
type StatsReader interface {
	GetStatistics() (*database.Statistics, error)
}

// CacheReporter reports how many entries a lookup cache holds
type CacheReporter interface {
	GetCacheStats() map[string]int
}

// HealthHandler handles health check requests. cache may be nil.
func HealthHandler(db Pinger, cache CacheReporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			logger.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		body := gin.H{"status": "healthy"}
		if cache != nil {
			body["cache"] = cache.GetCacheStats()
		}
		c.JSON(http.StatusOK, body)
	}
}

// StatsHandler returns overall statistics
func StatsHandler(repo StatsReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := repo.GetStatistics()
		if err != nil {
			logger.Error("Failed to get statistics", zap.Error(err))
			respondError(c, apierrors.Internal("Failed to get statistics"))
			return
		}

		c.JSON(http.StatusOK, stats)
	}
}
