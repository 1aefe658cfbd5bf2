package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/palemoky/repo-project-id/internal/database"
	apierrors "github.com/palemoky/repo-project-id/internal/errors"
	"github.com/palemoky/repo-project-id/internal/logger"
)

// CollisionReader lists recorded identifier collisions
type CollisionReader interface {
	FindCollisions() ([]database.Collision, error)
}

// CollisionsHandler returns every recorded collision, oldest first
func CollisionsHandler(repo CollisionReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		collisions, err := repo.FindCollisions()
		if err != nil {
			logger.Error("Failed to list collisions", zap.Error(err))
			respondError(c, apierrors.Internal("Failed to fetch collisions"))
			return
		}

		data := make([]map[string]any, len(collisions))
		for i := range collisions {
			data[i] = formatCollision(&collisions[i])
		}
		respondOK(c, data)
	}
}
