package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apierrors "github.com/palemoky/repo-project-id/internal/errors"
	"github.com/palemoky/repo-project-id/internal/logger"
)

// parseID extracts and validates an int64 ID from a URL parameter.
// Returns the ID and true if successful, or sends an error response and returns false.
func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil {
		respondError(c, apierrors.InvalidID(param))
		return 0, false
	}
	return id, true
}

// respondError sends a structured JSON error with the error's status code.
func respondError(c *gin.Context, err *apierrors.APIError) {
	c.JSON(err.HTTPStatus, gin.H{"error": err})
}

// respondFailure sends the API error carried by err. Anything else is logged
// with msg and reported as an internal error.
func respondFailure(c *gin.Context, msg string, err error) {
	apiErr := apierrors.As(err)
	if apiErr == apierrors.ErrInternal {
		logger.Error(msg, zap.Error(err))
	}
	respondError(c, apiErr)
}

// respondOK sends a JSON success response with the given data.
func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}
