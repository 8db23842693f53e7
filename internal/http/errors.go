package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"support-desk/internal/service"
)

// writeServiceError traduce errores de servicio a status HTTP. Los detalles de
// persistencia sólo van al log.
func writeServiceError(c *gin.Context, logger *zap.Logger, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
	case errors.Is(err, service.ErrUsernameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
	case errors.Is(err, service.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	case errors.Is(err, service.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
	case errors.Is(err, service.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
	default:
		logger.Error(op+" failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
