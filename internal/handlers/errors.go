package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/etat_civil_app/internal/apperrors"
	"github.com/gin-gonic/gin"
)

// respondError writes the status matching err. Internal failures are logged
// and answered with failMsg so storage details never reach the caller.
func respondError(c *gin.Context, logger *slog.Logger, err error, failMsg string) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error(failMsg, slog.String("error", err.Error()))
		c.JSON(status, gin.H{"error": failMsg})
		return
	}
	logger.Warn(failMsg, slog.Int("status", status), slog.String("error", err.Error()))
	c.JSON(status, gin.H{"error": err.Error()})
}

// bindError answers a malformed payload.
func bindError(c *gin.Context, logger *slog.Logger, err error, what string) {
	logger.Warn("Failed to bind "+what, slog.String("error", err.Error()))
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
}
