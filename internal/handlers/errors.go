package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SscSPs/esiti_settimanali/internal/apperrors"
	"github.com/gin-gonic/gin"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrHierarchyAssignment):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrPersistence):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with the matching status. Server-side failures get a generic
// message; client errors echo the cause.
func respondError(c *gin.Context, logger *slog.Logger, err error, failureMsg string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error(failureMsg, slog.String("error", err.Error()))
		c.JSON(status, gin.H{"error": failureMsg})
		return
	}
	logger.Warn(failureMsg, slog.String("error", err.Error()))
	c.JSON(status, gin.H{"error": err.Error()})
}
