package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/psysupport/psysupport-api/internal/services"
	apperrors "github.com/psysupport/psysupport-api/pkg/errors"
)

// attachError attaches err to the gin context so the observability middleware
// can include the reason in the request log. c.Error() returns *gin.Error (not
// the error interface), so we suppress errcheck here intentionally.
func attachError(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err) //nolint:errcheck
	}
}

// respondError sends an error JSON response and attaches the error to the gin context
// so the observability middleware can include the reason in the request log.
func respondError(c *gin.Context, status int, message string, err error) {
	attachError(c, err)
	c.JSON(status, gin.H{"error": message})
}

// respondErrorWithDetails sends an error response with an additional details field.
func respondErrorWithDetails(c *gin.Context, status int, message string, details any, err error) { //nolint:unparam
	attachError(c, err)
	c.JSON(status, gin.H{"error": message, "details": details})
}

// respondServiceError maps service errors to HTTP statuses. fallback is the
// message used for unexpected failures.
func respondServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrSlotUnavailable):
		respondError(c, http.StatusConflict, "SlotUnavailable", err)
	case errors.Is(err, services.ErrInvalidStatusTransition):
		respondError(c, http.StatusConflict, "Invalid status transition", err)
	case errors.Is(err, services.ErrUnknownAccount):
		respondError(c, http.StatusUnauthorized, "Unknown account", err)
	case errors.Is(err, services.ErrSessionNotFound):
		respondError(c, http.StatusNotFound, "Session not found", err)
	case errors.Is(err, services.ErrPsychologistNotFound):
		respondError(c, http.StatusNotFound, "Psychologist not found", err)
	case errors.Is(err, services.ErrAvailabilityNotFound):
		respondError(c, http.StatusNotFound, "Availability not found", err)
	case errors.Is(err, apperrors.ErrInvalidInput):
		respondError(c, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, apperrors.ErrNotFound):
		respondError(c, http.StatusNotFound, "Not found", err)
	case errors.Is(err, apperrors.ErrConflict):
		respondError(c, http.StatusConflict, "Conflict", err)
	case errors.Is(err, apperrors.ErrUnavailable):
		respondError(c, http.StatusServiceUnavailable, "Service temporarily unavailable", err)
	default:
		respondError(c, http.StatusInternalServerError, fallback, err)
	}
}
