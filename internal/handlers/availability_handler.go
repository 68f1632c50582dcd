package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/psysupport/psysupport-api/internal/middleware"
	"github.com/psysupport/psysupport-api/internal/models"
	"github.com/psysupport/psysupport-api/internal/services"
)

const dateLayout = "2006-01-02"

// AvailabilityHandler serves weekly windows and the free slots derived from them
type AvailabilityHandler struct {
	availability services.AvailabilityServiceInterface
	booking      services.BookingServiceInterface
}

// NewAvailabilityHandler creates a new AvailabilityHandler
func NewAvailabilityHandler(availability services.AvailabilityServiceInterface, booking services.BookingServiceInterface) *AvailabilityHandler {
	return &AvailabilityHandler{
		availability: availability,
		booking:      booking,
	}
}

// GetAvailableSlots handles GET /api/v1/availability/:psychologistId?date=YYYY-MM-DD
func (h *AvailabilityHandler) GetAvailableSlots(c *gin.Context) {
	psychologistID, ok := uuidParam(c, "psychologistId", "psychologist ID")
	if !ok {
		return
	}

	raw := c.Query("date")
	if raw == "" {
		respondError(c, http.StatusBadRequest, "Missing required parameter: date", nil)
		return
	}
	date, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid date. Expected YYYY-MM-DD", err)
		return
	}

	slots, err := h.booking.ComputeAvailableSlots(c.Request.Context(), psychologistID, date)
	if err != nil {
		respondServiceError(c, err, "Failed to compute available slots")
		return
	}

	c.JSON(http.StatusOK, slots)
}

// GetWindows handles GET /api/v1/availability/:psychologistId/windows
func (h *AvailabilityHandler) GetWindows(c *gin.Context) {
	psychologistID, ok := uuidParam(c, "psychologistId", "psychologist ID")
	if !ok {
		return
	}
	h.listWindows(c, psychologistID)
}

// ListOwn handles GET /api/v1/psychologist/availability
func (h *AvailabilityHandler) ListOwn(c *gin.Context) {
	claims, err := middleware.GetUserClaims(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}
	h.listWindows(c, claims.PsychologistID)
}

func (h *AvailabilityHandler) listWindows(c *gin.Context, psychologistID string) {
	windows, err := h.availability.ListAvailability(c.Request.Context(), psychologistID)
	if err != nil {
		respondServiceError(c, err, "Failed to fetch availability")
		return
	}
	if windows == nil {
		windows = []*models.AvailabilityWindow{}
	}
	c.JSON(http.StatusOK, windows)
}

// Save handles POST /api/v1/psychologist/availability
// Creates the window for the weekday or replaces the existing one
func (h *AvailabilityHandler) Save(c *gin.Context) {
	claims, err := middleware.GetUserClaims(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	var req models.UpsertAvailabilityRequest
	if !bindJSON(c, &req) {
		return
	}

	window, err := h.availability.SaveAvailability(c.Request.Context(), claims.PsychologistID, &req)
	if err != nil {
		respondServiceError(c, err, "Failed to save availability")
		return
	}

	c.JSON(http.StatusOK, window)
}

// Delete handles DELETE /api/v1/psychologist/availability/:id
func (h *AvailabilityHandler) Delete(c *gin.Context) {
	claims, err := middleware.GetUserClaims(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	availabilityID, ok := uuidParam(c, "id", "availability ID")
	if !ok {
		return
	}

	if err := h.availability.DeleteAvailability(c.Request.Context(), claims.PsychologistID, availabilityID); err != nil {
		respondServiceError(c, err, "Failed to delete availability")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Availability deleted"})
}
