package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/psysupport/psysupport-api/internal/middleware"
	"github.com/psysupport/psysupport-api/internal/models"
	"github.com/psysupport/psysupport-api/internal/services"
)

// SessionHandler handles booking and the session lifecycle
type SessionHandler struct {
	service services.BookingServiceInterface
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(service services.BookingServiceInterface) *SessionHandler {
	return &SessionHandler{
		service: service,
	}
}

// Book handles POST /api/v1/sessions
func (h *SessionHandler) Book(c *gin.Context) {
	claims, err := middleware.GetUserClaims(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	var req models.BookSessionRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.service.Book(c.Request.Context(), claims.UserID(), &req)
	if err != nil {
		respondServiceError(c, err, "Failed to book session")
		return
	}

	c.JSON(http.StatusCreated, session)
}

// GetByID handles GET /api/v1/sessions/:id
// Only the client or the psychologist of the session can see it
func (h *SessionHandler) GetByID(c *gin.Context) {
	claims, err := middleware.GetUserClaims(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	sessionID, ok := uuidParam(c, "id", "session ID")
	if !ok {
		return
	}

	session, err := h.service.GetByID(c.Request.Context(), sessionID)
	if err != nil {
		respondServiceError(c, err, "Failed to fetch session")
		return
	}
	if !session.IsParty(claims.UserID(), claims.PsychologistID) {
		respondServiceError(c, services.ErrSessionNotFound, "Failed to fetch session")
		return
	}

	c.JSON(http.StatusOK, session)
}

// ListForClient handles GET /api/v1/sessions/client
func (h *SessionHandler) ListForClient(c *gin.Context) {
	claims, err := middleware.GetUserClaims(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	sessions, err := h.service.ListForClient(c.Request.Context(), claims.UserID())
	if err != nil {
		respondServiceError(c, err, "Failed to fetch sessions")
		return
	}
	respondSessions(c, sessions)
}

// ListForPsychologist handles GET /api/v1/sessions/psychologist
func (h *SessionHandler) ListForPsychologist(c *gin.Context) {
	claims, err := middleware.GetUserClaims(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	sessions, err := h.service.ListForPsychologist(c.Request.Context(), claims.PsychologistID)
	if err != nil {
		respondServiceError(c, err, "Failed to fetch sessions")
		return
	}
	respondSessions(c, sessions)
}

// Cancel handles POST /api/v1/sessions/:id/cancel
// Either party may cancel; cancelling a finished session is a no-op
func (h *SessionHandler) Cancel(c *gin.Context) {
	claims, err := middleware.GetUserClaims(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	sessionID, ok := uuidParam(c, "id", "session ID")
	if !ok {
		return
	}

	if err := h.service.Cancel(c.Request.Context(), sessionID, claims.UserID(), claims.PsychologistID); err != nil {
		respondServiceError(c, err, "Failed to cancel session")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Session cancelled"})
}

// Confirm handles POST /api/v1/sessions/:id/confirm
func (h *SessionHandler) Confirm(c *gin.Context) {
	h.psychologistTransition(c, h.service.Confirm, "Session confirmed", "Failed to confirm session")
}

// Complete handles POST /api/v1/sessions/:id/complete
func (h *SessionHandler) Complete(c *gin.Context) {
	h.psychologistTransition(c, h.service.Complete, "Session completed", "Failed to complete session")
}

func (h *SessionHandler) psychologistTransition(
	c *gin.Context,
	transition func(ctx context.Context, sessionID, psychologistID string) error,
	okMessage, failMessage string,
) {
	claims, err := middleware.GetUserClaims(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	sessionID, ok := uuidParam(c, "id", "session ID")
	if !ok {
		return
	}

	if err := transition(c.Request.Context(), sessionID, claims.PsychologistID); err != nil {
		respondServiceError(c, err, failMessage)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": okMessage})
}

func respondSessions(c *gin.Context, sessions []*models.Session) {
	if sessions == nil {
		sessions = []*models.Session{}
	}
	c.JSON(http.StatusOK, sessions)
}
