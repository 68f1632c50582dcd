package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/psysupport/psysupport-api/internal/middleware"
	"github.com/psysupport/psysupport-api/internal/models"
	"github.com/psysupport/psysupport-api/internal/services"
)

// MatchingHandler handles questionnaire submissions
type MatchingHandler struct {
	service services.MatchingServiceInterface
}

// NewMatchingHandler creates a new MatchingHandler
func NewMatchingHandler(service services.MatchingServiceInterface) *MatchingHandler {
	return &MatchingHandler{
		service: service,
	}
}

// SubmitQuestionnaire handles POST /api/v1/matching/questionnaire
// Anonymous callers may pass a guestSessionId instead of a bearer token
func (h *MatchingHandler) SubmitQuestionnaire(c *gin.Context) {
	var req models.SubmitQuestionnaireRequest
	if !bindJSON(c, &req) {
		return
	}

	userID := ""
	if claims, err := middleware.GetUserClaims(c); err == nil {
		userID = claims.UserID()
	}

	matches, err := h.service.Submit(c.Request.Context(), &req, userID)
	if err != nil {
		respondServiceError(c, err, "Failed to process questionnaire")
		return
	}

	c.JSON(http.StatusOK, matches)
}
