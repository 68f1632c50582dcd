package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/psysupport/psysupport-api/internal/models"
	"github.com/psysupport/psysupport-api/internal/ranking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchingHandler_SubmitQuestionnaire_Guest(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/matching/questionnaire", "", gin.H{
		"guestSessionId":    "guest-1",
		"preferredLanguage": "ru",
		"mainIssue":         "anxiety",
		"urgencyLevel":      "high",
		"formatPreference":  "online",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var matches []models.PsychologistMatch
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &matches))
	require.Len(t, matches, 1)
	assert.Equal(t, f.psychologistID, matches[0].ID)
	assert.Equal(t, "Madina Rahimova", matches[0].Name)
	assert.Equal(t, 100, matches[0].MatchScore)
	assert.Equal(t, ranking.FallbackReason, matches[0].MatchReason)
	assert.Equal(t, []string{"Тревожность"}, matches[0].Specializations)
}

func TestMatchingHandler_SubmitQuestionnaire_Authenticated(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/matching/questionnaire", f.clientToken(t), gin.H{
		"preferredLanguage": "en",
		"mainIssue":         "burnout",
		"urgencyLevel":      "low",
		"formatPreference":  "any",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var matches []models.PsychologistMatch
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &matches))
	require.Len(t, matches, 1, "pool is relaxed when nobody speaks the language")
	assert.Equal(t, 50, matches[0].MatchScore)
}

func TestMatchingHandler_SubmitQuestionnaire_Validation(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/matching/questionnaire", "", gin.H{
		"preferredLanguage": "ru",
		"mainIssue":         "anxiety",
		"urgencyLevel":      "extreme",
		"formatPreference":  "online",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "UrgencyLevel must be one of")

	w = f.do(t, http.MethodPost, "/api/v1/matching/questionnaire", "", gin.H{
		"preferredLanguage": "ru",
		"urgencyLevel":      "low",
		"formatPreference":  "online",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "MainIssue is required")
}

type failingMatcher struct{}

func (failingMatcher) Submit(context.Context, *models.SubmitQuestionnaireRequest, string) ([]models.PsychologistMatch, error) {
	return nil, errors.New("database is down")
}

func TestMatchingHandler_SubmitQuestionnaire_ServiceError(t *testing.T) {
	router := gin.New()
	router.POST("/questionnaire", NewMatchingHandler(failingMatcher{}).SubmitQuestionnaire)

	body := `{"preferredLanguage":"ru","mainIssue":"anxiety","urgencyLevel":"low","formatPreference":"chat"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/questionnaire", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to process questionnaire"}`, w.Body.String())
}
