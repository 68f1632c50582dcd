package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/psysupport/psysupport-api/internal/database/memory"
	"github.com/psysupport/psysupport-api/internal/middleware"
	"github.com/psysupport/psysupport-api/internal/models"
	"github.com/psysupport/psysupport-api/internal/ranking"
	"github.com/psysupport/psysupport-api/internal/repository"
	"github.com/psysupport/psysupport-api/internal/reservation"
	"github.com/psysupport/psysupport-api/internal/services"
	"github.com/psysupport/psysupport-api/pkg/jwt"
	"github.com/stretchr/testify/require"
)

// fixedNow is Monday 2030-01-07 08:00 UTC
var fixedNow = time.Date(2030, 1, 7, 8, 0, 0, 0, time.UTC)

type apiFixture struct {
	router         *gin.Engine
	store          *memory.Store
	tokens         *jwt.TokenManager
	psychologistID string
	psyUserID      string
	clientID       string
	otherClientID  string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	store := memory.NewStore()
	link := "https://meet.example.com/room"
	store.AddSpecialization(memory.Specialization{ID: 1, Key: "anxiety", NameRu: "Тревожность"})

	psyUser := store.AddUser(memory.User{FirstName: "Madina", LastName: "Rahimova"})
	psyID := store.AddPsychologist(memory.Psychologist{
		UserID:            psyUser,
		ExperienceYears:   7,
		Languages:         []string{"ru"},
		WorkFormats:       []string{"online"},
		PricePerSession:   120,
		MeetingLink:       &link,
		IsVerified:        true,
		SpecializationIDs: []int{1},
	})
	clientID := store.AddUser(memory.User{FirstName: "Client", LastName: "One"})
	otherID := store.AddUser(memory.User{FirstName: "Client", LastName: "Two"})

	_, err := store.UpsertAvailability(context.Background(), &models.AvailabilityWindow{
		PsychologistID:      psyID,
		DayOfWeek:           time.Monday,
		StartTime:           models.NewTimeOfDay(9, 0),
		EndTime:             models.NewTimeOfDay(11, 0),
		SlotDurationMinutes: 60,
	})
	require.NoError(t, err)

	directory := repository.NewPsychologistRepository(store, nil)
	availability := services.NewAvailabilityService(store)
	booking := services.NewBookingService(store, store, directory, reservation.NewLocalLocker(), nil).
		WithClock(func() time.Time { return fixedNow })
	matching := services.NewMatchingService(store, directory, ranking.NewFallbackRanker(), nil, 0)

	tokens := jwt.NewTokenManager("handler-test-secret-with-32-characters", "psysupport", 1)

	router := gin.New()
	v1 := router.Group("/api/v1")
	registerTestRoutes(v1, tokens,
		NewAvailabilityHandler(availability, booking),
		NewSessionHandler(booking),
		NewMatchingHandler(matching))

	return &apiFixture{
		router:         router,
		store:          store,
		tokens:         tokens,
		psychologistID: psyID,
		psyUserID:      psyUser,
		clientID:       clientID,
		otherClientID:  otherID,
	}
}

// registerTestRoutes mirrors the production route table
func registerTestRoutes(v1 *gin.RouterGroup, tokens *jwt.TokenManager, availability *AvailabilityHandler, sessions *SessionHandler, matching *MatchingHandler) {
	auth := middleware.RequireAuth(tokens)
	psychologistOnly := middleware.RequirePsychologist()

	v1.GET("/availability/:psychologistId", availability.GetAvailableSlots)
	v1.GET("/availability/:psychologistId/windows", availability.GetWindows)
	v1.GET("/psychologist/availability", auth, psychologistOnly, availability.ListOwn)
	v1.POST("/psychologist/availability", auth, psychologistOnly, availability.Save)
	v1.DELETE("/psychologist/availability/:id", auth, psychologistOnly, availability.Delete)

	v1.POST("/sessions", auth, sessions.Book)
	v1.GET("/sessions/client", auth, sessions.ListForClient)
	v1.GET("/sessions/psychologist", auth, psychologistOnly, sessions.ListForPsychologist)
	v1.GET("/sessions/:id", auth, sessions.GetByID)
	v1.POST("/sessions/:id/cancel", auth, sessions.Cancel)
	v1.POST("/sessions/:id/confirm", auth, psychologistOnly, sessions.Confirm)
	v1.POST("/sessions/:id/complete", auth, psychologistOnly, sessions.Complete)

	v1.POST("/matching/questionnaire", middleware.OptionalAuth(tokens), matching.SubmitQuestionnaire)
}

func (f *apiFixture) clientToken(t *testing.T) string {
	return f.token(t, f.clientID, jwt.RoleClient, "")
}

func (f *apiFixture) psychologistToken(t *testing.T) string {
	return f.token(t, f.psyUserID, jwt.RolePsychologist, f.psychologistID)
}

func (f *apiFixture) token(t *testing.T, userID, role, psychologistID string) string {
	t.Helper()
	token, err := f.tokens.GenerateToken(userID, "Test", role, psychologistID)
	require.NoError(t, err)
	return token
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	reader := http.NoBody
	var req *http.Request
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, reader)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

// bookNine books the Monday 09:00 slot as the default client
func (f *apiFixture) bookNine(t *testing.T) *models.Session {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/v1/sessions", f.clientToken(t), gin.H{
		"psychologistId": f.psychologistID,
		"scheduledAt":    "2030-01-07T09:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var session models.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	return &session
}
