package services_test

import (
	"context"
	"time"

	"github.com/psysupport/psysupport-api/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockAvailabilityStore is a mock implementation of repository.AvailabilityStore
type MockAvailabilityStore struct {
	mock.Mock
}

func (m *MockAvailabilityStore) UpsertAvailability(ctx context.Context, w *models.AvailabilityWindow) (*models.AvailabilityWindow, error) {
	args := m.Called(ctx, w)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AvailabilityWindow), args.Error(1)
}

func (m *MockAvailabilityStore) DeleteAvailability(ctx context.Context, id, psychologistID string) (bool, error) {
	args := m.Called(ctx, id, psychologistID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAvailabilityStore) ListAvailability(ctx context.Context, psychologistID string) ([]*models.AvailabilityWindow, error) {
	args := m.Called(ctx, psychologistID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AvailabilityWindow), args.Error(1)
}

func (m *MockAvailabilityStore) GetAvailabilityForDay(ctx context.Context, psychologistID string, day time.Weekday) (*models.AvailabilityWindow, error) {
	args := m.Called(ctx, psychologistID, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AvailabilityWindow), args.Error(1)
}

// MockSessionStore is a mock implementation of repository.SessionStore
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) CreateSession(ctx context.Context, s *models.Session) (*models.Session, error) {
	args := m.Called(ctx, s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockSessionStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockSessionStore) ListSessions(ctx context.Context, filter models.SessionListFilter) ([]*models.Session, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Session), args.Error(1)
}

func (m *MockSessionStore) BookedStartTimes(ctx context.Context, psychologistID string, from, to time.Time) ([]time.Time, error) {
	args := m.Called(ctx, psychologistID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]time.Time), args.Error(1)
}

func (m *MockSessionStore) UpdateSessionStatus(ctx context.Context, id string, from, to models.SessionStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionStore) CompleteElapsedSessions(ctx context.Context, now time.Time) ([]string, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockQuestionnaireStore is a mock implementation of repository.QuestionnaireStore
type MockQuestionnaireStore struct {
	mock.Mock
}

func (m *MockQuestionnaireStore) CreateQuestionnaire(ctx context.Context, q *models.Questionnaire) error {
	args := m.Called(ctx, q)
	return args.Error(0)
}

func (m *MockQuestionnaireStore) SaveRankingSnapshot(ctx context.Context, questionnaireID string, snapshot []byte) error {
	args := m.Called(ctx, questionnaireID, snapshot)
	return args.Error(0)
}

// MockDirectory is a mock implementation of repository.PsychologistDirectory
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) FindCandidates(ctx context.Context, filter models.CandidateFilter) ([]*models.PsychologistCandidate, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PsychologistCandidate), args.Error(1)
}

func (m *MockDirectory) GetMeetingLink(ctx context.Context, psychologistID string) (*string, error) {
	args := m.Called(ctx, psychologistID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*string), args.Error(1)
}

// MockRanker is a mock implementation of ranking.Provider
type MockRanker struct {
	mock.Mock
}

func (m *MockRanker) Rank(ctx context.Context, q *models.Questionnaire, candidates []*models.PsychologistCandidate) ([]models.MatchResult, error) {
	args := m.Called(ctx, q, candidates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MatchResult), args.Error(1)
}

// MockArchive is a mock implementation of services.SnapshotArchive
type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) PutJSON(ctx context.Context, key string, body []byte) error {
	args := m.Called(ctx, key, body)
	return args.Error(0)
}
