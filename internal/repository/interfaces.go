package repository

import (
	"context"
	"time"

	"github.com/psysupport/psysupport-api/internal/models"
)

// Storage contracts. Implemented by internal/database/postgres and, for
// offline mode and tests, internal/database/memory.

// AvailabilityStore persists recurring weekday windows
type AvailabilityStore interface {
	// UpsertAvailability replaces the window for the same weekday in place, or inserts it
	UpsertAvailability(ctx context.Context, w *models.AvailabilityWindow) (*models.AvailabilityWindow, error)

	// DeleteAvailability returns false when no window with that id belongs to the psychologist
	DeleteAvailability(ctx context.Context, id, psychologistID string) (bool, error)

	// ListAvailability is ordered by weekday then start time
	ListAvailability(ctx context.Context, psychologistID string) ([]*models.AvailabilityWindow, error)

	// GetAvailabilityForDay returns nil when the psychologist does not work that weekday
	GetAvailabilityForDay(ctx context.Context, psychologistID string, day time.Weekday) (*models.AvailabilityWindow, error)
}

// SessionStore persists booked sessions
type SessionStore interface {
	// CreateSession fails with errors.ErrConflict when a live session holds the same start,
	// and with ErrUnknownUser or ErrUnknownPsychologist when a party row is missing
	CreateSession(ctx context.Context, s *models.Session) (*models.Session, error)

	// GetSession fails with errors.ErrNotFound when absent
	GetSession(ctx context.Context, id string) (*models.Session, error)

	// ListSessions is ordered by scheduled time, newest first
	ListSessions(ctx context.Context, filter models.SessionListFilter) ([]*models.Session, error)

	// BookedStartTimes lists starts of non-cancelled sessions in [from, to)
	BookedStartTimes(ctx context.Context, psychologistID string, from, to time.Time) ([]time.Time, error)

	// UpdateSessionStatus is a compare-and-swap; false means the session was not in from
	UpdateSessionStatus(ctx context.Context, id string, from, to models.SessionStatus) (bool, error)

	// CompleteElapsedSessions completes confirmed sessions that ended by now
	CompleteElapsedSessions(ctx context.Context, now time.Time) ([]string, error)
}

// QuestionnaireStore persists intake answers and their ranking snapshots
type QuestionnaireStore interface {
	// CreateQuestionnaire fails with ErrUnknownUser when UserID has no user row
	CreateQuestionnaire(ctx context.Context, q *models.Questionnaire) error
	SaveRankingSnapshot(ctx context.Context, questionnaireID string, snapshot []byte) error
}

// DirectorySource reads the psychologist profile store
type DirectorySource interface {
	FindCandidates(ctx context.Context, filter models.CandidateFilter) ([]*models.PsychologistCandidate, error)

	// GetMeetingLink may return a nil link; a missing psychologist is errors.ErrNotFound
	GetMeetingLink(ctx context.Context, psychologistID string) (*string, error)
}
