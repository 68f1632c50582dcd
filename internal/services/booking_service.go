package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/psysupport/psysupport-api/internal/models"
	"github.com/psysupport/psysupport-api/internal/repository"
	"github.com/psysupport/psysupport-api/internal/reservation"
	"github.com/psysupport/psysupport-api/internal/slots"
	apperrors "github.com/psysupport/psysupport-api/pkg/errors"
	"github.com/psysupport/psysupport-api/pkg/logger"
	"github.com/psysupport/psysupport-api/pkg/metrics"
	"github.com/psysupport/psysupport-api/pkg/trigger"
	"go.uber.org/zap"
)

const maxStatusRetries = 3

// BookingService turns availability into slots and keeps the session ledger
type BookingService struct {
	sessions     repository.SessionStore
	availability repository.AvailabilityStore
	directory    repository.PsychologistDirectory
	locker       reservation.Locker
	notifier     *trigger.Notifier
	now          func() time.Time
}

// NewBookingService creates a new BookingService. notifier may be nil.
func NewBookingService(
	sessions repository.SessionStore,
	availability repository.AvailabilityStore,
	directory repository.PsychologistDirectory,
	locker reservation.Locker,
	notifier *trigger.Notifier,
) *BookingService {
	if locker == nil {
		locker = reservation.NewLocalLocker()
	}
	return &BookingService{
		sessions:     sessions,
		availability: availability,
		directory:    directory,
		locker:       locker,
		notifier:     notifier,
		now:          time.Now,
	}
}

// WithClock replaces the time source
func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

// dayBounds returns UTC midnight of the date and of the following day
func dayBounds(date time.Time) (time.Time, time.Time) {
	date = date.UTC()
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// ComputeAvailableSlots returns the free slots of a psychologist on a date
func (s *BookingService) ComputeAvailableSlots(ctx context.Context, psychologistID string, date time.Time) ([]models.TimeSlot, error) {
	from, to := dayBounds(date)

	window, err := s.availability.GetAvailabilityForDay(ctx, psychologistID, from.Weekday())
	if err != nil {
		return nil, fmt.Errorf("failed to load availability: %w", err)
	}
	if window == nil {
		metrics.SlotQueries.WithLabelValues("empty").Inc()
		return []models.TimeSlot{}, nil
	}

	starts, err := s.sessions.BookedStartTimes(ctx, psychologistID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load booked sessions: %w", err)
	}
	booked := make(slots.BookedSet, len(starts))
	for _, t := range starts {
		booked[models.TimeOfDayOf(t)] = struct{}{}
	}

	free := slots.Generate(window, booked)
	if len(free) == 0 {
		metrics.SlotQueries.WithLabelValues("empty").Inc()
	} else {
		metrics.SlotQueries.WithLabelValues("slots").Inc()
	}
	return free, nil
}

// Book creates a pending session for a free slot
func (s *BookingService) Book(ctx context.Context, clientID string, req *models.BookSessionRequest) (*models.Session, error) {
	session, err := s.book(ctx, clientID, req)

	status := "success"
	switch {
	case err == nil:
	case apperrors.Is(err, ErrSlotUnavailable):
		status = "slot_unavailable"
	case apperrors.Is(err, ErrUnknownAccount):
		status = "unknown_account"
	case apperrors.Is(err, apperrors.ErrNotFound):
		status = "not_found"
	default:
		status = "error"
	}
	metrics.SessionsBooked.WithLabelValues(status).Inc()

	return session, err
}

func (s *BookingService) book(ctx context.Context, clientID string, req *models.BookSessionRequest) (*models.Session, error) {
	psychologistID := req.PsychologistID

	meetingLink, err := s.directory.GetMeetingLink(ctx, psychologistID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrPsychologistNotFound
		}
		return nil, fmt.Errorf("failed to load psychologist: %w", err)
	}

	scheduledAt := req.ScheduledAt.UTC()
	if !scheduledAt.After(s.now()) || !scheduledAt.Truncate(time.Minute).Equal(scheduledAt) {
		return nil, ErrSlotUnavailable
	}

	release, err := s.locker.Acquire(ctx, reservation.SlotKey(psychologistID, scheduledAt))
	switch {
	case err == nil:
		defer release()
	case apperrors.Is(err, reservation.ErrHeld):
		logger.Info("Slot is being booked by another request",
			zap.String("psychologist_id", psychologistID),
			zap.Time("scheduled_at", scheduledAt))
		return nil, ErrSlotUnavailable
	default:
		// the unique index on live sessions still rejects a double booking
		logger.Warn("Slot reservation unavailable, relying on storage constraint",
			zap.String("psychologist_id", psychologistID),
			zap.Error(err))
	}

	free, err := s.ComputeAvailableSlots(ctx, psychologistID, scheduledAt)
	if err != nil {
		return nil, err
	}
	slot, ok := slots.Find(free, models.TimeOfDayOf(scheduledAt))
	if !ok {
		return nil, ErrSlotUnavailable
	}

	session := &models.Session{
		ClientID:        clientID,
		PsychologistID:  psychologistID,
		ScheduledAt:     scheduledAt,
		DurationMinutes: slot.DurationMinutes,
		Status:          models.SessionPending,
		MeetingLink:     meetingLink,
	}
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		session.Notes = &notes
	}

	created, err := s.sessions.CreateSession(ctx, session)
	if err != nil {
		switch {
		case apperrors.Is(err, apperrors.ErrConflict):
			return nil, ErrSlotUnavailable
		case apperrors.Is(err, repository.ErrUnknownUser):
			logger.Warn("Booking by a user without an account row", zap.String("client_id", clientID))
			return nil, ErrUnknownAccount
		case apperrors.Is(err, apperrors.ErrNotFound):
			return nil, ErrPsychologistNotFound
		}
		logger.Error("Failed to create session",
			zap.String("psychologist_id", psychologistID),
			zap.Time("scheduled_at", scheduledAt),
			zap.Error(err))
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.notifier.NotifyAsync(trigger.Event{
		Type:      trigger.SessionBooked,
		SessionID: created.ID,
		Status:    string(created.Status),
	})

	logger.Info("Session booked",
		zap.String("session_id", created.ID),
		zap.String("client_id", clientID),
		zap.String("psychologist_id", psychologistID),
		zap.Time("scheduled_at", scheduledAt))

	return created, nil
}

// GetByID returns a session. Party checks are the caller's job.
func (s *BookingService) GetByID(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return session, nil
}

// ListForClient returns the client's sessions, newest first
func (s *BookingService) ListForClient(ctx context.Context, clientID string) ([]*models.Session, error) {
	sessions, err := s.sessions.ListSessions(ctx, models.SessionListFilter{ClientID: clientID})
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// ListForPsychologist returns the psychologist's sessions, newest first
func (s *BookingService) ListForPsychologist(ctx context.Context, psychologistID string) ([]*models.Session, error) {
	sessions, err := s.sessions.ListSessions(ctx, models.SessionListFilter{PsychologistID: psychologistID})
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// Cancel cancels a session on behalf of either party. Cancelling a session
// that is already cancelled or completed succeeds without changes.
func (s *BookingService) Cancel(ctx context.Context, sessionID, userID, psychologistID string) error {
	for attempt := 0; attempt < maxStatusRetries; attempt++ {
		session, err := s.GetByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if !session.IsParty(userID, psychologistID) {
			logger.Warn("Cancel by non-party",
				zap.String("session_id", sessionID),
				zap.String("user_id", userID))
			return ErrSessionNotFound
		}
		if session.Status.IsTerminal() {
			return nil
		}

		ok, err := s.sessions.UpdateSessionStatus(ctx, sessionID, session.Status, models.SessionCancelled)
		if err != nil {
			metrics.SessionTransitions.WithLabelValues(string(models.SessionCancelled), "error").Inc()
			return fmt.Errorf("failed to cancel session: %w", err)
		}
		if ok {
			s.statusChanged(session, models.SessionCancelled)
			return nil
		}
		// status moved under us; re-read and decide again
	}
	metrics.SessionTransitions.WithLabelValues(string(models.SessionCancelled), "conflict").Inc()
	return ErrInvalidStatusTransition
}

// Confirm moves a pending session of the psychologist to confirmed
func (s *BookingService) Confirm(ctx context.Context, sessionID, psychologistID string) error {
	return s.transition(ctx, sessionID, psychologistID, models.SessionPending, models.SessionConfirmed, nil)
}

// Complete marks a confirmed session as completed once its end time has passed
func (s *BookingService) Complete(ctx context.Context, sessionID, psychologistID string) error {
	return s.transition(ctx, sessionID, psychologistID, models.SessionConfirmed, models.SessionCompleted,
		func(session *models.Session) bool {
			return !session.EndsAt().After(s.now())
		})
}

func (s *BookingService) transition(
	ctx context.Context,
	sessionID, psychologistID string,
	from, to models.SessionStatus,
	allowed func(*models.Session) bool,
) error {
	session, err := s.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.PsychologistID != psychologistID {
		logger.Warn("Status change by another psychologist",
			zap.String("session_id", sessionID),
			zap.String("session_psychologist", session.PsychologistID),
			zap.String("requesting_psychologist", psychologistID))
		return ErrSessionNotFound
	}

	if session.Status != from || (allowed != nil && !allowed(session)) {
		logger.Warn("Invalid status transition",
			zap.String("session_id", sessionID),
			zap.String("from_status", string(session.Status)),
			zap.String("to_status", string(to)))
		metrics.SessionTransitions.WithLabelValues(string(to), "rejected").Inc()
		return fmt.Errorf("%w: cannot transition from '%s' to '%s'", ErrInvalidStatusTransition, session.Status, to)
	}

	ok, err := s.sessions.UpdateSessionStatus(ctx, sessionID, from, to)
	if err != nil {
		metrics.SessionTransitions.WithLabelValues(string(to), "error").Inc()
		return fmt.Errorf("failed to update session status: %w", err)
	}
	if !ok {
		metrics.SessionTransitions.WithLabelValues(string(to), "rejected").Inc()
		return fmt.Errorf("%w: session left '%s' concurrently", ErrInvalidStatusTransition, from)
	}

	s.statusChanged(session, to)
	return nil
}

func (s *BookingService) statusChanged(session *models.Session, to models.SessionStatus) {
	metrics.SessionTransitions.WithLabelValues(string(to), "success").Inc()

	s.notifier.NotifyAsync(trigger.Event{
		Type:      trigger.SessionStatusChanged,
		SessionID: session.ID,
		Status:    string(to),
	})

	logger.Info("Session status updated",
		zap.String("session_id", session.ID),
		zap.String("from_status", string(session.Status)),
		zap.String("to_status", string(to)))
}
