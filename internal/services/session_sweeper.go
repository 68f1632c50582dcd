package services

import (
	"context"
	"time"

	"github.com/psysupport/psysupport-api/internal/models"
	"github.com/psysupport/psysupport-api/internal/repository"
	"github.com/psysupport/psysupport-api/pkg/logger"
	"github.com/psysupport/psysupport-api/pkg/metrics"
	"github.com/psysupport/psysupport-api/pkg/trigger"
	"go.uber.org/zap"
)

const defaultSweepInterval = 5 * time.Minute

// SessionSweeper periodically completes confirmed sessions whose end time has
// passed. Pending sessions are left alone.
type SessionSweeper struct {
	sessions repository.SessionStore
	notifier *trigger.Notifier
	interval time.Duration
	now      func() time.Time
}

// NewSessionSweeper creates a sweeper. notifier may be nil.
func NewSessionSweeper(sessions repository.SessionStore, interval time.Duration, notifier *trigger.Notifier) *SessionSweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &SessionSweeper{
		sessions: sessions,
		notifier: notifier,
		interval: interval,
		now:      time.Now,
	}
}

// WithClock replaces the time source
func (s *SessionSweeper) WithClock(now func() time.Time) *SessionSweeper {
	s.now = now
	return s
}

// SweepOnce completes elapsed sessions and returns how many changed
func (s *SessionSweeper) SweepOnce(ctx context.Context) (int, error) {
	start := time.Now()

	ids, err := s.sessions.CompleteElapsedSessions(ctx, s.now().UTC())
	if err != nil {
		logger.LogError(err, "Session sweep failed")
		return 0, err
	}

	for _, id := range ids {
		s.notifier.NotifyAsync(trigger.Event{
			Type:      trigger.SessionStatusChanged,
			SessionID: id,
			Status:    string(models.SessionCompleted),
		})
	}
	metrics.SessionsSwept.Add(float64(len(ids)))

	if len(ids) > 0 {
		logger.Info("Completed elapsed sessions",
			zap.Int("count", len(ids)),
			zap.Duration("duration", time.Since(start)))
	}
	return len(ids), nil
}

// Run sweeps on every tick until ctx is cancelled
func (s *SessionSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Info("Session sweeper started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Session sweeper stopped")
			return
		case <-ticker.C:
			_, _ = s.SweepOnce(ctx)
		}
	}
}
