// Package reservation holds short-lived, non-blocking locks on bookable slots.
// A lock only narrows the booking race; the session store's uniqueness rule
// is what finally rejects a double booking.
package reservation

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/psysupport/psysupport-api/pkg/errors"
	"github.com/psysupport/psysupport-api/pkg/metrics"
)

// ErrHeld is returned when another request already holds the key
var ErrHeld = apperrors.ConflictError("slot reservation held")

// Locker acquires a lock on key without waiting. The returned release func
// is safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// SlotKey identifies one start time of one psychologist
func SlotKey(psychologistID string, scheduledAt time.Time) string {
	return "slot:" + psychologistID + ":" + scheduledAt.UTC().Format(time.RFC3339)
}

// LocalLocker serializes bookings within a single process
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalLocker creates an in-process locker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: map[string]struct{}{}}
}

// Acquire implements Locker
func (l *LocalLocker) Acquire(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[key]; busy {
		metrics.ReservationAttempts.WithLabelValues("local", "held").Inc()
		return nil, ErrHeld
	}
	l.held[key] = struct{}{}
	metrics.ReservationAttempts.WithLabelValues("local", "acquired").Inc()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}
