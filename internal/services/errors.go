package services

import (
	"fmt"

	apperrors "github.com/psysupport/psysupport-api/pkg/errors"
)

// Service errors. Each wraps a pkg/errors sentinel so handlers can map the
// HTTP status with errors.Is.
var (
	ErrSessionNotFound         = fmt.Errorf("session %w", apperrors.ErrNotFound)
	ErrAvailabilityNotFound    = fmt.Errorf("availability window %w", apperrors.ErrNotFound)
	ErrPsychologistNotFound    = fmt.Errorf("psychologist %w", apperrors.ErrNotFound)
	ErrSlotUnavailable         = fmt.Errorf("slot unavailable: %w", apperrors.ErrConflict)
	ErrInvalidStatusTransition = fmt.Errorf("invalid status transition: %w", apperrors.ErrConflict)

	// ErrUnknownAccount means a verified token names a user with no account row
	ErrUnknownAccount = fmt.Errorf("account does not exist: %w", apperrors.ErrUnauthorized)
)
