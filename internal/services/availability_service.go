package services

import (
	"context"
	"fmt"

	"github.com/psysupport/psysupport-api/internal/models"
	"github.com/psysupport/psysupport-api/internal/repository"
	apperrors "github.com/psysupport/psysupport-api/pkg/errors"
	"github.com/psysupport/psysupport-api/pkg/logger"
	"go.uber.org/zap"
)

// AvailabilityService manages psychologists' weekly windows
type AvailabilityService struct {
	store repository.AvailabilityStore
}

// NewAvailabilityService creates a new AvailabilityService
func NewAvailabilityService(store repository.AvailabilityStore) *AvailabilityService {
	return &AvailabilityService{store: store}
}

// SaveAvailability validates the window and upserts it for its weekday
func (s *AvailabilityService) SaveAvailability(ctx context.Context, psychologistID string, req *models.UpsertAvailabilityRequest) (*models.AvailabilityWindow, error) {
	window := req.ToWindow(psychologistID)
	if err := window.Validate(); err != nil {
		return nil, err
	}

	saved, err := s.store.UpsertAvailability(ctx, window)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrPsychologistNotFound
		}
		logger.Error("Failed to save availability",
			zap.String("psychologist_id", psychologistID),
			zap.Int("day_of_week", int(window.DayOfWeek)),
			zap.Error(err))
		return nil, fmt.Errorf("failed to save availability: %w", err)
	}

	logger.Info("Availability saved",
		zap.String("psychologist_id", psychologistID),
		zap.String("availability_id", saved.ID),
		zap.String("day", saved.DayOfWeek.String()),
		zap.String("start", saved.StartTime.String()),
		zap.String("end", saved.EndTime.String()))

	return saved, nil
}

// DeleteAvailability removes a window the psychologist owns
func (s *AvailabilityService) DeleteAvailability(ctx context.Context, psychologistID, availabilityID string) error {
	deleted, err := s.store.DeleteAvailability(ctx, availabilityID, psychologistID)
	if err != nil {
		logger.Error("Failed to delete availability",
			zap.String("psychologist_id", psychologistID),
			zap.String("availability_id", availabilityID),
			zap.Error(err))
		return fmt.Errorf("failed to delete availability: %w", err)
	}
	if !deleted {
		return ErrAvailabilityNotFound
	}

	logger.Info("Availability deleted",
		zap.String("psychologist_id", psychologistID),
		zap.String("availability_id", availabilityID))
	return nil
}

// ListAvailability returns all windows of a psychologist
func (s *AvailabilityService) ListAvailability(ctx context.Context, psychologistID string) ([]*models.AvailabilityWindow, error) {
	windows, err := s.store.ListAvailability(ctx, psychologistID)
	if err != nil {
		return nil, fmt.Errorf("failed to list availability: %w", err)
	}
	return windows, nil
}
