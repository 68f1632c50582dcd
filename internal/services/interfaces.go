package services

import (
	"context"
	"time"

	"github.com/psysupport/psysupport-api/internal/models"
)

// AvailabilityServiceInterface defines the interface for availability window management
type AvailabilityServiceInterface interface {
	SaveAvailability(ctx context.Context, psychologistID string, req *models.UpsertAvailabilityRequest) (*models.AvailabilityWindow, error)
	DeleteAvailability(ctx context.Context, psychologistID, availabilityID string) error
	ListAvailability(ctx context.Context, psychologistID string) ([]*models.AvailabilityWindow, error)
}

// BookingServiceInterface defines the interface for slot computation and the session ledger
type BookingServiceInterface interface {
	ComputeAvailableSlots(ctx context.Context, psychologistID string, date time.Time) ([]models.TimeSlot, error)
	Book(ctx context.Context, clientID string, req *models.BookSessionRequest) (*models.Session, error)
	GetByID(ctx context.Context, sessionID string) (*models.Session, error)
	ListForClient(ctx context.Context, clientID string) ([]*models.Session, error)
	ListForPsychologist(ctx context.Context, psychologistID string) ([]*models.Session, error)
	Cancel(ctx context.Context, sessionID, userID, psychologistID string) error
	Confirm(ctx context.Context, sessionID, psychologistID string) error
	Complete(ctx context.Context, sessionID, psychologistID string) error
}

// MatchingServiceInterface defines the interface for questionnaire matching
type MatchingServiceInterface interface {
	Submit(ctx context.Context, req *models.SubmitQuestionnaireRequest, userID string) ([]models.PsychologistMatch, error)
}

var (
	_ AvailabilityServiceInterface = (*AvailabilityService)(nil)
	_ BookingServiceInterface      = (*BookingService)(nil)
	_ MatchingServiceInterface     = (*MatchingService)(nil)
)
