package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/psysupport/psysupport-api/internal/models"
	"github.com/psysupport/psysupport-api/internal/services"
	apperrors "github.com/psysupport/psysupport-api/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func timeOfDay(hour, minute int) *models.TimeOfDay {
	t := models.NewTimeOfDay(hour, minute)
	return &t
}

func TestAvailabilityService_SaveAvailability(t *testing.T) {
	store := new(MockAvailabilityStore)
	service := services.NewAvailabilityService(store)
	ctx := context.Background()

	req := &models.UpsertAvailabilityRequest{
		DayOfWeek: intPtr(1),
		StartTime: timeOfDay(9, 0),
		EndTime:   models.NewTimeOfDay(13, 0),
	}
	saved := &models.AvailabilityWindow{
		ID:                  "w1",
		PsychologistID:      "p1",
		DayOfWeek:           time.Monday,
		StartTime:           models.NewTimeOfDay(9, 0),
		EndTime:             models.NewTimeOfDay(13, 0),
		SlotDurationMinutes: models.DefaultSlotDurationMinutes,
	}

	store.On("UpsertAvailability", ctx, mock.MatchedBy(func(w *models.AvailabilityWindow) bool {
		return w.PsychologistID == "p1" && w.DayOfWeek == time.Monday && w.SlotDurationMinutes == 60
	})).Return(saved, nil).Once()

	got, err := service.SaveAvailability(ctx, "p1", req)
	require.NoError(t, err)
	assert.Equal(t, saved, got)
	store.AssertExpectations(t)
}

func TestAvailabilityService_SaveAvailability_InvalidWindow(t *testing.T) {
	store := new(MockAvailabilityStore)
	service := services.NewAvailabilityService(store)

	req := &models.UpsertAvailabilityRequest{
		DayOfWeek: intPtr(2),
		StartTime: timeOfDay(13, 0),
		EndTime:   models.NewTimeOfDay(9, 0),
	}

	_, err := service.SaveAvailability(context.Background(), "p1", req)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	store.AssertNotCalled(t, "UpsertAvailability", mock.Anything, mock.Anything)
}

func TestAvailabilityService_SaveAvailability_UnknownPsychologist(t *testing.T) {
	store := new(MockAvailabilityStore)
	service := services.NewAvailabilityService(store)
	ctx := context.Background()

	store.On("UpsertAvailability", ctx, mock.Anything).Return(nil, apperrors.NotFoundError("psychologist")).Once()

	_, err := service.SaveAvailability(ctx, "ghost", &models.UpsertAvailabilityRequest{
		DayOfWeek: intPtr(1),
		StartTime: timeOfDay(9, 0),
		EndTime:   models.NewTimeOfDay(10, 0),
	})
	assert.ErrorIs(t, err, services.ErrPsychologistNotFound)
}

func TestAvailabilityService_DeleteAvailability(t *testing.T) {
	store := new(MockAvailabilityStore)
	service := services.NewAvailabilityService(store)
	ctx := context.Background()

	store.On("DeleteAvailability", ctx, "w1", "p1").Return(true, nil).Once()
	store.On("DeleteAvailability", ctx, "w1", "p2").Return(false, nil).Once()
	store.On("DeleteAvailability", ctx, "w2", "p1").Return(false, errors.New("db down")).Once()

	assert.NoError(t, service.DeleteAvailability(ctx, "p1", "w1"))
	assert.ErrorIs(t, service.DeleteAvailability(ctx, "p2", "w1"), services.ErrAvailabilityNotFound)

	err := service.DeleteAvailability(ctx, "p1", "w2")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)

	store.AssertExpectations(t)
}

func TestAvailabilityService_ListAvailability(t *testing.T) {
	store := new(MockAvailabilityStore)
	service := services.NewAvailabilityService(store)
	ctx := context.Background()

	windows := []*models.AvailabilityWindow{{ID: "w1"}, {ID: "w2"}}
	store.On("ListAvailability", ctx, "p1").Return(windows, nil).Once()

	got, err := service.ListAvailability(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
