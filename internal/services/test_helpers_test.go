package services_test

import (
	"context"
	"time"

	"github.com/psysupport/psysupport-api/internal/database/memory"
	"github.com/psysupport/psysupport-api/internal/models"
	"github.com/psysupport/psysupport-api/internal/repository"
	"github.com/psysupport/psysupport-api/internal/reservation"
	"github.com/psysupport/psysupport-api/internal/services"
	"github.com/psysupport/psysupport-api/pkg/logger"
)

func init() {
	// Initialize logger for tests
	if err := logger.Initialize(logger.Config{
		Level:       "debug",
		Environment: "development",
	}); err != nil {
		panic(err)
	}
}

// monday0800 is a fixed "now": Monday 2030-01-07 08:00 UTC
var monday0800 = time.Date(2030, 1, 7, 8, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return time.Date(2030, 1, 7, hour, minute, 0, 0, time.UTC)
}

type bookingFixture struct {
	store          *memory.Store
	service        *services.BookingService
	psychologistID string
	otherPsyID     string
	clientID       string
}

// newBookingFixture seeds one psychologist working Mondays 09:00-11:00
func newBookingFixture() *bookingFixture {
	s := memory.NewStore()
	link := "https://meet.example.com/room"

	psyUser := s.AddUser(memory.User{FirstName: "Madina", LastName: "Rahimova"})
	psyID := s.AddPsychologist(memory.Psychologist{UserID: psyUser, MeetingLink: &link, IsVerified: true})
	otherUser := s.AddUser(memory.User{FirstName: "Other", LastName: "Psy"})
	otherID := s.AddPsychologist(memory.Psychologist{UserID: otherUser, IsVerified: true})
	clientID := s.AddUser(memory.User{FirstName: "Client", LastName: "One"})

	_, err := s.UpsertAvailability(context.Background(), &models.AvailabilityWindow{
		PsychologistID:      psyID,
		DayOfWeek:           time.Monday,
		StartTime:           models.NewTimeOfDay(9, 0),
		EndTime:             models.NewTimeOfDay(11, 0),
		SlotDurationMinutes: 60,
	})
	if err != nil {
		panic(err)
	}

	directory := repository.NewPsychologistRepository(s, nil)
	svc := services.NewBookingService(s, s, directory, reservation.NewLocalLocker(), nil).
		WithClock(func() time.Time { return monday0800 })

	return &bookingFixture{
		store:          s,
		service:        svc,
		psychologistID: psyID,
		otherPsyID:     otherID,
		clientID:       clientID,
	}
}

func (f *bookingFixture) book(scheduledAt time.Time) (*models.Session, error) {
	return f.service.Book(context.Background(), f.clientID, &models.BookSessionRequest{
		PsychologistID: f.psychologistID,
		ScheduledAt:    scheduledAt,
	})
}
