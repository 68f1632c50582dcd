package memory

import (
	"context"
	"time"

	"github.com/psysupport/psysupport-api/internal/models"
)

// SeedDemo fills the store with a small directory so offline mode has
// something to book and match against
func SeedDemo(ctx context.Context, s *Store) error {
	specs := []Specialization{
		{ID: 1, Key: "anxiety", NameRu: "Тревожность"},
		{ID: 2, Key: "depression", NameRu: "Депрессия"},
		{ID: 3, Key: "relationships", NameRu: "Отношения"},
		{ID: 4, Key: "stress", NameRu: "Стресс"},
	}
	for _, sp := range specs {
		s.AddSpecialization(sp)
	}

	link := func(v string) *string { return &v }

	profiles := []struct {
		first, last string
		p           Psychologist
	}{
		{"Madina", "Rahimova", Psychologist{
			ExperienceYears:   8,
			Languages:         []string{"ru", "tg"},
			WorkFormats:       []string{"both"},
			PricePerSession:   250,
			MeetingLink:       link("https://meet.example.com/rahimova"),
			IsVerified:        true,
			SpecializationIDs: []int{1, 4},
		}},
		{"Farrukh", "Saidov", Psychologist{
			ExperienceYears:   3,
			Languages:         []string{"tg", "en"},
			WorkFormats:       []string{"online"},
			PricePerSession:   150,
			MeetingLink:       link("https://meet.example.com/saidov"),
			IsVerified:        true,
			SpecializationIDs: []int{2},
		}},
		{"Elena", "Kim", Psychologist{
			ExperienceYears:   12,
			Languages:         []string{"ru", "en"},
			WorkFormats:       []string{"offline"},
			PricePerSession:   400,
			IsVerified:        true,
			SpecializationIDs: []int{3, 1},
		}},
	}

	for _, pr := range profiles {
		pr.p.UserID = s.AddUser(User{FirstName: pr.first, LastName: pr.last})
		id := s.AddPsychologist(pr.p)

		for day := time.Monday; day <= time.Friday; day++ {
			_, err := s.UpsertAvailability(ctx, &models.AvailabilityWindow{
				PsychologistID:      id,
				DayOfWeek:           day,
				StartTime:           models.NewTimeOfDay(9, 0),
				EndTime:             models.NewTimeOfDay(17, 0),
				SlotDurationMinutes: models.DefaultSlotDurationMinutes,
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}
