// Package slots expands a weekly availability window into concrete time slots.
package slots

import "github.com/psysupport/psysupport-api/internal/models"

// BookedSet holds start times already taken on the day
type BookedSet map[models.TimeOfDay]struct{}

// NewBookedSet collects start times into a set
func NewBookedSet(starts ...models.TimeOfDay) BookedSet {
	set := make(BookedSet, len(starts))
	for _, s := range starts {
		set[s] = struct{}{}
	}
	return set
}

// Generate steps from the window start in slot-duration increments and emits
// every slot that fits entirely before the window end and whose start is not
// booked. Booked starts are skipped without shifting later boundaries. A nil
// window yields no slots.
func Generate(window *models.AvailabilityWindow, booked BookedSet) []models.TimeSlot {
	out := []models.TimeSlot{}
	if window == nil || window.SlotDurationMinutes <= 0 {
		return out
	}

	step := window.SlotDurationMinutes
	for cursor := window.StartTime; cursor.Add(step) <= window.EndTime; cursor = cursor.Add(step) {
		if _, taken := booked[cursor]; taken {
			continue
		}
		out = append(out, models.TimeSlot{
			StartTime:       cursor,
			EndTime:         cursor.Add(step),
			DurationMinutes: step,
		})
	}
	return out
}

// Find returns the slot starting at start
func Find(slots []models.TimeSlot, start models.TimeOfDay) (models.TimeSlot, bool) {
	for _, s := range slots {
		if s.StartTime == start {
			return s, true
		}
	}
	return models.TimeSlot{}, false
}
