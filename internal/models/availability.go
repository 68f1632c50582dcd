package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/psysupport/psysupport-api/pkg/errors"
)

// DefaultSlotDurationMinutes is used when a window is saved without a duration
const DefaultSlotDurationMinutes = 60

// MinutesPerDay bounds TimeOfDay values
const MinutesPerDay = 24 * 60

// TimeOfDay is a wall-clock time as minutes since midnight. JSON form is "HH:MM".
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from hours and minutes
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// TimeOfDayOf returns the wall-clock time of t in its own location
func TimeOfDayOf(t time.Time) TimeOfDay {
	return NewTimeOfDay(t.Hour(), t.Minute())
}

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS" (seconds must be zero)
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	if len(parts) == 3 {
		if sec, err := strconv.Atoi(parts[2]); err != nil || sec != 0 {
			return 0, fmt.Errorf("seconds are not supported in %q", s)
		}
	}

	return NewTimeOfDay(h, m), nil
}

// Hour returns the hour component
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute component
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// Add shifts the time by a number of minutes without wrapping
func (t TimeOfDay) Add(minutes int) TimeOfDay { return t + TimeOfDay(minutes) }

// On places the time of day on the calendar date of day
func (t TimeOfDay) On(day time.Time) time.Time {
	y, mo, d := day.Date()
	return time.Date(y, mo, d, t.Hour(), t.Minute(), 0, 0, day.Location())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// MarshalJSON encodes as "HH:MM"
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes "HH:MM" or "HH:MM:SS"
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("time of day must be a string: %w", err)
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// AvailabilityWindow is a psychologist's recurring working hours for one weekday.
// There is at most one window per (psychologist, weekday).
type AvailabilityWindow struct {
	ID                  string       `json:"id"`
	PsychologistID      string       `json:"psychologistId"`
	DayOfWeek           time.Weekday `json:"dayOfWeek"`
	StartTime           TimeOfDay    `json:"startTime"`
	EndTime             TimeOfDay    `json:"endTime"`
	SlotDurationMinutes int          `json:"slotDurationMinutes"`
}

// Validate checks the window invariants
func (w *AvailabilityWindow) Validate() error {
	if w.DayOfWeek < time.Sunday || w.DayOfWeek > time.Saturday {
		return errors.InvalidInputError("dayOfWeek", "must be between 0 (Sunday) and 6 (Saturday)")
	}
	if w.StartTime < 0 || int(w.EndTime) > MinutesPerDay {
		return errors.InvalidInputError("startTime", "must be within the day")
	}
	if w.StartTime >= w.EndTime {
		return errors.InvalidInputError("startTime", "must be before endTime")
	}
	if w.SlotDurationMinutes <= 0 {
		return errors.InvalidInputError("slotDurationMinutes", "must be positive")
	}
	return nil
}

// TimeSlot is a concrete bookable interval derived from a window
type TimeSlot struct {
	StartTime       TimeOfDay `json:"startTime"`
	EndTime         TimeOfDay `json:"endTime"`
	DurationMinutes int       `json:"durationMinutes"`
}

// UpsertAvailabilityRequest is the payload for saving a weekday window
type UpsertAvailabilityRequest struct {
	DayOfWeek           *int       `json:"dayOfWeek" binding:"required,min=0,max=6"`
	StartTime           *TimeOfDay `json:"startTime" binding:"required"`
	EndTime             TimeOfDay  `json:"endTime" binding:"required"`
	SlotDurationMinutes int        `json:"slotDurationMinutes" binding:"omitempty,min=5,max=480"`
}

// ToWindow converts the payload, defaulting the slot duration
func (r *UpsertAvailabilityRequest) ToWindow(psychologistID string) *AvailabilityWindow {
	duration := r.SlotDurationMinutes
	if duration == 0 {
		duration = DefaultSlotDurationMinutes
	}
	w := &AvailabilityWindow{
		PsychologistID:      psychologistID,
		EndTime:             r.EndTime,
		SlotDurationMinutes: duration,
	}
	if r.StartTime != nil {
		w.StartTime = *r.StartTime
	}
	if r.DayOfWeek != nil {
		w.DayOfWeek = time.Weekday(*r.DayOfWeek)
	}
	return w
}
