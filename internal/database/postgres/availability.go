package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/psysupport/psysupport-api/internal/models"
	"go.uber.org/zap"
)

var availabilityColumns = []string{
	"id", "psychologist_id", "day_of_week", "start_time", "end_time", "slot_duration_minutes",
}

func timeParam(t models.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t) * int64(time.Minute/time.Microsecond), Valid: true}
}

func fromPgTime(t pgtype.Time) models.TimeOfDay {
	return models.TimeOfDay(t.Microseconds / int64(time.Minute/time.Microsecond))
}

func scanAvailability(row pgx.Row) (*models.AvailabilityWindow, error) {
	var (
		w          models.AvailabilityWindow
		day        int16
		start, end pgtype.Time
	)
	if err := row.Scan(&w.ID, &w.PsychologistID, &day, &start, &end, &w.SlotDurationMinutes); err != nil {
		return nil, err
	}
	w.DayOfWeek = time.Weekday(day)
	w.StartTime = fromPgTime(start)
	w.EndTime = fromPgTime(end)
	return &w, nil
}

// upsertAvailabilityQuery replaces the existing weekday row in place, keeping its id
func upsertAvailabilityQuery(w *models.AvailabilityWindow) sq.InsertBuilder {
	return psql.Insert("availability").
		Columns("psychologist_id", "day_of_week", "start_time", "end_time", "slot_duration_minutes").
		Values(w.PsychologistID, int16(w.DayOfWeek), timeParam(w.StartTime), timeParam(w.EndTime), w.SlotDurationMinutes).
		Suffix(`ON CONFLICT (psychologist_id, day_of_week) DO UPDATE
			SET start_time = EXCLUDED.start_time,
			    end_time = EXCLUDED.end_time,
			    slot_duration_minutes = EXCLUDED.slot_duration_minutes
			RETURNING id, psychologist_id, day_of_week, start_time, end_time, slot_duration_minutes`)
}

// UpsertAvailability inserts the weekday window or replaces the existing one in place
func (c *Client) UpsertAvailability(ctx context.Context, w *models.AvailabilityWindow) (*models.AvailabilityWindow, error) {
	start := time.Now()
	operation := "upsertAvailability"

	query, args, err := upsertAvailabilityQuery(w).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build upsert availability query: %w", err)
	}

	saved, err := scanAvailability(c.pool.QueryRow(ctx, query, args...))
	err = translate(err, "psychologist")
	observe(operation, start, err, zap.String("psychologist_id", w.PsychologistID))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert availability: %w", err)
	}
	return saved, nil
}

// DeleteAvailability removes a window owned by the psychologist.
// Returns false when no such window exists for that owner.
func (c *Client) DeleteAvailability(ctx context.Context, id, psychologistID string) (bool, error) {
	start := time.Now()
	operation := "deleteAvailability"

	query, args, err := psql.Delete("availability").
		Where(sq.Eq{"id": id, "psychologist_id": psychologistID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build delete availability query: %w", err)
	}

	tag, err := c.pool.Exec(ctx, query, args...)
	err = translate(err, "availability")
	observe(operation, start, err, zap.String("availability_id", id))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListAvailability returns the psychologist's windows ordered by weekday then start time
func (c *Client) ListAvailability(ctx context.Context, psychologistID string) ([]*models.AvailabilityWindow, error) {
	start := time.Now()
	operation := "listAvailability"

	query, args, err := psql.Select(availabilityColumns...).
		From("availability").
		Where(sq.Eq{"psychologist_id": psychologistID}).
		OrderBy("day_of_week", "start_time").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list availability query: %w", err)
	}

	windows := []*models.AvailabilityWindow{}
	rows, err := c.pool.Query(ctx, query, args...)
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			w, scanErr := scanAvailability(rows)
			if scanErr != nil {
				err = scanErr
				break
			}
			windows = append(windows, w)
		}
		if err == nil {
			err = rows.Err()
		}
	}

	err = translate(err, "psychologist")
	observe(operation, start, err, zap.Int("count", len(windows)))
	if err != nil {
		if isNotFound(err) {
			return []*models.AvailabilityWindow{}, nil
		}
		return nil, fmt.Errorf("failed to list availability: %w", err)
	}
	return windows, nil
}

// GetAvailabilityForDay returns the window for a weekday, or nil when the
// psychologist does not work that day
func (c *Client) GetAvailabilityForDay(ctx context.Context, psychologistID string, day time.Weekday) (*models.AvailabilityWindow, error) {
	start := time.Now()
	operation := "getAvailabilityForDay"

	query, args, err := psql.Select(availabilityColumns...).
		From("availability").
		Where(sq.Eq{"psychologist_id": psychologistID, "day_of_week": int16(day)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build availability query: %w", err)
	}

	w, err := scanAvailability(c.pool.QueryRow(ctx, query, args...))
	err = translate(err, "availability")
	observe(operation, start, err, zap.String("psychologist_id", psychologistID), zap.Int("day", int(day)))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get availability: %w", err)
	}
	return w, nil
}
