package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/psysupport/psysupport-api/internal/models"
	"go.uber.org/zap"
)

// sessionSelect joins both parties' display names
func sessionSelect() sq.SelectBuilder {
	return psql.Select(
		"s.id",
		"s.client_id",
		"COALESCE(TRIM(cu.first_name || ' ' || cu.last_name), '')",
		"s.psychologist_id",
		"COALESCE(TRIM(pu.first_name || ' ' || pu.last_name), '')",
		"s.scheduled_at",
		"s.duration_minutes",
		"s.status",
		"s.meeting_link",
		"s.notes",
		"s.created_at",
		"s.updated_at",
	).
		From("sessions s").
		LeftJoin("users cu ON cu.id = s.client_id").
		Join("psychologists p ON p.id = s.psychologist_id").
		LeftJoin("users pu ON pu.id = p.user_id")
}

func insertSessionQuery(s *models.Session) sq.InsertBuilder {
	return psql.Insert("sessions").
		Columns("client_id", "psychologist_id", "scheduled_at", "duration_minutes", "status", "meeting_link", "notes").
		Values(s.ClientID, s.PsychologistID, s.ScheduledAt.UTC(), s.DurationMinutes, s.Status, s.MeetingLink, s.Notes).
		Suffix("RETURNING id")
}

// bookedStartsQuery selects starts that still hold a slot in [from, to)
func bookedStartsQuery(psychologistID string, from, to time.Time) sq.SelectBuilder {
	return psql.Select("scheduled_at").
		From("sessions").
		Where(sq.Eq{"psychologist_id": psychologistID}).
		Where(sq.GtOrEq{"scheduled_at": from.UTC()}).
		Where(sq.Lt{"scheduled_at": to.UTC()}).
		Where(sq.NotEq{"status": models.SessionCancelled})
}

// statusSwapQuery only matches a row that is still in from
func statusSwapQuery(id string, from, to models.SessionStatus) sq.UpdateBuilder {
	return psql.Update("sessions").
		Set("status", to).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id, "status": from})
}

func sweepQuery(now time.Time) sq.UpdateBuilder {
	return psql.Update("sessions").
		Set("status", models.SessionCompleted).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"status": models.SessionConfirmed}).
		Where(sq.Expr("scheduled_at + make_interval(mins => duration_minutes) <= ?", now.UTC())).
		Suffix("RETURNING id")
}

// CreateSession inserts a session. A live session already holding the same
// psychologist start time makes this fail with ErrConflict.
func (c *Client) CreateSession(ctx context.Context, s *models.Session) (*models.Session, error) {
	start := time.Now()
	operation := "createSession"

	query, args, err := insertSessionQuery(s).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert session query: %w", err)
	}

	var id string
	err = translate(c.pool.QueryRow(ctx, query, args...).Scan(&id), "session slot")
	observe(operation, start, err,
		zap.String("psychologist_id", s.PsychologistID),
		zap.Time("scheduled_at", s.ScheduledAt))
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return c.GetSession(ctx, id)
}

// GetSession fetches a session with party names
func (c *Client) GetSession(ctx context.Context, id string) (*models.Session, error) {
	start := time.Now()
	operation := "getSession"

	query, args, err := sessionSelect().Where(sq.Eq{"s.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get session query: %w", err)
	}

	session, err := models.ScanSession(c.pool.QueryRow(ctx, query, args...))
	err = translate(err, "session")
	observe(operation, start, err, zap.String("session_id", id))
	if err != nil {
		return nil, err
	}
	return session, nil
}

// ListSessions returns one party's sessions, newest first
func (c *Client) ListSessions(ctx context.Context, filter models.SessionListFilter) ([]*models.Session, error) {
	start := time.Now()
	operation := "listSessions"

	builder := sessionSelect().OrderBy("s.scheduled_at DESC", "s.id")
	if filter.ClientID != "" {
		builder = builder.Where(sq.Eq{"s.client_id": filter.ClientID})
	}
	if filter.PsychologistID != "" {
		builder = builder.Where(sq.Eq{"s.psychologist_id": filter.PsychologistID})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list sessions query: %w", err)
	}

	var sessions []*models.Session
	rows, err := c.pool.Query(ctx, query, args...)
	if err == nil {
		sessions, err = models.ScanSessions(rows)
	}
	err = translate(err, "session")
	observe(operation, start, err, zap.Int("count", len(sessions)))
	if err != nil {
		if isNotFound(err) {
			return []*models.Session{}, nil
		}
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// BookedStartTimes returns start times of non-cancelled sessions in [from, to)
func (c *Client) BookedStartTimes(ctx context.Context, psychologistID string, from, to time.Time) ([]time.Time, error) {
	start := time.Now()
	operation := "bookedStartTimes"

	query, args, err := bookedStartsQuery(psychologistID, from, to).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build booked times query: %w", err)
	}

	booked := []time.Time{}
	rows, err := c.pool.Query(ctx, query, args...)
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var t time.Time
			if err = rows.Scan(&t); err != nil {
				break
			}
			booked = append(booked, t.UTC())
		}
		if err == nil {
			err = rows.Err()
		}
	}

	err = translate(err, "psychologist")
	observe(operation, start, err, zap.Int("count", len(booked)))
	if err != nil {
		if isNotFound(err) {
			return []time.Time{}, nil
		}
		return nil, fmt.Errorf("failed to load booked times: %w", err)
	}
	return booked, nil
}

// UpdateSessionStatus moves a session from one status to another atomically.
// Returns false when the session is not currently in the from status.
func (c *Client) UpdateSessionStatus(ctx context.Context, id string, from, to models.SessionStatus) (bool, error) {
	start := time.Now()
	operation := "updateSessionStatus"

	query, args, err := statusSwapQuery(id, from, to).ToSql()
	if err != nil {
		return false, fmt.Errorf("build update status query: %w", err)
	}

	tag, err := c.pool.Exec(ctx, query, args...)
	err = translate(err, "session")
	observe(operation, start, err,
		zap.String("session_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to update session status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CompleteElapsedSessions marks confirmed sessions that ended at or before now
// as completed and returns their ids
func (c *Client) CompleteElapsedSessions(ctx context.Context, now time.Time) ([]string, error) {
	start := time.Now()
	operation := "completeElapsedSessions"

	query, args, err := sweepQuery(now).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sweep query: %w", err)
	}

	ids := []string{}
	rows, err := c.pool.Query(ctx, query, args...)
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var id string
			if err = rows.Scan(&id); err != nil {
				break
			}
			ids = append(ids, id)
		}
		if err == nil {
			err = rows.Err()
		}
	}

	observe(operation, start, err, zap.Int("count", len(ids)))
	if err != nil {
		return nil, fmt.Errorf("failed to complete elapsed sessions: %w", err)
	}
	return ids, nil
}
