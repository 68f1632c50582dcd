package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/psysupport/psysupport-api/internal/models"
	"go.uber.org/zap"
)

const defaultCandidatePageSize = 50

// candidateQuery builds the directory search for one page of candidates
func candidateQuery(filter models.CandidateFilter) sq.SelectBuilder {
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = defaultCandidatePageSize
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}

	builder := psql.Select(
		"p.id",
		"TRIM(u.first_name || ' ' || u.last_name)",
		"p.photo_path",
		"p.experience_years",
		"p.languages",
		"p.work_formats",
		"p.price_per_session::float8",
		"p.is_verified",
		"COALESCE(array_agg(s.key ORDER BY s.key) FILTER (WHERE s.id IS NOT NULL), '{}')",
		"COALESCE(array_agg(COALESCE(NULLIF(s.name_ru, ''), s.key) ORDER BY s.key) FILTER (WHERE s.id IS NOT NULL), '{}')",
	).
		From("psychologists p").
		Join("users u ON u.id = p.user_id").
		LeftJoin("psychologist_specializations ps ON ps.psychologist_id = p.id").
		LeftJoin("specializations s ON s.id = ps.specialization_id").
		GroupBy("p.id", "u.first_name", "u.last_name").
		OrderBy("p.experience_years DESC", "p.id").
		Limit(uint64(pageSize)).
		Offset(uint64((page - 1) * pageSize))

	if filter.OnlyVerified {
		builder = builder.Where(sq.Eq{"p.is_verified": true})
	}
	if lang := strings.TrimSpace(filter.Language); lang != "" {
		builder = builder.Where(sq.Expr(
			"EXISTS (SELECT 1 FROM unnest(p.languages) AS l WHERE lower(l) = lower(?))", lang))
	}
	if format := strings.ToLower(strings.TrimSpace(filter.WorkFormat)); format != "" && format != models.FormatAny {
		builder = builder.Where(sq.Expr(
			"EXISTS (SELECT 1 FROM unnest(p.work_formats) AS f WHERE lower(f) IN (?, ?))", format, models.WorkFormatBoth))
	}
	if filter.MaxPrice != nil {
		builder = builder.Where(sq.LtOrEq{"p.price_per_session": *filter.MaxPrice})
	}
	if len(filter.SpecializationIDs) > 0 {
		builder = builder.Where(sq.Expr(
			"EXISTS (SELECT 1 FROM psychologist_specializations f WHERE f.psychologist_id = p.id AND f.specialization_id = ANY(?))",
			filter.SpecializationIDs))
	}

	return builder
}

// FindCandidates searches the psychologist directory.
//
// Language matches any listed language case-insensitively. A work format
// filter also accepts psychologists who list "both".
func (c *Client) FindCandidates(ctx context.Context, filter models.CandidateFilter) ([]*models.PsychologistCandidate, error) {
	start := time.Now()
	operation := "findCandidates"

	query, args, err := candidateQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build candidate query: %w", err)
	}

	candidates := []*models.PsychologistCandidate{}
	rows, err := c.pool.Query(ctx, query, args...)
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var p models.PsychologistCandidate
			err = rows.Scan(
				&p.ID,
				&p.Name,
				&p.PhotoPath,
				&p.ExperienceYears,
				&p.Languages,
				&p.WorkFormats,
				&p.PricePerSession,
				&p.IsVerified,
				&p.SpecializationKeys,
				&p.SpecializationNames,
			)
			if err != nil {
				break
			}
			candidates = append(candidates, &p)
		}
		if err == nil {
			err = rows.Err()
		}
	}

	observe(operation, start, err,
		zap.String("language", filter.Language),
		zap.String("format", filter.WorkFormat),
		zap.Int("count", len(candidates)))
	if err != nil {
		return nil, fmt.Errorf("failed to find candidates: %w", err)
	}
	return candidates, nil
}

// GetMeetingLink returns the psychologist's meeting link, which may be nil.
// A missing psychologist is ErrNotFound.
func (c *Client) GetMeetingLink(ctx context.Context, psychologistID string) (*string, error) {
	start := time.Now()
	operation := "getMeetingLink"

	query, args, err := psql.Select("meeting_link").
		From("psychologists").
		Where(sq.Eq{"id": psychologistID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build meeting link query: %w", err)
	}

	var link *string
	err = translate(c.pool.QueryRow(ctx, query, args...).Scan(&link), "psychologist")
	observe(operation, start, err, zap.String("psychologist_id", psychologistID))
	if err != nil {
		return nil, err
	}
	return link, nil
}
