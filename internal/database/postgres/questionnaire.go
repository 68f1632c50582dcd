package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/psysupport/psysupport-api/internal/models"
	"go.uber.org/zap"
)

// CreateQuestionnaire stores the answers and fills in the generated id and timestamp
func (c *Client) CreateQuestionnaire(ctx context.Context, q *models.Questionnaire) error {
	start := time.Now()
	operation := "createQuestionnaire"

	query, args, err := psql.Insert("questionnaire_responses").
		Columns(
			"user_id",
			"guest_session_id",
			"gender",
			"age",
			"preferred_language",
			"main_issue",
			"urgency_level",
			"format_preference",
			"additional_info",
		).
		Values(
			q.UserID,
			q.GuestSessionID,
			q.Gender,
			q.Age,
			q.PreferredLanguage,
			q.MainIssue,
			q.UrgencyLevel,
			q.FormatPreference,
			q.AdditionalInfo,
		).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert questionnaire query: %w", err)
	}

	err = translate(c.pool.QueryRow(ctx, query, args...).Scan(&q.ID, &q.CreatedAt), "user")
	observe(operation, start, err, zap.Bool("anonymous", q.UserID == nil))
	if err != nil {
		return fmt.Errorf("failed to store questionnaire: %w", err)
	}
	return nil
}

// SaveRankingSnapshot stores the full ranking as JSON on the questionnaire row
func (c *Client) SaveRankingSnapshot(ctx context.Context, questionnaireID string, snapshot []byte) error {
	start := time.Now()
	operation := "saveRankingSnapshot"

	query, args, err := psql.Update("questionnaire_responses").
		Set("ranking_snapshot", sq.Expr("?::jsonb", string(snapshot))).
		Where(sq.Eq{"id": questionnaireID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build snapshot query: %w", err)
	}

	tag, err := c.pool.Exec(ctx, query, args...)
	if err == nil && tag.RowsAffected() == 0 {
		err = translate(pgx.ErrNoRows, "questionnaire")
	}
	observe(operation, start, err, zap.String("questionnaire_id", questionnaireID))
	if err != nil {
		return fmt.Errorf("failed to save ranking snapshot: %w", err)
	}
	return nil
}
