package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/psysupport/psysupport-api/internal/repository"
	apperrors "github.com/psysupport/psysupport-api/pkg/errors"
	"github.com/psysupport/psysupport-api/pkg/logger"
	"github.com/psysupport/psysupport-api/pkg/metrics"
	"go.uber.org/zap"
)

// PostgreSQL error codes we translate
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeInvalidTextRep      = "22P02"
)

// Foreign keys whose violation names a specific missing row
var foreignKeyTargets = map[string]error{
	"sessions_client_id_fkey":              repository.ErrUnknownUser,
	"questionnaire_responses_user_id_fkey": repository.ErrUnknownUser,
	"sessions_psychologist_id_fkey":        repository.ErrUnknownPsychologist,
	"availability_psychologist_id_fkey":    repository.ErrUnknownPsychologist,
}

// psql builds queries with $n placeholders
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Client wraps a pgx connection pool with observability
type Client struct {
	pool *pgxpool.Pool
}

// NewClient wraps an existing pool (see pkg/db.NewPool)
func NewClient(pool *pgxpool.Pool) *Client {
	return &Client{pool: pool}
}

// Close closes the connection pool
func (c *Client) Close() {
	if c.pool != nil {
		c.pool.Close()
		logger.Info("PostgreSQL connection pool closed")
	}
}

// Ping checks if the database connection is alive
func (c *Client) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// ReportPoolMetrics publishes pool statistics every interval until ctx is done
func (c *Client) ReportPoolMetrics(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stat := c.pool.Stat()
			metrics.DBPoolConnections.WithLabelValues("acquired").Set(float64(stat.AcquiredConns()))
			metrics.DBPoolConnections.WithLabelValues("idle").Set(float64(stat.IdleConns()))
			metrics.DBPoolConnections.WithLabelValues("total").Set(float64(stat.TotalConns()))
		}
	}
}

// observe records metrics and the API call log for one operation
func observe(operation string, start time.Time, err error, fields ...zap.Field) {
	duration := metrics.MeasureDuration(start)
	status := metrics.StatusLabel(err)

	metrics.DBRequestDuration.WithLabelValues("postgres_"+operation, status).Observe(duration)
	metrics.DBRequestTotal.WithLabelValues("postgres_"+operation, status).Inc()

	if err != nil && !apperrors.Is(err, apperrors.ErrNotFound) && !apperrors.Is(err, apperrors.ErrConflict) {
		logger.LogAPICall("postgres", operation, status, duration, append(fields, zap.Error(err))...)
		return
	}
	logger.LogAPICall("postgres", operation, "success", duration, fields...)
}

// translate maps driver errors onto the application error taxonomy
func translate(err error, resource string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFoundError(resource)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, apperrors.ConflictError(resource))
		case codeForeignKeyViolation:
			if target, ok := foreignKeyTargets[pgErr.ConstraintName]; ok {
				return fmt.Errorf("%s: %w", pgErr.ConstraintName, target)
			}
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, apperrors.NotFoundError("referenced record"))
		case codeInvalidTextRep:
			// malformed uuid in a lookup
			return apperrors.NotFoundError(resource)
		}
	}
	return err
}

func isNotFound(err error) bool {
	return apperrors.Is(err, apperrors.ErrNotFound)
}
