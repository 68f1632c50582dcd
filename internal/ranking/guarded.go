package ranking

import (
	"context"
	"time"

	"github.com/psysupport/psysupport-api/internal/models"
	"github.com/psysupport/psysupport-api/pkg/circuitbreaker"
	"github.com/psysupport/psysupport-api/pkg/logger"
	"github.com/psysupport/psysupport-api/pkg/metrics"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// DefaultTimeout bounds one call to the primary ranker
const DefaultTimeout = 15 * time.Second

// NamedProvider is a Provider that reports its strategy label
type NamedProvider interface {
	Provider
	Name() string
}

// GuardedRanker runs the primary provider under a timeout and circuit breaker
// and falls back to the rule-based scorer on any failure
type GuardedRanker struct {
	primary  NamedProvider
	fallback *FallbackRanker
	breaker  *gobreaker.CircuitBreaker
	timeout  time.Duration
}

// NewGuardedRanker wraps primary, which may be nil
func NewGuardedRanker(primary NamedProvider, timeout time.Duration) *GuardedRanker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	g := &GuardedRanker{
		primary:  primary,
		fallback: NewFallbackRanker(),
		timeout:  timeout,
	}
	if primary != nil {
		g.breaker = circuitbreaker.NewCircuitBreaker(circuitbreaker.RankingConfig("ranking-" + primary.Name()))
	}
	return g
}

// Rank implements Provider. It never returns an error.
func (g *GuardedRanker) Rank(ctx context.Context, q *models.Questionnaire, candidates []*models.PsychologistCandidate) ([]models.MatchResult, error) {
	if g.primary == nil {
		return g.runFallback(q, candidates, "no_primary"), nil
	}

	strategy := g.primary.Name()
	start := time.Now()

	results, err := circuitbreaker.Execute(g.breaker, func() ([]models.MatchResult, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		return g.primary.Rank(callCtx, q, candidates)
	})
	if err == nil && len(results) == 0 {
		err = ErrEmptyResponse
	}
	if err == nil {
		err = requireKnown(results, candidates)
	}

	metrics.RankingDuration.WithLabelValues(strategy, metrics.StatusLabel(err)).Observe(metrics.MeasureDuration(start))

	if err != nil {
		reason := "error"
		if circuitbreaker.IsRejected(err) {
			reason = "circuit_open"
		} else if ctx.Err() == nil && time.Since(start) >= g.timeout {
			reason = "timeout"
		}
		logger.Warn("Primary ranking failed, using fallback",
			zap.String("strategy", strategy),
			zap.String("reason", reason),
			zap.Error(err))
		return g.runFallback(q, candidates, reason), nil
	}

	for i := range results {
		results[i].Score = ClampScore(results[i].Score)
	}
	metrics.RankingStrategyTotal.WithLabelValues(strategy, "ok").Inc()
	return results, nil
}

func (g *GuardedRanker) runFallback(q *models.Questionnaire, candidates []*models.PsychologistCandidate, reason string) []models.MatchResult {
	start := time.Now()
	results := g.fallback.Score(q, candidates)
	metrics.RankingDuration.WithLabelValues(StrategyFallback, "success").Observe(metrics.MeasureDuration(start))
	metrics.RankingStrategyTotal.WithLabelValues(StrategyFallback, reason).Inc()
	return results
}
