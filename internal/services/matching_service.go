package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/psysupport/psysupport-api/internal/models"
	"github.com/psysupport/psysupport-api/internal/ranking"
	"github.com/psysupport/psysupport-api/internal/repository"
	apperrors "github.com/psysupport/psysupport-api/pkg/errors"
	"github.com/psysupport/psysupport-api/pkg/logger"
	"github.com/psysupport/psysupport-api/pkg/metrics"
	"go.uber.org/zap"
)

const (
	defaultPoolSize = 50
	archiveTimeout  = 30 * time.Second
)

// SnapshotArchive stores ranking snapshots outside the database
type SnapshotArchive interface {
	PutJSON(ctx context.Context, key string, body []byte) error
}

// archivedSnapshot is the document written to the archive
type archivedSnapshot struct {
	Questionnaire *models.Questionnaire `json:"questionnaire"`
	Ranking       []models.MatchResult  `json:"ranking"`
	PoolSize      int                   `json:"poolSize"`
	Relaxed       bool                  `json:"relaxed"`
}

// MatchingService turns a questionnaire into up to three recommendations
type MatchingService struct {
	questionnaires repository.QuestionnaireStore
	directory      repository.PsychologistDirectory
	ranker         ranking.Provider
	fallback       *ranking.FallbackRanker
	archive        SnapshotArchive
	poolSize       int
}

// NewMatchingService creates a new MatchingService. archive may be nil.
func NewMatchingService(
	questionnaires repository.QuestionnaireStore,
	directory repository.PsychologistDirectory,
	ranker ranking.Provider,
	archive SnapshotArchive,
	poolSize int,
) *MatchingService {
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}
	return &MatchingService{
		questionnaires: questionnaires,
		directory:      directory,
		ranker:         ranker,
		fallback:       ranking.NewFallbackRanker(),
		archive:        archive,
		poolSize:       poolSize,
	}
}

// Submit stores the questionnaire, ranks the candidate pool and returns the
// best matches in descending score order
func (s *MatchingService) Submit(ctx context.Context, req *models.SubmitQuestionnaireRequest, userID string) ([]models.PsychologistMatch, error) {
	start := time.Now()

	q := req.ToQuestionnaire(userID)
	if err := s.store(ctx, q); err != nil {
		metrics.QuestionnaireSubmissions.WithLabelValues("error").Inc()
		logger.Error("Failed to store questionnaire", zap.Error(err))
		return nil, fmt.Errorf("failed to store questionnaire: %w", err)
	}

	pool, relaxed, err := s.candidatePool(ctx, q)
	if err != nil {
		metrics.QuestionnaireSubmissions.WithLabelValues("error").Inc()
		return nil, err
	}
	if len(pool) == 0 {
		metrics.QuestionnaireSubmissions.WithLabelValues("no_candidates").Inc()
		logger.Info("No candidates for questionnaire", zap.String("questionnaire_id", q.ID))
		return []models.PsychologistMatch{}, nil
	}

	results, err := s.ranker.Rank(ctx, q, pool)
	if err != nil || len(results) == 0 {
		logger.Warn("Ranking failed, using rule-based scores",
			zap.String("questionnaire_id", q.ID),
			zap.Error(err))
		results = s.fallback.Score(q, pool)
	}

	s.saveSnapshot(ctx, q, results, len(pool), relaxed)

	matches := enrich(results, pool)

	metrics.QuestionnaireSubmissions.WithLabelValues("success").Inc()
	logger.Info("Questionnaire matched",
		zap.String("questionnaire_id", q.ID),
		zap.Int("pool_size", len(pool)),
		zap.Bool("relaxed", relaxed),
		zap.Int("matches", len(matches)),
		zap.Duration("duration", time.Since(start)))

	return matches, nil
}

// store persists the questionnaire. A token subject without a user row is
// stored anonymously so the submission still completes.
func (s *MatchingService) store(ctx context.Context, q *models.Questionnaire) error {
	err := s.questionnaires.CreateQuestionnaire(ctx, q)
	if err == nil || q.UserID == nil || !apperrors.Is(err, repository.ErrUnknownUser) {
		return err
	}

	logger.Warn("Questionnaire user has no account row, storing anonymously",
		zap.String("user_id", *q.UserID))
	q.UserID = nil
	return s.questionnaires.CreateQuestionnaire(ctx, q)
}

// candidatePool applies language and format filters, dropping both once if
// nothing matches
func (s *MatchingService) candidatePool(ctx context.Context, q *models.Questionnaire) ([]*models.PsychologistCandidate, bool, error) {
	filter := models.CandidateFilter{
		Language:     q.PreferredLanguage,
		OnlyVerified: true,
		Page:         1,
		PageSize:     s.poolSize,
	}
	if q.FormatPreference != models.FormatAny {
		filter.WorkFormat = q.FormatPreference
	}

	pool, err := s.directory.FindCandidates(ctx, filter)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load candidates: %w", err)
	}
	if len(pool) > 0 {
		return pool, false, nil
	}

	metrics.CandidatePoolRelaxations.Inc()
	filter.Language = ""
	filter.WorkFormat = ""

	pool, err = s.directory.FindCandidates(ctx, filter)
	if err != nil {
		return nil, true, fmt.Errorf("failed to load candidates: %w", err)
	}
	return pool, true, nil
}

func (s *MatchingService) saveSnapshot(ctx context.Context, q *models.Questionnaire, results []models.MatchResult, poolSize int, relaxed bool) {
	snapshot, err := json.Marshal(results)
	if err != nil {
		logger.Warn("Failed to encode ranking snapshot", zap.String("questionnaire_id", q.ID), zap.Error(err))
		return
	}
	if err := s.questionnaires.SaveRankingSnapshot(ctx, q.ID, snapshot); err != nil {
		logger.Warn("Failed to save ranking snapshot", zap.String("questionnaire_id", q.ID), zap.Error(err))
	}

	if s.archive == nil {
		return
	}
	q.RankingSnapshot = snapshot
	doc, err := json.Marshal(archivedSnapshot{
		Questionnaire: q,
		Ranking:       results,
		PoolSize:      poolSize,
		Relaxed:       relaxed,
	})
	if err != nil {
		logger.Warn("Failed to encode archived snapshot", zap.String("questionnaire_id", q.ID), zap.Error(err))
		return
	}

	key := ArchiveKey(q)
	go func() {
		archiveCtx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()
		if err := s.archive.PutJSON(archiveCtx, key, doc); err != nil {
			logger.Warn("Failed to archive ranking snapshot", zap.String("key", key), zap.Error(err))
		}
	}()
}

// ArchiveKey is the object key of a questionnaire's archived snapshot
func ArchiveKey(q *models.Questionnaire) string {
	created := q.CreatedAt.UTC()
	return fmt.Sprintf("questionnaires/%04d/%02d/%s.json", created.Year(), int(created.Month()), q.ID)
}

// enrich orders results by score, keeping ranker order on ties, and attaches
// profile details to the first three distinct psychologists that are in the pool
func enrich(results []models.MatchResult, pool []*models.PsychologistCandidate) []models.PsychologistMatch {
	byID := make(map[string]*models.PsychologistCandidate, len(pool))
	for _, c := range pool {
		byID[c.ID] = c
	}

	ordered := append([]models.MatchResult(nil), results...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Score > ordered[j].Score
	})

	matches := make([]models.PsychologistMatch, 0, ranking.MaxRecommendations)
	seen := make(map[string]struct{}, ranking.MaxRecommendations)
	for _, r := range ordered {
		c, ok := byID[r.PsychologistID]
		if !ok {
			continue
		}
		if _, dup := seen[r.PsychologistID]; dup {
			continue
		}
		seen[r.PsychologistID] = struct{}{}
		matches = append(matches, models.NewPsychologistMatch(c, r))
		if len(matches) == ranking.MaxRecommendations {
			break
		}
	}
	return matches
}
