package ranking

import (
	"context"
	"sort"
	"strings"

	"github.com/psysupport/psysupport-api/internal/models"
)

// FallbackReason is attached to every fallback result
const FallbackReason = "Matched based on language, format, and specialization compatibility"

const (
	fallbackBaseScore           = 50
	fallbackLanguageBonus       = 20
	fallbackFormatBonus         = 15
	fallbackSpecializationBonus = 25
	fallbackUrgencyBonus        = 10
	fallbackUrgentExperience    = 5
)

// FallbackRanker is the local rule-based scorer. It never fails.
type FallbackRanker struct{}

// NewFallbackRanker creates the rule-based ranker
func NewFallbackRanker() *FallbackRanker {
	return &FallbackRanker{}
}

// Rank implements Provider
func (f *FallbackRanker) Rank(_ context.Context, q *models.Questionnaire, candidates []*models.PsychologistCandidate) ([]models.MatchResult, error) {
	return f.Score(q, candidates), nil
}

// Score returns the top candidates by rule score, in pool order on ties
func (f *FallbackRanker) Score(q *models.Questionnaire, candidates []*models.PsychologistCandidate) []models.MatchResult {
	scored := make([]models.MatchResult, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, models.MatchResult{
			PsychologistID: c.ID,
			Score:          fallbackScore(q, c),
			Reason:         FallbackReason,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > MaxRecommendations {
		scored = scored[:MaxRecommendations]
	}
	return scored
}

func fallbackScore(q *models.Questionnaire, c *models.PsychologistCandidate) int {
	score := fallbackBaseScore

	if containsFold(c.Languages, q.PreferredLanguage) {
		score += fallbackLanguageBonus
	}

	if containsFold(c.WorkFormats, q.FormatPreference) || containsFold(c.WorkFormats, models.WorkFormatBoth) {
		score += fallbackFormatBonus
	}

	issue := strings.ToLower(q.MainIssue)
	for _, key := range c.SpecializationKeys {
		key = strings.ToLower(key)
		if strings.Contains(issue, key) || strings.Contains(key, issue) {
			score += fallbackSpecializationBonus
			break
		}
	}

	if q.UrgencyLevel == models.UrgencyHigh && c.ExperienceYears >= fallbackUrgentExperience {
		score += fallbackUrgencyBonus
	}

	return ClampScore(score)
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}
