// Package ranking scores psychologist candidates against a questionnaire.
//
// A Provider either calls an external language model (OpenAI-compatible or
// Gemini) or runs the deterministic FallbackRanker. GuardedRanker picks
// between them so callers never see a ranking failure.
package ranking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/psysupport/psysupport-api/internal/models"
)

// Strategy labels used in metrics and logs
const (
	StrategyFallback = "fallback"
	StrategyOpenAI   = "openai"
	StrategyGemini   = "gemini"
)

// MaxRecommendations is how many candidates a ranking is expected to return
const MaxRecommendations = 3

var (
	// ErrNoCredentials means the external ranker has no API key configured
	ErrNoCredentials = errors.New("ranking provider has no credentials")

	// ErrEmptyResponse means the provider answered without usable content
	ErrEmptyResponse = errors.New("ranking provider returned no content")

	// ErrUnknownCandidates means none of the returned ids are in the pool
	ErrUnknownCandidates = errors.New("ranking provider returned no known candidates")
)

// Provider ranks candidates for one questionnaire
type Provider interface {
	Rank(ctx context.Context, q *models.Questionnaire, candidates []*models.PsychologistCandidate) ([]models.MatchResult, error)
}

const systemPrompt = `You are a psychologist matching algorithm. Your task is to analyze a client's needs
and match them with the most suitable psychologists from the available list.

Consider these factors:
1. Specialization match with the client's main issue
2. Language preference
3. Format preference (online/offline)
4. Urgency level (higher urgency may need more experienced psychologists)
5. Price considerations

Return a JSON array with exactly 3 matches (or fewer if not enough suitable psychologists).
Each match should have: psychologistId (string), score (1-100), reason (brief explanation).

IMPORTANT: Return ONLY valid JSON, no other text. Format:
[{"psychologistId":"id","score":85,"reason":"explanation"},...]`

// buildPrompt renders the client's answers and the candidate pool
func buildPrompt(q *models.Questionnaire, candidates []*models.PsychologistCandidate) string {
	var b strings.Builder

	b.WriteString("CLIENT INFORMATION:\n")
	fmt.Fprintf(&b, "- Gender: %s\n", valueOr(q.Gender, "not specified"))
	age := "not specified"
	if q.Age != nil {
		age = strconv.Itoa(*q.Age)
	}
	fmt.Fprintf(&b, "- Age: %s\n", age)
	fmt.Fprintf(&b, "- Preferred Language: %s\n", q.PreferredLanguage)
	fmt.Fprintf(&b, "- Main Issue: %s\n", q.MainIssue)
	fmt.Fprintf(&b, "- Urgency Level: %s\n", q.UrgencyLevel)
	fmt.Fprintf(&b, "- Format Preference: %s\n", q.FormatPreference)
	fmt.Fprintf(&b, "- Additional Info: %s\n", valueOr(q.AdditionalInfo, "None"))

	b.WriteString("\nAVAILABLE PSYCHOLOGISTS:\n")
	for _, c := range candidates {
		fmt.Fprintf(&b,
			"- ID: %s, Name: %s, Experience: %d years, Specializations: %s, Languages: %s, Formats: %s, Price: %s\n",
			c.ID,
			c.Name,
			c.ExperienceYears,
			strings.Join(c.SpecializationKeys, ", "),
			strings.Join(c.Languages, ", "),
			strings.Join(c.WorkFormats, ", "),
			strconv.FormatFloat(c.PricePerSession, 'f', -1, 64),
		)
	}

	b.WriteString("\nPlease select the top 3 most suitable psychologists for this client and explain why.")
	return b.String()
}

func valueOr(s *string, fallback string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return fallback
	}
	return *s
}

type rawResult struct {
	PsychologistID string  `json:"psychologistId"`
	Score          float64 `json:"score"`
	Reason         string  `json:"reason"`
}

// parseResults decodes the model's JSON array, tolerating markdown code fences
func parseResults(content string) ([]models.MatchResult, error) {
	content = stripCodeFence(content)
	if content == "" {
		return nil, ErrEmptyResponse
	}

	var raw []rawResult
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode ranking: %w", err)
	}

	results := make([]models.MatchResult, 0, len(raw))
	for _, r := range raw {
		id := strings.TrimSpace(r.PsychologistID)
		if id == "" {
			continue
		}
		results = append(results, models.MatchResult{
			PsychologistID: id,
			Score:          int(math.Round(r.Score)),
			Reason:         strings.TrimSpace(r.Reason),
		})
	}
	if len(results) == 0 {
		return nil, ErrEmptyResponse
	}
	return results, nil
}

func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	if nl := strings.IndexByte(content, '\n'); nl >= 0 {
		content = content[nl+1:]
	} else {
		content = strings.TrimPrefix(content, "```")
	}
	content = strings.TrimSpace(content)
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

// requireKnown fails unless at least one result refers to a pool member
func requireKnown(results []models.MatchResult, candidates []*models.PsychologistCandidate) error {
	ids := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		ids[c.ID] = struct{}{}
	}
	for _, r := range results {
		if _, ok := ids[r.PsychologistID]; ok {
			return nil
		}
	}
	return ErrUnknownCandidates
}

// ClampScore bounds a score to [0, 100]
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
