package ranking

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/psysupport/psysupport-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func questionnaire(lang, format, issue, urgency string) *models.Questionnaire {
	return &models.Questionnaire{
		PreferredLanguage: lang,
		FormatPreference:  format,
		MainIssue:         issue,
		UrgencyLevel:      urgency,
	}
}

func TestFallbackRanker_PerfectMatch(t *testing.T) {
	q := questionnaire("ru", "online", "Anxiety", "high")
	c := &models.PsychologistCandidate{
		ID:                 "p1",
		Languages:          []string{"ru"},
		WorkFormats:        []string{"online"},
		SpecializationKeys: []string{"anxiety"},
		ExperienceYears:    7,
	}

	results, err := NewFallbackRanker().Rank(context.Background(), q, []*models.PsychologistCandidate{c})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 100, results[0].Score)
	assert.Equal(t, FallbackReason, results[0].Reason)
}

func TestFallbackRanker_ScoreComponents(t *testing.T) {
	tests := []struct {
		name      string
		q         *models.Questionnaire
		candidate models.PsychologistCandidate
		want      int
	}{
		{
			name:      "base only",
			q:         questionnaire("en", "offline", "sleep", "low"),
			candidate: models.PsychologistCandidate{Languages: []string{"ru"}, WorkFormats: []string{"online"}},
			want:      50,
		},
		{
			name:      "language is case-insensitive",
			q:         questionnaire("RU", "offline", "sleep", "low"),
			candidate: models.PsychologistCandidate{Languages: []string{"ru"}},
			want:      70,
		},
		{
			name:      "both matches any format",
			q:         questionnaire("en", "chat", "sleep", "low"),
			candidate: models.PsychologistCandidate{WorkFormats: []string{"Both"}},
			want:      65,
		},
		{
			name:      "specialization key inside issue",
			q:         questionnaire("en", "chat", "Severe anxiety at work", "low"),
			candidate: models.PsychologistCandidate{SpecializationKeys: []string{"anxiety"}},
			want:      75,
		},
		{
			name:      "issue inside specialization key",
			q:         questionnaire("en", "chat", "stress", "low"),
			candidate: models.PsychologistCandidate{SpecializationKeys: []string{"work-stress"}},
			want:      75,
		},
		{
			name:      "specialization bonus counted once",
			q:         questionnaire("en", "chat", "anxiety and depression", "low"),
			candidate: models.PsychologistCandidate{SpecializationKeys: []string{"anxiety", "depression"}},
			want:      75,
		},
		{
			name:      "urgency needs five years",
			q:         questionnaire("en", "chat", "x", "high"),
			candidate: models.PsychologistCandidate{ExperienceYears: 4},
			want:      50,
		},
		{
			name:      "urgency bonus",
			q:         questionnaire("en", "chat", "x", "high"),
			candidate: models.PsychologistCandidate{ExperienceYears: 5},
			want:      60,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.candidate
			assert.Equal(t, tt.want, fallbackScore(tt.q, &c))
		})
	}
}

func TestFallbackRanker_TopThreeStableOrder(t *testing.T) {
	q := questionnaire("ru", "online", "anxiety", "low")
	candidates := []*models.PsychologistCandidate{
		{ID: "a"},
		{ID: "b", Languages: []string{"ru"}},
		{ID: "c"},
		{ID: "d", Languages: []string{"ru"}, SpecializationKeys: []string{"anxiety"}},
		{ID: "e"},
	}

	results := NewFallbackRanker().Score(q, candidates)
	require.Len(t, results, 3)
	assert.Equal(t, "d", results[0].PsychologistID)
	assert.Equal(t, "b", results[1].PsychologistID)
	assert.Equal(t, "a", results[2].PsychologistID)
}

func TestFallbackRanker_Deterministic(t *testing.T) {
	q := questionnaire("tg", "offline", "relationships", "high")
	candidates := []*models.PsychologistCandidate{
		{ID: "1", Languages: []string{"tg"}, ExperienceYears: 9},
		{ID: "2", WorkFormats: []string{"offline"}},
		{ID: "3", SpecializationKeys: []string{"relationships"}},
		{ID: "4", Languages: []string{"TG"}, WorkFormats: []string{"both"}},
	}

	first, err := json.Marshal(NewFallbackRanker().Score(q, candidates))
	require.NoError(t, err)
	second, err := json.Marshal(NewFallbackRanker().Score(q, candidates))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestFallbackRanker_EmptyPool(t *testing.T) {
	results := NewFallbackRanker().Score(questionnaire("ru", "any", "x", "low"), nil)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}
