package repository

import (
	"context"
	"testing"

	"github.com/psysupport/psysupport-api/internal/cache"
	"github.com/psysupport/psysupport-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	searches int
	links    int
}

func (s *stubSource) FindCandidates(context.Context, models.CandidateFilter) ([]*models.PsychologistCandidate, error) {
	s.searches++
	return []*models.PsychologistCandidate{{ID: "psy-1"}}, nil
}

func (s *stubSource) GetMeetingLink(context.Context, string) (*string, error) {
	s.links++
	link := "https://meet.example.com/psy-1"
	return &link, nil
}

func TestPsychologistRepository_WithoutCache(t *testing.T) {
	src := &stubSource{}
	repo := NewPsychologistRepository(src, nil)

	for i := 0; i < 2; i++ {
		got, err := repo.FindCandidates(context.Background(), models.CandidateFilter{Language: "ru"})
		require.NoError(t, err)
		require.Len(t, got, 1)
	}
	assert.Equal(t, 2, src.searches)
}

func TestPsychologistRepository_WithCache(t *testing.T) {
	src := &stubSource{}
	repo := NewPsychologistRepository(src, cache.NewCandidateCache(src, 60))

	for i := 0; i < 3; i++ {
		_, err := repo.FindCandidates(context.Background(), models.CandidateFilter{Language: "ru"})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, src.searches)

	// meeting links bypass the cache
	for i := 0; i < 2; i++ {
		link, err := repo.GetMeetingLink(context.Background(), "psy-1")
		require.NoError(t, err)
		require.NotNil(t, link)
	}
	assert.Equal(t, 2, src.links)
}
