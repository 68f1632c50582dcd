package repository

import (
	"context"

	"github.com/psysupport/psysupport-api/internal/cache"
	"github.com/psysupport/psysupport-api/internal/models"
)

// PsychologistDirectory is the read-only view of psychologist profiles used by
// booking and matching
type PsychologistDirectory interface {
	FindCandidates(ctx context.Context, filter models.CandidateFilter) ([]*models.PsychologistCandidate, error)
	GetMeetingLink(ctx context.Context, psychologistID string) (*string, error)
}

// PsychologistRepository serves directory searches through the candidate cache.
// Meeting links are always read from the source.
type PsychologistRepository struct {
	source DirectorySource
	cache  *cache.CandidateCache
}

// NewPsychologistRepository wraps the source. A nil cache reads through on every call.
func NewPsychologistRepository(source DirectorySource, candidateCache *cache.CandidateCache) *PsychologistRepository {
	return &PsychologistRepository{source: source, cache: candidateCache}
}

// FindCandidates searches the directory
func (r *PsychologistRepository) FindCandidates(ctx context.Context, filter models.CandidateFilter) ([]*models.PsychologistCandidate, error) {
	if r.cache == nil {
		return r.source.FindCandidates(ctx, filter)
	}
	return r.cache.Get(ctx, filter)
}

// GetMeetingLink returns the psychologist's meeting link
func (r *PsychologistRepository) GetMeetingLink(ctx context.Context, psychologistID string) (*string, error) {
	return r.source.GetMeetingLink(ctx, psychologistID)
}
