package models

// PsychologistCandidate is the read-only projection of a psychologist profile
// used for matching
type PsychologistCandidate struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	PhotoPath           *string  `json:"photoPath"`
	ExperienceYears     int      `json:"experienceYears"`
	Languages           []string `json:"languages"`
	WorkFormats         []string `json:"workFormats"`
	SpecializationKeys  []string `json:"specializationKeys"`
	SpecializationNames []string `json:"specializationNames"`
	PricePerSession     float64  `json:"pricePerSession"`
	IsVerified          bool     `json:"isVerified"`
}

// CandidateFilter narrows the psychologist directory. Empty fields don't filter.
type CandidateFilter struct {
	Language          string
	WorkFormat        string
	MaxPrice          *float64
	SpecializationIDs []int
	OnlyVerified      bool
	Page              int
	PageSize          int
}

// MatchResult is one scored candidate as produced by a ranker
type MatchResult struct {
	PsychologistID string `json:"psychologistId"`
	Score          int    `json:"score"`
	Reason         string `json:"reason"`
}

// PsychologistMatch is an enriched recommendation returned to the client
type PsychologistMatch struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	PhotoPath       *string  `json:"photoPath"`
	ExperienceYears int      `json:"experienceYears"`
	Price           float64  `json:"price"`
	Specializations []string `json:"specializations"`
	MatchReason     string   `json:"matchReason"`
	MatchScore      int      `json:"matchScore"`
}

// NewPsychologistMatch combines a profile with its score
func NewPsychologistMatch(c *PsychologistCandidate, r MatchResult) PsychologistMatch {
	specs := c.SpecializationNames
	if specs == nil {
		specs = []string{}
	}
	return PsychologistMatch{
		ID:              c.ID,
		Name:            c.Name,
		PhotoPath:       c.PhotoPath,
		ExperienceYears: c.ExperienceYears,
		Price:           c.PricePerSession,
		Specializations: specs,
		MatchReason:     r.Reason,
		MatchScore:      r.Score,
	}
}
