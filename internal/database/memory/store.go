// Package memory is an in-process implementation of the storage contracts.
// It backs offline mode and engine tests, and enforces the same uniqueness
// rules as the postgres schema.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/psysupport/psysupport-api/internal/models"
	"github.com/psysupport/psysupport-api/internal/repository"
	"github.com/psysupport/psysupport-api/pkg/errors"
)

// User is a person known to the store
type User struct {
	ID        string
	FirstName string
	LastName  string
}

// Psychologist is a directory profile
type Psychologist struct {
	ID                string
	UserID            string
	PhotoPath         *string
	ExperienceYears   int
	Languages         []string
	WorkFormats       []string
	PricePerSession   float64
	MeetingLink       *string
	IsVerified        bool
	SpecializationIDs []int
}

// Specialization is a catalog entry
type Specialization struct {
	ID     int
	Key    string
	NameRu string
}

// Store keeps everything in maps guarded by one mutex
type Store struct {
	mu              sync.RWMutex
	users           map[string]*User
	psychologists   map[string]*Psychologist
	specializations map[int]*Specialization
	availability    map[string]*models.AvailabilityWindow
	sessions        map[string]*models.Session
	questionnaires  map[string]*models.Questionnaire
	now             func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		users:           map[string]*User{},
		psychologists:   map[string]*Psychologist{},
		specializations: map[int]*Specialization{},
		availability:    map[string]*models.AvailabilityWindow{},
		sessions:        map[string]*models.Session{},
		questionnaires:  map[string]*models.Questionnaire{},
		now:             time.Now,
	}
}

// AddUser registers a user and returns its id
func (s *Store) AddUser(u User) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	s.users[u.ID] = &u
	return u.ID
}

// AddSpecialization registers a catalog entry
func (s *Store) AddSpecialization(sp Specialization) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.specializations[sp.ID] = &sp
}

// AddPsychologist registers a profile and returns its id
func (s *Store) AddPsychologist(p Psychologist) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	s.psychologists[p.ID] = &p
	return p.ID
}

// Questionnaire returns a stored questionnaire, including its snapshot
func (s *Store) Questionnaire(id string) (*models.Questionnaire, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questionnaires[id]
	if !ok {
		return nil, false
	}
	cp := *q
	return &cp, true
}

func (s *Store) fullName(userID string) string {
	u, ok := s.users[userID]
	if !ok {
		return ""
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (s *Store) psychologistName(psychologistID string) string {
	p, ok := s.psychologists[psychologistID]
	if !ok {
		return ""
	}
	return s.fullName(p.UserID)
}

// UpsertAvailability implements repository.AvailabilityStore
func (s *Store) UpsertAvailability(_ context.Context, w *models.AvailabilityWindow) (*models.AvailabilityWindow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.psychologists[w.PsychologistID]; !ok {
		return nil, repository.ErrUnknownPsychologist
	}

	for _, existing := range s.availability {
		if existing.PsychologistID == w.PsychologistID && existing.DayOfWeek == w.DayOfWeek {
			existing.StartTime = w.StartTime
			existing.EndTime = w.EndTime
			existing.SlotDurationMinutes = w.SlotDurationMinutes
			cp := *existing
			return &cp, nil
		}
	}

	saved := *w
	saved.ID = uuid.NewString()
	s.availability[saved.ID] = &saved
	cp := saved
	return &cp, nil
}

// DeleteAvailability implements repository.AvailabilityStore
func (s *Store) DeleteAvailability(_ context.Context, id, psychologistID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.availability[id]
	if !ok || w.PsychologistID != psychologistID {
		return false, nil
	}
	delete(s.availability, id)
	return true, nil
}

// ListAvailability implements repository.AvailabilityStore
func (s *Store) ListAvailability(_ context.Context, psychologistID string) ([]*models.AvailabilityWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.AvailabilityWindow{}
	for _, w := range s.availability {
		if w.PsychologistID == psychologistID {
			cp := *w
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayOfWeek != out[j].DayOfWeek {
			return out[i].DayOfWeek < out[j].DayOfWeek
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

// GetAvailabilityForDay implements repository.AvailabilityStore
func (s *Store) GetAvailabilityForDay(_ context.Context, psychologistID string, day time.Weekday) (*models.AvailabilityWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, w := range s.availability {
		if w.PsychologistID == psychologistID && w.DayOfWeek == day {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

// CreateSession implements repository.SessionStore
func (s *Store) CreateSession(_ context.Context, session *models.Session) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.psychologists[session.PsychologistID]; !ok {
		return nil, repository.ErrUnknownPsychologist
	}

	at := session.ScheduledAt.UTC()
	for _, existing := range s.sessions {
		if existing.PsychologistID == session.PsychologistID &&
			existing.Status.HoldsSlot() &&
			existing.ScheduledAt.Equal(at) {
			return nil, errors.ConflictError("session slot")
		}
	}

	now := s.now().UTC()
	saved := *session
	saved.ID = uuid.NewString()
	saved.ScheduledAt = at
	saved.CreatedAt = now
	saved.UpdatedAt = now
	s.sessions[saved.ID] = &saved

	return s.withNames(&saved), nil
}

func (s *Store) withNames(session *models.Session) *models.Session {
	cp := *session
	cp.ClientName = s.fullName(cp.ClientID)
	cp.PsychologistName = s.psychologistName(cp.PsychologistID)
	return &cp
}

// GetSession implements repository.SessionStore
func (s *Store) GetSession(_ context.Context, id string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, errors.NotFoundError("session")
	}
	return s.withNames(session), nil
}

// ListSessions implements repository.SessionStore
func (s *Store) ListSessions(_ context.Context, filter models.SessionListFilter) ([]*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.Session{}
	for _, session := range s.sessions {
		if filter.ClientID != "" && session.ClientID != filter.ClientID {
			continue
		}
		if filter.PsychologistID != "" && session.PsychologistID != filter.PsychologistID {
			continue
		}
		out = append(out, s.withNames(session))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ScheduledAt.After(out[j].ScheduledAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// BookedStartTimes implements repository.SessionStore
func (s *Store) BookedStartTimes(_ context.Context, psychologistID string, from, to time.Time) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []time.Time{}
	for _, session := range s.sessions {
		if session.PsychologistID != psychologistID || !session.Status.HoldsSlot() {
			continue
		}
		if !session.ScheduledAt.Before(from) && session.ScheduledAt.Before(to) {
			out = append(out, session.ScheduledAt)
		}
	}
	return out, nil
}

// UpdateSessionStatus implements repository.SessionStore
func (s *Store) UpdateSessionStatus(_ context.Context, id string, from, to models.SessionStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok || session.Status != from {
		return false, nil
	}
	session.Status = to
	session.UpdatedAt = s.now().UTC()
	return true, nil
}

// CompleteElapsedSessions implements repository.SessionStore
func (s *Store) CompleteElapsedSessions(_ context.Context, now time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := []string{}
	for id, session := range s.sessions {
		if session.Status == models.SessionConfirmed && !session.EndsAt().After(now) {
			session.Status = models.SessionCompleted
			session.UpdatedAt = s.now().UTC()
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// CreateQuestionnaire implements repository.QuestionnaireStore
func (s *Store) CreateQuestionnaire(_ context.Context, q *models.Questionnaire) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q.ID = uuid.NewString()
	q.CreatedAt = s.now().UTC()
	cp := *q
	s.questionnaires[q.ID] = &cp
	return nil
}

// SaveRankingSnapshot implements repository.QuestionnaireStore
func (s *Store) SaveRankingSnapshot(_ context.Context, questionnaireID string, snapshot []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.questionnaires[questionnaireID]
	if !ok {
		return errors.NotFoundError("questionnaire")
	}
	if !json.Valid(snapshot) {
		return errors.InvalidInputError("snapshot", "not valid JSON")
	}
	q.RankingSnapshot = append(json.RawMessage(nil), snapshot...)
	return nil
}

// FindCandidates implements repository.DirectorySource
func (s *Store) FindCandidates(_ context.Context, filter models.CandidateFilter) ([]*models.PsychologistCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lang := strings.ToLower(strings.TrimSpace(filter.Language))
	format := strings.ToLower(strings.TrimSpace(filter.WorkFormat))

	matched := []*models.PsychologistCandidate{}
	for _, p := range s.psychologists {
		if filter.OnlyVerified && !p.IsVerified {
			continue
		}
		if lang != "" && !containsFold(p.Languages, lang) {
			continue
		}
		if format != "" && format != models.FormatAny &&
			!containsFold(p.WorkFormats, format) && !containsFold(p.WorkFormats, models.WorkFormatBoth) {
			continue
		}
		if filter.MaxPrice != nil && p.PricePerSession > *filter.MaxPrice {
			continue
		}
		if len(filter.SpecializationIDs) > 0 && !intersects(p.SpecializationIDs, filter.SpecializationIDs) {
			continue
		}
		matched = append(matched, s.candidate(p))
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].ExperienceYears != matched[j].ExperienceYears {
			return matched[i].ExperienceYears > matched[j].ExperienceYears
		}
		return matched[i].ID < matched[j].ID
	})

	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	from := (page - 1) * pageSize
	if from >= len(matched) {
		return []*models.PsychologistCandidate{}, nil
	}
	to := from + pageSize
	if to > len(matched) {
		to = len(matched)
	}
	return matched[from:to], nil
}

func (s *Store) candidate(p *Psychologist) *models.PsychologistCandidate {
	specs := append([]int(nil), p.SpecializationIDs...)
	sort.Slice(specs, func(i, j int) bool {
		return s.specKey(specs[i]) < s.specKey(specs[j])
	})

	keys := []string{}
	names := []string{}
	for _, id := range specs {
		sp, ok := s.specializations[id]
		if !ok {
			continue
		}
		keys = append(keys, sp.Key)
		name := sp.NameRu
		if name == "" {
			name = sp.Key
		}
		names = append(names, name)
	}

	return &models.PsychologistCandidate{
		ID:                  p.ID,
		Name:                s.fullName(p.UserID),
		PhotoPath:           p.PhotoPath,
		ExperienceYears:     p.ExperienceYears,
		Languages:           append([]string(nil), p.Languages...),
		WorkFormats:         append([]string(nil), p.WorkFormats...),
		SpecializationKeys:  keys,
		SpecializationNames: names,
		PricePerSession:     p.PricePerSession,
		IsVerified:          p.IsVerified,
	}
}

func (s *Store) specKey(id int) string {
	if sp, ok := s.specializations[id]; ok {
		return sp.Key
	}
	return ""
}

// GetMeetingLink implements repository.DirectorySource
func (s *Store) GetMeetingLink(_ context.Context, psychologistID string) (*string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.psychologists[psychologistID]
	if !ok {
		return nil, errors.NotFoundError("psychologist")
	}
	return p.MeetingLink, nil
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), want) {
			return true
		}
	}
	return false
}

func intersects(a, b []int) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
