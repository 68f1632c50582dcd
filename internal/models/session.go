package models

import (
	"time"

	"github.com/jackc/pgx/v5"
)

// SessionStatus is the lifecycle state of a booked session
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionConfirmed SessionStatus = "confirmed"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

// sessionTransitions lists the allowed moves out of each non-terminal status
var sessionTransitions = map[SessionStatus][]SessionStatus{
	SessionPending:   {SessionConfirmed, SessionCancelled},
	SessionConfirmed: {SessionCancelled, SessionCompleted},
}

// IsValid reports whether s is a known status
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionPending, SessionConfirmed, SessionCompleted, SessionCancelled:
		return true
	}
	return false
}

// IsTerminal returns true if no further transitions are allowed
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

// HoldsSlot reports whether a session in this status occupies its start time
func (s SessionStatus) HoldsSlot() bool {
	return s != SessionCancelled
}

// CanTransitionTo checks if a status transition is valid
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	for _, allowed := range sessionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Session is a booked appointment between a client and a psychologist
type Session struct {
	ID               string        `json:"id"`
	ClientID         string        `json:"clientId"`
	ClientName       string        `json:"clientName"`
	PsychologistID   string        `json:"psychologistId"`
	PsychologistName string        `json:"psychologistName"`
	ScheduledAt      time.Time     `json:"scheduledAt"`
	DurationMinutes  int           `json:"durationMinutes"`
	Status           SessionStatus `json:"status"`
	MeetingLink      *string       `json:"meetingLink"`
	Notes            *string       `json:"notes"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

// EndsAt is the scheduled end of the session
func (s *Session) EndsAt() time.Time {
	return s.ScheduledAt.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// IsParty reports whether userID is the client or the psychologist of the session
func (s *Session) IsParty(userID, psychologistID string) bool {
	if userID != "" && s.ClientID == userID {
		return true
	}
	return psychologistID != "" && s.PsychologistID == psychologistID
}

// BookSessionRequest is the payload for booking a slot
type BookSessionRequest struct {
	PsychologistID string    `json:"psychologistId" binding:"required,uuid"`
	ScheduledAt    time.Time `json:"scheduledAt" binding:"required"`
	Notes          string    `json:"notes" binding:"max=2000"`
}

// SessionListFilter narrows a session listing to one party
type SessionListFilter struct {
	ClientID       string
	PsychologistID string
}

// ScanSession scans a row into a Session.
// Expected columns: id, client_id, client_name, psychologist_id, psychologist_name,
// scheduled_at, duration_minutes, status, meeting_link, notes, created_at, updated_at
func ScanSession(row pgx.Row) (*Session, error) {
	var s Session
	err := row.Scan(
		&s.ID,
		&s.ClientID,
		&s.ClientName,
		&s.PsychologistID,
		&s.PsychologistName,
		&s.ScheduledAt,
		&s.DurationMinutes,
		&s.Status,
		&s.MeetingLink,
		&s.Notes,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.ScheduledAt = s.ScheduledAt.UTC()
	return &s, nil
}

// ScanSessions scans multiple rows, closing them when done
func ScanSessions(rows pgx.Rows) ([]*Session, error) {
	defer rows.Close()

	sessions := []*Session{}
	for rows.Next() {
		s, err := ScanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}
