package models

import (
	"encoding/json"
	"time"
)

// Urgency levels
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// Format preferences. FormatAny disables format filtering.
const (
	FormatOnline  = "online"
	FormatOffline = "offline"
	FormatChat    = "chat"
	FormatAny     = "any"
)

// WorkFormatBoth marks a psychologist who works both online and offline
const WorkFormatBoth = "both"

// Questionnaire is a client's intake answers, stored verbatim
type Questionnaire struct {
	ID                string          `json:"id"`
	UserID            *string         `json:"userId,omitempty"`
	GuestSessionID    *string         `json:"guestSessionId,omitempty"`
	Gender            *string         `json:"gender,omitempty"`
	Age               *int            `json:"age,omitempty"`
	PreferredLanguage string          `json:"preferredLanguage"`
	MainIssue         string          `json:"mainIssue"`
	UrgencyLevel      string          `json:"urgencyLevel"`
	FormatPreference  string          `json:"formatPreference"`
	AdditionalInfo    *string         `json:"additionalInfo,omitempty"`
	RankingSnapshot   json.RawMessage `json:"-"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// SubmitQuestionnaireRequest is the payload of the matching endpoint
type SubmitQuestionnaireRequest struct {
	GuestSessionID    string `json:"guestSessionId" binding:"max=128"`
	Gender            string `json:"gender" binding:"max=32"`
	Age               *int   `json:"age" binding:"omitempty,min=1,max=120"`
	PreferredLanguage string `json:"preferredLanguage" binding:"required,max=32"`
	MainIssue         string `json:"mainIssue" binding:"required,max=200"`
	UrgencyLevel      string `json:"urgencyLevel" binding:"required,oneof=low medium high"`
	FormatPreference  string `json:"formatPreference" binding:"required,oneof=online offline chat any"`
	AdditionalInfo    string `json:"additionalInfo" binding:"max=2000"`
}

// ToQuestionnaire builds the stored record. userID is empty for anonymous callers.
func (r *SubmitQuestionnaireRequest) ToQuestionnaire(userID string) *Questionnaire {
	return &Questionnaire{
		UserID:            optional(userID),
		GuestSessionID:    optional(r.GuestSessionID),
		Gender:            optional(r.Gender),
		Age:               r.Age,
		PreferredLanguage: r.PreferredLanguage,
		MainIssue:         r.MainIssue,
		UrgencyLevel:      r.UrgencyLevel,
		FormatPreference:  r.FormatPreference,
		AdditionalInfo:    optional(r.AdditionalInfo),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
