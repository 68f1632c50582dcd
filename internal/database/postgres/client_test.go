package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/psysupport/psysupport-api/internal/repository"
	apperrors "github.com/psysupport/psysupport-api/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestTranslate(t *testing.T) {
	driverErr := errors.New("conn closed")

	tests := []struct {
		name    string
		err     error
		want    []error
		notWant []error
	}{
		{
			name: "no rows",
			err:  pgx.ErrNoRows,
			want: []error{apperrors.ErrNotFound},
		},
		{
			name:    "live slot already taken",
			err:     &pgconn.PgError{Code: "23505", ConstraintName: "idx_sessions_live_slot"},
			want:    []error{apperrors.ErrConflict},
			notWant: []error{apperrors.ErrNotFound},
		},
		{
			name:    "wrapped unique violation",
			err:     fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}),
			want:    []error{apperrors.ErrConflict},
			notWant: []error{apperrors.ErrNotFound},
		},
		{
			name:    "client without user row",
			err:     &pgconn.PgError{Code: "23503", ConstraintName: "sessions_client_id_fkey"},
			want:    []error{repository.ErrUnknownUser, apperrors.ErrNotFound},
			notWant: []error{repository.ErrUnknownPsychologist},
		},
		{
			name:    "questionnaire user without row",
			err:     &pgconn.PgError{Code: "23503", ConstraintName: "questionnaire_responses_user_id_fkey"},
			want:    []error{repository.ErrUnknownUser},
			notWant: []error{repository.ErrUnknownPsychologist},
		},
		{
			name:    "missing psychologist",
			err:     &pgconn.PgError{Code: "23503", ConstraintName: "sessions_psychologist_id_fkey"},
			want:    []error{repository.ErrUnknownPsychologist, apperrors.ErrNotFound},
			notWant: []error{repository.ErrUnknownUser},
		},
		{
			name:    "availability for missing psychologist",
			err:     &pgconn.PgError{Code: "23503", ConstraintName: "availability_psychologist_id_fkey"},
			want:    []error{repository.ErrUnknownPsychologist},
			notWant: []error{repository.ErrUnknownUser},
		},
		{
			name:    "other foreign key",
			err:     &pgconn.PgError{Code: "23503", ConstraintName: "psychologist_specializations_specialization_id_fkey"},
			want:    []error{apperrors.ErrNotFound},
			notWant: []error{repository.ErrUnknownUser, repository.ErrUnknownPsychologist},
		},
		{
			name:    "malformed uuid",
			err:     &pgconn.PgError{Code: "22P02"},
			want:    []error{apperrors.ErrNotFound},
			notWant: []error{apperrors.ErrInvalidInput},
		},
		{
			name:    "other postgres error",
			err:     &pgconn.PgError{Code: "40001"},
			notWant: []error{apperrors.ErrNotFound, apperrors.ErrConflict},
		},
		{
			name:    "driver error",
			err:     driverErr,
			want:    []error{driverErr},
			notWant: []error{apperrors.ErrNotFound, apperrors.ErrConflict},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.err, "session")
			assert.Error(t, got)
			for _, want := range tt.want {
				assert.ErrorIs(t, got, want)
			}
			for _, notWant := range tt.notWant {
				assert.NotErrorIs(t, got, notWant)
			}
		})
	}
}

func TestTranslate_Nil(t *testing.T) {
	assert.NoError(t, translate(nil, "session"))
}

func TestTranslate_KeepsConstraintName(t *testing.T) {
	err := translate(&pgconn.PgError{Code: "23505", ConstraintName: "idx_sessions_live_slot"}, "session slot")
	assert.Contains(t, err.Error(), "idx_sessions_live_slot")
}
