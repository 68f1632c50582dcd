package repository

import (
	apperrors "github.com/psysupport/psysupport-api/pkg/errors"
)

// Referential failures reported by stores. Both wrap errors.ErrNotFound.
var (
	// ErrUnknownUser means the referenced user row does not exist
	ErrUnknownUser = apperrors.NotFoundError("user")

	// ErrUnknownPsychologist means the referenced psychologist row does not exist
	ErrUnknownPsychologist = apperrors.NotFoundError("psychologist")
)
