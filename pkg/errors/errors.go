package errors

import (
	"errors"
	"fmt"
)

// Common application errors. Domain packages wrap these so handlers can map
// them to HTTP status codes with errors.Is.
var (
	// ErrNotFound indicates a requested resource was not found, or that the
	// caller is not a party to it
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates invalid input data
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates missing or invalid authentication
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict indicates a conflict with existing data
	ErrConflict = errors.New("conflict")

	// ErrUnavailable indicates a backing dependency could not serve the call
	ErrUnavailable = errors.New("unavailable")
)

// NotFoundError creates a not found error with context
func NotFoundError(resource string) error {
	return fmt.Errorf("%s %w", resource, ErrNotFound)
}

// InvalidInputError creates an invalid input error with context
func InvalidInputError(field, reason string) error {
	return fmt.Errorf("%s: %s: %w", field, reason, ErrInvalidInput)
}

// ConflictError creates a conflict error with context
func ConflictError(what string) error {
	return fmt.Errorf("%s: %w", what, ErrConflict)
}

// UnavailableError wraps a dependency failure
func UnavailableError(dependency string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", dependency, ErrUnavailable)
	}
	return fmt.Errorf("%s: %w: %w", dependency, ErrUnavailable, err)
}

// Is checks if an error matches a target error (works with wrapped errors)
func Is(err, target error) bool {
	return errors.Is(err, target)
}
