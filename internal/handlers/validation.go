package handlers

import (
	"errors"
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ParseValidationErrors converts validator errors to user-friendly format
func ParseValidationErrors(err error) []ValidationError {
	var result []ValidationError

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, fieldError := range validationErrors {
			result = append(result, ValidationError{
				Field:   fieldError.Field(),
				Message: getErrorMessage(fieldError),
			})
		}
	}

	return result
}

func getErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "uuid":
		return fe.Field() + " must be a valid UUID"
	case "min":
		if isNumeric(fe.Kind()) {
			return fe.Field() + " must be at least " + fe.Param()
		}
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "max":
		if isNumeric(fe.Kind()) {
			return fe.Field() + " must not exceed " + fe.Param()
		}
		return fe.Field() + " must not exceed " + fe.Param() + " characters"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}

func isNumeric(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// bindJSON binds the request body and writes a 400 response on failure
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		if details := ParseValidationErrors(err); len(details) > 0 {
			respondErrorWithDetails(c, http.StatusBadRequest, "Validation failed", details, err)
		} else {
			respondError(c, http.StatusBadRequest, "Invalid request body", err)
		}
		return false
	}
	return true
}

// uuidParam reads a UUID path parameter and writes a 400 response when it is malformed
func uuidParam(c *gin.Context, name, label string) (string, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid "+label, err)
		return "", false
	}
	return id.String(), true
}
