package services

import (
	"errors"

	"github.com/jellydator/validation"
)

// Sentinel errors for branching with errors.Is.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
)

// ValidationError reports a missing or malformed field. Message is safe to
// show to the user.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// ConflictError reports that a unique value is already taken.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }
func (e *ConflictError) Unwrap() error { return ErrConflict }

// AuthError reports bad credentials or a missing login.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }
func (e *AuthError) Unwrap() error { return ErrUnauthorized }

var (
	ErrIncorrectUsername = &AuthError{Message: "Incorrect username."}
	ErrIncorrectPassword = &AuthError{Message: "Incorrect password."}
	ErrLoginRequired     = &AuthError{Message: "You need to log in first."}
)

type fieldRules struct {
	field string
	value any
	rules []validation.Rule
}

// firstInvalid checks fields in order and converts the first failure into a
// ValidationError.
func firstInvalid(fields ...fieldRules) error {
	for _, f := range fields {
		if err := validation.Validate(f.value, f.rules...); err != nil {
			return &ValidationError{Field: f.field, Message: err.Error()}
		}
	}
	return nil
}
