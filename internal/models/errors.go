package models

import (
	"errors"
	"fmt"
)

// Custom errors
var (
	ErrDuplicateKey = errors.New("duplicate key violation")

	// ErrInvariantViolation is returned when a computed distribution fails its own
	// post-conditions. It indicates a defect in the engine, never bad input.
	ErrInvariantViolation = errors.New("probability distribution invariant violated")

	// ErrHistoryUnavailable marks failures of a remote history source.
	ErrHistoryUnavailable = errors.New("history store unavailable")
)

// Validation codes reported when a prediction request is rejected.
const (
	CodeEmptyEntrants    = "empty_entrants"
	CodeEmptyIdentifier  = "empty_identifier"
	CodeDuplicateEntrant = "duplicate_entrant"
	CodeNoModels         = "no_models"
	CodeMixingWeights    = "mixing_weights"
	CodeUnknownFactor    = "unknown_factor"
	CodeInvalidModel     = "invalid_model"
	CodeInvalidRace      = "invalid_race"
)

// ValidationError describes a violated precondition.
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewValidationError creates a ValidationError
func NewValidationError(code, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
