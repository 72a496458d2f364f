package errors

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyExists       = errors.New("already exists")
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation failed")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrAlreadyProcessed    = errors.New("already processed")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrPartialFailure      = errors.New("partial failure")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// Is makes ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidation builds a ValidationError.
func NewValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// TransitionError reports a move the status graph does not allow.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

// Is makes TransitionError match ErrInvalidTransition.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
