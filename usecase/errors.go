package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrProtocolMismatch   = errors.New("malformed agreement marker")
	ErrInvalidPhase       = errors.New("action not allowed in current negotiation phase")
	ErrSessionClosed      = errors.New("negotiation session closed")
	ErrTurnInFlight       = errors.New("a negotiation turn is already in flight")
	ErrUnauthorized       = errors.New("unauthorized")
)

// ValidationError names the offending field. errors.Is(err, ErrValidation) holds.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
