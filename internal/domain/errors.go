package domain

import (
	"errors"
	"fmt"
)

// Error types for consistent error handling across the BFA.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrConflict indicates a resource already exists (e.g. an email already registered).
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrAuth is returned by the auth store when login or registration fails.
// The store is back in the anonymous state when this is returned.
type ErrAuth struct {
	Op  string
	Err error
}

func (e *ErrAuth) Error() string {
	return fmt.Sprintf("auth %s failed: %v", e.Op, e.Err)
}

func (e *ErrAuth) Unwrap() error {
	return e.Err
}

// ErrAuthInProgress rejects a login or registration issued while another one is in flight.
var ErrAuthInProgress = errors.New("authentication already in progress")

// ErrAnalysisUnavailable marks a simulation result that cannot be used,
// either because the collaborator failed or because its payload is incomplete.
type ErrAnalysisUnavailable struct {
	Reason string
	Err    error
}

func (e *ErrAnalysisUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("analysis unavailable (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("analysis unavailable: %s", e.Reason)
}

func (e *ErrAnalysisUnavailable) Unwrap() error {
	return e.Err
}

// ErrPersistenceRead reports a stored snapshot that could not be decoded.
// Callers log it and continue with defaults.
type ErrPersistenceRead struct {
	Key string
	Err error
}

func (e *ErrPersistenceRead) Error() string {
	return fmt.Sprintf("read snapshot %q: %v", e.Key, e.Err)
}

func (e *ErrPersistenceRead) Unwrap() error {
	return e.Err
}
