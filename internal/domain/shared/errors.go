// Package shared contains common domain types, errors, events, and value
// objects used across all domain packages. Zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors usable with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation    = errors.New("validation error")
	ErrEmptyValue    = errors.New("value cannot be empty")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidFormat = errors.New("invalid format")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrConfirmMismatch    = errors.New("password confirmation does not match")
	ErrAccountExists      = errors.New("account already exists")
	ErrProviderRejected   = errors.New("identity provider rejected the request")

	// Identity scope errors
	ErrStaleIdentity = errors.New("identity changed while the operation was in flight")

	// Backend errors
	ErrStoreUnavailable = errors.New("storage backend unavailable")
	ErrWriteFailed      = errors.New("storage write failed")
)

// DomainError carries context about where and why an operation failed.
type DomainError struct {
	Domain  string // e.g. "learner", "progress"
	Op      string // operation that failed, e.g. "SignIn", "AddCheckin"
	Kind    error  // base error for errors.Is() checks
	Message string // human-readable message, suitable for inline display
	Err     error  // underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching against both Kind and Err.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	return e.Err != nil && errors.Is(e.Err, target)
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message, Err: err}
}

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is any validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsAuth checks if the error belongs to the authentication taxonomy:
// bad credentials, duplicate accounts, or a provider rejection.
func IsAuth(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrConfirmMismatch) ||
		errors.Is(err, ErrAccountExists) ||
		errors.Is(err, ErrProviderRejected)
}

// IsUnavailable checks if the error means the backend could not be reached.
// Reads degrade to empty results on these; they are never shown as errors.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
