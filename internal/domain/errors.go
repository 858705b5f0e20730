// Package domain contains the quote book's core types and errors.
//
// Each error kind pairs a sentinel, matched with errors.Is, and a struct that
// carries detail for logs and messages. Adapters decide how a kind is shown:
// HTTP maps it to a status, quotectl to an exit message.
package domain

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrValidation  = errors.New("validation failed")
	ErrNetwork     = errors.New("network error")
	ErrFormat      = errors.New("format error")
	ErrUnavailable = errors.New("unavailable")
)

// withCause lets errors.Is match the kind and the underlying failure.
func withCause(kind, cause error) []error {
	if cause == nil {
		return []error{kind}
	}

	return []error{kind, cause}
}

// NotFoundError names something the caller asked for that is not there: a
// stored key, a quote, or any quote passing the category filter.
type NotFoundError struct {
	Entity string
	ID     string

	// Message overrides the generated text when the user sees it verbatim.
	Message string
}

func (e *NotFoundError) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.ID == "":
		return e.Entity + " not found"
	default:
		return e.Entity + " " + strconv.Quote(e.ID) + " not found"
	}
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFoundError reports that entity id does not exist.
func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// NewNoMatchesError reports that no quote passes filter. Its text is the
// notification shown in place of a quote.
func NewNoMatchesError(filter string) error {
	return &NotFoundError{Entity: "quote", ID: filter, Message: MsgNoMatches}
}

// ConflictError rejects an operation that overlaps one already running, such
// as a second sync.
type ConflictError struct {
	Entity string
	Reason string
}

func (e *ConflictError) Error() string {
	return e.Entity + " conflict: " + e.Reason
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

func NewConflictError(entity, reason string) error {
	return &ConflictError{Entity: entity, Reason: reason}
}

// ValidationError reports a quote, category or preference that failed its
// presence checks. Value is kept for logging only.
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}

	return "validation failed for " + e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewValidationErrorWithValue is NewValidationError plus the rejected value.
func NewValidationErrorWithValue(field, message string, value any) error {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// NetworkError is a failed exchange with the remote quote endpoint.
// StatusCode is zero when no response arrived.
type NetworkError struct {
	Operation  string
	StatusCode int
	Cause      error
}

func (e *NetworkError) Error() string {
	msg := "network error during " + e.Operation
	if e.StatusCode != 0 {
		msg += ": status " + strconv.Itoa(e.StatusCode)
	}

	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}

	return msg
}

func (e *NetworkError) Unwrap() []error { return withCause(ErrNetwork, e.Cause) }

func NewNetworkError(operation string, statusCode int, cause error) error {
	return &NetworkError{Operation: operation, StatusCode: statusCode, Cause: cause}
}

// FormatError rejects import content that is not an array of quote objects.
type FormatError struct {
	Reason string
	Cause  error
}

func (e *FormatError) Error() string {
	if e.Cause == nil {
		return "invalid format: " + e.Reason
	}

	return fmt.Sprintf("invalid format: %s: %v", e.Reason, e.Cause)
}

func (e *FormatError) Unwrap() []error { return withCause(ErrFormat, e.Cause) }

func NewFormatError(reason string, cause error) error {
	return &FormatError{Reason: reason, Cause: cause}
}

// UnavailableError reports a local dependency, usually the durable store,
// that could not serve the request.
type UnavailableError struct {
	Service string
	Reason  string
}

func (e *UnavailableError) Error() string {
	msg := "service " + strconv.Quote(e.Service) + " unavailable"
	if e.Reason != "" {
		msg += ": " + e.Reason
	}

	return msg
}

func (e *UnavailableError) Unwrap() error { return ErrUnavailable }

func NewUnavailableError(service, reason string) error {
	return &UnavailableError{Service: service, Reason: reason}
}

func IsNotFound(err error) bool    { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool    { return errors.Is(err, ErrConflict) }
func IsValidation(err error) bool  { return errors.Is(err, ErrValidation) }
func IsNetwork(err error) bool     { return errors.Is(err, ErrNetwork) }
func IsFormat(err error) bool      { return errors.Is(err, ErrFormat) }
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }
