// Package domainerrors provides coded domain errors.
//
// Services wrap infrastructure failures and validation problems into a
// DomainError carrying a stable Code, so handlers can translate errors into
// HTTP statuses without string matching and tests can assert on error class
// via HasCode.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for transport mapping and assertions.
type Code string

const (
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation_failed"
	CodeBadRequest         Code = "bad_request"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeInvariantViolation Code = "invariant_violation"
	CodeUnavailable        Code = "unavailable"
	CodeInternal           Code = "internal"
)

// DomainError is an error with a classification code and a human message.
type DomainError struct {
	Code    Code
	Message string
	cause   error
}

func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error { return e.cause }

// New creates a DomainError without a cause.
func New(code Code, message string) error {
	return &DomainError{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
// A nil err returns nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &DomainError{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) is a DomainError with
// the given code.
func HasCode(err error, code Code) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for errors
// that did not originate in domain logic.
func CodeOf(err error) Code {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
