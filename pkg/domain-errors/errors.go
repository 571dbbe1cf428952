// Package domainerrors carries stable, machine-readable error codes across
// layer boundaries. Services return these so handlers can translate them into
// HTTP statuses without string matching, and clients can distinguish
// "fix your input" from "retry" from "contact support".
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of failure. Codes are part of the API contract;
// never rename one that has shipped.
type Code string

const (
	// CodeValidation marks malformed or missing input. The caller must
	// correct the request; no state was changed.
	CodeValidation Code = "validation"

	// CodeInvalidZone marks a timezone identifier that does not resolve
	// against the IANA database.
	CodeInvalidZone Code = "invalid_zone"

	// CodeInvalidTimestamp marks a wall-clock string that cannot be parsed.
	CodeInvalidTimestamp Code = "invalid_timestamp"

	// CodeUnknownField signals a snapshot/tracked-field mismatch. This is an
	// internal consistency bug, not a caller error; surface and investigate.
	CodeUnknownField Code = "unknown_field"

	// CodeBadRequest marks a structurally invalid request (unparsable body,
	// malformed identifier).
	CodeBadRequest Code = "bad_request"

	CodeNotFound Code = "not_found"

	// CodeConflict marks a write that lost a concurrency race. The caller
	// should reload and retry the whole operation.
	CodeConflict Code = "conflict"

	CodeInternal Code = "internal"
)

// DomainError pairs a Code with a human-readable message and an optional
// wrapped cause.
type DomainError struct {
	Code    Code
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error { return e.Err }

// New creates a DomainError with the given code and message.
func New(code Code, message string) error {
	return &DomainError{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error, preserving the
// cause for errors.Is/As chains.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &DomainError{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *DomainError
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is is a readability alias for HasCode at call sites.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf returns the outermost code carried by err, or CodeInternal when err
// carries none.
func CodeOf(err error) Code {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost message, or a generic one for foreign errors
// so internal details never leak to clients.
func MessageOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// ToHTTPStatus maps a code to its HTTP status. Unknown codes map to 500.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeInvalidZone, CodeInvalidTimestamp:
		return http.StatusUnprocessableEntity
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnknownField, CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
