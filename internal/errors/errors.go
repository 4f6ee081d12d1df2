// Package errors defines the coded domain errors returned by the encounter
// state machine.
//
// Nothing in the encounter core is fatal: invalid operations return one of
// these errors instead of panicking so a single malformed action never halts
// an encounter in progress.
package errors

import "fmt"

// Code is a machine-readable error category.
type Code string

const (
	// CodeInvalidParticipant marks a participant that is unknown to the
	// encounter or lacks a required capability.
	CodeInvalidParticipant Code = "INVALID_PARTICIPANT"
	// CodeResourceUnavailable marks a turn resource that was already spent
	// or is forbidden by a condition.
	CodeResourceUnavailable Code = "RESOURCE_UNAVAILABLE"
	// CodeInvalidTransition marks an operation on an encounter that is not
	// in a state that allows it.
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	// CodeConcentrationConflict marks a second concentration effect for the
	// same caster. It is resolved by breaking the prior effect and is only
	// ever logged.
	CodeConcentrationConflict Code = "CONCENTRATION_CONFLICT"
	// CodeUnknownCondition marks a condition name absent from the catalog.
	CodeUnknownCondition Code = "UNKNOWN_CONDITION"
	// CodeInvalidNotation marks malformed dice notation.
	CodeInvalidNotation Code = "INVALID_NOTATION"
)

// Sentinels for errors.Is matching by code.
var (
	ErrInvalidParticipant  = New(CodeInvalidParticipant, "invalid participant")
	ErrResourceUnavailable = New(CodeResourceUnavailable, "resource unavailable")
	ErrInvalidTransition   = New(CodeInvalidTransition, "invalid transition")
	ErrUnknownCondition    = New(CodeUnknownCondition, "unknown condition")
	ErrInvalidNotation     = New(CodeInvalidNotation, "invalid dice notation")
)

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code              // Machine-readable error code
	Message  string            // Human-readable reason
	Metadata map[string]string // Additional context (participant, resource...)
	Cause    error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a simple domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// WithMetadata creates a domain error carrying structured context.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Metadata: metadata,
	}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CodeOf extracts the code from err, or "" when err is not a domain error.
func CodeOf(err error) Code {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
