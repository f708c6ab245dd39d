// Package domainerrors provides coded errors that services return to callers.
//
// Stores and infrastructure return sentinel errors (pkg/platform/sentinel);
// services translate those into coded errors here so that transports (CLI,
// HTTP) can decide how to render them without inspecting error strings.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for rendering and retry decisions.
type Code string

const (
	// Infrastructure and request codes.
	CodeInvalidInput       Code = "invalid_input"
	CodeBadRequest         Code = "bad_request"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInvalidState       Code = "invalid_state"
	CodeInvariantViolation Code = "invariant_violation"
	CodeTimeout            Code = "timeout"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeInternal           Code = "internal_error"

	// Onboarding taxonomy.
	CodeValidation           Code = "validation_error"
	CodeNetwork              Code = "network_error"
	CodeFatalAttestation     Code = "fatal_attestation_error"
	CodeNonFatalAttestation  Code = "non_fatal_attestation_error"
	CodeSecurity             Code = "security_error"
	CodeDevice               Code = "device_error"
	CodeManualIntervention   Code = "manual_intervention_required"
	CodeConfirmationRequired Code = "confirmation_required"
)

// Error is a coded error carrying a user-safe message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
// Returns nil if err is nil.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether any coded error in err's chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is reports whether the outermost coded error in err's chain carries code.
func Is(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the outermost code in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// UserMessage returns the outermost coded message without causes.
// Internal errors collapse to a generic message.
func UserMessage(err error) string {
	var de *Error
	if !errors.As(err, &de) || de.Code == CodeInternal {
		return "an unexpected error occurred"
	}
	return de.Message
}

// Retryable reports whether the caller may retry the failed operation unchanged.
func Retryable(err error) bool {
	switch CodeOf(err) {
	case CodeNetwork, CodeTimeout, CodeFatalAttestation:
		return true
	default:
		return false
	}
}
