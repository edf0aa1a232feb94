// Package errors provides standardized domain errors with codes for the Inkwell API.
//
// Usage:
//
//	// In the pipeline - return typed errors
//	if len(spine) == 0 {
//	    return errors.EmptySpine("package has no readable content files")
//	}
//
//	// In handlers - check with errors.Is
//	if errors.Is(err, errors.ErrNotFound) {
//	    response.NotFound(w, err.Error(), logger)
//	    return
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
//
// Unresolved navigation targets and missing assets are deliberately not
// errors: the pipeline recovers from them locally by degrading the
// affected entry, so no code exists for them.
const (
	CodeNotFound        Code = "NOT_FOUND"
	CodeMalformedSource Code = "MALFORMED_SOURCE"
	CodeEmptySpine      Code = "EMPTY_SPINE"
	CodeCorruptDocument Code = "CORRUPT_DOCUMENT"
	CodeValidation      Code = "VALIDATION"
	CodeInternal        Code = "INTERNAL"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeMalformedSource, CodeEmptySpine, CodeValidation:
		return http.StatusBadRequest
	case CodeCorruptDocument:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional cause.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound        = &Error{Code: CodeNotFound, Message: "not found"}
	ErrMalformedSource = &Error{Code: CodeMalformedSource, Message: "malformed source package"}
	ErrEmptySpine      = &Error{Code: CodeEmptySpine, Message: "document has no chapters"}
	ErrCorruptDocument = &Error{Code: CodeCorruptDocument, Message: "persisted document is unreadable"}
	ErrValidation      = &Error{Code: CodeValidation, Message: "validation error"}
	ErrInternal        = &Error{Code: CodeInternal, Message: "internal error"}
)

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// MalformedSource creates a malformed source error.
func MalformedSource(msg string) *Error {
	return &Error{Code: CodeMalformedSource, Message: msg}
}

// MalformedSourcef creates a malformed source error with formatted message.
func MalformedSourcef(format string, args ...any) *Error {
	return &Error{Code: CodeMalformedSource, Message: fmt.Sprintf(format, args...)}
}

// EmptySpine creates an empty spine error.
func EmptySpine(msg string) *Error {
	return &Error{Code: CodeEmptySpine, Message: msg}
}

// CorruptDocument creates a corrupt document error.
func CorruptDocument(msg string) *Error {
	return &Error{Code: CodeCorruptDocument, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
