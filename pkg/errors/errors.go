// Package errors provides structured error types for depotview.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI, server and library code
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The scene engine distinguishes three failure families:
//   - DOMAIN_ERROR: invalid numeric input to the mapper (negative stock,
//     degenerate normalization range). Recoverable: the offending record is
//     skipped and the build continues.
//   - CONFIG_ERROR: invalid grid configuration or a zero-sized host
//     container. Fatal at initialization.
//   - FETCH_ERROR: the data provider failed. The scene degrades to zero
//     records and the session continues.
//
// The remaining codes follow the INVALID_*, NOT_FOUND, NETWORK_*, INTERNAL_*
// naming used for transport and input errors.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeDomain, "negative stock %v", stock)
//	if errors.Is(err, errors.ErrCodeDomain) {
//	    // skip the record
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeFetch, origErr, "layout for depot %s", id)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Scene engine errors
	ErrCodeDomain Code = "DOMAIN_ERROR"
	ErrCodeConfig Code = "CONFIG_ERROR"
	ErrCodeFetch  Code = "FETCH_ERROR"

	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidDepot  Code = "INVALID_DEPOT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodeFileNotFound    Code = "FILE_NOT_FOUND"
	ErrCodeSessionNotFound Code = "SESSION_NOT_FOUND"

	// Network errors
	ErrCodeNetwork Code = "NETWORK_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
// Only the outermost *Error is consulted.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// Has reports whether any *Error in the chain of err carries code.
// Unlike [Is], it keeps unwrapping past a non-matching *Error.
func Has(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Domain is shorthand for New(ErrCodeDomain, ...).
func Domain(format string, args ...any) *Error {
	return New(ErrCodeDomain, format, args...)
}

// Config is shorthand for New(ErrCodeConfig, ...).
func Config(format string, args ...any) *Error {
	return New(ErrCodeConfig, format, args...)
}
