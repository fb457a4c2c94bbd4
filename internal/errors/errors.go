// Package errors provides the error taxonomy for programming-contract and
// infrastructure failures. Malformed model output is never a Go error; the
// engine reports it as a ParseError emission instead. The errors here cover
// the only hard failures: misusing a stream after end-of-stream, bad
// configuration, and capture-store trouble.
package errors

import (
	"errors"
	"strings"
)

// Category defines the type of error for handling decisions.
type Category int

const (
	// CategoryContract errors are caller bugs (feeding a closed stream).
	CategoryContract Category = iota

	// CategoryConfig errors are invalid configuration.
	CategoryConfig

	// CategoryStorage errors come from the capture store.
	CategoryStorage
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryContract:
		return "contract"
	case CategoryConfig:
		return "config"
	case CategoryStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// AppError is the error type used across the engine.
type AppError struct {
	// Code is a unique error code for programmatic handling
	Code string

	// Message is a human-readable error message
	Message string

	// Category determines how the error should be handled
	Category Category

	// Inner is the underlying error
	Inner error
}

// Error returns the error message.
func (e *AppError) Error() string {
	var sb strings.Builder

	if e.Code != "" {
		sb.WriteString("[")
		sb.WriteString(e.Code)
		sb.WriteString("] ")
	}

	sb.WriteString(e.Message)

	if e.Inner != nil {
		innerMsg := e.Inner.Error()
		if innerMsg != "" && innerMsg != e.Message {
			sb.WriteString(": ")
			sb.WriteString(innerMsg)
		}
	}

	return sb.String()
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Inner
}

// Is checks if the target error is contained in this error.
func (e *AppError) Is(target error) bool {
	if other, ok := target.(*AppError); ok {
		return e.Code == other.Code
	}
	return errors.Is(e.Inner, target)
}

// New creates a new AppError.
func New(code, message string, category Category) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Category: category,
	}
}

// Wrap wraps an existing error with code and category.
func Wrap(err error, code, message string, category Category) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:     code,
		Message:  message,
		Category: category,
		Inner:    err,
	}
}

// Error codes.
const (
	// Stream contract violations
	CodeStreamClosed   = "STREAM_CLOSED"
	CodeStreamExists   = "STREAM_EXISTS"
	CodeStreamNotFound = "STREAM_NOT_FOUND"

	// Config errors
	CodeConfigInvalid = "CONFIG_INVALID"
	CodeConfigLoad    = "CONFIG_LOAD"

	// Capture store errors
	CodeCaptureOpen  = "CAPTURE_OPEN"
	CodeCaptureWrite = "CAPTURE_WRITE"
	CodeCaptureRead  = "CAPTURE_READ"
)

// GetCategory extracts the category from an error. Returns CategoryContract
// for non-AppError errors: an unknown error reaching the engine boundary is
// treated as a caller bug.
func GetCategory(err error) Category {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Category
	}
	return CategoryContract
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
