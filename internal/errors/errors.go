// Package errors defines the structured error taxonomy shared by the store, scheduler, processors and importer.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeSchema indicates a table is missing a required column. Fatal until the table is fixed.
	ErrCodeSchema ErrorCode = "schema"
	// ErrCodeProvider indicates a mailbox provider call failed.
	ErrCodeProvider ErrorCode = "provider"
	// ErrCodeParse indicates a legacy entry could not be parsed.
	ErrCodeParse ErrorCode = "parse"
	// ErrCodeUnknownType indicates a job row carries a type no processor handles.
	ErrCodeUnknownType ErrorCode = "unknown_type"
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeConflict indicates the requested transition is not allowed from the current state.
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates a deadline was exceeded.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled.
	ErrCodeCanceled ErrorCode = "canceled"
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	// Field names the column, key or field that caused the error, when known.
	Field string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any AppError target carrying the same code, so errors.Is(err, &AppError{Code: ErrCodeSchema}) works.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Message == "" && t.Code == e.Code
}

// SchemaMissing reports the columns absent from table's header row.
func SchemaMissing(table string, missing []string) *AppError {
	return &AppError{
		Code:    ErrCodeSchema,
		Message: fmt.Sprintf("table %q missing required column(s): %s", table, strings.Join(missing, ", ")),
		Field:   strings.Join(missing, ","),
	}
}

// Schemaf creates a schema error with a formatted message.
func Schemaf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeSchema, Message: fmt.Sprintf(format, args...)}
}

// Provider wraps a failed mailbox provider call.
func Provider(op string, err error) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: ErrCodeProvider, Message: op, Cause: err}
}

// Parse wraps a legacy entry that could not be parsed.
func Parse(key string, err error) *AppError {
	return &AppError{Code: ErrCodeParse, Message: "parse entry " + key, Cause: err, Field: key}
}

// UnknownType reports a job type no processor handles.
func UnknownType(jobType string) *AppError {
	return &AppError{Code: ErrCodeUnknownType, Message: "Unknown job type: " + jobType}
}

// NotFoundf creates a NotFound error with formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflictf creates a Conflict error with formatted message.
func Conflictf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeConflict, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a Validation error wrapping cause.
func Validation(cause error) *AppError {
	if cause == nil {
		return nil
	}
	return &AppError{Code: ErrCodeValidation, Message: "invalid request", Cause: cause}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsSchema checks if an error is a schema error.
func IsSchema(err error) bool { return isCode(err, ErrCodeSchema) }

// IsProvider checks if an error is a provider error.
func IsProvider(err error) bool { return isCode(err, ErrCodeProvider) }

// IsParse checks if an error is a parse error.
func IsParse(err error) bool { return isCode(err, ErrCodeParse) }

// IsUnknownType checks if an error is an unknown job type error.
func IsUnknownType(err error) bool { return isCode(err, ErrCodeUnknownType) }

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool { return isCode(err, ErrCodeNotFound) }

// IsConflict checks if an error is a Conflict error.
func IsConflict(err error) bool { return isCode(err, ErrCodeConflict) }

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool { return isCode(err, ErrCodeValidation) }

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
