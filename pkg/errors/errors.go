// Package errors defines the coded error type shared by the DSU engine and its harness.
package errors

import (
	"errors"
	"fmt"
)

// Error codes.
const (
	CodeUnknown          = "UNKNOWN_ERROR"
	CodeCapacityExceeded = "CAPACITY_EXCEEDED"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeConfigError      = "CONFIG_ERROR"
	CodeAllocationError  = "ALLOCATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeDatabaseError    = "DATABASE_ERROR"
	CodeStorageError     = "STORAGE_ERROR"
	CodeWorkloadError    = "WORKLOAD_ERROR"
)

// AppError carries a stable code next to a human readable message.
type AppError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError.
func New(code string, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message.
func Newf(code string, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with an AppError.
func Wrap(code string, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Sentinels for errors.Is comparisons.
var (
	ErrCapacityExceeded = New(CodeCapacityExceeded, "capacity exceeded")
	ErrInvalidInput     = New(CodeInvalidInput, "invalid input")
	ErrConfigError      = New(CodeConfigError, "configuration error")
	ErrAllocationError  = New(CodeAllocationError, "allocation error")
	ErrNotFound         = New(CodeNotFound, "resource not found")
	ErrDatabaseError    = New(CodeDatabaseError, "database error")
	ErrStorageError     = New(CodeStorageError, "storage error")
	ErrWorkloadError    = New(CodeWorkloadError, "workload error")
)

// IsCapacityExceeded checks if the error reports a vertex count above the packing limit.
func IsCapacityExceeded(err error) bool {
	return errors.Is(err, ErrCapacityExceeded)
}

// IsNotFound checks if the error is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConfigError checks if the error is a configuration error.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfigError)
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetErrorMessage extracts the error message from an error.
func GetErrorMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
