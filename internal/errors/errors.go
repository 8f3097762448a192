// Package errors provides error handling for Excelly.
package errors

import (
	"errors"
	"strings"
	"time"
)

// ============================================================
// Error Categories
// ============================================================

// Category defines the type of error for handling decisions.
type Category int

const (
	// CategoryTemporary errors are retryable (network timeouts, temporary failures)
	CategoryTemporary Category = iota

	// CategoryPermanent errors are not retryable (invalid input, not found)
	CategoryPermanent

	// CategoryUser errors are due to user input (validation, unsupported files)
	CategoryUser

	// CategorySystem errors are system-level (database, configuration)
	CategorySystem
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryTemporary:
		return "temporary"
	case CategoryPermanent:
		return "permanent"
	case CategoryUser:
		return "user"
	case CategorySystem:
		return "system"
	default:
		return "unknown"
	}
}

// ============================================================
// AppError - Main Error Type
// ============================================================

// AppError is the main error type for all Excelly errors.
type AppError struct {
	// Code is a unique error code for programmatic handling
	Code string

	// Message is a user-friendly error message
	Message string

	// Category determines how the error should be handled
	Category Category

	// Inner is the underlying error
	Inner error

	// Retryable indicates if the operation can be retried
	Retryable bool

	// Provider is the completion provider that originated the error, if any
	Provider string

	// Latency is how long the failing operation ran before the error
	Latency time.Duration
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
	if t, ok := target.(*AppError); ok {
		return t.Code == e.Code
	}
	return errors.Is(e.Inner, target)
}

// ============================================================
// Error Constructors
// ============================================================

// New creates a new AppError.
func New(code, message string, category Category) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Category: category,
	}
}

// Wrap wraps an existing error with context.
func Wrap(err error, code, message string, category Category) *AppError {
	if err == nil {
		return nil
	}

	// If it's already an AppError, carry its handling attributes forward
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:      code,
			Message:   message,
			Category:  category,
			Inner:     appErr,
			Retryable: appErr.Retryable,
			Provider:  appErr.Provider,
			Latency:   appErr.Latency,
		}
	}

	return &AppError{
		Code:     code,
		Message:  message,
		Category: category,
		Inner:    err,
	}
}

// Temporary creates a retryable temporary error.
func Temporary(code, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Category:  CategoryTemporary,
		Retryable: true,
	}
}

// Permanent creates a non-retryable permanent error.
func Permanent(code, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Category:  CategoryPermanent,
		Retryable: false,
	}
}

// User creates a user input error.
func User(code, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Category:  CategoryUser,
		Retryable: false,
	}
}

// System creates a system-level error.
func System(code, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Category:  CategorySystem,
		Retryable: false,
	}
}

// WithProvider attaches the originating provider name and call latency.
func (e *AppError) WithProvider(name string, latency time.Duration) *AppError {
	e.Provider = name
	e.Latency = latency
	return e
}

// ============================================================
// Error Codes
// ============================================================

const (
	// Classifier errors
	CodeClassificationInputInvalid = "CLASSIFICATION_INPUT_INVALID"

	// Provider errors
	CodeProviderUnavailable = "PROVIDER_UNAVAILABLE"
	CodeProviderTimeout     = "PROVIDER_TIMEOUT"
	CodeProviderAuthFailed  = "PROVIDER_AUTH_FAILED"
	CodeProviderBadResponse = "PROVIDER_BAD_RESPONSE"

	// File errors
	CodeFileFormatUnsupported = "FILE_FORMAT_UNSUPPORTED"
	CodeFileTooLarge          = "FILE_TOO_LARGE"
	CodeSheetNotFound         = "SHEET_NOT_FOUND"
	CodeFileNotFound          = "FILE_NOT_FOUND"

	// Session errors
	CodeSessionNotFound = "SESSION_NOT_FOUND"
	CodeSessionStore    = "SESSION_STORE_FAILED"

	// Config errors
	CodeConfigInvalid = "CONFIG_INVALID"
)

// ============================================================
// Helpers
// ============================================================

// GetCategory extracts the category from an error.
// Returns CategoryTemporary for non-AppError errors.
func GetCategory(err error) Category {
	if err == nil {
		return CategoryTemporary
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Category
	}

	return CategoryTemporary
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}

	return true
}

// HasCode reports whether err carries the given error code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Code == code {
			return true
		}
		return HasCode(appErr.Inner, code)
	}
	return false
}

// ProviderName extracts the originating provider name from an error chain.
func ProviderName(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Provider != "" {
			return appErr.Provider
		}
		return ProviderName(appErr.Inner)
	}
	return ""
}
