package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes with HTTP status mapping
const (
	// General errors
	ErrCodeValidationFailed  = "VALIDATION_ERROR"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"

	// Metadata errors
	ErrCodeServiceNotFound      = "SERVICE_NOT_FOUND"
	ErrCodeMetadataBuildFailed  = "METADATA_BUILD_FAILED"
	ErrCodePublishFailed        = "PUBLISH_FAILED"
	ErrCodePublishingDisabled   = "PUBLISHING_DISABLED"
	ErrCodeSnapshotNotFound     = "SNAPSHOT_NOT_FOUND"
	ErrCodeSnapshotsUnavailable = "SNAPSHOTS_UNAVAILABLE"

	// Database errors
	ErrCodeDatabaseError = "DATABASE_ERROR"

	// Authentication errors
	ErrCodeTokenExpired = "TOKEN_EXPIRED"
	ErrCodeInvalidToken = "INVALID_TOKEN"

	// Validation error codes
	ErrCodeInvalidUUID       = "INVALID_UUID"
	ErrCodeInvalidParameters = "INVALID_PARAMETERS"
)

// HTTPStatus maps error codes to HTTP status codes
var HTTPStatus = map[string]int{
	ErrCodeValidationFailed:  http.StatusUnprocessableEntity,
	ErrCodeUnauthorized:      http.StatusUnauthorized,
	ErrCodeForbidden:         http.StatusForbidden,
	ErrCodeNotFound:          http.StatusNotFound,
	ErrCodeInternalError:     http.StatusInternalServerError,
	ErrCodeRateLimitExceeded: http.StatusTooManyRequests,

	ErrCodeServiceNotFound:      http.StatusNotFound,
	ErrCodeMetadataBuildFailed:  http.StatusInternalServerError,
	ErrCodePublishFailed:        http.StatusBadGateway,
	ErrCodePublishingDisabled:   http.StatusConflict,
	ErrCodeSnapshotNotFound:     http.StatusNotFound,
	ErrCodeSnapshotsUnavailable: http.StatusServiceUnavailable,

	ErrCodeDatabaseError: http.StatusInternalServerError,

	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeInvalidToken: http.StatusUnauthorized,

	ErrCodeInvalidUUID:       http.StatusBadRequest,
	ErrCodeInvalidParameters: http.StatusBadRequest,
}

// AppError represents an application error with additional context
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// ErrorBuilder provides a fluent interface for creating errors
type ErrorBuilder struct {
	code    string
	message string
	details string
	cause   error
}

// NewErrorBuilder creates a new error builder
func NewErrorBuilder(code string) *ErrorBuilder {
	return &ErrorBuilder{code: code}
}

// WithMessage sets the error message
func (eb *ErrorBuilder) WithMessage(message string) *ErrorBuilder {
	eb.message = message
	return eb
}

// WithDetails sets the error details
func (eb *ErrorBuilder) WithDetails(details string) *ErrorBuilder {
	eb.details = details
	return eb
}

// WithCause sets the underlying error cause
func (eb *ErrorBuilder) WithCause(cause error) *ErrorBuilder {
	eb.cause = cause
	return eb
}

// Build constructs the final AppError
func (eb *ErrorBuilder) Build() *AppError {
	if eb.message == "" {
		eb.message = getDefaultMessage(eb.code)
	}

	return &AppError{
		Code:    eb.code,
		Message: eb.message,
		Details: eb.details,
		Cause:   eb.cause,
	}
}

var defaultMessages = map[string]string{
	ErrCodeValidationFailed:  "Validation failed",
	ErrCodeUnauthorized:      "Unauthorized access",
	ErrCodeForbidden:         "Access forbidden",
	ErrCodeNotFound:          "Resource not found",
	ErrCodeInternalError:     "Internal server error",
	ErrCodeRateLimitExceeded: "Rate limit exceeded",

	ErrCodeServiceNotFound:      "Breeze service not found",
	ErrCodeMetadataBuildFailed:  "Failed to build metadata",
	ErrCodePublishFailed:        "Failed to publish metadata",
	ErrCodePublishingDisabled:   "No publish target configured",
	ErrCodeSnapshotNotFound:     "Metadata snapshot not found",
	ErrCodeSnapshotsUnavailable: "Metadata snapshots are not available",

	ErrCodeDatabaseError: "Database error",

	ErrCodeTokenExpired: "Token expired",
	ErrCodeInvalidToken: "Invalid token",

	ErrCodeInvalidUUID:       "Invalid UUID format",
	ErrCodeInvalidParameters: "Invalid parameters",
}

// getDefaultMessage returns a default message for error codes
func getDefaultMessage(code string) string {
	if msg, exists := defaultMessages[code]; exists {
		return msg
	}
	return "Unknown error"
}

// Convenience functions for common error types
func NewDatabaseError(cause error, details string) *AppError {
	return NewErrorBuilder(ErrCodeDatabaseError).
		WithCause(cause).
		WithDetails(details).
		Build()
}

func NewValidationError(message string, details string) *AppError {
	return NewErrorBuilder(ErrCodeValidationFailed).
		WithMessage(message).
		WithDetails(details).
		Build()
}

func NewMetadataBuildError(cause error) *AppError {
	return NewErrorBuilder(ErrCodeMetadataBuildFailed).
		WithCause(cause).
		WithDetails(cause.Error()).
		Build()
}

// GetErrorStatus returns the HTTP status code for an error
func GetErrorStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if status, exists := HTTPStatus[appErr.Code]; exists {
			return status
		}
	}
	return http.StatusInternalServerError
}
