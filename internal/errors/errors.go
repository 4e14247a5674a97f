package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	// Failure kinds of the analysis pipeline
	ErrorTypeConfiguration  ErrorType = "configuration"
	ErrorTypeTransport      ErrorType = "transport"
	ErrorTypeResponseFormat ErrorType = "response_format"
	ErrorTypePreprocessing  ErrorType = "preprocessing"

	// Failure kinds of the HTTP surface
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeInternal   ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"status_code"`
	// UpstreamStatus is the HTTP status returned by the vision endpoint, 0 when no response was received.
	UpstreamStatus int   `json:"upstream_status,omitempty"`
	Cause          error `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.UpstreamStatus != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.UpstreamStatus)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s (caused by: %v)", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewConfigurationError reports a missing or placeholder credential or an unusable setting.
func NewConfigurationError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeConfiguration,
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
		Cause:      cause,
	}
}

// NewTransportError reports a network-level failure talking to a remote endpoint.
func NewTransportError(message string, cause error) *AppError {
	status := http.StatusBadGateway
	if stderrors.Is(cause, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	return &AppError{
		Type:       ErrorTypeTransport,
		Message:    message,
		StatusCode: status,
		Cause:      cause,
	}
}

// NewUpstreamStatusError reports a non-2xx reply from a remote endpoint.
func NewUpstreamStatusError(upstreamStatus int, body string) *AppError {
	return &AppError{
		Type:           ErrorTypeTransport,
		Message:        "upstream returned a non-success status",
		Details:        body,
		StatusCode:     http.StatusBadGateway,
		UpstreamStatus: upstreamStatus,
	}
}

// NewResponseFormatError reports a reply that could not be coerced into the expected JSON.
func NewResponseFormatError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeResponseFormat,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewPreprocessingError reports an image decode or transform failure.
func NewPreprocessingError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypePreprocessing,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Cause:      cause,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Cause:      cause,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
		Cause:      cause,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// KindOf returns the kind of the first AppError in err's chain, or ErrorTypeInternal.
func KindOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// IsType checks if the error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.StatusCode
	}
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case stderrors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}
