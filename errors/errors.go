package errors

import (
	"fmt"
	"net/http"
)

// StatusClientClosedRequest is the de facto status for a request the caller
// abandoned.
const StatusClientClosedRequest = 499

// AppError is the unified application error type.
type AppError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	Retryable  bool           `json:"retryable"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates an AppError, deriving Retryable from code.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

func newService(code ErrorCode, status int, service, format string) *AppError {
	e := New(code, fmt.Sprintf(format, service), status)
	return e.WithDetail("service", service)
}

// ServiceUnavailable reports a service refusing work, e.g. behind an open circuit.
func ServiceUnavailable(service string) *AppError {
	return newService(ErrCodeServiceUnavailable, http.StatusServiceUnavailable, service, "%s is temporarily unavailable")
}

// ConnectionFailed reports a service that could not be reached.
func ConnectionFailed(service string) *AppError {
	return newService(ErrCodeConnectionFailed, http.StatusServiceUnavailable, service, "unable to connect to %s")
}

// Timeout reports a call to service that ran out of time.
func Timeout(service string) *AppError {
	return newService(ErrCodeTimeout, http.StatusGatewayTimeout, service, "%s did not respond in time")
}

// Canceled reports a call to service abandoned by the caller.
func Canceled(service string) *AppError {
	return newService(ErrCodeCanceled, StatusClientClosedRequest, service, "request to %s was canceled")
}

// ExternalServiceError reports an unexpected failure status from service.
func ExternalServiceError(service string, cause error) *AppError {
	return newService(ErrCodeExternalService, http.StatusBadGateway, service, "%s returned an error").WithCause(cause)
}

// RateLimited reports too many requests.
func RateLimited() *AppError {
	return New(ErrCodeRateLimited, "too many requests", http.StatusTooManyRequests)
}

// NotFound reports a missing resource. id may be empty.
func NotFound(resource, id string) *AppError {
	e := New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound).
		WithDetail("resource", resource)
	if id != "" {
		e.WithDetail("id", id)
	}
	return e
}

// Conflict reports a state conflict.
func Conflict(reason string) *AppError {
	return New(ErrCodeConflict, reason, http.StatusConflict)
}

// Validation reports invalid input or configuration.
func Validation(message string) *AppError {
	return New(ErrCodeInvalidInput, message, http.StatusBadRequest)
}

// Unauthorized reports missing or rejected credentials.
func Unauthorized(reason string) *AppError {
	if reason == "" {
		reason = "authentication required"
	}
	return New(ErrCodeUnauthorized, reason, http.StatusUnauthorized)
}

// Forbidden reports credentials without permission.
func Forbidden(reason string) *AppError {
	if reason == "" {
		reason = "permission denied"
	}
	return New(ErrCodeForbidden, reason, http.StatusForbidden)
}

// Internal wraps an unexpected error.
func Internal(cause error) *AppError {
	return New(ErrCodeInternal, "unexpected error", http.StatusInternalServerError).WithCause(cause)
}
