package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	apperrors "github.com/kbukum/reqflow/errors"
	"github.com/kbukum/reqflow/resilience"
)

// ErrorCode classifies HTTP client errors.
type ErrorCode int

const (
	// ErrCodeTimeout indicates the attempt was cancelled before a response arrived.
	ErrCodeTimeout ErrorCode = iota
	// ErrCodeConnection indicates a transport failure (refused, DNS, reset, etc).
	ErrCodeConnection
	// ErrCodeAuth indicates an authentication/authorization failure (401/403).
	ErrCodeAuth
	// ErrCodeNotFound indicates the resource was not found (404).
	ErrCodeNotFound
	// ErrCodeRateLimit indicates rate limiting (429).
	ErrCodeRateLimit
	// ErrCodeValidation indicates any other 4xx.
	ErrCodeValidation
	// ErrCodeServer indicates a 5xx or an unexpected status.
	ErrCodeServer
	// ErrCodeHook indicates a hook failed.
	ErrCodeHook
)

// String returns the error code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeTimeout:
		return "timeout"
	case ErrCodeConnection:
		return "connection"
	case ErrCodeAuth:
		return "auth"
	case ErrCodeNotFound:
		return "not_found"
	case ErrCodeRateLimit:
		return "rate_limit"
	case ErrCodeValidation:
		return "validation"
	case ErrCodeServer:
		return "server"
	case ErrCodeHook:
		return "hook"
	default:
		return "unknown"
	}
}

// ClassifyStatus maps a non-2xx status code to an ErrorCode.
func ClassifyStatus(statusCode int) ErrorCode {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return ErrCodeAuth
	case statusCode == http.StatusNotFound:
		return ErrCodeNotFound
	case statusCode == http.StatusTooManyRequests:
		return ErrCodeRateLimit
	case statusCode >= 400 && statusCode < 500:
		return ErrCodeValidation
	default:
		return ErrCodeServer
	}
}

// HTTPError is returned for a non-2xx response when ThrowHTTPErrors is on.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Code       ErrorCode
	// Response is the (possibly hook-replaced) response envelope.
	Response *Response
}

func newHTTPError(method, url string, resp *Response) *HTTPError {
	return &HTTPError{
		Method:     method,
		URL:        url,
		StatusCode: resp.StatusCode,
		Code:       ClassifyStatus(resp.StatusCode),
		Response:   resp,
	}
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	status := ""
	if e.Response != nil {
		status = e.Response.Status
	}
	if status == "" {
		status = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("httpclient: %s (HTTP %d %s): %s %s", e.Code, e.StatusCode, status, e.Method, e.URL)
}

// TimeoutError is returned when an attempt's cancellation fires before a
// response is produced: the attempt timer, the external Signal, an explicit
// abort or the caller's context.
type TimeoutError struct {
	Method string
	URL    string
	// Timeout is the configured per-attempt timeout (zero if none).
	Timeout time.Duration
	// Cause is the cancellation cause (ErrTimeoutElapsed, ErrAborted, a
	// Signal reason or a context error).
	Cause error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	if errors.Is(e.Cause, ErrTimeoutElapsed) {
		return fmt.Sprintf("httpclient: timeout: %s %s exceeded %s", e.Method, e.URL, e.Timeout)
	}
	return fmt.Sprintf("httpclient: timeout: %s %s: %v", e.Method, e.URL, e.Cause)
}

// Unwrap returns the cancellation cause.
func (e *TimeoutError) Unwrap() error { return e.Cause }

// IsTimeout reports true. The Timeout field holds the configured limit.
func (e *TimeoutError) IsTimeout() bool { return true }

// TransportError wraps an opaque failure from the transport.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("httpclient: connection: %s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error { return e.Err }

// HookError wraps a failure raised by a hook. It is never retried.
type HookError struct {
	Stage HookStage
	Index int
	Err   error
}

// Error implements the error interface.
func (e *HookError) Error() string {
	return fmt.Sprintf("httpclient: hook: %s[%d]: %v", e.Stage, e.Index, e.Err)
}

// Unwrap returns the hook's error.
func (e *HookError) Unwrap() error { return e.Err }

// Code returns the ErrorCode for any error produced by the engine.
func Code(err error) ErrorCode {
	var (
		httpErr    *HTTPError
		timeoutErr *TimeoutError
		hookErr    *HookError
	)
	switch {
	case errors.As(err, &hookErr):
		return ErrCodeHook
	case errors.As(err, &timeoutErr):
		return ErrCodeTimeout
	case errors.As(err, &httpErr):
		return httpErr.Code
	default:
		return ErrCodeConnection
	}
}

// AsHTTPError extracts an *HTTPError from err's chain.
func AsHTTPError(err error) (*HTTPError, bool) {
	var e *HTTPError
	ok := errors.As(err, &e)
	return e, ok
}

// IsHTTPError checks if an error is an HTTP status error.
func IsHTTPError(err error) bool {
	var e *HTTPError
	return errors.As(err, &e)
}

// IsTimeout checks if an error is a timeout/cancellation error.
func IsTimeout(err error) bool {
	var e *TimeoutError
	return errors.As(err, &e)
}

// IsTransport checks if an error is a transport failure.
func IsTransport(err error) bool {
	var e *TransportError
	return errors.As(err, &e)
}

// IsHook checks if an error was raised by a hook.
func IsHook(err error) bool {
	var e *HookError
	return errors.As(err, &e)
}

// IsNotFound checks if an error is a 404.
func IsNotFound(err error) bool {
	e, ok := AsHTTPError(err)
	return ok && e.Code == ErrCodeNotFound
}

// IsRateLimit checks if an error is a 429 or a local rate-limit rejection.
func IsRateLimit(err error) bool {
	if errors.Is(err, resilience.ErrRateLimited) {
		return true
	}
	e, ok := AsHTTPError(err)
	return ok && e.Code == ErrCodeRateLimit
}

// ToAppError maps an engine error onto the service-wide AppError shape.
// Errors that are already AppErrors are returned as-is.
func ToAppError(err error, service string) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		var appErr *apperrors.AppError
		switch httpErr.Code {
		case ErrCodeAuth:
			if httpErr.StatusCode == http.StatusForbidden {
				appErr = apperrors.Forbidden("")
			} else {
				appErr = apperrors.Unauthorized("")
			}
		case ErrCodeNotFound:
			appErr = apperrors.NotFound(service, "")
		case ErrCodeRateLimit:
			appErr = apperrors.RateLimited()
		case ErrCodeValidation:
			appErr = apperrors.Validation(fmt.Sprintf("%s rejected the request (HTTP %d)", service, httpErr.StatusCode))
		default:
			appErr = apperrors.ExternalServiceError(service, nil)
		}
		return appErr.WithCause(err).WithDetail("status_code", httpErr.StatusCode)
	}

	switch {
	case IsTimeout(err) && (errors.Is(err, ErrAborted) || errors.Is(err, context.Canceled)):
		return apperrors.Canceled(service).WithCause(err)
	case IsTimeout(err):
		return apperrors.Timeout(service).WithCause(err)
	case errors.Is(err, resilience.ErrCircuitOpen):
		return apperrors.ServiceUnavailable(service).WithCause(err)
	case IsRateLimit(err):
		return apperrors.RateLimited().WithCause(err)
	case IsTransport(err):
		return apperrors.ConnectionFailed(service).WithCause(err)
	default:
		return apperrors.Internal(err)
	}
}
