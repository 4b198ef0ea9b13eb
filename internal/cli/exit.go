package cli

import (
	"context"
	"errors"

	"github.com/kbukum/reqflow/httpclient"
)

// Exit codes.
const (
	ExitFailure   = 1
	ExitUsage     = 2
	ExitHTTP      = 3
	ExitTimeout   = 4
	ExitTransport = 5
	ExitCanceled  = 130
)

// ExitError carries the process exit code for err.
type ExitError struct {
	Code int
	Err  error
	// Silent means the error was already reported.
	Silent bool
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

func usageError(err error) error {
	return &ExitError{Code: ExitUsage, Err: err}
}

// ExitCode returns the exit code for err. Errors without one exit 1.
func ExitCode(err error) int {
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ExitFailure
}

// IsSilent reports whether err was already printed.
func IsSilent(err error) bool {
	var ee *ExitError
	return errors.As(err, &ee) && ee.Silent
}

// requestExitCode classifies a request failure.
func requestExitCode(err error) int {
	switch {
	case httpclient.IsHTTPError(err):
		return ExitHTTP
	case errors.Is(err, httpclient.ErrAborted), errors.Is(err, context.Canceled):
		return ExitCanceled
	case httpclient.IsTimeout(err):
		return ExitTimeout
	case httpclient.IsTransport(err):
		return ExitTransport
	default:
		return ExitFailure
	}
}
