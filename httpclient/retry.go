package httpclient

import (
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/kbukum/reqflow/resilience"
)

// Retry defaults.
var (
	DefaultRetryMethods = []string{
		http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete,
	}
	DefaultRetryStatusCodes = []int{
		http.StatusRequestTimeout,
		http.StatusRequestEntityTooLarge,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
	}
)

// defaultBackoff is min(1s * 2^(n-1), 30s) with no jitter.
var defaultBackoff = resilience.Backoff{
	Initial: time.Second,
	Max:     30 * time.Second,
	Factor:  2,
}

// DefaultDelay returns the default wait before retry number n (1-based).
func DefaultDelay(n int) time.Duration {
	return defaultBackoff.Duration(n)
}

// RetryPolicy decides whether and when a failed attempt is retried.
type RetryPolicy struct {
	// Limit is the number of retries after the first attempt.
	Limit int `yaml:"limit" mapstructure:"limit" validate:"gte=0"`
	// Methods is the allow-list of retryable methods. Nil means DefaultRetryMethods.
	Methods []string `yaml:"methods" mapstructure:"methods"`
	// StatusCodes is the allow-list of retryable statuses. Nil means DefaultRetryStatusCodes.
	StatusCodes []int `yaml:"status_codes" mapstructure:"status_codes" validate:"dive,gte=100,lte=599"`
	// Delay maps the 1-based retry number to a wait. Nil means DefaultDelay.
	Delay func(retry int) time.Duration `yaml:"-" mapstructure:"-"`
}

// DefaultRetryPolicy returns a policy that never retries but carries the
// default allow-lists and delay curve.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{}.withDefaults()
}

// Retries returns the default policy with the given limit.
func Retries(limit int) *RetryPolicy {
	p := DefaultRetryPolicy()
	p.Limit = limit
	return &p
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.Limit < 0 {
		p.Limit = 0
	}
	if p.Methods == nil {
		p.Methods = DefaultRetryMethods
	}
	if p.StatusCodes == nil {
		p.StatusCodes = DefaultRetryStatusCodes
	}
	if p.Delay == nil {
		p.Delay = DefaultDelay
	}
	return p
}

func (p RetryPolicy) clone() RetryPolicy {
	out := p
	if p.Methods != nil {
		out.Methods = slices.Clone(p.Methods)
	}
	if p.StatusCodes != nil {
		out.StatusCodes = slices.Clone(p.StatusCodes)
	}
	return out
}

// AllowsMethod reports whether method is in the retry allow-list.
func (p RetryPolicy) AllowsMethod(method string) bool {
	return slices.ContainsFunc(p.Methods, func(m string) bool {
		return strings.EqualFold(m, method)
	})
}

// AllowsStatus reports whether status is in the retry allow-list.
func (p RetryPolicy) AllowsStatus(status int) bool {
	return slices.Contains(p.StatusCodes, status)
}

// ShouldRetry decides whether the failure of attempt (1-based) is retried.
// Timeouts, hook failures, open circuits, oversized bodies and statuses
// outside the allow-list are terminal, as is any failure once Limit retries have been used.
func (p RetryPolicy) ShouldRetry(method string, err error, attempt int) bool {
	if err == nil || attempt > p.Limit || !p.AllowsMethod(method) {
		return false
	}

	var (
		httpErr      *HTTPError
		timeoutErr   *TimeoutError
		hookErr      *HookError
		transportErr *TransportError
	)
	switch {
	case errors.As(err, &hookErr), errors.As(err, &timeoutErr):
		return false
	case errors.As(err, &httpErr):
		return p.AllowsStatus(httpErr.StatusCode)
	case errors.As(err, &transportErr):
		return !errors.Is(err, resilience.ErrCircuitOpen) && !errors.Is(err, ErrResponseTooLarge)
	default:
		return false
	}
}
