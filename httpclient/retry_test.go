package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/kbukum/reqflow/resilience"
)

func TestDefaultDelay(t *testing.T) {
	tests := []struct {
		retry int
		want  time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{5, 16 * time.Second},
		{6, 30 * time.Second},
		{20, 30 * time.Second},
	}
	for _, tt := range tests {
		if got := DefaultDelay(tt.retry); got != tt.want {
			t.Errorf("DefaultDelay(%d) = %v, want %v", tt.retry, got, tt.want)
		}
	}
}

func TestDefaultRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()
	if p.Limit != 0 {
		t.Errorf("Limit = %d, want 0", p.Limit)
	}
	if p.Delay == nil || p.Delay(1) != time.Second {
		t.Error("default policy should use DefaultDelay")
	}
	for _, m := range []string{"GET", "head", "OPTIONS", "PUT", "DELETE"} {
		if !p.AllowsMethod(m) {
			t.Errorf("%s should be retryable", m)
		}
	}
	for _, m := range []string{"POST", "PATCH"} {
		if p.AllowsMethod(m) {
			t.Errorf("%s should not be retryable", m)
		}
	}
	for _, s := range []int{408, 413, 429, 500, 502, 503, 504} {
		if !p.AllowsStatus(s) {
			t.Errorf("status %d should be retryable", s)
		}
	}
	if p.AllowsStatus(501) || p.AllowsStatus(404) {
		t.Error("501 and 404 should not be retryable")
	}
}

func TestRetries_NegativeLimitClamped(t *testing.T) {
	p := RetryPolicy{Limit: -3}.withDefaults()
	if p.Limit != 0 {
		t.Errorf("Limit = %d, want 0", p.Limit)
	}
}

func TestShouldRetry(t *testing.T) {
	p := *Retries(2)
	status := func(code int) error {
		return newHTTPError("GET", "u", newResponse(code, "", nil, nil, nil))
	}

	tests := []struct {
		name    string
		method  string
		err     error
		attempt int
		want    bool
	}{
		{"nil error", http.MethodGet, nil, 1, false},
		{"retryable status", http.MethodGet, status(503), 1, true},
		{"last retry used", http.MethodGet, status(503), 3, false},
		{"final retry allowed", http.MethodGet, status(503), 2, true},
		{"status outside list", http.MethodGet, status(404), 1, false},
		{"method outside list", http.MethodPost, status(503), 1, false},
		{"transport failure", http.MethodGet, &TransportError{Err: errors.New("reset")}, 1, true},
		{"circuit open", http.MethodGet, &TransportError{Err: resilience.ErrCircuitOpen}, 1, false},
		{"timeout", http.MethodGet, &TimeoutError{Cause: ErrTimeoutElapsed}, 1, false},
		{"hook failure", http.MethodGet, &HookError{Err: status(503)}, 1, false},
		{"untyped", http.MethodGet, errors.New("mystery"), 1, false},
		{"wrapped status", http.MethodGet, fmt.Errorf("w: %w", status(429)), 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.ShouldRetry(tt.method, tt.err, tt.attempt); got != tt.want {
				t.Errorf("ShouldRetry() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldRetry_CustomLists(t *testing.T) {
	p := RetryPolicy{
		Limit:       1,
		Methods:     []string{http.MethodPost},
		StatusCodes: []int{418},
	}.withDefaults()

	teapot := newHTTPError("POST", "u", newResponse(418, "", nil, nil, nil))
	if !p.ShouldRetry(http.MethodPost, teapot, 1) {
		t.Error("custom method and status should retry")
	}
	if p.ShouldRetry(http.MethodGet, teapot, 1) {
		t.Error("GET is outside the custom method list")
	}
}

func TestRetryPolicy_CloneIsolation(t *testing.T) {
	p := RetryPolicy{Methods: []string{"GET"}, StatusCodes: []int{500}}
	c := p.clone()
	c.Methods[0] = "POST"
	c.StatusCodes[0] = 502
	if p.Methods[0] != "GET" || p.StatusCodes[0] != 500 {
		t.Error("clone shares slices with the original")
	}
}
