package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kbukum/reqflow/resilience"
)

var (
	// errServerStatus marks a retryable 5xx response as a breaker failure
	// without discarding the response.
	errServerStatus = errors.New("httpclient: server error status")
	// errCallerCanceled marks an exchange cut short by the caller. The
	// breaker ignores it.
	errCallerCanceled = errors.New("httpclient: canceled by caller")
)

// attempt performs one network exchange for rc inside its own cancellation
// scope. The scope's timer and signal bridge are released on every exit.
func (e *Engine) attempt(parent context.Context, s *RequestSpec, rc *RequestContext, transport Transport, n int) (*Response, error) {
	timeout := s.timeout()
	scope := newCanceller(parent, nil, timeout)
	defer scope.release()

	ctx, span := e.startAttemptSpan(scope.ctx, rc.Method, n)
	defer span.End()

	rc.Attempt = n
	if err := s.Hooks.runBeforeRequest(ctx, rc); err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	out := &OutgoingRequest{
		Method:      rc.Method,
		URL:         appendQuery(rc.URL, rc.Query),
		Header:      rc.Header.Clone(),
		Body:        rc.Body,
		Credentials: s.credentials(),
		Redirect:    s.redirect(),
	}
	e.injectTrace(ctx, out.Header)
	e.recordAttempt(ctx, out.Method)

	raw, err := e.send(ctx, scope, s.retryPolicy(), transport, out)
	if err == nil && scope.cause() != nil {
		_ = raw.Body.Close()
		err = scope.cause()
	}
	if err != nil {
		err = classifySendError(scope, out, timeout, err)
		recordSpanError(span, err)
		return nil, err
	}
	defer func() { _ = raw.Body.Close() }()

	body, err := readBody(raw.Body, s.MaxResponseSize)
	if err != nil {
		err = classifySendError(scope, out, timeout, fmt.Errorf("read response body: %w", err))
		recordSpanError(span, err)
		return nil, err
	}

	resp := newResponse(raw.StatusCode, raw.Status, raw.Header, body, s.JSONUnmarshal)
	setSpanStatus(span, resp.StatusCode)

	resp, err = s.Hooks.runAfterResponse(ctx, resp)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	if !resp.OK && s.throwHTTPErrors() {
		return nil, newHTTPError(out.Method, out.URL, resp)
	}
	return resp, nil
}

// readBody reads r fully, failing with ErrResponseTooLarge once more than
// limit bytes arrive. A limit of zero reads without a cap.
func readBody(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, limit)
	}
	return body, nil
}

// send passes out through the rate limiter and circuit breaker, if any.
// Only statuses the policy would retry count against the breaker, and
// exchanges the caller cancelled count for nothing. An attempt timer
// firing is still a failure.
func (e *Engine) send(ctx context.Context, scope *canceller, policy RetryPolicy, transport Transport, out *OutgoingRequest) (*http.Response, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if e.breaker == nil {
		return transport.Send(ctx, out)
	}

	var raw *http.Response
	err := e.breaker.Execute(func() error {
		var sendErr error
		raw, sendErr = transport.Send(ctx, out)
		if cause := scope.cause(); cause != nil && !errors.Is(cause, ErrTimeoutElapsed) {
			if raw != nil {
				_ = raw.Body.Close()
				raw = nil
			}
			return fmt.Errorf("%w: %w", errCallerCanceled, cause)
		}
		if sendErr == nil && raw.StatusCode >= http.StatusInternalServerError && policy.AllowsStatus(raw.StatusCode) {
			return errServerStatus
		}
		return sendErr
	})
	if errors.Is(err, errServerStatus) {
		return raw, nil
	}
	return raw, err
}

// breakerConfig makes caller cancellations neutral for the breaker while
// keeping any IsIgnored filter already set.
func breakerConfig(cfg resilience.CircuitBreakerConfig) resilience.CircuitBreakerConfig {
	ignore := cfg.IsIgnored
	cfg.IsIgnored = func(err error) bool {
		if errors.Is(err, errCallerCanceled) {
			return true
		}
		return ignore != nil && ignore(err)
	}
	return cfg
}

// classifySendError maps a failed exchange onto the error taxonomy. Any
// failure observed after the attempt scope was cancelled is a timeout,
// whichever source fired it. Breaker and limiter rejections stay transport
// errors wrapping their sentinel.
func classifySendError(scope *canceller, out *OutgoingRequest, timeout time.Duration, err error) error {
	if cause := scope.cause(); cause != nil {
		return &TimeoutError{Method: out.Method, URL: out.URL, Timeout: timeout, Cause: cause}
	}
	return &TransportError{Method: out.Method, URL: out.URL, Err: err}
}
