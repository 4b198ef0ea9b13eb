package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/reqflow/logger"
	"github.com/kbukum/reqflow/resilience"
)

// Engine turns a RequestSpec into one or more attempts, applying the retry
// policy, timeouts, cancellation and hooks. An Engine is safe for concurrent
// use; its guards are the only state shared between logical requests.
type Engine struct {
	transport Transport
	log       *logger.Logger
	tracer    trace.Tracer
	metrics   *clientMetrics

	breaker  *resilience.CircuitBreaker
	limiter  *resilience.RateLimiter
	bulkhead *resilience.Bulkhead
}

// NewEngine returns an engine sending through transport. A nil transport
// means a NetTransport with default settings.
func NewEngine(transport Transport) *Engine {
	if transport == nil {
		nt, _ := NewNetTransport(TransportConfig{})
		transport = nt
	}
	return &Engine{transport: transport}
}

// Do executes spec and waits for the outcome. ctx and spec.Signal both
// cancel the request; cancellation surfaces as *TimeoutError.
func (e *Engine) Do(ctx context.Context, spec RequestSpec) (*Response, error) {
	scope := newCanceller(ctx, spec.Signal, 0)
	defer scope.release()
	return e.execute(scope.ctx, spec)
}

// Start begins executing spec in the background and returns a handle to it.
func (e *Engine) Start(ctx context.Context, spec RequestSpec) *Call {
	scope := newCanceller(ctx, spec.Signal, 0)
	call := &Call{scope: scope, done: make(chan struct{}), log: e.log}
	go func() {
		defer close(call.done)
		defer scope.release()
		call.resp, call.err = e.execute(scope.ctx, spec)
	}()
	return call
}

// DoCallback starts spec and delivers the outcome to fn exactly once.
func (e *Engine) DoCallback(ctx context.Context, spec RequestSpec, fn func(error, *Response)) *Call {
	call := e.Start(ctx, spec)
	call.Then(fn)
	return call
}

// Call is a handle to a request started with Engine.Start.
type Call struct {
	scope *canceller
	done  chan struct{}
	log   *logger.Logger
	resp  *Response
	err   error
}

// Wait blocks until the request settles.
func (c *Call) Wait() (*Response, error) {
	<-c.done
	return c.resp, c.err
}

// Done is closed once the request settles.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Abort cancels the request. It has no effect once the request settled.
func (c *Call) Abort() {
	c.scope.abort(ErrAborted)
}

// Then delivers the outcome to fn once the request settles. fn runs on its
// own goroutine; a panic in fn is recovered and logged.
func (c *Call) Then(fn func(error, *Response)) {
	if fn == nil {
		return
	}
	go func() {
		<-c.done
		defer func() {
			if r := recover(); r != nil && c.log != nil {
				c.log.Error("httpclient: callback panicked", logger.Fields("panic", fmt.Sprint(r)))
			}
		}()
		fn(c.err, c.resp)
	}()
}

// execute runs one logical request inside the caller's scope.
func (e *Engine) execute(ctx context.Context, spec RequestSpec) (resp *Response, err error) {
	s := spec.Clone()
	if s.Auth != nil {
		s.Hooks.BeforeRequest = append([]BeforeRequestHook{s.Auth.Hook()}, s.Hooks.BeforeRequest...)
	}
	method := s.method()
	start := time.Now()

	ctx, span := e.startRequestSpan(ctx, method, s.URL)
	defer func() {
		e.finishRequest(ctx, span, method, s.URL, time.Since(start), resp, err)
	}()

	if e.bulkhead == nil {
		return e.loop(ctx, &s, method)
	}

	release, err := e.bulkhead.Acquire(ctx)
	if errors.Is(err, resilience.ErrBulkheadFull) || errors.Is(err, resilience.ErrBulkheadTimeout) {
		return nil, &TransportError{Method: method, URL: s.URL, Err: err}
	}
	if err != nil {
		return nil, &TimeoutError{Method: method, URL: s.URL, Timeout: s.timeout(), Cause: context.Cause(ctx)}
	}
	defer release()
	return e.loop(ctx, &s, method)
}

// loop encodes the payload once and drives attempts through resilience.Retry.
func (e *Engine) loop(ctx context.Context, s *RequestSpec, method string) (*Response, error) {
	header := s.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	payload, err := encodeBody(s, header)
	if err != nil {
		return nil, &TransportError{Method: method, URL: s.URL, Err: fmt.Errorf("encode body: %w", err)}
	}

	query := cloneValues(s.Query)
	if query == nil {
		query = make(url.Values)
	}
	rc := &RequestContext{Method: method, URL: s.URL, Header: header, Query: query, Body: payload}

	transport := s.Transport
	if transport == nil {
		transport = e.transport
	}
	policy := s.retryPolicy()

	resp, err := resilience.Retry(ctx, resilience.RetryConfig{
		MaxAttempts: policy.Limit + 1,
		Delay:       policy.Delay,
		RetryIf: func(attempt int, err error) bool {
			return policy.ShouldRetry(method, err, attempt)
		},
		OnRetry: func(ctx context.Context, retry int, err error, delay time.Duration) error {
			e.recordRetry(ctx, method)
			return s.Hooks.runBeforeRetry(ctx, RetryState{Err: err, RetryCount: retry, Delay: delay})
		},
	}, func(ctx context.Context, attempt int) (*Response, error) {
		return e.attempt(ctx, s, rc, transport, attempt)
	})
	if err == nil {
		return resp, nil
	}

	if errors.Is(err, resilience.ErrRetryAborted) {
		return nil, &TimeoutError{Method: method, URL: appendQuery(rc.URL, rc.Query), Timeout: s.timeout(), Cause: context.Cause(ctx)}
	}

	if httpErr, ok := err.(*HTTPError); ok {
		replaced, hookErr := s.Hooks.runBeforeError(ctx, httpErr)
		if hookErr != nil {
			return nil, hookErr
		}
		return nil, replaced
	}
	return nil, err
}
