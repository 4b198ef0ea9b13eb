package httpclient

import (
	"context"
	"time"
)

// BeforeRequestHook observes or mutates the outgoing request before each attempt.
type BeforeRequestHook func(ctx context.Context, req *RequestContext) error

// AfterResponseHook sees every parsed response. A non-nil return replaces the
// working response for later hooks and for the final result.
type AfterResponseHook func(ctx context.Context, resp *Response) (*Response, error)

// BeforeRetryHook observes a retry decision before the backoff wait.
type BeforeRetryHook func(ctx context.Context, state RetryState) error

// BeforeErrorHook sees an *HTTPError right before it is returned. A non-nil
// return replaces the error.
type BeforeErrorHook func(ctx context.Context, err *HTTPError) (*HTTPError, error)

// RetryState is passed to before-retry hooks.
type RetryState struct {
	// Err is the failure that triggered the retry.
	Err error
	// RetryCount is the 1-based number of the retry about to happen.
	RetryCount int
	// Delay is the backoff about to be waited.
	Delay time.Duration
}

// HookStage names an extension point.
type HookStage string

const (
	StageBeforeRequest HookStage = "before_request"
	StageAfterResponse HookStage = "after_response"
	StageBeforeRetry   HookStage = "before_retry"
	StageBeforeError   HookStage = "before_error"
)

// Hooks groups the four extension points. Hooks within a stage run in
// registration order, each completing before the next starts.
type Hooks struct {
	BeforeRequest []BeforeRequestHook
	AfterResponse []AfterResponseHook
	BeforeRetry   []BeforeRetryHook
	BeforeError   []BeforeErrorHook
}

// Merge returns hooks with other's entries appended after h's.
func (h Hooks) Merge(other Hooks) Hooks {
	out := h.clone()
	out.BeforeRequest = append(out.BeforeRequest, other.BeforeRequest...)
	out.AfterResponse = append(out.AfterResponse, other.AfterResponse...)
	out.BeforeRetry = append(out.BeforeRetry, other.BeforeRetry...)
	out.BeforeError = append(out.BeforeError, other.BeforeError...)
	return out
}

func (h Hooks) clone() Hooks {
	return Hooks{
		BeforeRequest: append([]BeforeRequestHook(nil), h.BeforeRequest...),
		AfterResponse: append([]AfterResponseHook(nil), h.AfterResponse...),
		BeforeRetry:   append([]BeforeRetryHook(nil), h.BeforeRetry...),
		BeforeError:   append([]BeforeErrorHook(nil), h.BeforeError...),
	}
}

func (h Hooks) runBeforeRequest(ctx context.Context, req *RequestContext) error {
	for i, hook := range h.BeforeRequest {
		if err := hook(ctx, req); err != nil {
			return &HookError{Stage: StageBeforeRequest, Index: i, Err: err}
		}
	}
	return nil
}

func (h Hooks) runAfterResponse(ctx context.Context, resp *Response) (*Response, error) {
	for i, hook := range h.AfterResponse {
		next, err := hook(ctx, resp)
		if err != nil {
			return nil, &HookError{Stage: StageAfterResponse, Index: i, Err: err}
		}
		if next != nil {
			resp = next
		}
	}
	return resp, nil
}

func (h Hooks) runBeforeRetry(ctx context.Context, state RetryState) error {
	for i, hook := range h.BeforeRetry {
		if err := hook(ctx, state); err != nil {
			return &HookError{Stage: StageBeforeRetry, Index: i, Err: err}
		}
	}
	return nil
}

func (h Hooks) runBeforeError(ctx context.Context, httpErr *HTTPError) (*HTTPError, error) {
	for i, hook := range h.BeforeError {
		next, err := hook(ctx, httpErr)
		if err != nil {
			return nil, &HookError{Stage: StageBeforeError, Index: i, Err: err}
		}
		if next != nil {
			httpErr = next
		}
	}
	return httpErr, nil
}
