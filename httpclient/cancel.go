package httpclient

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAborted is the cause recorded when a request is aborted explicitly.
	ErrAborted = errors.New("httpclient: request aborted")
	// ErrTimeoutElapsed is the cause recorded when an attempt timer fires.
	ErrTimeoutElapsed = errors.New("httpclient: timeout elapsed")

	errScopeReleased = errors.New("httpclient: cancellation scope released")
)

// Signal is a single-fire cancellation token owned by the caller. It can be
// shared by several requests; aborting it cancels all of them.
type Signal struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
}

// NewSignal returns an un-fired signal.
func NewSignal() *Signal {
	ctx, cancel := context.WithCancelCause(context.Background())
	return &Signal{ctx: ctx, cancel: cancel}
}

// Abort fires the signal. The first call wins; later calls are no-ops.
// A nil reason records ErrAborted.
func (s *Signal) Abort(reason error) {
	if reason == nil {
		reason = ErrAborted
	}
	s.cancel(reason)
}

// Done is closed once the signal fires.
func (s *Signal) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Aborted reports whether the signal has fired.
func (s *Signal) Aborted() bool {
	return s.ctx.Err() != nil
}

// Err returns the abort reason, or nil while the signal is un-fired.
func (s *Signal) Err() error {
	if s.ctx.Err() == nil {
		return nil
	}
	return context.Cause(s.ctx)
}

// canceller merges a parent context, an optional external Signal and an
// optional timeout into one cancellation source. release must run on every
// exit path; it stops the timer and detaches from the signal.
type canceller struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	timer  *time.Timer
	detach func() bool
}

func newCanceller(parent context.Context, signal *Signal, timeout time.Duration) *canceller {
	ctx, cancel := context.WithCancelCause(parent)
	c := &canceller{ctx: ctx, cancel: cancel}

	if signal != nil {
		if reason := signal.Err(); reason != nil {
			cancel(reason)
		} else {
			c.detach = context.AfterFunc(signal.ctx, func() {
				cancel(context.Cause(signal.ctx))
			})
		}
	}
	if timeout > 0 {
		c.timer = time.AfterFunc(timeout, func() {
			cancel(ErrTimeoutElapsed)
		})
	}
	return c
}

// abort cancels the scope. The first cause to fire wins.
func (c *canceller) abort(cause error) {
	if cause == nil {
		cause = ErrAborted
	}
	c.cancel(cause)
}

// cause reports why the scope was cancelled, or nil while it is live.
func (c *canceller) cause() error {
	if c.ctx.Err() == nil {
		return nil
	}
	return context.Cause(c.ctx)
}

func (c *canceller) release() {
	if c.timer != nil {
		c.timer.Stop()
	}
	if c.detach != nil {
		c.detach()
	}
	c.cancel(errScopeReleased)
}
