package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// Common retry errors.
var (
	// ErrRetryAborted is returned when the context ends during a backoff wait.
	ErrRetryAborted = errors.New("retry aborted during backoff")
)

// Backoff describes an exponential delay curve: Initial * Factor^(n-1),
// capped at Max, with optional symmetric jitter.
type Backoff struct {
	// Initial is the delay before the first retry.
	Initial time.Duration
	// Max caps the delay. Zero means uncapped.
	Max time.Duration
	// Factor is the multiplier applied per retry. Defaults to 2.
	Factor float64
	// Jitter adds randomness to the delay (0.0 to 1.0).
	Jitter float64
}

// Duration returns the delay before retry number n (1-based).
func (b Backoff) Duration(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	factor := b.Factor
	if factor <= 0 {
		factor = 2.0
	}

	d := float64(b.Initial) * math.Pow(factor, float64(n-1))

	if b.Jitter > 0 {
		jitterRange := d * b.Jitter
		d += (rand.Float64()*2 - 1) * jitterRange
	}

	if b.Max > 0 && d > float64(b.Max) {
		d = float64(b.Max)
	}
	if d < 0 || math.IsNaN(d) {
		d = float64(b.Initial)
	}
	return time.Duration(d)
}

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	// Values below 1 mean a single attempt.
	MaxAttempts int
	// Backoff is the delay curve used when Delay is nil.
	Backoff Backoff
	// Delay overrides Backoff. It receives the 1-based retry number.
	Delay func(retry int) time.Duration
	// RetryIf decides whether the failure of the given attempt (1-based) is retried.
	// Nil retries everything except context cancellation.
	RetryIf func(attempt int, err error) bool
	// OnRetry is called after a retry is decided and before the backoff wait.
	// A non-nil error stops the loop and is returned as-is.
	OnRetry func(ctx context.Context, retry int, err error, backoff time.Duration) error
}

// DefaultRetryConfig returns sensible defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		Backoff: Backoff{
			Initial: 100 * time.Millisecond,
			Max:     10 * time.Second,
			Factor:  2.0,
			Jitter:  0.1,
		},
	}
}

// DefaultRetryIf retries all errors except context cancellation.
func DefaultRetryIf(_ int, err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Retry runs fn until it succeeds, RetryIf rejects the failure, or the attempt
// budget is spent. fn receives the 1-based attempt number. The last error is
// returned unchanged; a context that ends during a backoff wait yields an
// error wrapping both ErrRetryAborted and the context cause.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T

	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.RetryIf == nil {
		cfg.RetryIf = DefaultRetryIf
	}
	delay := cfg.Delay
	if delay == nil {
		delay = cfg.Backoff.Duration
	}

	for attempt := 1; ; attempt++ {
		result, err := fn(ctx, attempt)
		if err == nil {
			return result, nil
		}
		if attempt >= cfg.MaxAttempts || !cfg.RetryIf(attempt, err) {
			return zero, err
		}

		backoff := delay(attempt)
		if cfg.OnRetry != nil {
			if hookErr := cfg.OnRetry(ctx, attempt, err, backoff); hookErr != nil {
				return zero, hookErr
			}
		}

		if waitErr := Sleep(ctx, backoff); waitErr != nil {
			return zero, waitErr
		}
	}
}

// RetryFunc executes a function that returns only an error.
func RetryFunc(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context, attempt int) error) error {
	_, err := Retry(ctx, cfg, func(ctx context.Context, attempt int) (struct{}, error) {
		return struct{}{}, fn(ctx, attempt)
	})
	return err
}

// Sleep waits for d or until ctx ends. The timer is always stopped.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		if ctx.Err() != nil {
			return errors.Join(ErrRetryAborted, context.Cause(ctx))
		}
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return errors.Join(ErrRetryAborted, context.Cause(ctx))
	case <-timer.C:
		return nil
	}
}
