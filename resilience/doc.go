// Package resilience provides the fault-tolerance primitives used by the
// request engine: a retry driver with exponential backoff, a circuit breaker,
// a token bucket rate limiter and a bulkhead.
//
//	cfg := resilience.RetryConfig{
//	    MaxAttempts: 3,
//	    Backoff:     resilience.Backoff{Initial: time.Second, Max: 30 * time.Second},
//	}
//	resp, err := resilience.Retry(ctx, cfg, func(ctx context.Context, attempt int) (*Response, error) {
//	    return send(ctx)
//	})
package resilience
