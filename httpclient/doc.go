// Package httpclient is a request execution engine with retry, timeouts,
// cancellation and a hook pipeline.
//
// A RequestSpec describes one logical request. The Engine turns it into one
// or more attempts: the body is encoded once, each attempt runs in its own
// cancellation scope, failures are classified and retried per the
// RetryPolicy, and the outcome is a normalized *Response or one of
// *HTTPError, *TimeoutError, *TransportError or *HookError.
//
// # Basic Usage
//
//	client, err := httpclient.New(httpclient.Config{
//	    BaseURL: "https://api.example.com",
//	    Timeout: 10 * time.Second,
//	    Auth:    httpclient.BearerAuth("my-token"),
//	})
//
//	resp, err := client.Get("/users/123").Query("expand", "teams").Send(ctx)
//
// # Retry and Hooks
//
//	resp, err := client.Put("/users/123").
//	    JSON(user).
//	    RetryLimit(2).
//	    BeforeRetry(func(ctx context.Context, s httpclient.RetryState) error {
//	        log.Printf("retry %d in %s: %v", s.RetryCount, s.Delay, s.Err)
//	        return nil
//	    }).
//	    Send(ctx)
//
// Retries apply only to idempotent methods and to the statuses in the
// policy's allow-list. Timeouts and hook failures are never retried. The
// default delay before retry n is min(1s * 2^(n-1), 30s).
//
// # Cancellation
//
// A request stops when ctx ends, when its Signal fires, when Call.Abort is
// called, or when an attempt exceeds its timeout. All four surface as
// *TimeoutError whose Cause names the source.
//
//	call := client.Get("/slow").Start(ctx)
//	time.AfterFunc(time.Second, call.Abort)
//	resp, err := call.Wait()
package httpclient
