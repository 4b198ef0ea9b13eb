package httpclient

import (
	"context"

	"github.com/google/uuid"

	"github.com/kbukum/reqflow/observability"
)

// HeaderRequestID carries the logical request ID.
const HeaderRequestID = "X-Request-Id"

// RequestIDHook sets X-Request-Id when absent, taking the ID of the caller's
// operation if ctx carries one and a fresh UUID otherwise. The header lives
// on the shared request context, so every attempt reuses the same ID.
func RequestIDHook() BeforeRequestHook {
	return func(ctx context.Context, req *RequestContext) error {
		if req.Header.Get(HeaderRequestID) != "" {
			return nil
		}
		id := uuid.New().String()
		if op := observability.OperationFromContext(ctx); op != nil && op.RequestID != "" {
			id = op.RequestID
		}
		req.Header.Set(HeaderRequestID, id)
		return nil
	}
}

// WithRequestID installs RequestIDHook on the client.
func WithRequestID() Option {
	return func(c *Client) {
		c.hooks.BeforeRequest = append(c.hooks.BeforeRequest, RequestIDHook())
	}
}
