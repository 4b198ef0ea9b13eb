package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys set from an Operation.
const (
	AttrServiceName   = "operation.service"
	AttrOperationName = "operation.name"
	AttrRequestID     = "request.id"
)

// Operation names the caller-side unit of work that issues outbound
// requests. Clients tag their spans and logs with it and reuse its
// RequestID for outgoing X-Request-Id headers.
type Operation struct {
	Service   string
	Name      string
	RequestID string
	StartTime time.Time
}

// NewOperation starts an operation clock for service and name.
func NewOperation(service, name, requestID string) *Operation {
	return &Operation{
		Service:   service,
		Name:      name,
		RequestID: requestID,
		StartTime: time.Now(),
	}
}

type operationKey struct{}

// WithOperation stores op in ctx.
func WithOperation(ctx context.Context, op *Operation) context.Context {
	return context.WithValue(ctx, operationKey{}, op)
}

// OperationFromContext returns the operation stored in ctx, or nil.
func OperationFromContext(ctx context.Context) *Operation {
	if op, ok := ctx.Value(operationKey{}).(*Operation); ok {
		return op
	}
	return nil
}

// Attributes returns the span attributes for op. Empty fields are skipped.
func (op *Operation) Attributes() []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if op.Service != "" {
		attrs = append(attrs, attribute.String(AttrServiceName, op.Service))
	}
	if op.Name != "" {
		attrs = append(attrs, attribute.String(AttrOperationName, op.Name))
	}
	if op.RequestID != "" {
		attrs = append(attrs, attribute.String(AttrRequestID, op.RequestID))
	}
	return attrs
}

// Duration returns the time since the operation started.
func (op *Operation) Duration() time.Duration {
	return time.Since(op.StartTime)
}
