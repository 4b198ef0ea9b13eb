// Package observability sets up OpenTelemetry tracing and metrics export
// for reqflow clients.
//
// Init installs global providers that push over OTLP HTTP; the httpclient
// WithTracing and WithMetrics options then pick them up through Tracer and
// Meter.
//
//	shutdown, err := observability.Init(ctx, observability.Config{
//	    Tracing:     true,
//	    Metrics:     true,
//	    ServiceName: "billing",
//	    Endpoint:    "otel-collector:4318",
//	})
//	defer shutdown(ctx)
package observability
