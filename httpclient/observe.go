package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/kbukum/reqflow/logger"
	"github.com/kbukum/reqflow/observability"
)

const instrumentationName = "github.com/kbukum/reqflow/httpclient"

// Span names.
const (
	SpanRequest = "http.client.request"
	SpanAttempt = "http.client.attempt"
)

const (
	attrMethod     = "http.request.method"
	attrURL        = "url.full"
	attrStatusCode = "http.response.status_code"
	attrAttempt    = "http.request.resend_count"
	attrOutcome    = "outcome"
)

var noopTracer = noop.NewTracerProvider().Tracer(instrumentationName)

// clientMetrics holds the engine's metric instruments.
type clientMetrics struct {
	attempts metric.Int64Counter
	retries  metric.Int64Counter
	duration metric.Float64Histogram
}

func newClientMetrics(meter metric.Meter) (*clientMetrics, error) {
	attempts, err := meter.Int64Counter("http.client.attempts",
		metric.WithDescription("Number of network attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating http.client.attempts counter: %w", err)
	}

	retries, err := meter.Int64Counter("http.client.retries",
		metric.WithDescription("Number of retries scheduled"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating http.client.retries counter: %w", err)
	}

	duration, err := meter.Float64Histogram("http.client.duration",
		metric.WithDescription("Duration of logical requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating http.client.duration histogram: %w", err)
	}

	return &clientMetrics{attempts: attempts, retries: retries, duration: duration}, nil
}

func (e *Engine) tracerOrNoop() trace.Tracer {
	if e.tracer == nil {
		return noopTracer
	}
	return e.tracer
}

// startRequestSpan opens the logical request span, tagged with the caller's
// operation when ctx carries one.
func (e *Engine) startRequestSpan(ctx context.Context, method, rawURL string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrURL, rawURL),
	}
	if op := observability.OperationFromContext(ctx); op != nil {
		attrs = append(attrs, op.Attributes()...)
	}
	return e.tracerOrNoop().Start(ctx, SpanRequest,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

func (e *Engine) startAttemptSpan(ctx context.Context, method string, attempt int) (context.Context, trace.Span) {
	return e.tracerOrNoop().Start(ctx, SpanAttempt,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(attrMethod, method),
			attribute.Int(attrAttempt, attempt-1),
		),
	)
}

// injectTrace writes W3C trace context into header when tracing is on.
func (e *Engine) injectTrace(ctx context.Context, header http.Header) {
	if e.tracer == nil {
		return
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(header))
}

func (e *Engine) recordAttempt(ctx context.Context, method string) {
	if e.metrics == nil {
		return
	}
	e.metrics.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String(attrMethod, method)))
}

func (e *Engine) recordRetry(ctx context.Context, method string) {
	if e.metrics == nil {
		return
	}
	e.metrics.retries.Add(ctx, 1, metric.WithAttributes(attribute.String(attrMethod, method)))
}

// finishRequest ends the request span, records the duration and logs the
// terminal outcome.
func (e *Engine) finishRequest(ctx context.Context, span trace.Span, method, rawURL string, elapsed time.Duration, resp *Response, err error) {
	outcome := outcomeOf(resp, err)

	if resp != nil {
		setSpanStatus(span, resp.StatusCode)
	}
	if err != nil {
		recordSpanError(span, err)
	}
	span.End()

	if e.metrics != nil {
		e.metrics.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
			attribute.String(attrMethod, method),
			attribute.String(attrOutcome, outcome),
		))
	}

	if e.log != nil {
		fields := logger.Fields(
			logger.FieldMethod, method,
			logger.FieldURL, rawURL,
			logger.FieldDuration, elapsed.Milliseconds(),
			attrOutcome, outcome,
		)
		if resp != nil {
			fields[logger.FieldStatus] = resp.StatusCode
		}
		if op := observability.OperationFromContext(ctx); op != nil && op.Name != "" {
			fields["operation"] = op.Name
		}
		if err != nil {
			fields = logger.MergeWithError(fields, err)
		}
		e.log.WithContext(ctx).Debug("http request settled", fields)
	}
}

func outcomeOf(resp *Response, err error) string {
	if err != nil {
		return Code(err).String()
	}
	if resp != nil && !resp.OK {
		return "http_status"
	}
	return "ok"
}

func setSpanStatus(span trace.Span, status int) {
	span.SetAttributes(attribute.Int(attrStatusCode, status))
	if status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// WithTracing wraps each request and attempt in spans from the global tracer
// provider and propagates trace context to the server.
func WithTracing() Option {
	return func(c *Client) {
		c.engine.tracer = observability.Tracer(instrumentationName)
	}
}

// WithTracerProvider is WithTracing on an explicit provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		c.engine.tracer = tp.Tracer(instrumentationName)
	}
}

// WithMetrics records attempt, retry and duration instruments on the global
// meter provider.
func WithMetrics() Option {
	return func(c *Client) {
		c.setMeter(observability.Meter(instrumentationName))
	}
}

// WithMeterProvider is WithMetrics on an explicit provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *Client) {
		c.setMeter(mp.Meter(instrumentationName))
	}
}

func (c *Client) setMeter(meter metric.Meter) {
	m, err := newClientMetrics(meter)
	if err != nil {
		c.initErr = err
		return
	}
	c.engine.metrics = m
}

// WithLogger logs each attempt at debug, each retry at warn and each raised
// HTTP error at error level. The engine also logs terminal outcomes.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		if l == nil {
			return
		}
		log := l.WithComponent("httpclient")
		c.engine.log = log
		c.hooks = c.hooks.Merge(loggingHooks(log))
	}
}

func loggingHooks(log *logger.Logger) Hooks {
	return Hooks{
		BeforeRequest: []BeforeRequestHook{
			func(ctx context.Context, req *RequestContext) error {
				fields := logger.Fields(
					logger.FieldMethod, req.Method,
					logger.FieldURL, req.URL,
					logger.FieldAttempt, req.Attempt,
				)
				if id := req.Header.Get(HeaderRequestID); id != "" {
					fields[logger.FieldRequestID] = id
				}
				log.WithContext(ctx).Debug("http attempt", fields)
				return nil
			},
		},
		BeforeRetry: []BeforeRetryHook{
			func(ctx context.Context, state RetryState) error {
				log.WithContext(ctx).Warn("http retry scheduled", logger.MergeWithError(logger.Fields(
					logger.FieldAttempt, state.RetryCount,
					"delay_ms", state.Delay.Milliseconds(),
				), state.Err))
				return nil
			},
		},
		BeforeError: []BeforeErrorHook{
			func(ctx context.Context, err *HTTPError) (*HTTPError, error) {
				log.WithContext(ctx).Error("http error", logger.Fields(
					logger.FieldMethod, err.Method,
					logger.FieldURL, err.URL,
					logger.FieldStatus, err.StatusCode,
				))
				return nil, nil
			},
		},
	}
}
