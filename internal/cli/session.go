package cli

import (
	"context"

	"github.com/kbukum/reqflow/component"
	"github.com/kbukum/reqflow/httpclient"
	"github.com/kbukum/reqflow/logger"
	"github.com/kbukum/reqflow/observability"
)

// session owns the components a command runs against.
type session struct {
	settings *Settings
	registry *component.Registry
	started  *logger.ComponentRegistry
	http     *httpclient.Component
	shutdown observability.ShutdownFunc
}

// openSession initializes logging and telemetry, then starts the HTTP client.
func openSession(ctx context.Context, s *Settings) (*session, error) {
	started := logger.NewComponentRegistry()
	logger.Init(&s.Logging)
	logger.RegisterDefaults("cli", s.HTTP.Name)
	log := logger.Get("cli")

	shutdown, err := observability.Init(ctx, s.Observability)
	if err != nil {
		return nil, err
	}

	opts := []httpclient.Option{
		httpclient.WithRequestID(),
		httpclient.WithLogger(logger.Get(s.HTTP.Name)),
	}
	if s.Observability.Tracing {
		opts = append(opts, httpclient.WithTracing())
	}
	if s.Observability.Metrics {
		opts = append(opts, httpclient.WithMetrics())
	}

	ss := &session{
		settings: s,
		registry: component.NewRegistry(),
		started:  started,
		http:     httpclient.NewComponent(s.HTTP, opts...),
		shutdown: shutdown,
	}
	if err := ss.registry.Register(ss.http); err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	if err := ss.registry.StartAll(ctx); err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	ss.recordStarted()
	ss.started.LogSummary(log)
	return ss, nil
}

// recordStarted fills the startup summary from the running components.
func (ss *session) recordStarted() {
	obs := ss.settings.Observability
	status := "inactive"
	if obs.Tracing || obs.Metrics {
		status = "active"
	}
	ss.started.RegisterInfrastructure("telemetry", "otlp", status, obs.Endpoint)
	for _, d := range ss.registry.Describe() {
		ss.started.RegisterClient(d.Name, d.Type, d.Details, "active")
	}
}

func (ss *session) client() *httpclient.Client {
	return ss.http.Client()
}

// close stops components and flushes telemetry even when ctx is done.
func (ss *session) close(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	log := logger.Get("cli")
	if err := ss.registry.StopAll(ctx); err != nil {
		log.Warn("stop components", logger.ErrorFields("stop", err))
	}
	if err := ss.shutdown(ctx); err != nil {
		log.Warn("flush telemetry", logger.ErrorFields("shutdown", err))
	}
}
