package httpclient

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/reqflow/component"
	"github.com/kbukum/reqflow/resilience"
	"github.com/kbukum/reqflow/testutil"
)

func TestComponent_Lifecycle(t *testing.T) {
	srv := startServer(t, "upstream")
	srv.On(http.MethodGet, "/health", testutil.Reply{Status: 200})

	comp := NewComponent(Config{Name: "test-http", BaseURL: srv.URL()})
	ctx := context.Background()

	assert.Nil(t, comp.Client(), "client should be nil before Start")
	assert.Equal(t, component.StatusUnhealthy, comp.Health(ctx).Status)

	require.NoError(t, comp.Start(ctx))
	require.NotNil(t, comp.Client())
	assert.Equal(t, component.StatusHealthy, comp.Health(ctx).Status)

	_, err := comp.Client().Get("/health").Send(ctx)
	require.NoError(t, err)

	require.NoError(t, comp.Stop(ctx))
	assert.Nil(t, comp.Client(), "client should be released by Stop")
	assert.Equal(t, component.StatusUnhealthy, comp.Health(ctx).Status)
	require.NoError(t, comp.Stop(ctx), "Stop is idempotent")
}

func TestComponent_Registry(t *testing.T) {
	srv := startServer(t, "upstream")
	srv.On(http.MethodGet, "/ping", testutil.Reply{Status: 200})

	reg := component.NewRegistry()
	comp := NewComponent(Config{Name: "api", BaseURL: srv.URL()})
	require.NoError(t, reg.Register(comp))

	ctx := context.Background()
	require.NoError(t, reg.StartAll(ctx))
	assert.Equal(t, []component.Health{{Name: "api", Status: component.StatusHealthy}}, reg.HealthAll(ctx))
	assert.Equal(t, "http-client", reg.Describe()[0].Type)

	_, err := comp.Client().Get("/ping").Send(ctx)
	require.NoError(t, err)
	require.NoError(t, reg.StopAll(ctx))
}

func TestComponent_NameAndDescribe(t *testing.T) {
	comp := NewComponent(Config{BaseURL: "http://api.test"})
	assert.Equal(t, "http", comp.Name())

	desc := comp.Describe()
	assert.Equal(t, "http-client", desc.Type)
	assert.Equal(t, "http://api.test", desc.Details)
}

func TestComponent_StartInvalidConfig(t *testing.T) {
	comp := NewComponent(Config{Timeout: -time.Second})
	assert.Error(t, comp.Start(context.Background()))
	assert.Nil(t, comp.Client())
}

func TestComponent_HealthFollowsCircuit(t *testing.T) {
	fake := newFake(fakeStep{status: 503})
	comp := NewComponent(Config{
		Name:           "flaky",
		BaseURL:        "http://api.test",
		CircuitBreaker: &resilience.CircuitBreakerConfig{MaxFailures: 1, Timeout: 20 * time.Millisecond},
	}, WithTransport(fake))
	ctx := context.Background()
	require.NoError(t, comp.Start(ctx))

	_, _ = comp.Client().Get("/x").Send(ctx)
	h := comp.Health(ctx)
	assert.Equal(t, component.StatusUnhealthy, h.Status)
	assert.Contains(t, h.Message, "circuit open")

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, component.StatusDegraded, comp.Health(ctx).Status)
}

func TestComponent_HealthDegradedWhenSaturated(t *testing.T) {
	srv := startServer(t, "upstream")
	srv.On(http.MethodGet, "/slow", testutil.Reply{Status: 200, Delay: 200 * time.Millisecond})

	comp := NewComponent(Config{Name: "capped", BaseURL: srv.URL(), MaxConcurrent: 1, QueueTimeout: time.Second})
	ctx := context.Background()
	require.NoError(t, comp.Start(ctx))
	defer func() { _ = comp.Stop(ctx) }()

	call := comp.Client().Get("/slow").Start(ctx)
	require.Eventually(t, func() bool {
		return comp.Health(ctx).Status == component.StatusDegraded
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, comp.Health(ctx).Message, "all 1 slots in use")

	_, err := call.Wait()
	require.NoError(t, err)
	assert.Equal(t, component.StatusHealthy, comp.Health(ctx).Status)
}
