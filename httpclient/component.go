package httpclient

import (
	"context"
	"fmt"

	"github.com/kbukum/reqflow/component"
	"github.com/kbukum/reqflow/logger"
	"github.com/kbukum/reqflow/resilience"
)

// Component wraps a Client with lifecycle management.
type Component struct {
	client *Client
	config Config
	opts   []Option
}

// compile-time assertions
var _ component.Component = (*Component)(nil)
var _ component.Describable = (*Component)(nil)

// NewComponent creates a client component. The client is built in Start.
func NewComponent(cfg Config, opts ...Option) *Component {
	return &Component{config: cfg, opts: opts}
}

// Name returns the component name.
func (c *Component) Name() string {
	name := c.config.Name
	if name == "" {
		name = "http"
	}
	return name
}

// Start builds the client.
func (c *Component) Start(_ context.Context) error {
	client, err := New(c.config, c.opts...)
	if err != nil {
		return err
	}
	c.client = client
	logger.Get(c.Name()).Info("http client ready", logger.Fields(
		logger.FieldURL, c.config.BaseURL,
		"retry_limit", client.retry.Limit,
	))
	return nil
}

// Stop releases idle connections.
func (c *Component) Stop(_ context.Context) error {
	if c.client != nil {
		c.client.Close()
		c.client = nil
		logger.Get(c.Name()).Debug("http client closed")
	}
	return nil
}

// Health reports unhealthy before Start and while the circuit is open, and
// degraded while the circuit is half-open or every concurrency slot is taken.
func (c *Component) Health(_ context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if c.client == nil {
		h.Status = component.StatusUnhealthy
		h.Message = "not started"
		return h
	}
	if cb := c.client.CircuitBreaker(); cb != nil {
		switch cb.State() {
		case resilience.StateOpen:
			h.Status = component.StatusUnhealthy
			h.Message = fmt.Sprintf("circuit open after %d failures", cb.Failures())
		case resilience.StateHalfOpen:
			h.Status = component.StatusDegraded
			h.Message = "circuit half-open"
		}
	}
	if bh := c.client.Bulkhead(); bh != nil && h.Status == component.StatusHealthy && bh.Saturated() {
		st := bh.Stats()
		h.Status = component.StatusDegraded
		h.Message = fmt.Sprintf("all %d slots in use, %d waiting", st.Capacity, st.Waiting)
	}
	return h
}

// Describe summarizes the component for the check command.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    c.Name(),
		Type:    "http-client",
		Details: c.config.BaseURL,
	}
}

// Client returns the underlying client. Must be called after Start.
func (c *Component) Client() *Client {
	return c.client
}
