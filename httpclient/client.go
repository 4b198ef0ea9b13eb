package httpclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/kbukum/reqflow/resilience"
	"github.com/kbukum/reqflow/util"
	"github.com/kbukum/reqflow/version"
)

// Option configures a Client.
type Option func(*Client)

// Client is a request factory bound to a base URL and a set of defaults.
// Defaults are merged into every spec it executes; request-level values win.
type Client struct {
	config    Config
	engine    *Engine
	net       *NetTransport
	headers   http.Header
	hooks     Hooks
	retry     *RetryPolicy
	auth      *AuthConfig
	marshal   func(any) ([]byte, error)
	unmarshal func([]byte, any) error
	maxBody   int64
	initErr   error
}

// New creates a client from cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	maxBody, err := util.ParseSize(cfg.MaxResponseSize)
	if err != nil {
		return nil, err
	}
	nt, err := NewNetTransport(cfg.transportConfig())
	if err != nil {
		return nil, err
	}

	c := &Client{
		config:  cfg,
		engine:  NewEngine(nt),
		net:     nt,
		headers: make(http.Header),
		retry:   cfg.Retry.Policy(),
		auth:    cfg.Auth,
		maxBody: maxBody,
	}

	c.headers.Set("User-Agent", version.UserAgent())
	for k, v := range cfg.Headers {
		c.headers.Set(k, v)
	}

	if cfg.RateLimit != nil {
		c.engine.limiter = resilience.NewRateLimiter(*cfg.RateLimit)
	}
	if cfg.CircuitBreaker != nil {
		c.engine.breaker = resilience.NewCircuitBreaker(breakerConfig(*cfg.CircuitBreaker))
	}
	if cfg.MaxConcurrent > 0 {
		c.engine.bulkhead = resilience.NewBulkhead(resilience.BulkheadConfig{
			Name:          cfg.Name,
			MaxConcurrent: cfg.MaxConcurrent,
			MaxWait:       cfg.QueueTimeout,
		})
	}

	for _, opt := range opts {
		opt(c)
	}
	if c.initErr != nil {
		return nil, c.initErr
	}
	return c, nil
}

// Extend derives a child client. The child starts from a copy of c's
// defaults and shares its transport and guards; opts apply to the child only.
func (c *Client) Extend(opts ...Option) (*Client, error) {
	engine := *c.engine
	child := &Client{
		config:    c.config,
		engine:    &engine,
		net:       c.net,
		headers:   c.headers.Clone(),
		hooks:     c.hooks.clone(),
		auth:      c.auth,
		marshal:   c.marshal,
		unmarshal: c.unmarshal,
		maxBody:   c.maxBody,
	}
	if c.retry != nil {
		p := c.retry.clone()
		child.retry = &p
	}
	for _, opt := range opts {
		opt(child)
	}
	if child.initErr != nil {
		return nil, child.initErr
	}
	return child, nil
}

// Do merges the client defaults into spec and executes it.
func (c *Client) Do(ctx context.Context, spec RequestSpec) (*Response, error) {
	return c.engine.Do(ctx, c.prepare(spec))
}

// Start merges the client defaults into spec and starts it in the background.
func (c *Client) Start(ctx context.Context, spec RequestSpec) *Call {
	return c.engine.Start(ctx, c.prepare(spec))
}

// DoCallback merges the client defaults into spec and delivers the outcome to fn.
func (c *Client) DoCallback(ctx context.Context, spec RequestSpec, fn func(error, *Response)) *Call {
	return c.engine.DoCallback(ctx, c.prepare(spec), fn)
}

// Request returns a builder for method and path bound to this client.
func (c *Client) Request(method, path string) *Builder {
	b := NewRequest(method, path)
	b.client = c
	return b
}

// Get starts a GET builder.
func (c *Client) Get(path string) *Builder { return c.Request(http.MethodGet, path) }

// Post starts a POST builder.
func (c *Client) Post(path string) *Builder { return c.Request(http.MethodPost, path) }

// Put starts a PUT builder.
func (c *Client) Put(path string) *Builder { return c.Request(http.MethodPut, path) }

// Patch starts a PATCH builder.
func (c *Client) Patch(path string) *Builder { return c.Request(http.MethodPatch, path) }

// Delete starts a DELETE builder.
func (c *Client) Delete(path string) *Builder { return c.Request(http.MethodDelete, path) }

// Head starts a HEAD builder.
func (c *Client) Head(path string) *Builder { return c.Request(http.MethodHead, path) }

// Engine returns the engine executing this client's requests.
func (c *Client) Engine() *Engine { return c.engine }

// Config returns the configuration the client was built from.
func (c *Client) Config() Config { return c.config }

// CircuitBreaker returns the client's breaker, or nil.
func (c *Client) CircuitBreaker() *resilience.CircuitBreaker { return c.engine.breaker }

// Bulkhead returns the client's concurrency cap, or nil.
func (c *Client) Bulkhead() *resilience.Bulkhead { return c.engine.bulkhead }

// Close releases idle connections held by the default transport.
func (c *Client) Close() {
	if c.net != nil {
		c.net.CloseIdleConnections()
	}
}

// prepare returns a copy of spec with the client defaults filled in.
func (c *Client) prepare(spec RequestSpec) RequestSpec {
	s := spec.Clone()
	s.URL = c.resolve(s.URL)

	header := c.headers.Clone()
	for k, vs := range s.Header {
		header[k] = vs
	}
	s.Header = header
	s.Hooks = c.hooks.Merge(s.Hooks)

	if s.Retry == nil && c.retry != nil {
		p := c.retry.clone()
		s.Retry = &p
	}
	if s.Timeout == 0 && s.ResponseTimeout == 0 {
		s.Timeout = c.config.Timeout
		s.ResponseTimeout = c.config.ResponseTimeout
	}
	if s.ThrowHTTPErrors == nil && c.config.ThrowHTTPErrors != nil {
		s.ThrowHTTPErrors = util.Ptr(*c.config.ThrowHTTPErrors)
	}
	if s.Credentials == "" {
		s.Credentials = c.config.Credentials
	}
	if s.Redirect == "" {
		s.Redirect = c.config.Redirect
	}
	if s.Auth == nil {
		s.Auth = c.auth
	}
	if s.JSONMarshal == nil {
		s.JSONMarshal = c.marshal
	}
	if s.JSONUnmarshal == nil {
		s.JSONUnmarshal = c.unmarshal
	}
	if s.MaxResponseSize == 0 {
		s.MaxResponseSize = c.maxBody
	}
	return s
}

// resolve joins path onto BaseURL. Absolute URLs pass through.
func (c *Client) resolve(path string) string {
	base := c.config.BaseURL
	if base == "" {
		return path
	}
	if u, err := url.Parse(path); err == nil && u.IsAbs() {
		return path
	}
	if path == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// WithTransport replaces the default net/http transport.
func WithTransport(t Transport) Option {
	return func(c *Client) {
		c.engine.transport = t
		if nt, ok := t.(*NetTransport); ok {
			c.net = nt
		}
	}
}

// WithHeader adds a default header.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// WithHooks appends default hooks. Client hooks run before request hooks.
func WithHooks(h Hooks) Option {
	return func(c *Client) {
		c.hooks = c.hooks.Merge(h)
	}
}

// WithRetry sets the default retry policy.
func WithRetry(p *RetryPolicy) Option {
	return func(c *Client) {
		c.retry = p
	}
}

// WithAuth sets the default authentication.
func WithAuth(a *AuthConfig) Option {
	return func(c *Client) {
		c.auth = a
	}
}

// WithJSONCodec replaces encoding/json for request and response bodies.
func WithJSONCodec(marshal func(any) ([]byte, error), unmarshal func([]byte, any) error) Option {
	return func(c *Client) {
		c.marshal = marshal
		c.unmarshal = unmarshal
	}
}

// WithCircuitBreaker guards attempts with a breaker.
func WithCircuitBreaker(cfg resilience.CircuitBreakerConfig) Option {
	return func(c *Client) {
		if cfg.Name == "" {
			cfg.Name = c.config.Name
		}
		c.engine.breaker = resilience.NewCircuitBreaker(breakerConfig(cfg))
	}
}

// WithRateLimiter throttles attempts.
func WithRateLimiter(cfg resilience.RateLimiterConfig) Option {
	return func(c *Client) {
		if cfg.Name == "" {
			cfg.Name = c.config.Name
		}
		c.engine.limiter = resilience.NewRateLimiter(cfg)
	}
}

// WithBulkhead caps logical requests in flight.
func WithBulkhead(cfg resilience.BulkheadConfig) Option {
	return func(c *Client) {
		if cfg.Name == "" {
			cfg.Name = c.config.Name
		}
		c.engine.bulkhead = resilience.NewBulkhead(cfg)
	}
}
