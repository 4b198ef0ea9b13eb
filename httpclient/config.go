package httpclient

import (
	"fmt"
	"time"

	"github.com/kbukum/reqflow/resilience"
	"github.com/kbukum/reqflow/security"
	"github.com/kbukum/reqflow/util"
	"github.com/kbukum/reqflow/validation"
)

// Config configures a Client. It is loadable with config.LoadConfig.
type Config struct {
	// Name identifies the client in logs, health checks and guard names.
	Name string `yaml:"name" mapstructure:"name"`

	// BaseURL is joined with relative request paths.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`

	// Timeout bounds each attempt. Zero disables it.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// ResponseTimeout is used when Timeout is zero.
	ResponseTimeout time.Duration `yaml:"response_timeout" mapstructure:"response_timeout" validate:"gte=0"`

	// Headers are default headers applied to all requests.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// ThrowHTTPErrors turns non-2xx responses into *HTTPError. Nil means true.
	ThrowHTTPErrors *bool `yaml:"throw_http_errors" mapstructure:"throw_http_errors"`

	Credentials CredentialsMode `yaml:"credentials" mapstructure:"credentials" validate:"omitempty,oneof=omit same-origin include"`
	Redirect    RedirectMode    `yaml:"redirect" mapstructure:"redirect" validate:"omitempty,oneof=follow error manual"`

	// MaxRedirects bounds RedirectFollow. Defaults to 10.
	MaxRedirects int `yaml:"max_redirects" mapstructure:"max_redirects" validate:"gte=0"`

	Retry RetryConfig `yaml:"retry" mapstructure:"retry"`

	// TLS configures the default transport.
	TLS *security.TLSConfig `yaml:"tls" mapstructure:"tls"`

	// RateLimit throttles attempts. Nil disables it.
	RateLimit *resilience.RateLimiterConfig `yaml:"rate_limit" mapstructure:"rate_limit"`

	// CircuitBreaker guards attempts. Nil disables it.
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`

	// MaxConcurrent caps logical requests in flight. Zero means unlimited.
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent" validate:"gte=0"`

	// QueueTimeout is how long a request waits for a MaxConcurrent slot.
	// Zero rejects immediately.
	QueueTimeout time.Duration `yaml:"queue_timeout" mapstructure:"queue_timeout" validate:"gte=0"`

	// MaxResponseSize caps response bodies, e.g. "10MB". Empty means no cap.
	MaxResponseSize string `yaml:"max_response_size" mapstructure:"max_response_size"`

	// Auth is applied to every request unless a request sets its own.
	Auth *AuthConfig `yaml:"-" mapstructure:"-"`
}

// RetryConfig is the file-friendly form of RetryPolicy.
type RetryConfig struct {
	Limit        int           `yaml:"limit" mapstructure:"limit" validate:"gte=0"`
	Methods      []string      `yaml:"methods" mapstructure:"methods"`
	StatusCodes  []int         `yaml:"status_codes" mapstructure:"status_codes" validate:"dive,gte=100,lte=599"`
	InitialDelay time.Duration `yaml:"initial_delay" mapstructure:"initial_delay" validate:"gte=0"`
	MaxDelay     time.Duration `yaml:"max_delay" mapstructure:"max_delay" validate:"gte=0"`
}

// Policy converts the config into a RetryPolicy. Zero delays keep the
// default curve.
func (r RetryConfig) Policy() *RetryPolicy {
	p := RetryPolicy{
		Limit:       r.Limit,
		Methods:     r.Methods,
		StatusCodes: r.StatusCodes,
	}
	if r.InitialDelay > 0 || r.MaxDelay > 0 {
		b := defaultBackoff
		if r.InitialDelay > 0 {
			b.Initial = r.InitialDelay
		}
		if r.MaxDelay > 0 {
			b.Max = r.MaxDelay
		}
		p.Delay = b.Duration
	}
	p = p.withDefaults()
	return &p
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "http"
	}
	if c.Credentials == "" {
		c.Credentials = CredentialsSameOrigin
	}
	if c.Redirect == "" {
		c.Redirect = RedirectFollow
	}
	if c.RateLimit != nil && c.RateLimit.Name == "" {
		c.RateLimit.Name = c.Name
	}
	if c.CircuitBreaker != nil && c.CircuitBreaker.Name == "" {
		c.CircuitBreaker.Name = c.Name
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("httpclient: invalid config: %w", err)
	}
	if _, err := util.ParseSize(c.MaxResponseSize); err != nil {
		return fmt.Errorf("httpclient: invalid config: max_response_size: %w", err)
	}
	if c.TLS != nil {
		if err := c.TLS.Validate(); err != nil {
			return err
		}
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("httpclient: invalid config: %w", err)
	}
	return nil
}

func (c *Config) transportConfig() TransportConfig {
	return TransportConfig{TLS: c.TLS, MaxRedirects: c.MaxRedirects}
}
