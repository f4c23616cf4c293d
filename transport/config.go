package transport

import (
	"fmt"
	"time"

	"github.com/kbukum/restkit/resilience"
	"github.com/kbukum/restkit/security"
	"github.com/kbukum/restkit/validation"
)

const (
	defaultTimeout = 30 * time.Second
)

// Config configures the default HTTP call factory.
type Config struct {
	// Name identifies the client in logs, metrics and circuit breaker events.
	Name string `yaml:"name" mapstructure:"name"`

	// Timeout bounds one exchange. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// Headers are added to every request unless the request already sets them.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// UserAgent defaults to "restkit/<version>".
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`

	// HTTP2 enables HTTP/2 on the underlying transport.
	HTTP2 bool `yaml:"http2" mapstructure:"http2"`

	// Cookies enables an in-memory cookie jar scoped by public suffix.
	Cookies bool `yaml:"cookies" mapstructure:"cookies"`

	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host" mapstructure:"max_idle_conns_per_host" validate:"gte=0"`

	TLS *security.TLSConfig `yaml:"tls" mapstructure:"tls"`

	Auth *AuthConfig `yaml:"-" mapstructure:"-"`

	// CircuitBreaker counts transport failures and 5xx responses. Nil disables it.
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`

	// RateLimiter throttles outgoing calls. Nil disables it.
	RateLimiter *resilience.RateLimiterConfig `yaml:"rate_limiter" mapstructure:"rate_limiter"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "restkit"
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.CircuitBreaker != nil && c.CircuitBreaker.Name == "" {
		c.CircuitBreaker.Name = c.Name
	}
	if c.RateLimiter != nil && c.RateLimiter.Name == "" {
		c.RateLimiter.Name = c.Name
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("transport: %w", err)
	}
	if err := c.TLS.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}
