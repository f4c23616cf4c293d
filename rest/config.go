package rest

import (
	"fmt"

	"github.com/kbukum/restkit/config"
	"github.com/kbukum/restkit/logger"
	"github.com/kbukum/restkit/transport"
	"github.com/kbukum/restkit/validation"
)

// Config is the file and environment configuration of a Client.
type Config struct {
	// BaseURL is the default base URL; it must end in "/".
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"required,base_url"`

	// ValidateEagerly compiles every method when a service is created.
	ValidateEagerly bool `yaml:"validate_eagerly" mapstructure:"validate_eagerly"`

	// QueryPrecedence is "append" (default) or "method".
	QueryPrecedence QueryPrecedence `yaml:"query_precedence" mapstructure:"query_precedence" validate:"omitempty,oneof=append method"`

	Transport transport.Config `yaml:"transport" mapstructure:"transport"`
	Logging   logger.Config    `yaml:"logging" mapstructure:"logging"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.QueryPrecedence == "" {
		c.QueryPrecedence = QueryAppend
	}
	c.Transport.ApplyDefaults()
	c.Logging.ApplyDefaults()
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("rest: %w", err)
	}
	if err := c.Transport.Validate(); err != nil {
		return err
	}
	return c.Logging.Validate()
}

// LoadConfig reads name.yml (or config.yml), .env and the environment into
// a Config. Environment keys use the upper-cased name as prefix, e.g.
// GITHUB_BASE_URL.
func LoadConfig(name string, opts ...config.LoaderOption) (Config, error) {
	var cfg Config
	if err := config.LoadConfig(name, &cfg, opts...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// NewFromConfig creates the transport and the Client described by cfg.
// opts are applied after the options derived from cfg.
func NewFromConfig(cfg Config, opts ...Option) (*Client, error) {
	_, c, err := buildFromConfig(cfg, cfg.Transport.Name, opts)
	return c, err
}

func buildFromConfig(cfg Config, name string, opts []Option) (*transport.Client, *Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if name == "" {
		name = cfg.Transport.Name
	}

	log := logger.New(&cfg.Logging, name)
	tc, err := transport.New(cfg.Transport,
		transport.WithLogger(log.WithComponent("transport")),
		transport.WithInterceptors(transport.RequestID(), transport.Logging(log)),
	)
	if err != nil {
		return nil, nil, err
	}

	base := []Option{
		WithLogger(log.WithComponent("rest")),
		WithCallFactory(tc),
		WithValidateEagerly(cfg.ValidateEagerly),
		WithQueryPrecedence(cfg.QueryPrecedence),
	}
	c, err := New(cfg.BaseURL, append(base, opts...)...)
	if err != nil {
		return nil, nil, err
	}
	return tc, c, nil
}
