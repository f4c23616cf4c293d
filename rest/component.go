package rest

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/restkit/component"
	"github.com/kbukum/restkit/decl"
	"github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/resilience"
	"github.com/kbukum/restkit/transport"
)

// compile-time assertions
var _ component.Component = (*Component)(nil)
var _ component.Describable = (*Component)(nil)

// Component wraps a Client and its services with lifecycle management.
// The transport and client are created in Start.
type Component struct {
	name         string
	config       Config
	declarations []*decl.Service
	opts         []Option

	mu        sync.RWMutex
	transport *transport.Client
	client    *Client
	services  map[string]*Service
}

// NewComponent creates a component that binds services on Start.
func NewComponent(name string, cfg Config, services []*decl.Service, opts ...Option) *Component {
	return &Component{name: name, config: cfg, declarations: services, opts: opts}
}

// Name returns the component name.
func (c *Component) Name() string {
	if c.name == "" {
		return "rest"
	}
	return c.name
}

// Start builds the transport and client and creates every service. With
// validate_eagerly set, a bad declaration fails Start.
func (c *Component) Start(_ context.Context) error {
	tc, client, err := buildFromConfig(c.config, c.Name(), c.opts)
	if err != nil {
		return err
	}

	services := make(map[string]*Service, len(c.declarations))
	for _, d := range c.declarations {
		s, err := client.Create(d)
		if err != nil {
			return fmt.Errorf("rest: create %s: %w", d.Name, err)
		}
		services[d.Name] = s
	}

	c.mu.Lock()
	c.transport, c.client, c.services = tc, client, services
	c.mu.Unlock()
	return nil
}

// Stop releases idle connections.
func (c *Component) Stop(ctx context.Context) error {
	c.mu.RLock()
	tc := c.transport
	c.mu.RUnlock()
	if tc != nil {
		return tc.Close(ctx)
	}
	return nil
}

// Health reports unhealthy before Start and while the circuit is open, and
// degraded while it is half-open.
func (c *Component) Health(_ context.Context) component.Health {
	c.mu.RLock()
	tc := c.transport
	c.mu.RUnlock()

	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	switch {
	case tc == nil:
		h.Status, h.Message = component.StatusUnhealthy, "not started"
	case tc.CircuitState() == resilience.StateOpen:
		h.Status, h.Message = component.StatusUnhealthy, "circuit open"
	case tc.CircuitState() == resilience.StateHalfOpen:
		h.Status, h.Message = component.StatusDegraded, "circuit half-open"
	}
	return h
}

// Describe returns the component description.
func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("%s (%d services)", c.config.BaseURL, len(c.declarations))
	if client := c.Client(); client != nil {
		details = fmt.Sprintf("%s (%d services, %d methods compiled)",
			c.config.BaseURL, len(c.declarations), client.cache.len())
	}
	return component.Description{
		Name:    c.Name(),
		Type:    "rest",
		Details: details,
	}
}

// Client returns the client. Must be called after Start.
func (c *Component) Client() *Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// Service returns the named service. Must be called after Start.
func (c *Component) Service(name string) (*Service, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.services == nil {
		return nil, errors.IllegalState("component " + c.Name() + " is not started")
	}
	s, ok := c.services[name]
	if !ok {
		return nil, errors.IllegalArgument("component %s has no service %s", c.Name(), name)
	}
	return s, nil
}
