package component

import "context"

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health holds health information for a component.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a lifecycle-managed client.
type Component interface {
	// Name returns the unique name of the component for registration.
	Name() string
	// Start prepares the component for use.
	Start(ctx context.Context) error
	// Stop releases resources. Calls in flight are not waited for.
	Stop(ctx context.Context) error
	// Health returns the current health status of the component.
	Health(ctx context.Context) Health
}

// Description is the one-line summary a component reports about itself.
type Description struct {
	// Name defaults to the component's Name().
	Name string
	// Type categorizes the component, e.g. "rest".
	Type string
	// Details is a short human-readable summary such as the base URL.
	Details string
}

// Describable is optionally implemented by components.
type Describable interface {
	Describe() Description
}
