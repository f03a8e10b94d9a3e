package component

import "context"

// HealthStatus is the state a component reports.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health is one component's entry in /health.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a lifecycle-managed part of the service: the HTTP server,
// a dispatch loop, a backend client, the redis cache, the kafka producer.
type Component interface {
	// Name identifies the component in the registry and in /health.
	Name() string
	Start(ctx context.Context) error
	// Stop releases resources. It must return once ctx is done.
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Description is a component's line in the startup summary.
type Description struct {
	// Name defaults to the component's Name().
	Name string
	// Type is a short category such as "server", "dispatch" or "redis".
	Type    string
	Details string
	Port    int
}

// Describable components appear in the infrastructure section of the
// startup summary.
type Describable interface {
	Describe() Description
}

// Route is one served HTTP route.
type Route struct {
	Method  string
	Path    string
	Handler string
}

// RouteProvider components list their routes in the startup summary.
type RouteProvider interface {
	Routes() []Route
}
