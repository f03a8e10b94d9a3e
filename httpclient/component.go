package httpclient

import (
	"context"

	"github.com/kbukum/endpoints/component"
)

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Component manages the lifecycle of a backend Adapter. The adapter is
// built eagerly so backends can be wired before the app starts.
type Component struct {
	adapter *Adapter
	probe   func(ctx context.Context) bool
}

// NewComponent builds the adapter for cfg. probe, when non-nil, is the
// backend-specific readiness check used by Health.
func NewComponent(cfg Config, probe func(ctx context.Context) bool) (*Component, error) {
	a, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return &Component{adapter: a, probe: probe}, nil
}

// Name returns the component name.
func (c *Component) Name() string {
	if name := c.adapter.config.Name; name != "" {
		return name
	}
	return "http"
}

// Start is a no-op; connections are opened lazily.
func (c *Component) Start(_ context.Context) error { return nil }

// Stop releases idle connections.
func (c *Component) Stop(ctx context.Context) error {
	return c.adapter.Close(ctx)
}

// Health is degraded while the circuit is open or the probe fails.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	switch {
	case !c.adapter.IsAvailable(ctx):
		h.Status = component.StatusDegraded
		h.Message = "circuit open"
	case c.probe != nil && !c.probe(ctx):
		h.Status = component.StatusDegraded
		h.Message = "backend probe failed"
	}
	return h
}

// Describe returns component description for the bootstrap summary.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    c.Name(),
		Type:    "http-backend",
		Details: c.adapter.config.BaseURL,
	}
}

// Adapter returns the underlying adapter.
func (c *Component) Adapter() *Adapter {
	return c.adapter
}
