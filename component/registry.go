package component

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/endpoints/logger"
)

const defaultStopTimeout = 10 * time.Second

type entry struct {
	c       Component
	started bool
}

// Registry starts components in registration order and stops them in
// reverse, so a component may depend on anything registered before it.
type Registry struct {
	// StopTimeout bounds each component's Stop. Default 10s.
	StopTimeout time.Duration

	mu      sync.RWMutex
	entries []*entry
	names   map[string]struct{}
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{StopTimeout: defaultStopTimeout, names: map[string]struct{}{}}
}

// Register appends c. Names must be unique.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if _, dup := r.names[name]; dup {
		return fmt.Errorf("component %s already registered", name)
	}
	r.names[name] = struct{}{}
	r.entries = append(r.entries, &entry{c: c})
	logger.Debug("component registered", logger.Fields(logger.FieldComponent, name))
	return nil
}

// StartAll starts components in order. When one fails the components
// already started are stopped again before the error is returned.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	logger.Info("starting components", logger.Fields("count", len(r.entries)))
	for _, e := range r.entries {
		name := e.c.Name()
		if err := e.c.Start(ctx); err != nil {
			logger.Error("component start failed", logger.Fields(
				logger.FieldComponent, name,
				logger.FieldError, err.Error(),
			))
			_ = r.stopStarted(context.WithoutCancel(ctx))
			return fmt.Errorf("failed to start %s: %w", name, err)
		}
		e.started = true
		logger.Debug("component started", logger.Fields(logger.FieldComponent, name))
	}
	logger.Info("components started")
	return nil
}

// StopAll stops started components in reverse order. Dispatch loops use
// their StopTimeout window to drain queued requests.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	logger.Info("stopping components")
	if err := r.stopStarted(ctx); err != nil {
		return fmt.Errorf("shutdown errors: %w", err)
	}
	logger.Info("components stopped")
	return nil
}

func (r *Registry) stopStarted(ctx context.Context) error {
	var errs []error
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if !e.started {
			continue
		}
		e.started = false

		name := e.c.Name()
		stopCtx, cancel := context.WithTimeout(ctx, r.StopTimeout)
		err := e.c.Stop(stopCtx)
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to stop %s: %w", name, err))
			logger.Error("component stop failed", logger.Fields(
				logger.FieldComponent, name,
				logger.FieldError, err.Error(),
			))
			continue
		}
		logger.Info("component stopped", logger.Fields(logger.FieldComponent, name))
	}
	return errors.Join(errs...)
}

// HealthAll returns every component's health in registration order.
func (r *Registry) HealthAll(ctx context.Context) []Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Health, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.c.Health(ctx)
	}
	return out
}

// All returns the components in registration order.
func (r *Registry) All() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Component, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.c
	}
	return out
}

// Overall folds component health into one status: any unhealthy component
// makes the whole unhealthy, otherwise any degraded one makes it degraded.
func Overall(results []Health) HealthStatus {
	status := StatusHealthy
	for _, h := range results {
		switch h.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}
