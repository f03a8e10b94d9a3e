package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kbukum/endpoints/errors"
	"github.com/kbukum/endpoints/logger"
)

// Manager holds the initialized backends of one task and picks among them.
type Manager[T Provider] struct {
	mu        sync.RWMutex
	registry  *Registry[T]
	selector  Selector[T]
	providers map[string]T
	log       *logger.Logger
}

// NewManager creates a Manager backed by registry and selector.
func NewManager[T Provider](registry *Registry[T], selector Selector[T]) *Manager[T] {
	return &Manager[T]{
		registry:  registry,
		selector:  selector,
		providers: make(map[string]T),
		log:       logger.Get("provider"),
	}
}

// Initialize creates a backend from the kind's factory and stores it as name.
func (m *Manager[T]) Initialize(name, kind string, cfg map[string]any) error {
	instance, err := m.registry.Create(kind, cfg)
	if err != nil {
		return fmt.Errorf("initialize provider %q: %w", name, err)
	}
	m.Add(name, instance)
	return nil
}

// Add stores an already-built backend.
func (m *Manager[T]) Add(name string, instance T) {
	m.mu.Lock()
	m.providers[name] = instance
	m.mu.Unlock()
	m.log.Info("provider initialized", logger.Fields("provider", name))
}

// Get returns a backend chosen by the selector.
func (m *Manager[T]) Get(ctx context.Context) (T, error) {
	m.mu.RLock()
	snapshot := make(map[string]T, len(m.providers))
	for k, v := range m.providers {
		snapshot[k] = v
	}
	m.mu.RUnlock()
	return m.selector.Select(ctx, snapshot)
}

// Available returns the sorted names of initialized backends.
func (m *Manager[T]) Available() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Routed serves a task through whichever backend m selects per call.
func Routed[I, O any](name string, m *Manager[RequestResponse[I, O]]) RequestResponse[I, O] {
	return &routedRR[I, O]{name: name, manager: m}
}

type routedRR[I, O any] struct {
	name    string
	manager *Manager[RequestResponse[I, O]]
}

func (r *routedRR[I, O]) Name() string { return r.name }

func (r *routedRR[I, O]) IsAvailable(ctx context.Context) bool {
	_, err := r.manager.Get(ctx)
	return err == nil
}

func (r *routedRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	p, err := r.manager.Get(ctx)
	if err != nil {
		var zero O
		return zero, errors.ServiceUnavailable(r.name).WithCause(err)
	}
	return p.Execute(ctx, input)
}
