package provider

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
)

// Selector picks a provider from the available options.
type Selector[T Provider] interface {
	Select(ctx context.Context, providers map[string]T) (T, error)
}

// PrioritySelector returns the first available provider in Priority order.
type PrioritySelector[T Provider] struct {
	Priority []string
}

func (s *PrioritySelector[T]) Select(ctx context.Context, providers map[string]T) (T, error) {
	for _, name := range s.Priority {
		if p, ok := providers[name]; ok && p.IsAvailable(ctx) {
			return p, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("no available provider in priority list %v", s.Priority)
}

// RoundRobinSelector rotates across available providers in name order.
type RoundRobinSelector[T Provider] struct {
	counter atomic.Uint64
}

func (s *RoundRobinSelector[T]) Select(ctx context.Context, providers map[string]T) (T, error) {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)

	n := len(names)
	start := int(s.counter.Add(1) - 1)
	for i := range n {
		p := providers[names[(start+i)%n]]
		if p.IsAvailable(ctx) {
			return p, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("no available provider among %d", n)
}
