package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kbukum/endpoints/provider"
)

// ResponseCache keeps JSON-encoded backend responses of type T. It
// satisfies provider.Cache so it can sit behind provider.WithCache.
type ResponseCache[T any] struct {
	client *Client
	prefix string
}

var _ provider.Cache[any] = (*ResponseCache[any])(nil)

// NewResponseCache returns a cache that namespaces its keys as
// "<prefix>:<key>". An empty prefix leaves keys untouched.
func NewResponseCache[T any](client *Client, prefix string) *ResponseCache[T] {
	return &ResponseCache[T]{client: client, prefix: prefix}
}

func (s *ResponseCache[T]) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

// Load returns the cached response for k, or (nil, nil) when absent.
func (s *ResponseCache[T]) Load(ctx context.Context, k string) (*T, error) {
	raw, err := s.client.Get(ctx, s.key(k))
	switch {
	case IsMiss(err):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("load cached response: %w", err)
	}
	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("decode cached response: %w", err)
	}
	return out, nil
}

// Save stores v under k for ttl. A zero ttl keeps it until evicted.
func (s *ResponseCache[T]) Save(ctx context.Context, k string, v *T, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode response for cache: %w", err)
	}
	if err := s.client.Set(ctx, s.key(k), raw, ttl); err != nil {
		return fmt.Errorf("store cached response: %w", err)
	}
	return nil
}
