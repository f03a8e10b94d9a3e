package provider_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var errTransient = errors.New("transient failure")

type echoProvider struct {
	name        string
	unavailable bool
	calls       atomic.Int32
}

func (p *echoProvider) Name() string                     { return p.name }
func (p *echoProvider) IsAvailable(context.Context) bool { return !p.unavailable }
func (p *echoProvider) Execute(_ context.Context, in string) (string, error) {
	p.calls.Add(1)
	return "echo:" + in, nil
}

type failingProvider struct {
	name      string
	callCount atomic.Int32
	failUntil int32
}

func (p *failingProvider) Name() string                     { return p.name }
func (p *failingProvider) IsAvailable(context.Context) bool { return true }
func (p *failingProvider) Execute(_ context.Context, in string) (string, error) {
	if p.callCount.Add(1) <= p.failUntil {
		return "", errTransient
	}
	return "ok:" + in, nil
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]string
	ttls    map[string]time.Duration
	loadErr error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (c *memoryCache) Load(_ context.Context, key string) (*string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loadErr != nil {
		return nil, c.loadErr
	}
	v, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (c *memoryCache) Save(_ context.Context, key string, value *string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = *value
	c.ttls[key] = ttl
	return nil
}
