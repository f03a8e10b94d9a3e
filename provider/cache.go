package provider

import (
	"context"
	"time"

	"github.com/kbukum/endpoints/logger"
)

// Cache stores outputs by key. Load returns (nil, nil) on a miss.
type Cache[O any] interface {
	Load(ctx context.Context, key string) (*O, error)
	Save(ctx context.Context, key string, value *O, ttl time.Duration) error
}

// WithCache serves repeated inputs from cache. keyFn returns false for
// inputs that must not be cached. Cache failures are logged and bypassed.
func WithCache[I, O any](cache Cache[O], keyFn func(I) (string, bool), ttl time.Duration) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return &cachedRR[I, O]{
			inner: inner,
			cache: cache,
			keyFn: keyFn,
			ttl:   ttl,
			log:   logger.Get("provider.cache"),
		}
	}
}

type cachedRR[I, O any] struct {
	inner RequestResponse[I, O]
	cache Cache[O]
	keyFn func(I) (string, bool)
	ttl   time.Duration
	log   *logger.Logger
}

func (c *cachedRR[I, O]) Name() string                         { return c.inner.Name() }
func (c *cachedRR[I, O]) IsAvailable(ctx context.Context) bool { return c.inner.IsAvailable(ctx) }

func (c *cachedRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	key, ok := c.keyFn(input)
	if !ok {
		return c.inner.Execute(ctx, input)
	}

	cached, err := c.cache.Load(ctx, key)
	switch {
	case err != nil:
		c.log.WithContext(ctx).Warn("cache load failed", logger.ErrorFields("cache.load", err))
	case cached != nil:
		return *cached, nil
	}

	output, err := c.inner.Execute(ctx, input)
	if err != nil {
		return output, err
	}
	if err := c.cache.Save(ctx, key, &output, c.ttl); err != nil {
		c.log.WithContext(ctx).Warn("cache save failed", logger.ErrorFields("cache.save", err))
	}
	return output, nil
}
