package resilience

import (
	"context"
	"sync"
	"time"
)

// RateLimiterConfig configures a token bucket. Rate defaults to 10 tokens
// per second and Burst to the rate.
type RateLimiterConfig struct {
	Name  string
	Rate  float64
	Burst int
}

// RateLimiter is a token bucket that refills continuously.
type RateLimiter struct {
	rate  float64
	burst float64

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// NewRateLimiter returns a limiter with a full bucket.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.Rate <= 0 {
		cfg.Rate = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = max(int(cfg.Rate), 1)
	}
	return &RateLimiter{
		rate:   cfg.Rate,
		burst:  float64(cfg.Burst),
		tokens: float64(cfg.Burst),
		last:   time.Now(),
	}
}

// Allow takes a token without waiting.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.refill() < 1 {
		return false
	}
	rl.tokens--
	return true
}

// Wait reserves a token and sleeps until it is due. The reservation is
// kept even when ctx ends first.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	rl.refill()
	rl.tokens--
	debt := -rl.tokens
	rl.mu.Unlock()
	if debt <= 0 {
		return nil
	}

	timer := time.NewTimer(time.Duration(debt / rl.rate * float64(time.Second)))
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Full reports whether the bucket is at capacity, meaning the caller has
// been idle long enough to be forgotten.
func (rl *RateLimiter) Full() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.refill() >= rl.burst
}

// refill must be called with mu held.
func (rl *RateLimiter) refill() float64 {
	now := time.Now()
	rl.tokens = min(rl.burst, rl.tokens+now.Sub(rl.last).Seconds()*rl.rate)
	rl.last = now
	return rl.tokens
}
