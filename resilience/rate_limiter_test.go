package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name    string
		cfg     RateLimiterConfig
		allowed int
	}{
		{"explicit burst", RateLimiterConfig{Rate: 1, Burst: 3}, 3},
		{"burst defaults to rate", RateLimiterConfig{Rate: 4}, 4},
		{"all defaults", RateLimiterConfig{}, 10},
		{"fractional rate", RateLimiterConfig{Rate: 0.5}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := NewRateLimiter(tt.cfg)
			for i := range tt.allowed {
				if !rl.Allow() {
					t.Fatalf("request %d rejected within burst", i)
				}
			}
			if rl.Allow() {
				t.Error("request over burst allowed")
			}
		})
	}
}

func TestRateLimiter_Refills(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 100, Burst: 1})
	if !rl.Allow() {
		t.Fatal("first request rejected")
	}
	if rl.Full() {
		t.Error("bucket reported full after use")
	}
	time.Sleep(20 * time.Millisecond)
	if !rl.Full() || !rl.Allow() {
		t.Error("bucket did not refill")
	}
}

func TestRateLimiter_Wait(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 50, Burst: 1})
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() with a token = %v", err)
	}

	start := time.Now()
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("Wait returned after %s, expected to block", elapsed)
	}
}

func TestRateLimiter_WaitRespectsContext(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 0.1, Burst: 1})
	rl.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v", err)
	}
}
