package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		BackoffFactor:  2,
	}
}

func TestRetry(t *testing.T) {
	errTransient := errors.New("transient")
	tests := []struct {
		name      string
		failFirst int
		attempts  int
		wantCalls int
		wantErr   bool
	}{
		{"first attempt", 0, 3, 1, false},
		{"succeeds after retry", 2, 3, 3, false},
		{"exhausts attempts", 5, 3, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			got, err := Retry(context.Background(), fastConfig(tt.attempts), func() (string, error) {
				calls++
				if calls <= tt.failFirst {
					return "", errTransient
				}
				return "ok", nil
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if tt.wantErr {
				if !errors.Is(err, errTransient) {
					t.Errorf("err = %v", err)
				}
				return
			}
			if err != nil || got != "ok" {
				t.Errorf("got %q, %v", got, err)
			}
		})
	}
}

func TestRetry_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	for _, err := range []error{ErrCircuitOpen, context.Canceled} {
		calls = 0
		_, got := Retry(context.Background(), fastConfig(5), func() (int, error) {
			calls++
			return 0, err
		})
		if calls != 1 || !errors.Is(got, err) {
			t.Errorf("%v: calls = %d err = %v", err, calls, got)
		}
	}
}

func TestRetry_RespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig(10)
	cfg.InitialBackoff = 50 * time.Millisecond
	cfg.MaxBackoff = 50 * time.Millisecond
	cfg.OnRetry = func(int, error, time.Duration) { cancel() }

	_, err := Retry(ctx, cfg, func() (int, error) { return 0, errors.New("fail") })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}

func TestRetry_OnRetryCallback(t *testing.T) {
	var attempts []int
	cfg := fastConfig(3)
	cfg.OnRetry = func(attempt int, _ error, backoff time.Duration) {
		attempts = append(attempts, attempt)
		if backoff <= 0 {
			t.Errorf("backoff = %s", backoff)
		}
	}
	_ = RetryFunc(context.Background(), cfg, func() error { return errors.New("fail") })
	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("attempts = %v", attempts)
	}
}

func TestBackoff(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: 10 * time.Millisecond, MaxBackoff: 50 * time.Millisecond, BackoffFactor: 2}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 10 * time.Millisecond},
		{2, 20 * time.Millisecond},
		{3, 40 * time.Millisecond},
		{4, 50 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := cfg.backoff(tt.attempt); got != tt.want {
			t.Errorf("backoff(%d) = %s, want %s", tt.attempt, got, tt.want)
		}
	}
}
