package resilience

import (
	"errors"
	"sync"
	"testing"
	"time"
)

var errBackend = errors.New("backend down")

func trip(cb *CircuitBreaker, n int, err error) {
	for range n {
		_ = cb.Execute(func() error { return err })
	}
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "tei", MaxFailures: 3, Timeout: time.Minute})
	if cb.State() != StateClosed {
		t.Fatalf("initial state = %s", cb.State())
	}
	trip(cb, 2, errBackend)
	if cb.State() != StateClosed || cb.Failures() != 2 {
		t.Fatalf("state = %s failures = %d", cb.State(), cb.Failures())
	}
	trip(cb, 1, errBackend)
	if cb.State() != StateOpen {
		t.Fatalf("state = %s, want open", cb.State())
	}

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Errorf("err = %v called = %v", err, called)
	}
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 2})
	trip(cb, 1, errBackend)
	_ = cb.Execute(func() error { return nil })
	trip(cb, 1, errBackend)
	if cb.State() != StateClosed {
		t.Errorf("non-consecutive failures opened the circuit")
	}
}

func TestCircuitBreaker_IsFailureFilter(t *testing.T) {
	errBadInput := errors.New("bad input")
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures: 1,
		IsFailure:   func(err error) bool { return !errors.Is(err, errBadInput) },
	})
	trip(cb, 5, errBadInput)
	if cb.State() != StateClosed {
		t.Fatalf("client errors opened the circuit")
	}
	trip(cb, 1, errBackend)
	if cb.State() != StateOpen {
		t.Errorf("state = %s, want open", cb.State())
	}
}

func TestCircuitBreaker_HalfOpen(t *testing.T) {
	tests := []struct {
		name  string
		probe error
		want  State
	}{
		{"probe succeeds", nil, StateClosed},
		{"probe fails", errBackend, StateOpen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: 20 * time.Millisecond})
			trip(cb, 1, errBackend)
			time.Sleep(30 * time.Millisecond)
			if cb.State() != StateHalfOpen {
				t.Fatalf("state = %s, want half-open", cb.State())
			}
			_ = cb.Execute(func() error { return tt.probe })
			if cb.State() != tt.want {
				t.Errorf("state = %s, want %s", cb.State(), tt.want)
			}
		})
	}
}

func TestCircuitBreaker_HalfOpenLimitsProbes(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: 10 * time.Millisecond, HalfOpenMaxCalls: 1})
	trip(cb, 1, errBackend)
	time.Sleep(20 * time.Millisecond)

	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = cb.Execute(func() error { <-release; return nil })
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	if err := cb.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("second probe err = %v", err)
	}
	close(release)
	<-done
}

func TestCircuitBreaker_StateChangeCallback(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:        "whisper",
		MaxFailures: 1,
		Timeout:     10 * time.Millisecond,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		},
	})
	trip(cb, 1, errBackend)
	time.Sleep(20 * time.Millisecond)
	if _, err := Guard(cb, func() (int, error) { return 1, nil }); err != nil {
		t.Fatalf("probe err = %v", err)
	}
	if cb.State() != StateClosed || cb.Failures() != 0 {
		t.Fatalf("after probe state = %s failures = %d", cb.State(), cb.Failures())
	}
	want := []string{"whisper:closed->open", "whisper:open->half-open", "whisper:half-open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v", transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %q, want %q", i, transitions[i], want[i])
		}
	}
}

func TestGuard_ReturnsValue(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1})
	if v, err := Guard(cb, func() (string, error) { return "ok", nil }); v != "ok" || err != nil {
		t.Fatalf("Guard() = %q, %v", v, err)
	}
	trip(cb, 1, errBackend)
	if v, err := Guard(cb, func() (string, error) { return "called", nil }); v != "" || !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Guard() while open = %q, %v", v, err)
	}
}

func TestCircuitBreaker_ConcurrentAccess(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("concurrent"))
	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = cb.Execute(func() error {
				if i%2 == 0 {
					return errBackend
				}
				return nil
			})
			_ = cb.State()
		}()
	}
	wg.Wait()
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateClosed:   "closed",
		StateOpen:     "open",
		StateHalfOpen: "half-open",
		State(42):     "unknown",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), want)
		}
	}
}
