package resilience

import (
	"errors"
	"sync"
	"time"
)

// State is a circuit breaker position.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

var stateNames = [...]string{"closed", "open", "half-open"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// ErrCircuitOpen is returned, without calling through, while the circuit
// is open or its half-open probes are in flight.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig configures a CircuitBreaker. Zero values take the
// defaults of DefaultCircuitBreakerConfig.
type CircuitBreakerConfig struct {
	Name string
	// MaxFailures consecutive failures open the circuit.
	MaxFailures int
	// Timeout is how long the circuit stays open before it lets probes in.
	Timeout time.Duration
	// HalfOpenMaxCalls probes are admitted while half-open; that many
	// successes close the circuit again.
	HalfOpenMaxCalls int
	// IsFailure filters which errors count. Nil counts them all.
	IsFailure func(error) bool
	// OnStateChange runs under the breaker lock on every transition.
	OnStateChange func(name string, from, to State)
}

// DefaultCircuitBreakerConfig opens after five failures and probes again
// after 30s.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{Name: name, MaxFailures: 5, Timeout: 30 * time.Second, HalfOpenMaxCalls: 1}
}

// CircuitBreaker stops calling a backend that keeps failing so requests
// fail fast instead of queueing behind a dead sidecar.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu       sync.Mutex
	state    State
	failures int
	probes   int // admitted while half-open
	passed   int // succeeded while half-open
	openedAt time.Time
}

// NewCircuitBreaker returns a closed breaker.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCircuitBreakerConfig(cfg.Name)
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = def.MaxFailures
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = def.HalfOpenMaxCalls
	}
	return &CircuitBreaker{cfg: cfg}
}

// Execute calls fn when the circuit admits it and returns fn's error as is.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	_, err := Guard(cb, func() (struct{}, error) { return struct{}{}, fn() })
	return err
}

// Guard is Execute for calls that produce a value.
func Guard[T any](cb *CircuitBreaker, fn func() (T, error)) (T, error) {
	if !cb.admit() {
		var zero T
		return zero, ErrCircuitOpen
	}
	v, err := fn()
	cb.observe(err)
	return v, err
}

// State returns the current position, moving open to half-open once the
// timeout has elapsed.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.refresh()
}

// Failures returns the current run of consecutive failures.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

func (cb *CircuitBreaker) admit() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.refresh() {
	case StateClosed:
		return true
	case StateHalfOpen:
		if cb.probes < cb.cfg.HalfOpenMaxCalls {
			cb.probes++
			return true
		}
	}
	return false
}

func (cb *CircuitBreaker) observe(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil || (cb.cfg.IsFailure != nil && !cb.cfg.IsFailure(err)) {
		if cb.refresh() == StateHalfOpen {
			if cb.passed++; cb.passed >= cb.cfg.HalfOpenMaxCalls {
				cb.moveTo(StateClosed)
			}
			return
		}
		cb.failures = 0
		return
	}

	cb.failures++
	if cb.refresh() == StateHalfOpen || cb.failures >= cb.cfg.MaxFailures {
		cb.openedAt = time.Now()
		cb.moveTo(StateOpen)
	}
}

// refresh must be called with mu held.
func (cb *CircuitBreaker) refresh() State {
	if cb.state == StateOpen && time.Since(cb.openedAt) >= cb.cfg.Timeout {
		cb.moveTo(StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) moveTo(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state, cb.probes, cb.passed = to, 0, 0
	if to == StateClosed {
		cb.failures = 0
	}
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.cfg.Name, from, to)
	}
}
