package resilience

import (
	"context"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the circuit is operating normally.
	StateClosed State = iota
	// StateOpen means the circuit is rejecting all requests.
	StateOpen
	// StateHalfOpen means the circuit is probing whether the downstream
	// has recovered.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures in the closed
	// state that opens the circuit.
	// Default: 5
	FailureThreshold int

	// ResetTimeout is how long the circuit stays open before the next call
	// is admitted as a half-open trial.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// HalfOpenMaxRequests caps the number of concurrent trial requests in
	// the half-open state. Calls beyond the cap are rejected with
	// ErrCircuitOpen.
	// Default: 1
	HalfOpenMaxRequests int

	// SuccessThreshold is the number of consecutive trial successes needed
	// to close the circuit from half-open.
	// Default: 1
	SuccessThreshold int

	// OnStateChange is called synchronously on every transition, after the
	// new state is committed. It is fire-and-forget: panics are swallowed.
	OnStateChange func(from, to State)
}

// CircuitBreaker implements the circuit breaker pattern. Every non-nil error
// from the wrapped operation counts as a failure; callers that need to treat
// some errors as benign should filter them before they reach the breaker.
//
// A CircuitBreaker is safe for concurrent use and is typically shared by all
// tasks targeting the same downstream.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu         sync.Mutex
	state      State
	generation uint64
	failures   int
	successes  int
	openedAt   time.Time
	inFlight   int
}

// NewCircuitBreaker creates a new circuit breaker in the closed state.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.HalfOpenMaxRequests <= 0 {
		config.HalfOpenMaxRequests = 1
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 1
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
	}
}

// Execute runs the operation through the circuit breaker. When the circuit
// is open, or the half-open trial quota is exhausted, the operation body is
// never invoked and ErrCircuitOpen is returned.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	admitted, gen, err := cb.admit()
	if err != nil {
		return err
	}

	err = op(ctx)
	cb.record(admitted, gen, err)
	return err
}

// State returns the current circuit state, applying the open-to-half-open
// transition if the reset timeout has elapsed.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentLocked()
}

// Reset forces the circuit back to closed and clears all counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.successes = 0
	cb.inFlight = 0
	cb.transitionLocked(StateClosed)
}

// admit decides whether a call may proceed. It returns the state the call
// was admitted under and the generation at admission time, so a late
// completion from a previous generation cannot corrupt current state.
func (cb *CircuitBreaker) admit() (State, uint64, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentLocked() {
	case StateOpen:
		return StateOpen, 0, ErrCircuitOpen
	case StateHalfOpen:
		if cb.inFlight >= cb.config.HalfOpenMaxRequests {
			return StateHalfOpen, 0, ErrCircuitOpen
		}
		cb.inFlight++
		return StateHalfOpen, cb.generation, nil
	default:
		return StateClosed, cb.generation, nil
	}
}

// record applies the outcome of an admitted call.
func (cb *CircuitBreaker) record(admitted State, gen uint64, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if gen != cb.generation {
		// The circuit transitioned while this call was in flight. Its
		// outcome belongs to a previous generation and is discarded.
		return
	}

	switch admitted {
	case StateClosed:
		if err != nil {
			cb.failures++
			if cb.failures >= cb.config.FailureThreshold {
				cb.openedAt = time.Now()
				cb.transitionLocked(StateOpen)
			}
		} else {
			cb.failures = 0
		}

	case StateHalfOpen:
		cb.inFlight--
		if err != nil {
			// Failed trial: re-open and restart the cooldown.
			cb.openedAt = time.Now()
			cb.transitionLocked(StateOpen)
		} else {
			cb.successes++
			if cb.successes >= cb.config.SuccessThreshold {
				cb.transitionLocked(StateClosed)
			}
		}
	}
}

// currentLocked returns the effective state, lazily moving an expired open
// circuit to half-open. Callers must hold cb.mu.
func (cb *CircuitBreaker) currentLocked() State {
	if cb.state == StateOpen && time.Since(cb.openedAt) >= cb.config.ResetTimeout {
		cb.transitionLocked(StateHalfOpen)
	}
	return cb.state
}

// transitionLocked commits a state change, resets per-state counters, bumps
// the generation, and fires the hook. Callers must hold cb.mu.
func (cb *CircuitBreaker) transitionLocked(to State) {
	from := cb.state
	if from == to {
		return
	}

	cb.state = to
	cb.generation++
	cb.successes = 0
	switch to {
	case StateClosed:
		cb.failures = 0
		cb.inFlight = 0
	case StateOpen:
		cb.failures = 0
	case StateHalfOpen:
		cb.inFlight = 0
	}

	if cb.config.OnStateChange != nil {
		cb.notify(from, to)
	}
}

func (cb *CircuitBreaker) notify(from, to State) {
	defer func() {
		// A panicking hook must not poison breaker state.
		_ = recover()
	}()
	cb.config.OnStateChange(from, to)
}

// Metrics returns a snapshot of circuit breaker statistics.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return CircuitBreakerMetrics{
		State:                cb.currentLocked(),
		ConsecutiveFailures:  cb.failures,
		ConsecutiveSuccesses: cb.successes,
		OpenedAt:             cb.openedAt,
		HalfOpenInFlight:     cb.inFlight,
	}
}

// CircuitBreakerMetrics contains circuit breaker statistics.
type CircuitBreakerMetrics struct {
	State                State
	ConsecutiveFailures  int
	ConsecutiveSuccesses int
	OpenedAt             time.Time
	HalfOpenInFlight     int
}
