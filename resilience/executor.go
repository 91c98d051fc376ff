package resilience

import (
	"context"
	"time"
)

// Policy identifies one resilience pattern within an Executor's chain.
type Policy int

const (
	// PolicyRateLimit is the token-bucket rate limiter.
	PolicyRateLimit Policy = iota
	// PolicyBulkhead is the concurrency cap.
	PolicyBulkhead
	// PolicyCircuitBreaker is the circuit breaker.
	PolicyCircuitBreaker
	// PolicyRetry is the retry loop.
	PolicyRetry
	// PolicyTimeout is the per-attempt timeout.
	PolicyTimeout
)

// String returns the string representation of the policy.
func (p Policy) String() string {
	switch p {
	case PolicyRateLimit:
		return "ratelimit"
	case PolicyBulkhead:
		return "bulkhead"
	case PolicyCircuitBreaker:
		return "circuitbreaker"
	case PolicyRetry:
		return "retry"
	case PolicyTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// defaultOrder lists policies outermost first. Rate limiting gates admission
// before anything else runs; the timeout bounds each individual attempt.
var defaultOrder = []Policy{
	PolicyRateLimit,
	PolicyBulkhead,
	PolicyCircuitBreaker,
	PolicyRetry,
	PolicyTimeout,
}

// Executor composes resilience patterns into one guarded call chain.
// Patterns that were not configured are skipped; the rest apply in the
// configured order, outermost first.
type Executor struct {
	circuitBreaker *CircuitBreaker
	retry          *Retry
	rateLimiter    *RateLimiter
	bulkhead       *Bulkhead
	timeout        *Timeout
	order          []Policy
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates a new resilience executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{order: defaultOrder}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithCircuitBreaker adds a circuit breaker to the executor.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) {
		e.circuitBreaker = cb
	}
}

// WithRetry adds retry logic to the executor.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) {
		e.retry = r
	}
}

// WithRateLimiter adds rate limiting to the executor.
func WithRateLimiter(rl *RateLimiter) ExecutorOption {
	return func(e *Executor) {
		e.rateLimiter = rl
	}
}

// WithBulkhead adds bulkhead isolation to the executor.
func WithBulkhead(b *Bulkhead) ExecutorOption {
	return func(e *Executor) {
		e.bulkhead = b
	}
}

// WithTimeout adds a per-attempt timeout to the executor.
func WithTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.timeout = NewTimeout(TimeoutConfig{Timeout: timeout})
	}
}

// WithTimeoutConfig adds a timeout with custom config to the executor.
func WithTimeoutConfig(t *Timeout) ExecutorOption {
	return func(e *Executor) {
		e.timeout = t
	}
}

// WithOrder overrides the composition order, outermost first. Order changes
// semantics: placing the circuit breaker inside retry makes an open-circuit
// rejection consume a retry attempt, outside retry it fails the whole call.
// Policies missing from the order are appended in their default positions.
func WithOrder(order ...Policy) ExecutorOption {
	return func(e *Executor) {
		seen := make(map[Policy]bool, len(order))
		merged := make([]Policy, 0, len(defaultOrder))
		for _, p := range order {
			if !seen[p] {
				seen[p] = true
				merged = append(merged, p)
			}
		}
		for _, p := range defaultOrder {
			if !seen[p] {
				merged = append(merged, p)
			}
		}
		e.order = merged
	}
}

// Execute runs the operation through all configured resilience patterns in
// the composition order.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	execute := op

	// Wrap from the innermost pattern outward.
	for i := len(e.order) - 1; i >= 0; i-- {
		if wrapper := e.wrapper(e.order[i]); wrapper != nil {
			inner := execute
			execute = func(ctx context.Context) error {
				return wrapper.Execute(ctx, inner)
			}
		}
	}

	return execute(ctx)
}

// executer is the common surface of all patterns in the chain.
type executer interface {
	Execute(ctx context.Context, op func(context.Context) error) error
}

func (e *Executor) wrapper(p Policy) executer {
	switch p {
	case PolicyRateLimit:
		if e.rateLimiter != nil {
			return e.rateLimiter
		}
	case PolicyBulkhead:
		if e.bulkhead != nil {
			return e.bulkhead
		}
	case PolicyCircuitBreaker:
		if e.circuitBreaker != nil {
			return e.circuitBreaker
		}
	case PolicyRetry:
		if e.retry != nil {
			return e.retry
		}
	case PolicyTimeout:
		if e.timeout != nil {
			return e.timeout
		}
	}
	return nil
}
