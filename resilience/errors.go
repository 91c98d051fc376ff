package resilience

import (
	"errors"
	"fmt"
)

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker rejects a call
	// without invoking the operation.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrRateLimited is returned when the rate limiter rejects a call
	// without waiting for a token.
	ErrRateLimited = errors.New("resilience: rate limit exceeded")

	// ErrBulkheadFull is returned when the bulkhead is at capacity.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")

	// ErrTimeout is returned when an operation exceeds its time limit.
	ErrTimeout = errors.New("resilience: operation timed out")
)

// AttemptsError wraps the last error after retry exhaustion, annotated with
// the total number of attempts made.
type AttemptsError struct {
	// Attempts is the total number of times the operation was invoked.
	Attempts int

	// Err is the error from the final attempt.
	Err error
}

func (e *AttemptsError) Error() string {
	return fmt.Sprintf("resilience: %d attempts exhausted: %v", e.Attempts, e.Err)
}

// Unwrap returns the error from the final attempt, so callers can match it
// with errors.Is and errors.As.
func (e *AttemptsError) Unwrap() error {
	return e.Err
}
