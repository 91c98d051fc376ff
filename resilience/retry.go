package resilience

import (
	"context"
	"time"
)

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// MaxRetries is the number of retries after the initial attempt, so an
	// operation is invoked at most MaxRetries+1 times.
	// Default: 3
	MaxRetries int

	// Backoff computes the delay before each retry.
	Backoff Backoff

	// RetryIf determines whether an error should trigger a retry.
	// Default: all non-nil errors trigger retry.
	RetryIf func(err error) bool

	// OnRetry is called before each retry with the attempt number just
	// completed, the delay about to be slept, and the error that caused the
	// retry. It is fire-and-forget: panics are swallowed and it can never
	// alter control flow.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Retry re-runs failed operations according to a retry condition and a
// backoff schedule.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a new retry handler.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	} else if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.RetryIf == nil {
		config.RetryIf = func(err error) bool { return err != nil }
	}

	return &Retry{config: config}
}

// Execute runs the operation, retrying failures until the retry condition
// says stop or the retry budget is exhausted. On exhaustion the error from
// the final attempt is returned wrapped in an *AttemptsError; it is never an
// aggregate of all attempts.
//
// The sleep between attempts honors ctx: cancellation during backoff returns
// ctx.Err() immediately.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	maxAttempts := r.config.MaxRetries + 1

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !r.config.RetryIf(err) {
			return err
		}

		if attempt == maxAttempts {
			break
		}

		delay := r.config.Backoff.Delay(attempt)
		r.notifyRetry(attempt, delay, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return &AttemptsError{Attempts: maxAttempts, Err: lastErr}
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}

func (r *Retry) notifyRetry(attempt int, delay time.Duration, err error) {
	if r.config.OnRetry == nil {
		return
	}
	defer func() {
		// The hook is observability only; a panicking hook must not
		// break the retry loop.
		_ = recover()
	}()
	r.config.OnRetry(attempt, delay, err)
}
