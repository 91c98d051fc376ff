package resilience

import (
	"context"
	"errors"
	"time"
)

// TimeoutConfig configures the timeout wrapper.
type TimeoutConfig struct {
	// Timeout is the maximum duration for a single attempt.
	// Default: 30 seconds
	Timeout time.Duration
}

// Timeout bounds the duration of an operation. The operation receives a
// context with the deadline applied; a body that ignores its context keeps
// running in the background after the timeout fires, so cooperative bodies
// should watch ctx.Done().
type Timeout struct {
	config TimeoutConfig
}

// NewTimeout creates a new timeout wrapper.
func NewTimeout(config TimeoutConfig) *Timeout {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &Timeout{config: config}
}

// Execute runs the operation, failing with ErrTimeout if it does not
// complete within the configured duration.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- op(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}

// Config returns the timeout configuration.
func (t *Timeout) Config() TimeoutConfig {
	return t.config
}

// ExecuteWithTimeout runs op with the given timeout without constructing a
// reusable Timeout.
func ExecuteWithTimeout(ctx context.Context, timeout time.Duration, op func(context.Context) error) error {
	t := NewTimeout(TimeoutConfig{Timeout: timeout})
	return t.Execute(ctx, op)
}
