package resilience

import (
	"math"
	"math/rand/v2"
	"time"
)

// BackoffStrategy defines how delays grow between retries.
type BackoffStrategy int

const (
	// BackoffExponential multiplies the delay by Multiplier each attempt.
	BackoffExponential BackoffStrategy = iota
	// BackoffLinear increases the delay linearly with the attempt number.
	BackoffLinear
	// BackoffConstant uses the same delay for every retry.
	BackoffConstant
)

// String returns the string representation of the strategy.
func (s BackoffStrategy) String() string {
	switch s {
	case BackoffExponential:
		return "exponential"
	case BackoffLinear:
		return "linear"
	case BackoffConstant:
		return "constant"
	default:
		return "unknown"
	}
}

// Backoff computes the delay before a given retry attempt. The zero value is
// usable: unset fields take defaults when Delay is called.
//
// Backoff is pure configuration and holds no mutable state, so a single value
// may be shared by any number of goroutines.
type Backoff struct {
	// InitialDelay is the delay before the first retry.
	// Default: 100ms
	InitialDelay time.Duration

	// MaxDelay caps the delay between retries.
	// Default: 30s
	MaxDelay time.Duration

	// Multiplier is the growth factor for exponential backoff.
	// Default: 2.0
	Multiplier float64

	// Strategy selects how delays grow.
	// Default: BackoffExponential
	Strategy BackoffStrategy

	// Jitter perturbs each delay by up to ±20% to avoid synchronized
	// retry storms across clients.
	Jitter bool
}

// Delay returns the delay to wait before retry number attempt. Attempts are
// 1-indexed: attempt 1 is the first retry. Without jitter the result is
// deterministic; it is never negative and never exceeds MaxDelay.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	initial := b.InitialDelay
	if initial <= 0 {
		initial = 100 * time.Millisecond
	}
	maxDelay := b.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}
	multiplier := b.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}

	var delay time.Duration
	switch b.Strategy {
	case BackoffConstant:
		delay = initial
	case BackoffLinear:
		delay = initial * time.Duration(attempt)
	default:
		factor := math.Pow(multiplier, float64(attempt-1))
		delay = time.Duration(float64(initial) * factor)
	}

	// Overflow from large exponents shows up as a negative duration.
	if delay < 0 || delay > maxDelay {
		delay = maxDelay
	}

	if b.Jitter && delay > 0 {
		// ±20% jitter around the computed delay.
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		span := int64(delay / 5)
		if span > 0 {
			delay += time.Duration(rand.Int64N(2*span) - span)
		}
	}

	if delay < 0 {
		delay = 0
	}

	return delay
}
