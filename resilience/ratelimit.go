package resilience

import (
	"context"
	"sync"
	"time"
)

// RateLimiterConfig configures the token bucket.
type RateLimiterConfig struct {
	// Rate is the number of tokens added per second.
	// Default: 100
	Rate float64

	// Burst is the bucket capacity: the largest number of acquisitions
	// that can proceed without waiting.
	// Default: 10
	Burst int

	// WaitOnLimit makes Execute wait for a token instead of failing with
	// ErrRateLimited when the bucket is empty.
	// Default: false
	WaitOnLimit bool

	// MaxWait bounds how long Wait will block for tokens to accrue.
	// Zero means wait as long as the deficit requires.
	MaxWait time.Duration
}

// RateLimiter implements a token bucket. Tokens accrue continuously at Rate
// per second up to Burst; each admitted call consumes one. Refill and
// consumption happen under a single mutex so two concurrent acquirers can
// never spend the same fractional token.
type RateLimiter struct {
	config RateLimiterConfig

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// NewRateLimiter creates a rate limiter with a full bucket.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate <= 0 {
		config.Rate = 100
	}
	if config.Burst <= 0 {
		config.Burst = 10
	}

	return &RateLimiter{
		config:     config,
		tokens:     float64(config.Burst),
		lastRefill: time.Now(),
	}
}

// Allow reports whether one acquisition may proceed immediately, consuming a
// token if so.
func (rl *RateLimiter) Allow() bool {
	return rl.AllowN(1)
}

// AllowN reports whether n acquisitions may proceed immediately.
func (rl *RateLimiter) AllowN(n int) bool {
	_, ok := rl.reserve(n)
	return ok
}

// Wait blocks until a token is available or ctx is cancelled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	return rl.WaitN(ctx, 1)
}

// WaitN blocks until n tokens are available. The wait happens outside the
// limiter's lock; after sleeping for the computed deficit the acquisition is
// re-attempted, so concurrent waiters contend fairly for refilled tokens.
// Exceeding MaxWait fails with ErrRateLimited.
func (rl *RateLimiter) WaitN(ctx context.Context, n int) error {
	var deadline time.Time
	if rl.config.MaxWait > 0 {
		deadline = time.Now().Add(rl.config.MaxWait)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		deficit, ok := rl.reserve(n)
		if ok {
			return nil
		}

		wait := time.Duration(deficit / rl.config.Rate * float64(time.Second))
		if !deadline.IsZero() && time.Now().Add(wait).After(deadline) {
			return ErrRateLimited
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// Execute runs the operation once the rate limit admits it. Without
// WaitOnLimit an empty bucket fails immediately with ErrRateLimited.
func (rl *RateLimiter) Execute(ctx context.Context, op func(context.Context) error) error {
	if rl.config.WaitOnLimit {
		if err := rl.Wait(ctx); err != nil {
			return err
		}
	} else if !rl.Allow() {
		return ErrRateLimited
	}

	return op(ctx)
}

// reserve refills the bucket and consumes n tokens if available. On success
// it returns (0, true); otherwise it returns the outstanding token deficit.
func (rl *RateLimiter) reserve(n int) (float64, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillLocked()

	need := float64(n)
	if rl.tokens >= need {
		rl.tokens -= need
		return 0, true
	}
	return need - rl.tokens, false
}

func (rl *RateLimiter) refillLocked() {
	now := time.Now()
	elapsed := now.Sub(rl.lastRefill)
	rl.lastRefill = now

	rl.tokens += elapsed.Seconds() * rl.config.Rate
	if rl.tokens > float64(rl.config.Burst) {
		rl.tokens = float64(rl.config.Burst)
	}
}

// Tokens returns the current number of available tokens after refill.
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refillLocked()
	return rl.tokens
}

// Reset refills the bucket to capacity.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.tokens = float64(rl.config.Burst)
	rl.lastRefill = time.Now()
}
