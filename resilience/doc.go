// Package resilience provides resilience patterns for deferred operations.
//
// This package implements the failure-handling building blocks used by the
// task queue: callers wrap an operation (typically a network request) so that
// transient failures are retried, failing downstreams are circuit-broken, and
// request rates stay within agreed limits. Each pattern stands alone and they
// compose into a single guarded call chain.
//
// # Patterns
//
// The package provides the following patterns:
//
//   - Backoff: a pure attempt-to-delay calculator (exponential, linear,
//     constant) with optional bounded jitter.
//
//   - Retry: re-runs a failed operation according to a retry condition,
//     sleeping between attempts per the backoff schedule.
//
//   - Circuit Breaker: stops calling a failing downstream after a failure
//     threshold, probing it again after a cooldown.
//
//   - Rate Limiter: token-bucket admission control in front of an operation.
//
//   - Bulkhead: caps concurrent operations to prevent resource exhaustion.
//
//   - Timeout: bounds the duration of a single attempt.
//
// # Usage
//
// Each pattern can be used independently or composed together:
//
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    FailureThreshold: 5,
//	    ResetTimeout:     30 * time.Second,
//	})
//
//	retry := resilience.NewRetry(resilience.RetryConfig{
//	    MaxRetries: 3,
//	    Backoff: resilience.Backoff{
//	        InitialDelay: 100 * time.Millisecond,
//	        Multiplier:   2.0,
//	        MaxDelay:     5 * time.Second,
//	    },
//	})
//
//	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{
//	    Rate:  10, // requests per second
//	    Burst: 20,
//	})
//
//	guard := resilience.NewExecutor(
//	    resilience.WithRateLimiter(rl),
//	    resilience.WithCircuitBreaker(cb),
//	    resilience.WithRetry(retry),
//	)
//
//	err := guard.Execute(ctx, func(ctx context.Context) error {
//	    return callDownstream(ctx)
//	})
//
// The composition order is explicit because it changes semantics: with the
// circuit breaker outside retry, an open circuit rejects the whole call; with
// it inside, every retry attempt is individually gated and a rejection counts
// against the retry budget.
package resilience
