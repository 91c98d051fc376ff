package observe

import (
	"context"
	"time"
)

// BodyFunc is the signature for task body functions the Middleware wraps.
// It matches the body type accepted by the queue, so a wrapped body can be
// submitted directly.
type BodyFunc func(ctx context.Context) (any, error)

// Middleware wraps task execution with observability (tracing, metrics, logging).
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe BodyFunc.
//   - Context: Propagates context through tracing spans.
//   - Errors: Errors from the wrapped body are recorded and propagated unchanged.
//   - Ownership: Results are passed through without modification.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Wrap wraps a task body with tracing, metrics, and logging under the given
// task identity.
func (m *Middleware) Wrap(meta TaskMeta, fn BodyFunc) BodyFunc {
	return func(ctx context.Context) (any, error) {
		// Start span
		ctx, span := m.tracer.StartSpan(ctx, meta)

		// Record start time
		start := time.Now()

		// Execute the body
		result, err := fn(ctx)

		// Calculate duration
		duration := time.Since(start)

		// End span (records error status if err != nil)
		m.tracer.EndSpan(span, err)

		// Record metrics
		m.metrics.RecordTask(ctx, meta, duration, err)

		// Log the execution
		taskLogger := m.logger.WithTask(meta)
		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}

		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			taskLogger.Error(ctx, "task execution failed", fields...)
		} else {
			taskLogger.Info(ctx, "task execution completed", fields...)
		}

		return result, err
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
// This is a convenience function for common use cases.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	tracer := newTracer(obs.Tracer())

	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(tracer, metrics, obs.Logger()), nil
}
