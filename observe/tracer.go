package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// TaskMeta contains metadata about a scheduled task for telemetry purposes.
type TaskMeta struct {
	Queue    string // Queue name (may be empty)
	TaskID   string // Task id (required)
	Priority int    // Scheduling priority
	Attempt  int    // Body invocation count, 1-based (0 when unknown)
}

// SpanName returns the deterministic span name for this task. Task ids are
// often generated and unbounded, so they go into attributes, not the span
// name. Format: queue.task.<queue> or queue.task
func (m TaskMeta) SpanName() string {
	if m.Queue != "" {
		return "queue.task." + m.Queue
	}
	return "queue.task"
}

// Tracer wraps OpenTelemetry tracing with task-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: StartSpan must honor cancellation/deadlines and return ctx.Err() when canceled.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for task execution.
	StartSpan(ctx context.Context, meta TaskMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// newTracer creates a new Tracer wrapping the given OpenTelemetry tracer.
func newTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with task metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta TaskMeta) (context.Context, trace.Span) {
	spanName := meta.SpanName()

	// Build attributes
	attrs := []attribute.KeyValue{
		attribute.String("task.id", meta.TaskID),
		attribute.Int("task.priority", meta.Priority),
		attribute.Bool("task.error", false), // Will be updated in EndSpan if error
	}

	// Add optional attributes if present
	if meta.Queue != "" {
		attrs = append(attrs, attribute.String("queue", meta.Queue))
	}
	if meta.Attempt > 0 {
		attrs = append(attrs, attribute.Int("task.attempt", meta.Attempt))
	}

	ctx, span := t.tracer.Start(ctx, spanName,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)

	return ctx, span
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("task.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// noopTracer is a tracer that does nothing.
type noopTracer struct {
	noop trace.Tracer
}

// newNoopTracer creates a no-op tracer.
func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta TaskMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
