package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records task scheduling metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordTask records a task execution with duration and error status.
	RecordTask(ctx context.Context, meta TaskMeta, duration time.Duration, err error)

	// RecordDepth records the number of tasks pending in a queue.
	RecordDepth(ctx context.Context, queue string, depth int)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter        metric.Meter
	totalCount   metric.Int64Counter
	failedCount  metric.Int64Counter
	durationHist metric.Float64Histogram
	depthGauge   metric.Int64Gauge
}

// NewMetrics creates a Metrics instance recording through the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		"queue.tasks.total",
		metric.WithDescription("Total number of task executions"),
		metric.WithUnit("{task}"),
	)
	if err != nil {
		return nil, err
	}

	failedCount, err := meter.Int64Counter(
		"queue.tasks.failed",
		metric.WithDescription("Total number of failed task executions"),
		metric.WithUnit("{task}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"queue.task.duration_ms",
		metric.WithDescription("Task execution duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	depthGauge, err := meter.Int64Gauge(
		"queue.depth",
		metric.WithDescription("Number of pending tasks in the queue"),
		metric.WithUnit("{task}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:        meter,
		totalCount:   totalCount,
		failedCount:  failedCount,
		durationHist: durationHist,
		depthGauge:   depthGauge,
	}, nil
}

// RecordTask records metrics for one task execution. Task ids are
// unbounded, so only the queue name becomes a metric attribute.
func (m *metricsImpl) RecordTask(ctx context.Context, meta TaskMeta, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("queue", meta.Queue),
	}

	opt := metric.WithAttributes(attrs...)

	// Always increment total counter
	m.totalCount.Add(ctx, 1, opt)

	// Increment failure counter on error
	if err != nil {
		m.failedCount.Add(ctx, 1, opt)
	}

	// Record duration in milliseconds
	durationMs := float64(duration.Milliseconds())
	m.durationHist.Record(ctx, durationMs, opt)
}

// RecordDepth records the current pending-task count of a queue.
func (m *metricsImpl) RecordDepth(ctx context.Context, queue string, depth int) {
	m.depthGauge.Record(ctx, int64(depth),
		metric.WithAttributes(attribute.String("queue", queue)))
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (m *noopMetrics) RecordTask(ctx context.Context, meta TaskMeta, duration time.Duration, err error) {
}

func (m *noopMetrics) RecordDepth(ctx context.Context, queue string, depth int) {}

// NopMetrics returns a Metrics that discards everything.
func NopMetrics() Metrics {
	return &noopMetrics{}
}
