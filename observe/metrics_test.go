package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

// TestMetrics_RecordTask verifies the counters and histogram.
func TestMetrics_RecordTask(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	ctx := context.Background()
	meta := TaskMeta{Queue: "uploads", TaskID: "t1"}

	metrics.RecordTask(ctx, meta, 10*time.Millisecond, nil)
	metrics.RecordTask(ctx, meta, 20*time.Millisecond, errors.New("boom"))

	rm := collectMetrics(t, reader)

	total, ok := findMetric(rm, "queue.tasks.total")
	if !ok {
		t.Fatal("queue.tasks.total not found")
	}
	sum, ok := total.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("queue.tasks.total has unexpected data type %T", total.Data)
	}
	var totalCount int64
	for _, dp := range sum.DataPoints {
		totalCount += dp.Value
	}
	if totalCount != 2 {
		t.Errorf("queue.tasks.total = %d, want 2", totalCount)
	}

	failed, ok := findMetric(rm, "queue.tasks.failed")
	if !ok {
		t.Fatal("queue.tasks.failed not found")
	}
	failedSum, ok := failed.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("queue.tasks.failed has unexpected data type %T", failed.Data)
	}
	var failedCount int64
	for _, dp := range failedSum.DataPoints {
		failedCount += dp.Value
	}
	if failedCount != 1 {
		t.Errorf("queue.tasks.failed = %d, want 1", failedCount)
	}

	if _, ok := findMetric(rm, "queue.task.duration_ms"); !ok {
		t.Error("queue.task.duration_ms not found")
	}
}

// TestMetrics_RecordDepth verifies the depth gauge records the latest value.
func TestMetrics_RecordDepth(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	ctx := context.Background()
	metrics.RecordDepth(ctx, "uploads", 7)
	metrics.RecordDepth(ctx, "uploads", 3)

	rm := collectMetrics(t, reader)

	depth, ok := findMetric(rm, "queue.depth")
	if !ok {
		t.Fatal("queue.depth not found")
	}
	gauge, ok := depth.Data.(metricdata.Gauge[int64])
	if !ok {
		t.Fatalf("queue.depth has unexpected data type %T", depth.Data)
	}
	if len(gauge.DataPoints) != 1 {
		t.Fatalf("queue.depth data points = %d, want 1", len(gauge.DataPoints))
	}
	if gauge.DataPoints[0].Value != 3 {
		t.Errorf("queue.depth = %d, want 3", gauge.DataPoints[0].Value)
	}
}

// TestNopMetrics verifies the no-op implementation accepts all calls.
func TestNopMetrics(t *testing.T) {
	metrics := NopMetrics()

	ctx := context.Background()
	metrics.RecordTask(ctx, TaskMeta{TaskID: "x"}, time.Second, nil)
	metrics.RecordTask(ctx, TaskMeta{TaskID: "x"}, time.Second, errors.New("boom"))
	metrics.RecordDepth(ctx, "q", 10)
}
