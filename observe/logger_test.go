package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

// TestLogger_IncludesTaskFields verifies task fields are present in log output.
func TestLogger_IncludesTaskFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	meta := TaskMeta{
		Queue:    "uploads",
		TaskID:   "task-42",
		Priority: 5,
	}

	taskLogger := logger.WithTask(meta)
	taskLogger.Info(context.Background(), "test message")

	output := buf.String()

	// Parse JSON output
	var logEntry map[string]any
	if err := json.Unmarshal([]byte(output), &logEntry); err != nil {
		t.Fatalf("failed to parse log output as JSON: %v\nOutput: %s", err, output)
	}

	// Verify task fields
	if v, ok := logEntry["task.id"].(string); !ok || v != "task-42" {
		t.Errorf("expected task.id='task-42', got %v", logEntry["task.id"])
	}
	if v, ok := logEntry["queue"].(string); !ok || v != "uploads" {
		t.Errorf("expected queue='uploads', got %v", logEntry["queue"])
	}
	if v, ok := logEntry["task.priority"].(float64); !ok || v != 5 {
		t.Errorf("expected task.priority=5, got %v", logEntry["task.priority"])
	}
}

// TestLogger_IncludesDuration verifies duration_ms field is present.
func TestLogger_IncludesDuration(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	meta := TaskMeta{TaskID: "timed-task"}
	taskLogger := logger.WithTask(meta)

	taskLogger.Info(context.Background(), "test message",
		Field{Key: "duration_ms", Value: 50.5},
	)

	output := buf.String()

	var logEntry map[string]any
	if err := json.Unmarshal([]byte(output), &logEntry); err != nil {
		t.Fatalf("failed to parse log output as JSON: %v", err)
	}

	if v, ok := logEntry["duration_ms"].(float64); !ok || v != 50.5 {
		t.Errorf("expected duration_ms=50.5, got %v", logEntry["duration_ms"])
	}
}

// TestLogger_ErrorLevel verifies error log level and error field.
func TestLogger_ErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	meta := TaskMeta{TaskID: "failing-task"}
	taskLogger := logger.WithTask(meta)

	taskLogger.Error(context.Background(), "execution failed",
		Field{Key: "error", Value: "connection timeout"},
	)

	output := buf.String()

	var logEntry map[string]any
	if err := json.Unmarshal([]byte(output), &logEntry); err != nil {
		t.Fatalf("failed to parse log output as JSON: %v", err)
	}

	// Verify level
	if v, ok := logEntry["level"].(string); !ok || v != "error" {
		t.Errorf("expected level='error', got %v", logEntry["level"])
	}

	// Verify error field
	if v, ok := logEntry["error"].(string); !ok || v != "connection timeout" {
		t.Errorf("expected error='connection timeout', got %v", logEntry["error"])
	}
}

// TestLogger_PayloadRedacted verifies task payloads are not logged raw.
func TestLogger_PayloadRedacted(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	meta := TaskMeta{TaskID: "sensitive-task"}
	taskLogger := logger.WithTask(meta)

	taskLogger.Info(context.Background(), "task executed",
		Field{Key: "payload", Value: "secret_password_123"},
	)

	output := buf.String()

	// The raw payload value should NOT appear
	if strings.Contains(output, "secret_password_123") {
		t.Error("raw payload should be redacted, but found in output")
	}

	// Should contain redacted marker
	if !strings.Contains(output, "[REDACTED]") {
		t.Error("expected [REDACTED] marker in output")
	}
}

// TestLogger_LevelFiltering verifies log level filtering.
func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf)

	meta := TaskMeta{TaskID: "filtered-task"}
	taskLogger := logger.WithTask(meta)

	// Info should be filtered out
	taskLogger.Info(context.Background(), "info message")

	output := buf.String()
	if strings.Contains(output, "info message") {
		t.Error("info message should be filtered when level is warn")
	}

	// Warn should pass through
	taskLogger.Warn(context.Background(), "warn message")

	output = buf.String()
	if !strings.Contains(output, "warn message") {
		t.Error("warn message should pass through when level is warn")
	}
}

// TestLogger_DebugLevel verifies debug level filtering.
func TestLogger_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("debug", &buf)

	meta := TaskMeta{TaskID: "debug-task"}
	taskLogger := logger.WithTask(meta)

	taskLogger.Debug(context.Background(), "debug message")

	output := buf.String()

	var logEntry map[string]any
	if err := json.Unmarshal([]byte(output), &logEntry); err != nil {
		t.Fatalf("failed to parse log output as JSON: %v", err)
	}

	if v, ok := logEntry["level"].(string); !ok || v != "debug" {
		t.Errorf("expected level='debug', got %v", logEntry["level"])
	}
}

// TestLogger_AttemptIncluded verifies the attempt counter is included when set.
func TestLogger_AttemptIncluded(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	meta := TaskMeta{
		TaskID:  "retried-task",
		Attempt: 3,
	}
	taskLogger := logger.WithTask(meta)

	taskLogger.Info(context.Background(), "test")

	output := buf.String()

	var logEntry map[string]any
	if err := json.Unmarshal([]byte(output), &logEntry); err != nil {
		t.Fatalf("failed to parse log output as JSON: %v", err)
	}

	if v, ok := logEntry["task.attempt"].(float64); !ok || v != 3 {
		t.Errorf("expected task.attempt=3, got %v", logEntry["task.attempt"])
	}
}

// TestParseLogLevel verifies level parsing and the info default.
func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  LogLevel
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLogLevel(tt.input); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

// TestNopLogger verifies the no-op logger accepts all calls.
func TestNopLogger(t *testing.T) {
	logger := NopLogger()

	ctx := context.Background()
	logger.Info(ctx, "info")
	logger.Warn(ctx, "warn")
	logger.Error(ctx, "error")
	logger.Debug(ctx, "debug")

	scoped := logger.WithTask(TaskMeta{TaskID: "x"})
	if scoped == nil {
		t.Fatal("WithTask returned nil")
	}
	scoped.Info(ctx, "scoped info")
}
