package observe

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

// LogLevel represents a logging level.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLogLevel parses a string log level.
func ParseLogLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// structuredLogger is a JSON structured logger implementation.
type structuredLogger struct {
	level     LogLevel
	writer    io.Writer
	mu        sync.Mutex
	taskMeta  *TaskMeta
	baseAttrs map[string]any
}

// NewLogger creates a new structured logger with the given level.
func NewLogger(level string) Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter creates a new structured logger with a custom writer.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	return &structuredLogger{
		level:     ParseLogLevel(level),
		writer:    w,
		baseAttrs: make(map[string]any),
	}
}

// WithTask returns a logger with task context attached.
func (l *structuredLogger) WithTask(meta TaskMeta) Logger {
	attrs := make(map[string]any, len(l.baseAttrs)+4)
	for k, v := range l.baseAttrs {
		attrs[k] = v
	}

	attrs["task.id"] = meta.TaskID
	attrs["task.priority"] = meta.Priority
	if meta.Queue != "" {
		attrs["queue"] = meta.Queue
	}
	if meta.Attempt > 0 {
		attrs["task.attempt"] = meta.Attempt
	}

	return &structuredLogger{
		level:     l.level,
		writer:    l.writer,
		taskMeta:  &meta,
		baseAttrs: attrs,
	}
}

func (l *structuredLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelInfo, msg, fields)
}

func (l *structuredLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelWarn, msg, fields)
}

func (l *structuredLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelError, msg, fields)
}

func (l *structuredLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelDebug, msg, fields)
}

func (l *structuredLogger) log(ctx context.Context, level LogLevel, msg string, fields []Field) {
	// Filter by level
	if level < l.level {
		return
	}

	// Build log entry
	entry := make(map[string]any, len(l.baseAttrs)+len(fields)+3)

	// Add timestamp and level
	entry["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["msg"] = msg

	// Add base attributes (task context)
	for k, v := range l.baseAttrs {
		entry[k] = v
	}

	// Add fields (with payload redaction)
	for _, f := range fields {
		if isRedactedField(f.Key) {
			entry[f.Key] = "[REDACTED]"
		} else {
			entry[f.Key] = f.Value
		}
	}

	// Serialize and write
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return // Silently drop malformed log entries
	}

	l.writer.Write(data)
	l.writer.Write([]byte("\n"))
}

// isRedactedField returns true if the field should be redacted. Task
// payloads and results are application data and may carry credentials.
func isRedactedField(key string) bool {
	redactedKeys := map[string]bool{
		"payload":    true,
		"result":     true,
		"password":   true,
		"secret":     true,
		"token":      true,
		"api_key":    true,
		"apiKey":     true,
		"credential": true,
	}
	return redactedKeys[key]
}

// ExtendedLogger extends Logger with WithTask for creating task-scoped loggers.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Ownership: WithTask returns a logger bound to TaskMeta; returned logger may share state.
type ExtendedLogger interface {
	Logger
	WithTask(meta TaskMeta) Logger
}

// Ensure structuredLogger implements ExtendedLogger
var _ ExtendedLogger = (*structuredLogger)(nil)
