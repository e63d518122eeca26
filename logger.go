package mqttlite

import (
	"fmt"
	"io"
	"log"
	"maps"
	"os"
	"slices"
	"strings"
	"sync/atomic"
)

// LogLevel represents the logging level.
type LogLevel int

const (
	// LogLevelDebug is the debug log level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the info log level.
	LogLevelInfo
	// LogLevelWarn is the warn log level.
	LogLevelWarn
	// LogLevelError is the error log level.
	LogLevelError
	// LogLevelNone disables all logging.
	LogLevelNone
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	case LogLevelNone:
		return "NONE"
	default:
		return "UNKNOWN"
	}
}

// LogFields represents key-value pairs for structured logging.
type LogFields map[string]any

// Logger defines the interface for logging.
type Logger interface {
	// Debug logs a debug message.
	Debug(msg string, fields LogFields)

	// Info logs an info message.
	Info(msg string, fields LogFields)

	// Warn logs a warning message.
	Warn(msg string, fields LogFields)

	// Error logs an error message.
	Error(msg string, fields LogFields)

	// WithFields returns a new logger with the given fields added.
	WithFields(fields LogFields) Logger

	// Level returns the current log level.
	Level() LogLevel

	// SetLevel sets the log level.
	SetLevel(level LogLevel)
}

// NoOpLogger is a logger that does nothing.
type NoOpLogger struct {
	level LogLevel
}

// NewNoOpLogger creates a new no-op logger.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{level: LogLevelNone}
}

// Debug does nothing.
func (n *NoOpLogger) Debug(_ string, _ LogFields) {}

// Info does nothing.
func (n *NoOpLogger) Info(_ string, _ LogFields) {}

// Warn does nothing.
func (n *NoOpLogger) Warn(_ string, _ LogFields) {}

// Error does nothing.
func (n *NoOpLogger) Error(_ string, _ LogFields) {}

// WithFields returns the same logger.
func (n *NoOpLogger) WithFields(_ LogFields) Logger {
	return n
}

// Level returns the log level.
func (n *NoOpLogger) Level() LogLevel {
	return n.level
}

// SetLevel sets the log level.
func (n *NoOpLogger) SetLevel(level LogLevel) {
	n.level = level
}

// StdLogger writes one line per entry through the standard log package:
// the level, the message, then the fields as key=value pairs sorted by key.
// Loggers derived with WithFields share the level of their parent.
type StdLogger struct {
	logger *log.Logger
	level  *atomic.Int32
	fields LogFields
}

// NewStdLogger creates a logger writing to w, or to stderr when w is nil.
func NewStdLogger(w io.Writer, level LogLevel) *StdLogger {
	if w == nil {
		w = os.Stderr
	}
	s := &StdLogger{
		logger: log.New(w, "", log.LstdFlags),
		level:  new(atomic.Int32),
	}
	s.level.Store(int32(level))
	return s
}

// Debug logs a debug message.
func (s *StdLogger) Debug(msg string, fields LogFields) { s.log(LogLevelDebug, msg, fields) }

// Info logs an info message.
func (s *StdLogger) Info(msg string, fields LogFields) { s.log(LogLevelInfo, msg, fields) }

// Warn logs a warning message.
func (s *StdLogger) Warn(msg string, fields LogFields) { s.log(LogLevelWarn, msg, fields) }

// Error logs an error message.
func (s *StdLogger) Error(msg string, fields LogFields) { s.log(LogLevelError, msg, fields) }

// WithFields returns a logger that adds fields to every entry.
func (s *StdLogger) WithFields(fields LogFields) Logger {
	return &StdLogger{
		logger: s.logger,
		level:  s.level,
		fields: mergeFields(s.fields, fields),
	}
}

// Level returns the current log level.
func (s *StdLogger) Level() LogLevel {
	return LogLevel(s.level.Load())
}

// SetLevel sets the log level.
func (s *StdLogger) SetLevel(level LogLevel) {
	s.level.Store(int32(level))
}

func (s *StdLogger) log(level LogLevel, msg string, fields LogFields) {
	if level < s.Level() || s.Level() == LogLevelNone {
		return
	}

	var b strings.Builder
	b.WriteString("[")
	b.WriteString(level.String())
	b.WriteString("] ")
	b.WriteString(msg)

	all := mergeFields(s.fields, fields)
	for _, k := range slices.Sorted(maps.Keys(all)) {
		fmt.Fprintf(&b, " %s=%v", k, all[k])
	}
	s.logger.Print(b.String())
}

func mergeFields(base, extra LogFields) LogFields {
	merged := make(LogFields, len(base)+len(extra))
	maps.Copy(merged, base)
	maps.Copy(merged, extra)
	return merged
}

// Standard field names used by the client.
const (
	LogFieldClientID   = "client_id"
	LogFieldTopic      = "topic"
	LogFieldPacketID   = "packet_id"
	LogFieldPacketType = "packet_type"
	LogFieldQoS        = "qos"
	LogFieldReasonCode = "reason_code"
	LogFieldError      = "error"
	LogFieldBytes      = "bytes"
	LogFieldKind       = "kind"
	LogFieldState      = "state"
	LogFieldPending    = "pending"
)

// ParseLogLevel parses a level name such as "debug" or "WARN".
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LogLevelDebug, nil
	case "INFO", "":
		return LogLevelInfo, nil
	case "WARN", "WARNING":
		return LogLevelWarn, nil
	case "ERROR":
		return LogLevelError, nil
	case "NONE", "OFF":
		return LogLevelNone, nil
	default:
		return LogLevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
