package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vitalvas/mqttlite"
)

// ZapLogger is a mqttlite.Logger writing to a zap logger.
type ZapLogger struct {
	logger *zap.Logger
	level  *level
}

// NewZap wraps l. Records below lvl are dropped before reaching zap.
func NewZap(l *zap.Logger, lvl mqttlite.LogLevel) *ZapLogger {
	return &ZapLogger{logger: l, level: newLevel(lvl)}
}

func zapFields(fields mqttlite.LogFields) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for _, k := range sortedKeys(fields) {
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}

// Debug logs a debug message.
func (z *ZapLogger) Debug(msg string, fields mqttlite.LogFields) {
	if z.level.enabled(mqttlite.LogLevelDebug) {
		z.logger.Debug(msg, zapFields(fields)...)
	}
}

// Info logs an info message.
func (z *ZapLogger) Info(msg string, fields mqttlite.LogFields) {
	if z.level.enabled(mqttlite.LogLevelInfo) {
		z.logger.Info(msg, zapFields(fields)...)
	}
}

// Warn logs a warning message.
func (z *ZapLogger) Warn(msg string, fields mqttlite.LogFields) {
	if z.level.enabled(mqttlite.LogLevelWarn) {
		z.logger.Warn(msg, zapFields(fields)...)
	}
}

// Error logs an error message.
func (z *ZapLogger) Error(msg string, fields mqttlite.LogFields) {
	if z.level.enabled(mqttlite.LogLevelError) {
		z.logger.Error(msg, zapFields(fields)...)
	}
}

// WithFields returns a logger adding fields to every record.
func (z *ZapLogger) WithFields(fields mqttlite.LogFields) mqttlite.Logger {
	return &ZapLogger{logger: z.logger.With(zapFields(fields)...), level: z.level}
}

// Level returns the current log level.
func (z *ZapLogger) Level() mqttlite.LogLevel {
	return z.level.get()
}

// SetLevel sets the log level.
func (z *ZapLogger) SetLevel(lvl mqttlite.LogLevel) {
	z.level.set(lvl)
}

// Sync flushes buffered records.
func (z *ZapLogger) Sync() error {
	return z.logger.Sync()
}

func zapLevel(l mqttlite.LogLevel) zapcore.Level {
	switch l {
	case mqttlite.LogLevelDebug:
		return zapcore.DebugLevel
	case mqttlite.LogLevelWarn:
		return zapcore.WarnLevel
	case mqttlite.LogLevelError, mqttlite.LogLevelNone:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// FromConfig builds a zap backed logger writing to stderr in the configured
// format.
func FromConfig(cfg mqttlite.LogConfig) (*ZapLogger, error) {
	lvl, err := mqttlite.ParseLogLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	zc.DisableStacktrace = true
	zc.Level = zap.NewAtomicLevelAt(zapLevel(lvl))
	zc.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder

	switch cfg.Format {
	case "", mqttlite.LogFormatConsole:
		zc.Encoding = "console"
	case mqttlite.LogFormatJSON:
		zc.Encoding = "json"
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("building zap logger: %w", err)
	}
	return NewZap(l, lvl), nil
}
