package logging

import (
	"context"
	"log/slog"

	"github.com/vitalvas/mqttlite"
)

// SlogLogger is a mqttlite.Logger writing to a log/slog logger.
type SlogLogger struct {
	logger *slog.Logger
	level  *level
}

// NewSlog wraps l. Records below lvl are dropped before reaching the handler.
func NewSlog(l *slog.Logger, lvl mqttlite.LogLevel) *SlogLogger {
	return &SlogLogger{logger: l, level: newLevel(lvl)}
}

func slogAttrs(fields mqttlite.LogFields) []slog.Attr {
	if len(fields) == 0 {
		return nil
	}
	out := make([]slog.Attr, 0, len(fields))
	for _, k := range sortedKeys(fields) {
		out = append(out, slog.Any(k, fields[k]))
	}
	return out
}

func (s *SlogLogger) log(lvl mqttlite.LogLevel, sl slog.Level, msg string, fields mqttlite.LogFields) {
	if s.level.enabled(lvl) {
		s.logger.LogAttrs(context.Background(), sl, msg, slogAttrs(fields)...)
	}
}

// Debug logs a debug message.
func (s *SlogLogger) Debug(msg string, fields mqttlite.LogFields) {
	s.log(mqttlite.LogLevelDebug, slog.LevelDebug, msg, fields)
}

// Info logs an info message.
func (s *SlogLogger) Info(msg string, fields mqttlite.LogFields) {
	s.log(mqttlite.LogLevelInfo, slog.LevelInfo, msg, fields)
}

// Warn logs a warning message.
func (s *SlogLogger) Warn(msg string, fields mqttlite.LogFields) {
	s.log(mqttlite.LogLevelWarn, slog.LevelWarn, msg, fields)
}

// Error logs an error message.
func (s *SlogLogger) Error(msg string, fields mqttlite.LogFields) {
	s.log(mqttlite.LogLevelError, slog.LevelError, msg, fields)
}

// WithFields returns a logger adding fields to every record.
func (s *SlogLogger) WithFields(fields mqttlite.LogFields) mqttlite.Logger {
	args := make([]any, 0, len(fields))
	for _, a := range slogAttrs(fields) {
		args = append(args, a)
	}
	return &SlogLogger{logger: s.logger.With(args...), level: s.level}
}

// Level returns the current log level.
func (s *SlogLogger) Level() mqttlite.LogLevel {
	return s.level.get()
}

// SetLevel sets the log level.
func (s *SlogLogger) SetLevel(lvl mqttlite.LogLevel) {
	s.level.set(lvl)
}
