package logging

import (
	"github.com/sirupsen/logrus"

	"github.com/vitalvas/mqttlite"
)

// LogrusLogger is a mqttlite.Logger writing to a logrus logger.
type LogrusLogger struct {
	entry *logrus.Entry
	level *level
}

// NewLogrus wraps l. Records below lvl are dropped before reaching logrus.
func NewLogrus(l *logrus.Logger, lvl mqttlite.LogLevel) *LogrusLogger {
	return &LogrusLogger{entry: logrus.NewEntry(l), level: newLevel(lvl)}
}

func (l *LogrusLogger) with(fields mqttlite.LogFields) *logrus.Entry {
	if len(fields) == 0 {
		return l.entry
	}
	return l.entry.WithFields(logrus.Fields(fields))
}

// Debug logs a debug message.
func (l *LogrusLogger) Debug(msg string, fields mqttlite.LogFields) {
	if l.level.enabled(mqttlite.LogLevelDebug) {
		l.with(fields).Debug(msg)
	}
}

// Info logs an info message.
func (l *LogrusLogger) Info(msg string, fields mqttlite.LogFields) {
	if l.level.enabled(mqttlite.LogLevelInfo) {
		l.with(fields).Info(msg)
	}
}

// Warn logs a warning message.
func (l *LogrusLogger) Warn(msg string, fields mqttlite.LogFields) {
	if l.level.enabled(mqttlite.LogLevelWarn) {
		l.with(fields).Warn(msg)
	}
}

// Error logs an error message.
func (l *LogrusLogger) Error(msg string, fields mqttlite.LogFields) {
	if l.level.enabled(mqttlite.LogLevelError) {
		l.with(fields).Error(msg)
	}
}

// WithFields returns a logger adding fields to every record.
func (l *LogrusLogger) WithFields(fields mqttlite.LogFields) mqttlite.Logger {
	return &LogrusLogger{entry: l.with(fields), level: l.level}
}

// Level returns the current log level.
func (l *LogrusLogger) Level() mqttlite.LogLevel {
	return l.level.get()
}

// SetLevel sets the log level.
func (l *LogrusLogger) SetLevel(lvl mqttlite.LogLevel) {
	l.level.set(lvl)
}
