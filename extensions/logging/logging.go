// Package logging adapts zap, logrus and slog loggers to mqttlite.Logger.
//
// Every adapter filters by its own mqttlite.LogLevel before handing a record
// to the backend, so SetLevel works the same for all of them. Loggers
// derived with WithFields share the level of their parent.
package logging

import (
	"maps"
	"slices"
	"sync/atomic"

	"github.com/vitalvas/mqttlite"
)

type level struct {
	v atomic.Int32
}

func newLevel(l mqttlite.LogLevel) *level {
	lv := &level{}
	lv.set(l)
	return lv
}

func (l *level) get() mqttlite.LogLevel {
	return mqttlite.LogLevel(l.v.Load())
}

func (l *level) set(v mqttlite.LogLevel) {
	l.v.Store(int32(v))
}

func (l *level) enabled(v mqttlite.LogLevel) bool {
	cur := l.get()
	return cur != mqttlite.LogLevelNone && v >= cur
}

// sortedKeys keeps field order stable between records.
func sortedKeys(fields mqttlite.LogFields) []string {
	return slices.Sorted(maps.Keys(fields))
}
