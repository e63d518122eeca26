package mqttlite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeepAliveTracker(t *testing.T) {
	t.Run("ping due after a silent interval", func(t *testing.T) {
		clock := newFakeClock()
		k := NewKeepAliveTracker(clock, 10)
		assert.Equal(t, 10*time.Second, k.Interval())
		assert.False(t, k.PingDue())

		clock.Sleep(9 * time.Second)
		assert.False(t, k.PingDue())

		clock.Sleep(time.Second)
		assert.True(t, k.PingDue())

		k.Sent()
		assert.False(t, k.PingDue())
	})

	t.Run("expired after grace", func(t *testing.T) {
		clock := newFakeClock()
		k := NewKeepAliveTracker(clock, 10)

		clock.Sleep(15 * time.Second)
		assert.False(t, k.Expired())
		clock.Sleep(time.Millisecond)
		assert.True(t, k.Expired())

		k.Received()
		assert.False(t, k.Expired())
	})

	t.Run("custom grace factor", func(t *testing.T) {
		clock := newFakeClock()
		k := NewKeepAliveTracker(clock, 10)
		k.SetGraceFactor(2)

		clock.Sleep(20 * time.Second)
		assert.False(t, k.Expired())

		deadline, ok := k.Deadline()
		require.True(t, ok)
		assert.Equal(t, clock.Now(), deadline)
	})

	t.Run("grace factor below one", func(t *testing.T) {
		clock := newFakeClock()
		k := NewKeepAliveTracker(clock, 10)
		k.SetGraceFactor(0.1)

		clock.Sleep(10 * time.Second)
		assert.False(t, k.Expired())
		clock.Sleep(time.Second)
		assert.True(t, k.Expired())
	})

	t.Run("server override", func(t *testing.T) {
		clock := newFakeClock()
		k := NewKeepAliveTracker(clock, 60)
		k.SetServerOverride(5)
		assert.Equal(t, 5*time.Second, k.Interval())

		clock.Sleep(5 * time.Second)
		assert.True(t, k.PingDue())

		k.Reset(60)
		assert.Equal(t, 60*time.Second, k.Interval())
		assert.False(t, k.PingDue())
	})

	t.Run("zero disables", func(t *testing.T) {
		clock := newFakeClock()
		k := NewKeepAliveTracker(clock, 0)

		clock.Sleep(time.Hour)
		assert.False(t, k.PingDue())
		assert.False(t, k.Expired())

		_, ok := k.Deadline()
		assert.False(t, ok)
	})

	t.Run("nil clock", func(t *testing.T) {
		k := NewKeepAliveTracker(nil, 30)
		assert.False(t, k.PingDue())
		assert.False(t, k.Expired())
	})
}
