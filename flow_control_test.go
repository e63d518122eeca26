package mqttlite

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlowController(t *testing.T) {
	t.Run("acquire up to maximum", func(t *testing.T) {
		f := NewFlowController(2)
		assert.Equal(t, uint16(2), f.Available())

		assert.True(t, f.TryAcquire())
		assert.True(t, f.TryAcquire())
		assert.False(t, f.TryAcquire())
		assert.Equal(t, uint16(2), f.InFlight())
		assert.Zero(t, f.Available())

		f.Release()
		assert.Equal(t, uint16(1), f.Available())
		assert.True(t, f.TryAcquire())
	})

	t.Run("zero means protocol default", func(t *testing.T) {
		f := NewFlowController(0)
		assert.Equal(t, uint16(65535), f.ReceiveMaximum())

		f.Reset(0)
		assert.Equal(t, uint16(65535), f.ReceiveMaximum())
	})

	t.Run("release never underflows", func(t *testing.T) {
		f := NewFlowController(1)
		f.Release()
		assert.Zero(t, f.InFlight())
		assert.True(t, f.TryAcquire())
	})

	t.Run("reset clears in flight", func(t *testing.T) {
		f := NewFlowController(1)
		assert.True(t, f.TryAcquire())

		f.Reset(3)
		assert.Equal(t, uint16(3), f.ReceiveMaximum())
		assert.Zero(t, f.InFlight())
	})

	t.Run("concurrent acquire", func(t *testing.T) {
		f := NewFlowController(50)

		var mu sync.Mutex
		granted := 0
		var wg sync.WaitGroup
		for range 100 {
			wg.Go(func() {
				if f.TryAcquire() {
					mu.Lock()
					granted++
					mu.Unlock()
				}
			})
		}
		wg.Wait()

		assert.Equal(t, 50, granted)
		assert.Equal(t, uint16(50), f.InFlight())
	})
}
