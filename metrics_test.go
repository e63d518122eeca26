package mqttlite

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryMetrics(t *testing.T) {
	t.Run("counter", func(t *testing.T) {
		m := NewMemoryMetrics()
		c := m.Counter("c", MetricLabels{"a": "1"})
		c.Inc()
		c.Add(2.5)

		assert.Equal(t, 3.5, m.CounterValue("c", MetricLabels{"a": "1"}))
		assert.Zero(t, m.CounterValue("c", MetricLabels{"a": "2"}))
		assert.Same(t, c, m.Counter("c", MetricLabels{"a": "1"}))
	})

	t.Run("gauge", func(t *testing.T) {
		m := NewMemoryMetrics()
		g := m.Gauge("g", nil)
		g.Set(10)
		g.Add(-3)
		assert.Equal(t, 7.0, m.GaugeValue("g", nil))
	})

	t.Run("histogram", func(t *testing.T) {
		m := NewMemoryMetrics()
		h := m.Histogram("h", nil)
		h.Observe(1.5)
		h.ObserveDuration(500 * time.Millisecond)

		assert.Equal(t, uint64(2), m.HistogramCount("h", nil))
		assert.Equal(t, 2.0, h.Sum())
	})

	t.Run("kinds do not collide", func(t *testing.T) {
		m := NewMemoryMetrics()
		m.Counter("x", nil).Inc()
		m.Gauge("x", nil).Set(5)
		assert.Equal(t, 1.0, m.CounterValue("x", nil))
		assert.Equal(t, 5.0, m.GaugeValue("x", nil))
	})

	t.Run("label order does not matter", func(t *testing.T) {
		m := NewMemoryMetrics()
		m.Counter("c", MetricLabels{"a": "1", "b": "2"}).Inc()
		m.Counter("c", MetricLabels{"b": "2", "a": "1"}).Inc()
		assert.Equal(t, 2.0, m.CounterValue("c", MetricLabels{"a": "1", "b": "2"}))
	})

	t.Run("concurrent adds", func(t *testing.T) {
		m := NewMemoryMetrics()
		var wg sync.WaitGroup
		for range 10 {
			wg.Go(func() {
				for range 100 {
					m.Counter("c", nil).Inc()
				}
			})
		}
		wg.Wait()
		assert.Equal(t, 1000.0, m.CounterValue("c", nil))
	})
}

func TestMemoryMetricsSnapshot(t *testing.T) {
	m := NewMemoryMetrics()
	m.Gauge("b_gauge", nil).Set(2)
	m.Counter("a_counter", MetricLabels{"k": "v"}).Add(3)
	m.Histogram("c_hist", nil).Observe(4)

	snap := m.Snapshot()
	require.Len(t, snap, 3)

	assert.Equal(t, MetricSample{Name: "a_counter", Labels: MetricLabels{"k": "v"}, Type: MetricTypeCounter, Value: 3}, snap[0])
	assert.Equal(t, MetricSample{Name: "b_gauge", Type: MetricTypeGauge, Value: 2}, snap[1])
	assert.Equal(t, MetricSample{Name: "c_hist", Type: MetricTypeHistogram, Value: 4, Count: 1}, snap[2])
}

func TestNoOpMetrics(t *testing.T) {
	m := &NoOpMetrics{}
	m.Counter("c", nil).Inc()
	m.Gauge("g", nil).Set(1)
	m.Histogram("h", nil).Observe(1)

	assert.Zero(t, m.Counter("c", nil).Value())
	assert.Zero(t, m.Gauge("g", nil).Value())
	assert.Zero(t, m.Histogram("h", nil).Count())
}

func TestClientMetrics(t *testing.T) {
	m := NewMemoryMetrics()
	cm := NewClientMetrics(m)

	cm.PacketSent(PacketPUBLISH, 10)
	cm.PacketSent(PacketPUBLISH, 5)
	cm.MessageReceived(1)
	cm.Truncated(TruncatedPayload, 7)
	cm.PendingChanged(3)
	cm.AckLatency(time.Second)
	cm.FailedAck(ReasonQuotaExceeded)

	assert.Equal(t, 2.0, m.CounterValue(MetricPacketsSent, MetricLabels{LabelPacketType: "PUBLISH"}))
	assert.Equal(t, 15.0, m.CounterValue(MetricBytesSent, nil))
	assert.Equal(t, 1.0, m.CounterValue(MetricMessagesReceived, MetricLabels{LabelQoS: "1"}))
	assert.Equal(t, 7.0, m.CounterValue(MetricTruncatedBytes, MetricLabels{LabelKind: "payload"}))
	assert.Equal(t, 3.0, m.GaugeValue(MetricPending, nil))
	assert.Equal(t, uint64(1), m.HistogramCount(MetricAckLatency, nil))
	assert.Equal(t, 1.0, m.CounterValue(MetricFailedAcks, MetricLabels{LabelReasonCode: "Quota exceeded"}))

	assert.NotPanics(t, func() { NewClientMetrics(nil).QoS2Dropped() })
}

func TestMetricTypeString(t *testing.T) {
	assert.Equal(t, "counter", MetricTypeCounter.String())
	assert.Equal(t, "gauge", MetricTypeGauge.String())
	assert.Equal(t, "histogram", MetricTypeHistogram.String())
	assert.Equal(t, "unknown", MetricType(9).String())
}
