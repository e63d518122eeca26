package mqttlite

import (
	"maps"
	"math"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryMetrics keeps every series in memory. It backs tests and the
// summary the example client prints on exit.
type MemoryMetrics struct {
	mu     sync.Mutex
	series map[string]*memorySeries
}

// MetricSample is one series as returned by Snapshot. For histograms Value
// is the sum of observations.
type MetricSample struct {
	Name   string
	Labels MetricLabels
	Type   MetricType
	Value  float64
	Count  uint64
}

// NewMemoryMetrics creates an empty in-memory backend.
func NewMemoryMetrics() *MemoryMetrics {
	return &MemoryMetrics{series: make(map[string]*memorySeries)}
}

func seriesKey(t MetricType, name string, labels MetricLabels) string {
	var b strings.Builder
	b.WriteString(t.String())
	b.WriteByte(':')
	b.WriteString(name)
	for _, k := range slices.Sorted(maps.Keys(labels)) {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
	}
	return b.String()
}

func (m *MemoryMetrics) get(t MetricType, name string, labels MetricLabels) *memorySeries {
	key := seriesKey(t, name, labels)

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.series[key]
	if !ok {
		s = &memorySeries{name: name, labels: maps.Clone(labels), kind: t}
		m.series[key] = s
	}
	return s
}

func (m *MemoryMetrics) lookup(t MetricType, name string, labels MetricLabels) *memorySeries {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.series[seriesKey(t, name, labels)]
}

// Counter returns the counter series, creating it on first use.
func (m *MemoryMetrics) Counter(name string, labels MetricLabels) Counter {
	return m.get(MetricTypeCounter, name, labels)
}

// Gauge returns the gauge series, creating it on first use.
func (m *MemoryMetrics) Gauge(name string, labels MetricLabels) Gauge {
	return m.get(MetricTypeGauge, name, labels)
}

// Histogram returns the histogram series, creating it on first use.
func (m *MemoryMetrics) Histogram(name string, labels MetricLabels) Histogram {
	return m.get(MetricTypeHistogram, name, labels)
}

// CounterValue returns the value of a counter, or 0 if it was never touched.
func (m *MemoryMetrics) CounterValue(name string, labels MetricLabels) float64 {
	if s := m.lookup(MetricTypeCounter, name, labels); s != nil {
		return s.Value()
	}
	return 0
}

// GaugeValue returns the value of a gauge, or 0 if it was never set.
func (m *MemoryMetrics) GaugeValue(name string, labels MetricLabels) float64 {
	if s := m.lookup(MetricTypeGauge, name, labels); s != nil {
		return s.Value()
	}
	return 0
}

// HistogramCount returns the number of observations of a histogram.
func (m *MemoryMetrics) HistogramCount(name string, labels MetricLabels) uint64 {
	if s := m.lookup(MetricTypeHistogram, name, labels); s != nil {
		return s.Count()
	}
	return 0
}

// Snapshot returns every series ordered by name and labels.
func (m *MemoryMetrics) Snapshot() []MetricSample {
	m.mu.Lock()
	keys := slices.Sorted(maps.Keys(m.series))
	series := make([]*memorySeries, len(keys))
	for i, k := range keys {
		series[i] = m.series[k]
	}
	m.mu.Unlock()

	out := make([]MetricSample, len(series))
	for i, s := range series {
		out[i] = MetricSample{
			Name:   s.name,
			Labels: s.labels,
			Type:   s.kind,
			Value:  s.Value(),
			Count:  s.Count(),
		}
	}
	return out
}

// memorySeries serves as counter, gauge and histogram. bits holds the
// float64 value, or the sum for a histogram.
type memorySeries struct {
	name   string
	labels MetricLabels
	kind   MetricType
	bits   atomic.Uint64
	count  atomic.Uint64
}

func (s *memorySeries) Inc() { s.Add(1) }

func (s *memorySeries) Add(delta float64) {
	for {
		old := s.bits.Load()
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if s.bits.CompareAndSwap(old, next) {
			return
		}
	}
}

func (s *memorySeries) Set(value float64) { s.bits.Store(math.Float64bits(value)) }

func (s *memorySeries) Value() float64 { return math.Float64frombits(s.bits.Load()) }

func (s *memorySeries) Observe(value float64) {
	s.count.Add(1)
	s.Add(value)
}

func (s *memorySeries) ObserveDuration(d time.Duration) { s.Observe(d.Seconds()) }

func (s *memorySeries) Count() uint64 { return s.count.Load() }

func (s *memorySeries) Sum() float64 { return s.Value() }
