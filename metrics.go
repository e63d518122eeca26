package mqttlite

import (
	"time"
)

// MetricType is the kind of a metric series.
type MetricType int

const (
	MetricTypeCounter MetricType = iota
	MetricTypeGauge
	MetricTypeHistogram
)

// String returns the string representation of the metric type.
func (t MetricType) String() string {
	switch t {
	case MetricTypeCounter:
		return "counter"
	case MetricTypeGauge:
		return "gauge"
	case MetricTypeHistogram:
		return "histogram"
	default:
		return "unknown"
	}
}

// MetricLabels represents key-value pairs for metric labels.
type MetricLabels map[string]string

// Metrics is the backend the client records into. Implementations must be
// safe for concurrent use; Process and Send record from different goroutines.
type Metrics interface {
	Counter(name string, labels MetricLabels) Counter
	Gauge(name string, labels MetricLabels) Gauge
	Histogram(name string, labels MetricLabels) Histogram
}

// Counter only goes up.
type Counter interface {
	Inc()
	Add(delta float64)
	Value() float64
}

// Gauge holds the last value set.
type Gauge interface {
	Set(value float64)
	Add(delta float64)
	Value() float64
}

// Histogram accumulates observations.
type Histogram interface {
	Observe(value float64)
	ObserveDuration(d time.Duration)
	Count() uint64
	Sum() float64
}

// NoOpMetrics discards everything.
type NoOpMetrics struct{}

// Counter returns a no-op counter.
func (n *NoOpMetrics) Counter(string, MetricLabels) Counter { return noOpMetric{} }

// Gauge returns a no-op gauge.
func (n *NoOpMetrics) Gauge(string, MetricLabels) Gauge { return noOpMetric{} }

// Histogram returns a no-op histogram.
func (n *NoOpMetrics) Histogram(string, MetricLabels) Histogram { return noOpMetric{} }

type noOpMetric struct{}

func (noOpMetric) Inc()                          {}
func (noOpMetric) Add(float64)                   {}
func (noOpMetric) Set(float64)                   {}
func (noOpMetric) Value() float64                { return 0 }
func (noOpMetric) Observe(float64)               {}
func (noOpMetric) ObserveDuration(time.Duration) {}
func (noOpMetric) Count() uint64                 { return 0 }
func (noOpMetric) Sum() float64                  { return 0 }

// Metric names recorded by the client.
const (
	MetricPacketsSent      = "mqtt_packets_sent_total"
	MetricPacketsReceived  = "mqtt_packets_received_total"
	MetricBytesSent        = "mqtt_bytes_sent_total"
	MetricMessagesReceived = "mqtt_messages_received_total"
	MetricMessagesSent     = "mqtt_messages_sent_total"
	MetricTruncations      = "mqtt_truncations_total"
	MetricTruncatedBytes   = "mqtt_truncated_bytes_total"
	MetricQoS2Dropped      = "mqtt_qos2_dropped_total"
	MetricUnmatchedAcks    = "mqtt_unmatched_acks_total"
	MetricFailedAcks       = "mqtt_failed_acks_total"
	MetricUntracked        = "mqtt_untracked_publishes_total"
	MetricPending          = "mqtt_pending_publishes"
	MetricAckLatency       = "mqtt_ack_latency_seconds"
	MetricReadTimeouts     = "mqtt_read_timeouts_total"
	MetricMalformed        = "mqtt_malformed_packets_total"
)

// Metric labels.
const (
	LabelPacketType = "packet_type"
	LabelQoS        = "qos"
	LabelReasonCode = "reason_code"
	LabelKind       = "kind"
)

// ClientMetrics records client events against a Metrics backend.
type ClientMetrics struct {
	metrics Metrics
}

// NewClientMetrics creates a ClientMetrics; a nil backend records nothing.
func NewClientMetrics(m Metrics) *ClientMetrics {
	if m == nil {
		m = &NoOpMetrics{}
	}
	return &ClientMetrics{metrics: m}
}

func qosLabel(qos byte) MetricLabels {
	return MetricLabels{LabelQoS: string(rune('0' + qos))}
}

// PacketSent records a sent packet and its size.
func (c *ClientMetrics) PacketSent(packetType PacketType, n int) {
	c.metrics.Counter(MetricPacketsSent, MetricLabels{LabelPacketType: packetType.String()}).Inc()
	c.metrics.Counter(MetricBytesSent, nil).Add(float64(n))
}

// PacketReceived records a received packet.
func (c *ClientMetrics) PacketReceived(packetType PacketType) {
	c.metrics.Counter(MetricPacketsReceived, MetricLabels{LabelPacketType: packetType.String()}).Inc()
}

// MessageReceived records a delivered application message.
func (c *ClientMetrics) MessageReceived(qos byte) {
	c.metrics.Counter(MetricMessagesReceived, qosLabel(qos)).Inc()
}

// MessageSent records a published application message.
func (c *ClientMetrics) MessageSent(qos byte) {
	c.metrics.Counter(MetricMessagesSent, qosLabel(qos)).Inc()
}

// Truncated records bytes discarded because a container was full.
func (c *ClientMetrics) Truncated(kind TruncationKind, dropped int) {
	labels := MetricLabels{LabelKind: string(kind)}
	c.metrics.Counter(MetricTruncations, labels).Inc()
	c.metrics.Counter(MetricTruncatedBytes, labels).Add(float64(dropped))
}

// QoS2Dropped records an inbound QoS 2 message that was not acknowledged.
func (c *ClientMetrics) QoS2Dropped() {
	c.metrics.Counter(MetricQoS2Dropped, nil).Inc()
}

// UnmatchedAck records a PUBACK for an unknown packet id.
func (c *ClientMetrics) UnmatchedAck() {
	c.metrics.Counter(MetricUnmatchedAcks, nil).Inc()
}

// FailedAck records a PUBACK carrying an error reason code.
func (c *ClientMetrics) FailedAck(reason ReasonCode) {
	c.metrics.Counter(MetricFailedAcks, MetricLabels{LabelReasonCode: reason.String()}).Inc()
}

// Untracked records a QoS 1 publish sent while the pending store was full.
func (c *ClientMetrics) Untracked() {
	c.metrics.Counter(MetricUntracked, nil).Inc()
}

// PendingChanged sets the number of unacknowledged publishes.
func (c *ClientMetrics) PendingChanged(n int) {
	c.metrics.Gauge(MetricPending, nil).Set(float64(n))
}

// AckLatency records the time between a publish and its PUBACK.
func (c *ClientMetrics) AckLatency(d time.Duration) {
	c.metrics.Histogram(MetricAckLatency, nil).ObserveDuration(d)
}

// ReadTimeout records a read that hit the per-read deadline.
func (c *ClientMetrics) ReadTimeout() {
	c.metrics.Counter(MetricReadTimeouts, nil).Inc()
}

// Malformed records a packet that failed to decode.
func (c *ClientMetrics) Malformed(packetType PacketType) {
	c.metrics.Counter(MetricMalformed, MetricLabels{LabelPacketType: packetType.String()}).Inc()
}
