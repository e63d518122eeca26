package mqttlite

import (
	"time"

	"golang.org/x/time/rate"
)

// PublishHandler is called for every inbound PUBLISH. For QoS 1 messages the
// result selects the PUBACK reason: true acknowledges with Success, false
// with ImplementationSpecificError. The message is only valid during the call;
// use Message.Clone to keep it.
type PublishHandler func(msg *Message) bool

// PacketHook observes every packet Process decoded, after its handler ran.
// The packet is reused by the next Process call.
type PacketHook func(p Packet)

// clientOptions holds configuration for a Client.
type clientOptions struct {
	// Connection settings
	clientID        string
	username        string
	password        []byte
	keepAlive       uint16
	protocolVersion byte

	// Will message
	willTopic   string
	willPayload []byte
	willQoS     byte
	willRetain  bool

	// Reads
	readTimeout  time.Duration
	pollInterval time.Duration
	clock        Clock

	limits  Limits
	logger  Logger
	metrics Metrics

	onPublish PublishHandler
	onPacket  PacketHook
	onEvent   EventHandler

	publishLimiter *rate.Limiter
}

// defaultOptions returns options with sensible defaults.
func defaultOptions() *clientOptions {
	return &clientOptions{
		keepAlive:       60,
		protocolVersion: ProtocolV5,
		readTimeout:     DefaultReadTimeout,
		pollInterval:    DefaultPollInterval,
		clock:           SystemClock{},
		limits:          DefaultLimits(),
		logger:          NewNoOpLogger(),
		metrics:         &NoOpMetrics{},
	}
}

// Option configures a Client.
type Option func(*clientOptions)

// WithClientID sets the client identifier.
func WithClientID(id string) Option {
	return func(o *clientOptions) {
		o.clientID = id
	}
}

// WithCredentials sets the username and password used by ConnectWithCredentials.
func WithCredentials(username, password string) Option {
	return func(o *clientOptions) {
		o.username = username
		o.password = []byte(password)
	}
}

// WithKeepAlive sets the keep-alive interval in seconds.
func WithKeepAlive(seconds uint16) Option {
	return func(o *clientOptions) {
		o.keepAlive = seconds
	}
}

// WithProtocolVersion selects MQTT 3.1.1 (4) or 5.0 (5).
func WithProtocolVersion(version byte) Option {
	return func(o *clientOptions) {
		if version == ProtocolV311 || version == ProtocolV5 {
			o.protocolVersion = version
		}
	}
}

// WithWill sets the will message used by ConnectWithCredentials.
func WithWill(topic string, payload []byte, qos byte, retain bool) Option {
	return func(o *clientOptions) {
		o.willTopic = topic
		o.willPayload = payload
		o.willQoS = qos
		o.willRetain = retain
	}
}

// WithReadTimeout sets the deadline of each primitive read.
func WithReadTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		if d > 0 {
			o.readTimeout = d
		}
	}
}

// WithPollInterval sets how long a read sleeps between Readable checks.
func WithPollInterval(d time.Duration) Option {
	return func(o *clientOptions) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithClock sets the time source used for read deadlines.
func WithClock(c Clock) Option {
	return func(o *clientOptions) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLimits sets the container bounds. Zero fields keep their defaults.
func WithLimits(l Limits) Option {
	return func(o *clientOptions) {
		o.limits = l.WithDefaults()
	}
}

// WithLogger sets the logger for the client.
func WithLogger(logger Logger) Option {
	return func(o *clientOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the metrics backend for the client.
func WithMetrics(m Metrics) Option {
	return func(o *clientOptions) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithPublishHandler sets the handler for inbound PUBLISH packets.
func WithPublishHandler(h PublishHandler) Option {
	return func(o *clientOptions) {
		o.onPublish = h
	}
}

// WithPacketHook sets a hook that observes every decoded inbound packet.
func WithPacketHook(h PacketHook) Option {
	return func(o *clientOptions) {
		o.onPacket = h
	}
}

// WithEventHandler sets the handler for lifecycle events.
//
// Events are delivered from Process and are errors:
//   - *ConnectedEvent when the server accepts the connection
//   - *ConnectError when the server refuses it
//   - *DisconnectError when the server sends DISCONNECT
//   - *PublishError when a PUBACK carries an error reason
//   - *SubscribeError for every refused subscription in a SUBACK
func WithEventHandler(h EventHandler) Option {
	return func(o *clientOptions) {
		o.onEvent = h
	}
}

// WithPublishRateLimit limits outbound publishes to r per second with the
// given burst. Publishes over the limit fail with ErrRateLimited.
func WithPublishRateLimit(r rate.Limit, burst int) Option {
	return func(o *clientOptions) {
		if r <= 0 {
			o.publishLimiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		o.publishLimiter = rate.NewLimiter(r, burst)
	}
}
