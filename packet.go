package mqttlite

// Protocol versions carried in CONNECT.
const (
	ProtocolV311 byte = 4
	ProtocolV5   byte = 5
)

// Packet is the interface that all MQTT control packets implement.
//
// A packet describes its wire form as two records, the variable header and
// the payload, for a given protocol version. Encoding, sizing and decoding
// all walk the same records.
type Packet interface {
	// Type returns the packet type.
	Type() PacketType

	layout(version byte, lim *Limits) (variable, payload record)
	reset()
}

// flaggedPacket is implemented by packets whose fixed header flags carry data.
type flaggedPacket interface {
	flags() byte
	setFlags(flags byte) error
}

// PacketWithID is implemented by packets that have a packet identifier.
type PacketWithID interface {
	Packet

	// GetPacketID returns the packet identifier.
	GetPacketID() uint16

	// SetPacketID sets the packet identifier.
	SetPacketID(id uint16)
}

// PacketWithProperties is implemented by packets that have properties.
type PacketWithProperties interface {
	Packet

	// Properties returns a pointer to the packet's properties.
	Properties() *Properties
}

func whenV5(v byte) func() bool {
	return func() bool { return v >= ProtocolV5 }
}

// Message represents an MQTT application message.
type Message struct {
	// Topic is the topic name to publish to or received from.
	Topic string

	// Payload is the application message payload.
	Payload []byte

	// QoS is the Quality of Service level (0, 1, or 2).
	QoS byte

	// Retain indicates if this is a retained message.
	Retain bool

	// DUP is set on redelivered messages.
	DUP bool

	// PacketID is the packet identifier of a received QoS 1 or 2 message.
	PacketID uint16

	// PayloadFormat indicates if the payload is UTF-8 encoded text (1) or unspecified bytes (0).
	PayloadFormat byte

	// MessageExpiry is the lifetime of the message in seconds.
	MessageExpiry uint32

	// ContentType is the MIME type of the payload.
	ContentType string

	// ResponseTopic is the topic for response messages.
	ResponseTopic string

	// CorrelationData is used to correlate request/response messages.
	CorrelationData []byte

	// UserProperties contains user-defined name-value pairs.
	UserProperties []StringPair
}

// Clone creates a deep copy of the message.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}

	clone := *m
	clone.Payload = cloneBytes(m.Payload)
	clone.CorrelationData = cloneBytes(m.CorrelationData)
	if m.UserProperties != nil {
		clone.UserProperties = make([]StringPair, len(m.UserProperties))
		copy(clone.UserProperties, m.UserProperties)
	}
	return &clone
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// fillProperties adds the message metadata to p. Metadata that does not fit
// is dropped; the number of dropped entries is returned.
func (m *Message) fillProperties(p *Properties) int {
	dropped := 0
	add := func(id PropertyID, v any) {
		if !p.Add(id, v) {
			dropped++
		}
	}

	if m.PayloadFormat != 0 {
		add(PropPayloadFormatIndicator, m.PayloadFormat)
	}
	if m.MessageExpiry != 0 {
		add(PropMessageExpiryInterval, m.MessageExpiry)
	}
	if m.ContentType != "" {
		add(PropContentType, m.ContentType)
	}
	if m.ResponseTopic != "" {
		add(PropResponseTopic, m.ResponseTopic)
	}
	if len(m.CorrelationData) > 0 {
		add(PropCorrelationData, m.CorrelationData)
	}
	for _, up := range m.UserProperties {
		add(PropUserProperty, up)
	}
	return dropped
}

// readProperties populates the message metadata from p.
func (m *Message) readProperties(p *Properties) {
	m.PayloadFormat = p.GetByte(PropPayloadFormatIndicator)
	m.MessageExpiry = p.GetUint32(PropMessageExpiryInterval)
	m.ContentType = p.GetString(PropContentType)
	m.ResponseTopic = p.GetString(PropResponseTopic)
	m.CorrelationData = p.GetBinary(PropCorrelationData)
	m.UserProperties = p.GetAllStringPairs(PropUserProperty)
}
