package mqttlite

import (
	"errors"
	"fmt"
)

// PUBLISH packet errors.
var (
	ErrInvalidQoS       = errors.New("invalid QoS level")
	ErrPacketIDRequired = errors.New("packet identifier required for QoS > 0")
)

// PublishPacket represents an MQTT PUBLISH packet.
type PublishPacket struct {
	// Topic is the topic name.
	Topic string

	// Payload is the application message.
	Payload []byte

	// QoS is the Quality of Service level (0, 1, or 2).
	QoS byte

	// Retain indicates if the message should be retained.
	Retain bool

	// DUP indicates if this is a retransmission.
	DUP bool

	// PacketID is the packet identifier, only on the wire for QoS > 0.
	PacketID uint16

	// Props contains the PUBLISH properties.
	Props Properties
}

// Type returns the packet type.
func (p *PublishPacket) Type() PacketType {
	return PacketPUBLISH
}

// Properties returns a pointer to the packet's properties.
func (p *PublishPacket) Properties() *Properties {
	return &p.Props
}

// GetPacketID returns the packet identifier.
func (p *PublishPacket) GetPacketID() uint16 {
	return p.PacketID
}

// SetPacketID sets the packet identifier.
func (p *PublishPacket) SetPacketID(id uint16) {
	p.PacketID = id
}

func (p *PublishPacket) flags() byte {
	var flags byte
	if p.DUP {
		flags |= publishFlagDUP
	}
	flags |= (p.QoS & 0x03) << 1
	if p.Retain {
		flags |= publishFlagRetain
	}
	return flags
}

func (p *PublishPacket) setFlags(flags byte) error {
	h := FixedHeader{PacketType: PacketPUBLISH, Flags: flags}
	p.DUP = h.DUP()
	p.QoS = h.QoS()
	p.Retain = h.Retain()

	if p.QoS > 2 {
		return fmt.Errorf("%w: %d", ErrInvalidQoS, p.QoS)
	}
	return nil
}

func (p *PublishPacket) reset() {
	p.Topic = ""
	p.Payload = nil
	p.QoS = 0
	p.Retain = false
	p.DUP = false
	p.PacketID = 0
	p.Props.Reset()
}

func (p *PublishPacket) layout(v byte, lim *Limits) (record, record) {
	hasID := func() bool { return p.QoS > 0 }

	return record{
			stringField("topic name", &p.Topic, lim.MaxTopic),
			uint16Field("packet id", &p.PacketID).when(hasID),
			propertiesField("properties", &p.Props, lim.propertyLimits()).when(whenV5(v)),
		}, record{
			restField("payload", &p.Payload, lim.MaxPayload),
		}
}

// Validate validates the packet contents before sending.
func (p *PublishPacket) Validate() error {
	if p.QoS > 2 {
		return ErrInvalidQoS
	}
	if p.QoS > 0 && p.PacketID == 0 {
		return ErrPacketIDRequired
	}
	return ValidateTopicName(p.Topic)
}

// ToMessage converts the PUBLISH packet to a Message. The payload is shared
// with the packet.
func (p *PublishPacket) ToMessage() *Message {
	m := &Message{}
	p.fillMessage(m)
	return m
}

// fillMessage overwrites every field of m from the packet.
func (p *PublishPacket) fillMessage(m *Message) {
	m.Topic = p.Topic
	m.Payload = p.Payload
	m.QoS = p.QoS
	m.Retain = p.Retain
	m.DUP = p.DUP
	m.PacketID = p.PacketID
	m.readProperties(&p.Props)
}

// FromMessage populates the PUBLISH packet from a Message and returns the
// number of metadata properties that did not fit.
func (p *PublishPacket) FromMessage(m *Message) int {
	p.Topic = m.Topic
	p.Payload = m.Payload
	p.QoS = m.QoS
	p.Retain = m.Retain
	p.DUP = m.DUP
	p.Props.Reset()
	return m.fillProperties(&p.Props)
}
