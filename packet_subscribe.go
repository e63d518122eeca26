package mqttlite

import "errors"

var (
	ErrInvalidPacketID   = errors.New("invalid packet identifier")
	ErrProtocolViolation = errors.New("protocol violation")
)

// Subscription option bits.
const (
	subOptionQoS            = 0x03
	subOptionNoLocal        = 0x04
	subOptionRetainAsPub    = 0x08
	subOptionRetainHandling = 0x30
	subOptionReserved       = 0xC0
)

// Subscription represents a topic filter with subscription options.
type Subscription struct {
	TopicFilter     string
	QoS             byte
	NoLocal         bool
	RetainAsPublish bool
	RetainHandling  byte
}

// Options returns the subscription options byte.
func (s Subscription) Options() byte {
	options := s.QoS & subOptionQoS
	if s.NoLocal {
		options |= subOptionNoLocal
	}
	if s.RetainAsPublish {
		options |= subOptionRetainAsPub
	}
	options |= (s.RetainHandling & 0x03) << 4
	return options
}

func (s *Subscription) setOptions(options byte) error {
	if options&subOptionReserved != 0 {
		return ErrProtocolViolation
	}
	s.QoS = options & subOptionQoS
	s.NoLocal = options&subOptionNoLocal != 0
	s.RetainAsPublish = options&subOptionRetainAsPub != 0
	s.RetainHandling = (options & subOptionRetainHandling) >> 4
	return nil
}

func subscriptionElement(maxTopic int) element[Subscription] {
	return element[Subscription]{
		size: func(s Subscription) int { return 2 + len(s.TopicFilter) + 1 },
		encode: func(e *Encoder, s Subscription) error {
			if err := e.WriteString(s.TopicFilter); err != nil {
				return err
			}
			return e.WriteByte(s.Options())
		},
		decode: func(d *Decoder) (Subscription, error) {
			var s Subscription
			filter, err := d.ReadString(maxTopic)
			if err != nil {
				return s, err
			}
			s.TopicFilter = filter

			options, err := d.ReadByte()
			if err != nil {
				return s, err
			}
			return s, s.setOptions(options)
		},
	}
}

// SubscribePacket represents an MQTT SUBSCRIBE packet.
type SubscribePacket struct {
	PacketID      uint16
	Props         Properties
	Subscriptions []Subscription

	capacity int
}

// NewSubscribePacket returns a SUBSCRIBE holding at most lim.MaxSubscriptions entries.
func NewSubscribePacket(lim *Limits) *SubscribePacket {
	return &SubscribePacket{
		Props:         NewProperties(lim.SubscribeProperties),
		Subscriptions: make([]Subscription, 0, lim.MaxSubscriptions),
		capacity:      lim.MaxSubscriptions,
	}
}

// Type returns the packet type.
func (p *SubscribePacket) Type() PacketType { return PacketSUBSCRIBE }

// Properties returns a pointer to the packet's properties.
func (p *SubscribePacket) Properties() *Properties { return &p.Props }

// GetPacketID returns the packet identifier.
func (p *SubscribePacket) GetPacketID() uint16 { return p.PacketID }

// SetPacketID sets the packet identifier.
func (p *SubscribePacket) SetPacketID(id uint16) { p.PacketID = id }

// AddSubscription appends s, returning false when the packet is full.
func (p *SubscribePacket) AddSubscription(s Subscription) bool {
	if p.capacity > 0 && len(p.Subscriptions) >= p.capacity {
		return false
	}
	p.Subscriptions = append(p.Subscriptions, s)
	return true
}

func (p *SubscribePacket) reset() {
	p.PacketID = 0
	p.Props.Reset()
	p.Subscriptions = p.Subscriptions[:0]
}

func (p *SubscribePacket) layout(v byte, lim *Limits) (record, record) {
	return record{
			uint16Field("packet id", &p.PacketID),
			propertiesField("properties", &p.Props, lim.propertyLimits()).when(whenV5(v)),
		}, record{
			listField("subscriptions", &p.Subscriptions, p.capacity, subscriptionElement(lim.MaxTopic)),
		}
}

// Validate validates the packet contents before sending.
func (p *SubscribePacket) Validate() error {
	if p.PacketID == 0 {
		return ErrInvalidPacketID
	}
	if len(p.Subscriptions) == 0 {
		return ErrProtocolViolation
	}
	for _, sub := range p.Subscriptions {
		if err := ValidateTopicFilter(sub.TopicFilter); err != nil {
			return err
		}
		if sub.QoS > 2 {
			return ErrInvalidQoS
		}
		if sub.RetainHandling > 2 {
			return ErrProtocolViolation
		}
	}
	return nil
}
