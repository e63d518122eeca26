package mqttlite

// UnsubscribePacket represents an MQTT UNSUBSCRIBE packet.
type UnsubscribePacket struct {
	PacketID     uint16
	Props        Properties
	TopicFilters []string

	capacity int
}

// NewUnsubscribePacket returns an UNSUBSCRIBE holding at most lim.MaxSubscriptions filters.
func NewUnsubscribePacket(lim *Limits) *UnsubscribePacket {
	return &UnsubscribePacket{
		Props:        NewProperties(lim.SubscribeProperties),
		TopicFilters: make([]string, 0, lim.MaxSubscriptions),
		capacity:     lim.MaxSubscriptions,
	}
}

// Type returns the packet type.
func (p *UnsubscribePacket) Type() PacketType { return PacketUNSUBSCRIBE }

// Properties returns a pointer to the packet's properties.
func (p *UnsubscribePacket) Properties() *Properties { return &p.Props }

// GetPacketID returns the packet identifier.
func (p *UnsubscribePacket) GetPacketID() uint16 { return p.PacketID }

// SetPacketID sets the packet identifier.
func (p *UnsubscribePacket) SetPacketID(id uint16) { p.PacketID = id }

// AddTopicFilter appends filter, returning false when the packet is full.
func (p *UnsubscribePacket) AddTopicFilter(filter string) bool {
	if p.capacity > 0 && len(p.TopicFilters) >= p.capacity {
		return false
	}
	p.TopicFilters = append(p.TopicFilters, filter)
	return true
}

func (p *UnsubscribePacket) reset() {
	p.PacketID = 0
	p.Props.Reset()
	p.TopicFilters = p.TopicFilters[:0]
}

func (p *UnsubscribePacket) layout(v byte, lim *Limits) (record, record) {
	return record{
			uint16Field("packet id", &p.PacketID),
			propertiesField("properties", &p.Props, lim.propertyLimits()).when(whenV5(v)),
		}, record{
			listField("topic filters", &p.TopicFilters, p.capacity, topicElement(lim.MaxTopic)),
		}
}

// Validate validates the packet contents before sending.
func (p *UnsubscribePacket) Validate() error {
	if p.PacketID == 0 {
		return ErrInvalidPacketID
	}
	if len(p.TopicFilters) == 0 {
		return ErrProtocolViolation
	}
	for _, filter := range p.TopicFilters {
		if err := ValidateTopicFilter(filter); err != nil {
			return err
		}
	}
	return nil
}

// UnsubackPacket represents an MQTT UNSUBACK packet. Reason codes only
// exist in v5.
type UnsubackPacket struct {
	PacketID    uint16
	Props       Properties
	ReasonCodes []ReasonCode

	capacity int
}

// NewUnsubackPacket returns an UNSUBACK holding at most lim.MaxSubscriptions reason codes.
func NewUnsubackPacket(lim *Limits) *UnsubackPacket {
	return &UnsubackPacket{
		Props:       NewProperties(lim.SubscribeProperties),
		ReasonCodes: make([]ReasonCode, 0, lim.MaxSubscriptions),
		capacity:    lim.MaxSubscriptions,
	}
}

// Type returns the packet type.
func (p *UnsubackPacket) Type() PacketType { return PacketUNSUBACK }

// Properties returns a pointer to the packet's properties.
func (p *UnsubackPacket) Properties() *Properties { return &p.Props }

// GetPacketID returns the packet identifier.
func (p *UnsubackPacket) GetPacketID() uint16 { return p.PacketID }

// SetPacketID sets the packet identifier.
func (p *UnsubackPacket) SetPacketID(id uint16) { p.PacketID = id }

// AddReasonCode appends rc, returning false when the packet is full.
func (p *UnsubackPacket) AddReasonCode(rc ReasonCode) bool {
	if p.capacity > 0 && len(p.ReasonCodes) >= p.capacity {
		return false
	}
	p.ReasonCodes = append(p.ReasonCodes, rc)
	return true
}

func (p *UnsubackPacket) reset() {
	p.PacketID = 0
	p.Props.Reset()
	p.ReasonCodes = p.ReasonCodes[:0]
}

func (p *UnsubackPacket) layout(v byte, lim *Limits) (record, record) {
	return record{
			uint16Field("packet id", &p.PacketID),
			propertiesField("properties", &p.Props, lim.propertyLimits()).when(whenV5(v)),
		}, record{
			listField("reason codes", &p.ReasonCodes, p.capacity, reasonElement).when(whenV5(v)),
		}
}
