package mqttlite

// SubackPacket represents an MQTT SUBACK packet.
type SubackPacket struct {
	PacketID    uint16
	Props       Properties
	ReasonCodes []ReasonCode

	capacity int
}

// NewSubackPacket returns a SUBACK holding at most lim.MaxSubscriptions reason codes.
func NewSubackPacket(lim *Limits) *SubackPacket {
	return &SubackPacket{
		Props:       NewProperties(lim.SubscribeProperties),
		ReasonCodes: make([]ReasonCode, 0, lim.MaxSubscriptions),
		capacity:    lim.MaxSubscriptions,
	}
}

// Type returns the packet type.
func (p *SubackPacket) Type() PacketType { return PacketSUBACK }

// Properties returns a pointer to the packet's properties.
func (p *SubackPacket) Properties() *Properties { return &p.Props }

// GetPacketID returns the packet identifier.
func (p *SubackPacket) GetPacketID() uint16 { return p.PacketID }

// SetPacketID sets the packet identifier.
func (p *SubackPacket) SetPacketID(id uint16) { p.PacketID = id }

// AddReasonCode appends rc, returning false when the packet is full.
func (p *SubackPacket) AddReasonCode(rc ReasonCode) bool {
	if p.capacity > 0 && len(p.ReasonCodes) >= p.capacity {
		return false
	}
	p.ReasonCodes = append(p.ReasonCodes, rc)
	return true
}

func (p *SubackPacket) reset() {
	p.PacketID = 0
	p.Props.Reset()
	p.ReasonCodes = p.ReasonCodes[:0]
}

func (p *SubackPacket) layout(v byte, lim *Limits) (record, record) {
	return record{
			uint16Field("packet id", &p.PacketID),
			propertiesField("properties", &p.Props, lim.propertyLimits()).when(whenV5(v)),
		}, record{
			listField("reason codes", &p.ReasonCodes, p.capacity, reasonElement),
		}
}
