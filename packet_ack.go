package mqttlite

// ackPacket is shared by PUBACK, PUBREC, PUBREL and PUBCOMP.
//
// In v5 the reason code and properties may be left off the wire; a missing
// reason code means success.
type ackPacket struct {
	PacketID   uint16
	ReasonCode ReasonCode
	Props      Properties
}

// GetPacketID returns the packet identifier.
func (a *ackPacket) GetPacketID() uint16 { return a.PacketID }

// SetPacketID sets the packet identifier.
func (a *ackPacket) SetPacketID(id uint16) { a.PacketID = id }

// Properties returns a pointer to the packet's properties.
func (a *ackPacket) Properties() *Properties { return &a.Props }

func (a *ackPacket) reset() {
	a.PacketID = 0
	a.ReasonCode = ReasonSuccess
	a.Props.Reset()
}

func (a *ackPacket) layout(v byte, lim *Limits) (record, record) {
	return record{
		uint16Field("packet id", &a.PacketID),
		reasonField("reason code", &a.ReasonCode).when(whenV5(v)).optional(),
		propertiesField("properties", &a.Props, lim.propertyLimits()).when(whenV5(v)).optional(),
	}, nil
}

// PubackPacket acknowledges a QoS 1 PUBLISH.
type PubackPacket struct {
	ackPacket
}

// Type returns the packet type.
func (p *PubackPacket) Type() PacketType { return PacketPUBACK }

// PubrecPacket is the first acknowledgement of a QoS 2 PUBLISH.
type PubrecPacket struct {
	ackPacket
}

// Type returns the packet type.
func (p *PubrecPacket) Type() PacketType { return PacketPUBREC }

// PubrelPacket releases a QoS 2 PUBLISH.
type PubrelPacket struct {
	ackPacket
}

// Type returns the packet type.
func (p *PubrelPacket) Type() PacketType { return PacketPUBREL }

// PubcompPacket completes a QoS 2 exchange.
type PubcompPacket struct {
	ackPacket
}

// Type returns the packet type.
func (p *PubcompPacket) Type() PacketType { return PacketPUBCOMP }

// NewPuback returns a PUBACK for id with the given reason.
func NewPuback(id uint16, reason ReasonCode, lim *Limits) *PubackPacket {
	if lim == nil {
		lim = &defaultLimits
	}
	return &PubackPacket{ackPacket{
		PacketID:   id,
		ReasonCode: reason,
		Props:      NewProperties(lim.AckProperties),
	}}
}
