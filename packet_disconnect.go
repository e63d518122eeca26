package mqttlite

// DisconnectPacket represents an MQTT DISCONNECT packet.
// A missing reason code means normal disconnection.
type DisconnectPacket struct {
	ReasonCode ReasonCode
	Props      Properties
}

// Type returns the packet type.
func (p *DisconnectPacket) Type() PacketType { return PacketDISCONNECT }

// Properties returns a pointer to the packet's properties.
func (p *DisconnectPacket) Properties() *Properties { return &p.Props }

func (p *DisconnectPacket) reset() {
	p.ReasonCode = ReasonSuccess
	p.Props.Reset()
}

func (p *DisconnectPacket) layout(v byte, lim *Limits) (record, record) {
	return record{
		reasonField("reason code", &p.ReasonCode).when(whenV5(v)).optional(),
		propertiesField("properties", &p.Props, lim.propertyLimits()).when(whenV5(v)).optional(),
	}, nil
}
