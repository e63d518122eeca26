package mqttlite

// ConnackPacket represents an MQTT CONNACK packet. In v3.1.1 ReasonCode
// carries the connect return code.
type ConnackPacket struct {
	// AckFlags holds the session present bit.
	AckFlags byte

	// ReasonCode is the connection result.
	ReasonCode ReasonCode

	// Props contains the CONNACK properties.
	Props Properties
}

// Type returns the packet type.
func (p *ConnackPacket) Type() PacketType {
	return PacketCONNACK
}

// Properties returns a pointer to the packet's properties.
func (p *ConnackPacket) Properties() *Properties {
	return &p.Props
}

// SessionPresent reports whether the server resumed an existing session.
func (p *ConnackPacket) SessionPresent() bool {
	return p.AckFlags&0x01 != 0
}

func (p *ConnackPacket) reset() {
	p.AckFlags = 0
	p.ReasonCode = ReasonSuccess
	p.Props.Reset()
}

func (p *ConnackPacket) layout(v byte, lim *Limits) (record, record) {
	return record{
		byteField("acknowledge flags", &p.AckFlags),
		reasonField("reason code", &p.ReasonCode),
		propertiesField("properties", &p.Props, lim.propertyLimits()).when(whenV5(v)),
	}, nil
}
