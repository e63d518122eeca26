package mqttlite

// AuthPacket represents an MQTT v5 AUTH packet used for extended
// authentication exchanges.
type AuthPacket struct {
	ReasonCode ReasonCode
	Props      Properties
}

// Type returns the packet type.
func (p *AuthPacket) Type() PacketType { return PacketAUTH }

// Properties returns a pointer to the packet's properties.
func (p *AuthPacket) Properties() *Properties { return &p.Props }

func (p *AuthPacket) reset() {
	p.ReasonCode = ReasonSuccess
	p.Props.Reset()
}

func (p *AuthPacket) layout(_ byte, lim *Limits) (record, record) {
	return record{
		reasonField("reason code", &p.ReasonCode).optional(),
		propertiesField("properties", &p.Props, lim.propertyLimits()).optional(),
	}, nil
}
