package mqttlite

// PingreqPacket represents an MQTT PINGREQ packet. It has no body.
type PingreqPacket struct{}

// Type returns the packet type.
func (p *PingreqPacket) Type() PacketType { return PacketPINGREQ }

func (p *PingreqPacket) reset() {}

func (p *PingreqPacket) layout(byte, *Limits) (record, record) { return nil, nil }

// PingrespPacket represents an MQTT PINGRESP packet. It has no body.
type PingrespPacket struct{}

// Type returns the packet type.
func (p *PingrespPacket) Type() PacketType { return PacketPINGRESP }

func (p *PingrespPacket) reset() {}

func (p *PingrespPacket) layout(byte, *Limits) (record, record) { return nil, nil }
