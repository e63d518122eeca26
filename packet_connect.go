package mqttlite

import "errors"

// ProtocolName is the protocol name carried in every CONNECT.
const ProtocolName = "MQTT"

// Connect flag bits.
const (
	ConnectFlagCleanStart ConnectFlags = 0x02
	ConnectFlagWill       ConnectFlags = 0x04
	ConnectFlagWillRetain ConnectFlags = 0x20
	ConnectFlagPassword   ConnectFlags = 0x40
	ConnectFlagUsername   ConnectFlags = 0x80

	connectFlagReserved ConnectFlags = 0x01
	connectFlagWillQoS  ConnectFlags = 0x18
)

// CONNECT packet errors.
var (
	ErrInvalidConnectFlags = errors.New("invalid connect flags")
)

// ConnectFlags is the CONNECT flags byte. It decides which optional payload
// fields are on the wire.
type ConnectFlags byte

// Has reports whether every bit of f2 is set.
func (f ConnectFlags) Has(f2 ConnectFlags) bool {
	return f&f2 == f2
}

// With returns f with the bits of f2 set or cleared.
func (f ConnectFlags) With(f2 ConnectFlags, on bool) ConnectFlags {
	if on {
		return f | f2
	}
	return f &^ f2
}

// WillQoS returns the will QoS level bits.
func (f ConnectFlags) WillQoS() byte {
	return byte(f&connectFlagWillQoS) >> 3
}

// WithWillQoS returns f with the will QoS bits replaced.
func (f ConnectFlags) WithWillQoS(qos byte) ConnectFlags {
	return f&^connectFlagWillQoS | ConnectFlags((qos&0x03)<<3)
}

// Validate checks the reserved bit and the will bits.
func (f ConnectFlags) Validate() error {
	if f.Has(connectFlagReserved) {
		return ErrInvalidConnectFlags
	}
	if !f.Has(ConnectFlagWill) && (f.WillQoS() != 0 || f.Has(ConnectFlagWillRetain)) {
		return ErrInvalidConnectFlags
	}
	if f.WillQoS() > 2 {
		return ErrInvalidConnectFlags
	}
	return nil
}

// ConnectPacket represents an MQTT CONNECT packet.
//
// Flags is authoritative on the wire: will, username and password fields
// are only encoded or decoded when their flag bit is set.
type ConnectPacket struct {
	ProtocolName    string
	ProtocolVersion byte
	Flags           ConnectFlags
	KeepAlive       uint16
	Props           Properties

	ClientID    string
	WillProps   Properties
	WillTopic   string
	WillPayload []byte
	Username    string
	Password    []byte
}

// NewConnectPacket returns a v5 CONNECT with property lists sized from lim.
func NewConnectPacket(lim *Limits) *ConnectPacket {
	return &ConnectPacket{
		ProtocolName:    ProtocolName,
		ProtocolVersion: ProtocolV5,
		Props:           NewProperties(lim.ConnectProperties),
		WillProps:       NewProperties(lim.WillProperties),
	}
}

// Type returns the packet type.
func (p *ConnectPacket) Type() PacketType {
	return PacketCONNECT
}

// Properties returns a pointer to the packet's properties.
func (p *ConnectPacket) Properties() *Properties {
	return &p.Props
}

func (p *ConnectPacket) reset() {
	*p = ConnectPacket{Props: p.Props, WillProps: p.WillProps}
	p.Props.Reset()
	p.WillProps.Reset()
}

// layout ignores the session version: CONNECT announces its own.
func (p *ConnectPacket) layout(_ byte, lim *Limits) (record, record) {
	v5 := func() bool { return p.ProtocolVersion >= ProtocolV5 }
	flag := func(f ConnectFlags) func() bool {
		return func() bool { return p.Flags.Has(f) }
	}

	variable := record{
		stringField("protocol name", &p.ProtocolName, lim.MaxProtocolName),
		byteField("protocol version", &p.ProtocolVersion),
		{
			name:   "connect flags",
			size:   func() int { return 1 },
			encode: func(e *Encoder) error { return e.WriteByte(byte(p.Flags)) },
			decode: func(d *Decoder) error {
				b, err := d.ReadByte()
				if err != nil {
					return err
				}
				p.Flags = ConnectFlags(b)
				return p.Flags.Validate()
			},
		},
		uint16Field("keep alive", &p.KeepAlive),
		propertiesField("properties", &p.Props, lim.propertyLimits()).when(v5),
	}

	payload := record{
		stringField("client id", &p.ClientID, lim.MaxClientID),
		propertiesField("will properties", &p.WillProps, lim.propertyLimits()).when(flag(ConnectFlagWill)).when(v5),
		stringField("will topic", &p.WillTopic, lim.MaxTopic).when(flag(ConnectFlagWill)),
		binaryField("will payload", &p.WillPayload, lim.MaxWillPayload).when(flag(ConnectFlagWill)),
		stringField("username", &p.Username, lim.MaxUsername).when(flag(ConnectFlagUsername)),
		binaryField("password", &p.Password, lim.MaxPassword).when(flag(ConnectFlagPassword)),
	}

	return variable, payload
}
