package mqttlite

import (
	"errors"
	"fmt"
)

// PacketType represents an MQTT control packet type.
type PacketType byte

// MQTT control packet types.
const (
	PacketCONNECT     PacketType = 1
	PacketCONNACK     PacketType = 2
	PacketPUBLISH     PacketType = 3
	PacketPUBACK      PacketType = 4
	PacketPUBREC      PacketType = 5
	PacketPUBREL      PacketType = 6
	PacketPUBCOMP     PacketType = 7
	PacketSUBSCRIBE   PacketType = 8
	PacketSUBACK      PacketType = 9
	PacketUNSUBSCRIBE PacketType = 10
	PacketUNSUBACK    PacketType = 11
	PacketPINGREQ     PacketType = 12
	PacketPINGRESP    PacketType = 13
	PacketDISCONNECT  PacketType = 14
	PacketAUTH        PacketType = 15
)

var packetTypeNames = [...]string{
	PacketCONNECT:     "CONNECT",
	PacketCONNACK:     "CONNACK",
	PacketPUBLISH:     "PUBLISH",
	PacketPUBACK:      "PUBACK",
	PacketPUBREC:      "PUBREC",
	PacketPUBREL:      "PUBREL",
	PacketPUBCOMP:     "PUBCOMP",
	PacketSUBSCRIBE:   "SUBSCRIBE",
	PacketSUBACK:      "SUBACK",
	PacketUNSUBSCRIBE: "UNSUBSCRIBE",
	PacketUNSUBACK:    "UNSUBACK",
	PacketPINGREQ:     "PINGREQ",
	PacketPINGRESP:    "PINGRESP",
	PacketDISCONNECT:  "DISCONNECT",
	PacketAUTH:        "AUTH",
}

// String returns the string representation of the packet type.
func (p PacketType) String() string {
	if p.Valid() {
		return packetTypeNames[p]
	}
	return "UNKNOWN"
}

// Valid returns true if the packet type is valid.
func (p PacketType) Valid() bool {
	return p >= PacketCONNECT && p <= PacketAUTH
}

// Fixed header errors.
var (
	ErrInvalidPacketType       = errors.New("invalid packet type")
	ErrInvalidPacketFlags      = errors.New("invalid packet flags")
	ErrRemainingLengthTooLarge = errors.New("remaining length too large")
)

// PUBLISH fixed header flag bits.
const (
	publishFlagRetain = 0x01
	publishFlagQoS    = 0x06
	publishFlagDUP    = 0x08
)

// FixedHeader represents the fixed header of an MQTT control packet.
type FixedHeader struct {
	PacketType      PacketType
	Flags           byte
	RemainingLength uint32
}

// Encode writes the type and flags byte followed by the remaining length.
func (h *FixedHeader) Encode(e *Encoder) error {
	if !h.PacketType.Valid() {
		return ErrInvalidPacketType
	}
	if h.RemainingLength > maxVarint {
		return ErrRemainingLengthTooLarge
	}

	if err := e.WriteByte(byte(h.PacketType)<<4 | (h.Flags & 0x0F)); err != nil {
		return err
	}
	return e.WriteVarint(h.RemainingLength)
}

// Decode reads the fixed header. An invalid packet type is reported after
// the remaining length was read.
func (h *FixedHeader) Decode(d *Decoder) error {
	b, err := d.ReadByte()
	if err != nil {
		return err
	}

	h.PacketType = PacketType(b >> 4)
	h.Flags = b & 0x0F

	length, err := d.ReadVarint()
	if err != nil {
		return err
	}
	h.RemainingLength = length

	if !h.PacketType.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidPacketType, b>>4)
	}
	return nil
}

// Size returns the encoded size of the fixed header in bytes.
func (h *FixedHeader) Size() int {
	return 1 + VarintSize(h.RemainingLength)
}

// fixedFlags returns the flag nibble mandated for packet types other than PUBLISH.
func fixedFlags(t PacketType) byte {
	switch t {
	case PacketPUBREL, PacketSUBSCRIBE, PacketUNSUBSCRIBE:
		return 0x02
	default:
		return 0x00
	}
}

// ValidateFlags validates the flags for the packet type.
func (h *FixedHeader) ValidateFlags() error {
	if !h.PacketType.Valid() {
		return ErrInvalidPacketType
	}

	if h.PacketType == PacketPUBLISH {
		if h.QoS() > 2 {
			return fmt.Errorf("%w: QoS 3", ErrInvalidPacketFlags)
		}
		return nil
	}

	if h.Flags != fixedFlags(h.PacketType) {
		return fmt.Errorf("%w: %s flags 0x%X", ErrInvalidPacketFlags, h.PacketType, h.Flags)
	}
	return nil
}

// DUP returns the DUP flag from PUBLISH packet flags.
func (h *FixedHeader) DUP() bool {
	return h.Flags&publishFlagDUP != 0
}

// QoS returns the QoS level from PUBLISH packet flags.
func (h *FixedHeader) QoS() byte {
	return (h.Flags & publishFlagQoS) >> 1
}

// Retain returns the RETAIN flag from PUBLISH packet flags.
func (h *FixedHeader) Retain() bool {
	return h.Flags&publishFlagRetain != 0
}
