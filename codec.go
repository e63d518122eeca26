package mqttlite

import (
	"errors"
	"fmt"
	"io"
)

// defaultLimits is shared read-only by encoders and nil-limit decoders.
var defaultLimits = DefaultLimits()

var (
	ErrMalformedPacket    = errors.New("mqttlite: malformed packet")
	ErrPacketTypeMismatch = errors.New("mqttlite: packet type does not match header")
)

// NewPacket returns an empty packet of type t whose bounded containers are
// sized from lim. A nil lim uses DefaultLimits.
func NewPacket(t PacketType, lim *Limits) (Packet, error) {
	if lim == nil {
		lim = &defaultLimits
	}

	switch t {
	case PacketCONNECT:
		return NewConnectPacket(lim), nil
	case PacketCONNACK:
		return &ConnackPacket{Props: NewProperties(lim.ConnackProperties)}, nil
	case PacketPUBLISH:
		return &PublishPacket{Props: NewProperties(lim.PublishProperties)}, nil
	case PacketPUBACK:
		return &PubackPacket{ackPacket{Props: NewProperties(lim.AckProperties)}}, nil
	case PacketPUBREC:
		return &PubrecPacket{ackPacket{Props: NewProperties(lim.AckProperties)}}, nil
	case PacketPUBREL:
		return &PubrelPacket{ackPacket{Props: NewProperties(lim.AckProperties)}}, nil
	case PacketPUBCOMP:
		return &PubcompPacket{ackPacket{Props: NewProperties(lim.AckProperties)}}, nil
	case PacketSUBSCRIBE:
		return NewSubscribePacket(lim), nil
	case PacketSUBACK:
		return NewSubackPacket(lim), nil
	case PacketUNSUBSCRIBE:
		return NewUnsubscribePacket(lim), nil
	case PacketUNSUBACK:
		return NewUnsubackPacket(lim), nil
	case PacketPINGREQ:
		return &PingreqPacket{}, nil
	case PacketPINGRESP:
		return &PingrespPacket{}, nil
	case PacketDISCONNECT:
		return &DisconnectPacket{Props: NewProperties(lim.DisconnectProperties)}, nil
	case PacketAUTH:
		return &AuthPacket{Props: NewProperties(lim.AuthProperties)}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidPacketType, t)
	}
}

func headerFlags(p Packet) byte {
	if f, ok := p.(flaggedPacket); ok {
		return f.flags()
	}
	return fixedFlags(p.Type())
}

// Header computes the fixed header for p from its current contents.
func Header(p Packet, version byte) (FixedHeader, error) {
	variable, payload := p.layout(version, &defaultLimits)
	size := variable.size() + payload.size()
	if size > maxVarint {
		return FixedHeader{}, ErrRemainingLengthTooLarge
	}

	return FixedHeader{
		PacketType:      p.Type(),
		Flags:           headerFlags(p),
		RemainingLength: uint32(size),
	}, nil
}

// PacketSize returns the total encoded size of p including the fixed header.
func PacketSize(p Packet, version byte) (int, error) {
	h, err := Header(p, version)
	if err != nil {
		return 0, err
	}
	return h.Size() + int(h.RemainingLength), nil
}

// EncodePacket writes the fixed header, variable header and payload of p in
// that order. The remaining length is computed from the populated fields.
func EncodePacket(e *Encoder, p Packet, version byte) error {
	h, err := Header(p, version)
	if err != nil {
		return err
	}
	if err := h.Encode(e); err != nil {
		return err
	}

	variable, payload := p.layout(version, &defaultLimits)
	if err := variable.encode(e); err != nil {
		return fmt.Errorf("%s variable header: %w", p.Type(), err)
	}
	if err := payload.encode(e); err != nil {
		return fmt.Errorf("%s payload: %w", p.Type(), err)
	}
	return nil
}

// WritePacket encodes p to w and returns the number of bytes written.
func WritePacket(w io.Writer, p Packet, version byte) (int, error) {
	e := NewEncoder(w)
	err := EncodePacket(e, p, version)
	return e.Written(), err
}

// DecodePacket decodes the body described by h into p, reusing its storage.
// Whatever the layout leaves unread is skipped so the next fixed header
// starts on a packet boundary, also after a malformed field.
func DecodePacket(d *Decoder, h FixedHeader, p Packet, version byte, lim *Limits) error {
	if p.Type() != h.PacketType {
		return fmt.Errorf("%w: %s into %s", ErrPacketTypeMismatch, h.PacketType, p.Type())
	}
	if lim == nil {
		lim = &defaultLimits
	}

	prev, err := d.limit(int(h.RemainingLength))
	if err != nil {
		return err
	}
	defer d.restore(prev)

	err = decodeBody(d, h, p, version, lim)
	if err != nil && (errors.Is(err, ErrTransport) || errors.Is(err, ErrTimeout)) {
		return err
	}
	if skipErr := d.Discard(); skipErr != nil {
		return skipErr
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMalformedPacket, h.PacketType, err)
	}
	return nil
}

func decodeBody(d *Decoder, h FixedHeader, p Packet, version byte, lim *Limits) error {
	if err := h.ValidateFlags(); err != nil {
		return err
	}

	p.reset()
	if f, ok := p.(flaggedPacket); ok {
		if err := f.setFlags(h.Flags); err != nil {
			return err
		}
	}

	variable, payload := p.layout(version, lim)
	if err := variable.decode(d); err != nil {
		return err
	}
	return payload.decode(d)
}

// ReadPacket reads one fixed header and the packet it announces, allocating
// a fresh packet sized from lim.
func ReadPacket(d *Decoder, version byte, lim *Limits) (Packet, error) {
	var h FixedHeader
	if err := h.Decode(d); err != nil {
		return nil, err
	}

	p, err := NewPacket(h.PacketType, lim)
	if err != nil {
		return nil, err
	}
	if err := DecodePacket(d, h, p, version, lim); err != nil {
		return nil, err
	}
	return p, nil
}
