package mqttlite

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPacket(t *testing.T) {
	for pt := PacketCONNECT; pt <= PacketAUTH; pt++ {
		p, err := NewPacket(pt, nil)
		require.NoError(t, err, pt.String())
		assert.Equal(t, pt, p.Type())
	}

	_, err := NewPacket(0, nil)
	assert.ErrorIs(t, err, ErrInvalidPacketType)
}

func TestNewPacketSizedFromLimits(t *testing.T) {
	lim := DefaultLimits()
	lim.MaxSubscriptions = 5
	lim.PublishProperties = 2

	p, err := NewPacket(PacketSUBSCRIBE, &lim)
	require.NoError(t, err)
	assert.Equal(t, 5, cap(p.(*SubscribePacket).Subscriptions))

	p, err = NewPacket(PacketPUBLISH, &lim)
	require.NoError(t, err)
	assert.Equal(t, 2, p.(*PublishPacket).Props.Cap())
}

func TestHeader(t *testing.T) {
	p := &PublishPacket{Topic: "a", Payload: []byte("xyz"), QoS: 1, PacketID: 1, Retain: true}

	h, err := Header(p, ProtocolV311)
	require.NoError(t, err)
	assert.Equal(t, FixedHeader{PacketType: PacketPUBLISH, Flags: 0x03, RemainingLength: 8}, h)

	h, err = Header(&SubscribePacket{PacketID: 1}, ProtocolV311)
	require.NoError(t, err)
	assert.Equal(t, byte(0x02), h.Flags)
}

func TestWritePacketReportsBytes(t *testing.T) {
	var buf bytes.Buffer
	n, err := WritePacket(&buf, &PingreqPacket{}, ProtocolV5)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestEncodePacketFieldError(t *testing.T) {
	var buf bytes.Buffer
	p := &PublishPacket{Topic: "bad\x00topic"}

	_, err := WritePacket(&buf, p, ProtocolV5)
	assert.ErrorIs(t, err, ErrStringContainsNull)
	assert.Contains(t, err.Error(), "topic name")
}

func TestDecodePacketTypeMismatch(t *testing.T) {
	d, _ := newTestDecoder([]byte{0, 1})
	h := FixedHeader{PacketType: PacketPUBACK, RemainingLength: 2}

	err := DecodePacket(d, h, &PingreqPacket{}, ProtocolV5, nil)
	assert.ErrorIs(t, err, ErrPacketTypeMismatch)
	assert.Zero(t, d.Consumed())
}

func TestDecodePacketSkipsTrailingBytes(t *testing.T) {
	d, _ := newTestDecoder([]byte{0xD0, 3, 1, 2, 3, 0xC0, 0})

	pkt, err := ReadPacket(d, ProtocolV5, nil)
	require.NoError(t, err)
	assert.Equal(t, PacketPINGRESP, pkt.Type())

	pkt, err = ReadPacket(d, ProtocolV5, nil)
	require.NoError(t, err)
	assert.Equal(t, PacketPINGREQ, pkt.Type())
}

func TestDecodePacketTimeoutIsNotMalformed(t *testing.T) {
	d, _ := newTestDecoder([]byte{0x40, 4, 0, 1})

	_, err := ReadPacket(d, ProtocolV5, nil)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.NotErrorIs(t, err, ErrMalformedPacket)
}

func TestPacketSizeMatchesEncoding(t *testing.T) {
	lim := DefaultLimits()
	sub := NewSubscribePacket(&lim)
	sub.PacketID = 9
	sub.AddSubscription(Subscription{TopicFilter: "x/y", QoS: 1})
	sub.Props.Add(PropUserProperty, StringPair{Key: "a", Value: "b"})

	packets := []Packet{
		referenceConnect(),
		&PublishPacket{Topic: "t", Payload: bytes.Repeat([]byte{1}, 200), QoS: 1, PacketID: 2},
		NewPuback(1, ReasonSuccess, nil),
		sub,
		&DisconnectPacket{ReasonCode: ReasonDisconnectWithWill},
	}

	for _, p := range packets {
		for _, v := range []byte{ProtocolV311, ProtocolV5} {
			size, err := PacketSize(p, v)
			require.NoError(t, err)
			assert.Len(t, encodeToBytes(t, p, v), size, "%s v%d", p.Type(), v)
		}
	}
}
