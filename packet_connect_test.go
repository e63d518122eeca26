package mqttlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func referenceConnectBody() []byte {
	body := []byte{0, 4, 'M', 'Q', 'T', 'T', 5, 0b11001110, 0, 16}
	body = append(body, 5, 17, 0, 0, 0, 10)
	body = append(body, 0, 8)
	body = append(body, "le_batya"...)
	body = append(body, 5, 24, 0, 0, 0, 10)
	body = append(body, 0, 6)
	body = append(body, "bugurt"...)
	body = append(body, 0, 0)
	body = append(body, 0, 4)
	body = append(body, "sych"...)
	body = append(body, 0, 4)
	body = append(body, "yoba"...)
	return body
}

func referenceConnect() *ConnectPacket {
	lim := DefaultLimits()
	p := NewConnectPacket(&lim)
	p.Flags = ConnectFlagUsername | ConnectFlagPassword | ConnectFlagWill | ConnectFlagCleanStart
	p.Flags = p.Flags.WithWillQoS(1)
	p.KeepAlive = 16
	p.Props.Add(PropSessionExpiryInterval, uint32(10))
	p.ClientID = "le_batya"
	p.WillProps.Add(PropWillDelayInterval, uint32(10))
	p.WillTopic = "bugurt"
	p.Username = "sych"
	p.Password = []byte("yoba")
	return p
}

func TestConnectPacketReferenceEncoding(t *testing.T) {
	body := referenceConnectBody()
	want := append([]byte{0x10, byte(len(body))}, body...)

	got := encodeToBytes(t, referenceConnect(), ProtocolV5)
	assert.Equal(t, want, got)

	size, err := PacketSize(referenceConnect(), ProtocolV5)
	require.NoError(t, err)
	assert.Equal(t, len(want), size)
}

func TestConnectPacketReferenceDecoding(t *testing.T) {
	body := referenceConnectBody()
	d, seen := newTestDecoder(append([]byte{0x10, byte(len(body))}, body...))

	pkt, err := ReadPacket(d, ProtocolV5, nil)
	require.NoError(t, err)
	assert.Empty(t, *seen)

	p, ok := pkt.(*ConnectPacket)
	require.True(t, ok)
	assert.Equal(t, ProtocolName, p.ProtocolName)
	assert.Equal(t, ProtocolV5, p.ProtocolVersion)
	assert.Equal(t, ConnectFlags(0b11001110), p.Flags)
	assert.Equal(t, byte(1), p.Flags.WillQoS())
	assert.False(t, p.Flags.Has(ConnectFlagWillRetain))
	assert.Equal(t, uint16(16), p.KeepAlive)
	assert.Equal(t, uint32(10), p.Props.GetUint32(PropSessionExpiryInterval))
	assert.Equal(t, "le_batya", p.ClientID)
	assert.Equal(t, uint32(10), p.WillProps.GetUint32(PropWillDelayInterval))
	assert.Equal(t, "bugurt", p.WillTopic)
	assert.Empty(t, p.WillPayload)
	assert.Equal(t, "sych", p.Username)
	assert.Equal(t, []byte("yoba"), p.Password)

	assert.Equal(t, encodeToBytes(t, referenceConnect(), ProtocolV5), encodeToBytes(t, p, ProtocolV5))
}

func TestConnectPacketV311(t *testing.T) {
	lim := DefaultLimits()
	p := NewConnectPacket(&lim)
	p.ProtocolVersion = ProtocolV311
	p.Flags = ConnectFlagCleanStart
	p.KeepAlive = 60
	p.ClientID = "c"
	p.Props.Add(PropSessionExpiryInterval, uint32(10))

	want := []byte{0x10, 13, 0, 4, 'M', 'Q', 'T', 'T', 4, 0x02, 0, 60, 0, 1, 'c'}
	assert.Equal(t, want, encodeToBytes(t, p, ProtocolV5))

	d, _ := newTestDecoder(want)
	pkt, err := ReadPacket(d, ProtocolV5, nil)
	require.NoError(t, err)
	decoded := pkt.(*ConnectPacket)
	assert.Equal(t, ProtocolV311, decoded.ProtocolVersion)
	assert.Zero(t, decoded.Props.Len())
	assert.Equal(t, "c", decoded.ClientID)
}

func TestConnectPacketOmitsUnflaggedFields(t *testing.T) {
	lim := DefaultLimits()
	p := NewConnectPacket(&lim)
	p.Flags = ConnectFlagCleanStart
	p.ClientID = "id"
	p.Username = "ignored"
	p.Password = []byte("ignored")
	p.WillTopic = "ignored"

	q := NewConnectPacket(&lim)
	q.Flags = ConnectFlagCleanStart
	q.ClientID = "id"

	assert.Equal(t, encodeToBytes(t, q, ProtocolV5), encodeToBytes(t, p, ProtocolV5))
}

func TestConnectFlagsValidate(t *testing.T) {
	tests := []struct {
		name    string
		flags   ConnectFlags
		wantErr bool
	}{
		{name: "clean start", flags: ConnectFlagCleanStart},
		{name: "will qos 2", flags: ConnectFlagWill.WithWillQoS(2)},
		{name: "will retain", flags: ConnectFlagWill | ConnectFlagWillRetain},
		{name: "reserved bit", flags: connectFlagReserved, wantErr: true},
		{name: "will qos without will", flags: ConnectFlags(0).WithWillQoS(1), wantErr: true},
		{name: "will retain without will", flags: ConnectFlagWillRetain, wantErr: true},
		{name: "will qos 3", flags: ConnectFlagWill | connectFlagWillQoS, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.flags.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConnectFlags)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConnectPacketDecodeErrors(t *testing.T) {
	t.Run("reserved flag", func(t *testing.T) {
		wire := []byte{0x10, 13, 0, 4, 'M', 'Q', 'T', 'T', 4, 0x03, 0, 60, 0, 1, 'c', 0xC0, 0x00}
		d, _ := newTestDecoder(wire)

		_, err := ReadPacket(d, ProtocolV311, nil)
		assert.ErrorIs(t, err, ErrMalformedPacket)
		assert.ErrorIs(t, err, ErrInvalidConnectFlags)

		pkt, err := ReadPacket(d, ProtocolV311, nil)
		require.NoError(t, err)
		assert.Equal(t, PacketPINGREQ, pkt.Type())
	})

	t.Run("long client id is cut", func(t *testing.T) {
		lim := DefaultLimits()
		lim.MaxClientID = 4

		body := []byte{0, 4, 'M', 'Q', 'T', 'T', 4, 0x02, 0, 60, 0, 8}
		body = append(body, "le_batya"...)
		d, seen := newTestDecoder(append([]byte{0x10, byte(len(body))}, body...))

		pkt, err := ReadPacket(d, ProtocolV311, &lim)
		require.NoError(t, err)
		assert.Equal(t, "le_b", pkt.(*ConnectPacket).ClientID)
		assert.Equal(t, []truncation{{TruncatedString, 4}}, *seen)
	})
}

func TestConnectPacketReuse(t *testing.T) {
	body := referenceConnectBody()
	wire := append([]byte{0x10, byte(len(body))}, body...)
	wire = append(wire, 0x10, 13, 0, 4, 'M', 'Q', 'T', 'T', 4, 0x02, 0, 60, 0, 1, 'c')
	d, _ := newTestDecoder(wire)

	lim := DefaultLimits()
	p := NewConnectPacket(&lim)
	for _, want := range []string{"le_batya", "c"} {
		var h FixedHeader
		require.NoError(t, h.Decode(d))
		require.NoError(t, DecodePacket(d, h, p, ProtocolV5, &lim))
		assert.Equal(t, want, p.ClientID)
	}

	assert.Empty(t, p.Username)
	assert.Nil(t, p.Password)
	assert.Zero(t, p.Props.Len())
	assert.Equal(t, lim.ConnectProperties, p.Props.Cap())
}
