package mqttlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAckPacketEncoding(t *testing.T) {
	tests := []struct {
		name    string
		packet  Packet
		version byte
		want    []byte
	}{
		{
			name:    "puback v5",
			packet:  NewPuback(5, ReasonSuccess, nil),
			version: ProtocolV5,
			want:    []byte{0x40, 4, 0, 5, 0x00, 0},
		},
		{
			name:    "puback v5 with error",
			packet:  NewPuback(5, ReasonImplSpecificError, nil),
			version: ProtocolV5,
			want:    []byte{0x40, 4, 0, 5, 0x83, 0},
		},
		{
			name:    "puback v3.1.1",
			packet:  NewPuback(5, ReasonImplSpecificError, nil),
			version: ProtocolV311,
			want:    []byte{0x40, 2, 0, 5},
		},
		{
			name:    "pubrel has fixed flags",
			packet:  &PubrelPacket{ackPacket{PacketID: 1}},
			version: ProtocolV311,
			want:    []byte{0x62, 2, 0, 1},
		},
		{
			name:    "pubrec",
			packet:  &PubrecPacket{ackPacket{PacketID: 2}},
			version: ProtocolV311,
			want:    []byte{0x50, 2, 0, 2},
		},
		{
			name:    "pubcomp",
			packet:  &PubcompPacket{ackPacket{PacketID: 3}},
			version: ProtocolV311,
			want:    []byte{0x70, 2, 0, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, encodeToBytes(t, tt.packet, tt.version))
		})
	}
}

func TestAckPacketDecoding(t *testing.T) {
	tests := []struct {
		name   string
		wire   []byte
		id     uint16
		reason ReasonCode
	}{
		{name: "packet id only", wire: []byte{0x40, 2, 0, 5}, id: 5, reason: ReasonSuccess},
		{name: "reason without properties", wire: []byte{0x40, 3, 0, 5, 0x10}, id: 5, reason: ReasonNoMatchingSubscribers},
		{name: "reason and properties", wire: []byte{0x40, 4, 0, 6, 0x87, 0}, id: 6, reason: ReasonNotAuthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newTestDecoder(tt.wire)
			pkt, err := ReadPacket(d, ProtocolV5, nil)
			require.NoError(t, err)

			p := pkt.(*PubackPacket)
			assert.Equal(t, tt.id, p.GetPacketID())
			assert.Equal(t, tt.reason, p.ReasonCode)
		})
	}
}

func TestAckPacketReasonString(t *testing.T) {
	wire := []byte{0x40, 9, 0, 1, 0x80, 5, byte(PropReasonString), 0, 2, 'n', 'o'}
	d, _ := newTestDecoder(wire)

	pkt, err := ReadPacket(d, ProtocolV5, nil)
	require.NoError(t, err)

	p := pkt.(*PubackPacket)
	assert.Equal(t, ReasonUnspecifiedError, p.ReasonCode)
	assert.Equal(t, "no", p.Properties().GetString(PropReasonString))
}
