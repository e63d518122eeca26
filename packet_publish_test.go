package mqttlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishPacketEncoding(t *testing.T) {
	tests := []struct {
		name    string
		packet  PublishPacket
		version byte
		want    []byte
	}{
		{
			name:    "qos 0 has no packet id",
			packet:  PublishPacket{Topic: "a/b", Payload: []byte("hi"), PacketID: 99},
			version: ProtocolV5,
			want:    []byte{0x30, 8, 0, 3, 'a', '/', 'b', 0, 'h', 'i'},
		},
		{
			name:    "qos 1 with flags",
			packet:  PublishPacket{Topic: "a/b", Payload: []byte("hi"), QoS: 1, Retain: true, DUP: true, PacketID: 10},
			version: ProtocolV5,
			want:    []byte{0x3B, 10, 0, 3, 'a', '/', 'b', 0, 10, 0, 'h', 'i'},
		},
		{
			name:    "v3.1.1 has no properties",
			packet:  PublishPacket{Topic: "a/b", Payload: []byte("hi"), QoS: 1, PacketID: 10},
			version: ProtocolV311,
			want:    []byte{0x32, 9, 0, 3, 'a', '/', 'b', 0, 10, 'h', 'i'},
		},
		{
			name:    "empty payload",
			packet:  PublishPacket{Topic: "t"},
			version: ProtocolV311,
			want:    []byte{0x30, 3, 0, 1, 't'},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, encodeToBytes(t, &tt.packet, tt.version))
		})
	}
}

func TestPublishPacketDecoding(t *testing.T) {
	t.Run("qos 0", func(t *testing.T) {
		d, _ := newTestDecoder([]byte{0x31, 8, 0, 3, 'a', '/', 'b', 0, 'h', 'i'})
		pkt, err := ReadPacket(d, ProtocolV5, nil)
		require.NoError(t, err)

		p := pkt.(*PublishPacket)
		assert.Equal(t, "a/b", p.Topic)
		assert.Equal(t, []byte("hi"), p.Payload)
		assert.Zero(t, p.QoS)
		assert.Zero(t, p.PacketID)
		assert.True(t, p.Retain)
	})

	t.Run("qos 1 with properties", func(t *testing.T) {
		src := &PublishPacket{Topic: "x", Payload: []byte{1, 2, 3}, QoS: 1, PacketID: 0x1234, Props: NewProperties(0)}
		src.Props.Add(PropContentType, "bin")
		src.Props.Add(PropUserProperty, StringPair{Key: "k", Value: "v"})

		d, _ := newTestDecoder(encodeToBytes(t, src, ProtocolV5))
		pkt, err := ReadPacket(d, ProtocolV5, nil)
		require.NoError(t, err)

		p := pkt.(*PublishPacket)
		assert.Equal(t, uint16(0x1234), p.PacketID)
		assert.Equal(t, byte(1), p.QoS)
		assert.Equal(t, []byte{1, 2, 3}, p.Payload)
		assert.Equal(t, "bin", p.Props.GetString(PropContentType))

		msg := p.ToMessage()
		assert.Equal(t, "x", msg.Topic)
		assert.Equal(t, uint16(0x1234), msg.PacketID)
		assert.Equal(t, "bin", msg.ContentType)
		assert.Equal(t, []StringPair{{Key: "k", Value: "v"}}, msg.UserProperties)
	})

	t.Run("payload over capacity", func(t *testing.T) {
		lim := DefaultLimits()
		lim.MaxPayload = 1

		d, seen := newTestDecoder([]byte{0x30, 6, 0, 1, 't', 'a', 'b', 'c', 0xC0, 0})
		pkt, err := ReadPacket(d, ProtocolV311, &lim)
		require.NoError(t, err)
		assert.Equal(t, []byte("a"), pkt.(*PublishPacket).Payload)
		assert.Equal(t, []truncation{{TruncatedPayload, 2}}, *seen)

		pkt, err = ReadPacket(d, ProtocolV311, &lim)
		require.NoError(t, err)
		assert.Equal(t, PacketPINGREQ, pkt.Type())
	})

	t.Run("qos 3 is malformed", func(t *testing.T) {
		d, _ := newTestDecoder([]byte{0x36, 3, 0, 1, 't', 0xD0, 0})
		_, err := ReadPacket(d, ProtocolV311, nil)
		assert.ErrorIs(t, err, ErrMalformedPacket)
		assert.ErrorIs(t, err, ErrInvalidPacketFlags)

		pkt, err := ReadPacket(d, ProtocolV311, nil)
		require.NoError(t, err)
		assert.Equal(t, PacketPINGRESP, pkt.Type())
	})
}

func TestPublishPacketValidate(t *testing.T) {
	tests := []struct {
		name    string
		packet  PublishPacket
		wantErr error
	}{
		{name: "valid qos 0", packet: PublishPacket{Topic: "a"}},
		{name: "valid qos 1", packet: PublishPacket{Topic: "a", QoS: 1, PacketID: 1}},
		{name: "missing packet id", packet: PublishPacket{Topic: "a", QoS: 1}, wantErr: ErrPacketIDRequired},
		{name: "invalid qos", packet: PublishPacket{Topic: "a", QoS: 3, PacketID: 1}, wantErr: ErrInvalidQoS},
		{name: "empty topic", packet: PublishPacket{}, wantErr: ErrEmptyTopic},
		{name: "wildcard topic", packet: PublishPacket{Topic: "a/+"}, wantErr: ErrInvalidTopicName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.packet.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPublishPacketFromMessage(t *testing.T) {
	msg := &Message{
		Topic:         "sensors/1",
		Payload:       []byte("21.5"),
		QoS:           1,
		Retain:        true,
		PayloadFormat: 1,
		ContentType:   "text/plain",
		ResponseTopic: "reply",
		UserProperties: []StringPair{
			{Key: "a", Value: "1"},
			{Key: "b", Value: "2"},
		},
	}

	p := &PublishPacket{Props: NewProperties(3)}
	dropped := p.FromMessage(msg)
	assert.Equal(t, 2, dropped)
	assert.Equal(t, 3, p.Props.Len())
	assert.Equal(t, "sensors/1", p.Topic)
	assert.True(t, p.Retain)

	unbounded := &PublishPacket{Props: NewProperties(0)}
	assert.Zero(t, unbounded.FromMessage(msg))

	back := unbounded.ToMessage()
	assert.Equal(t, msg.ContentType, back.ContentType)
	assert.Equal(t, msg.ResponseTopic, back.ResponseTopic)
	assert.Equal(t, msg.UserProperties, back.UserProperties)
}

func TestMessageClone(t *testing.T) {
	msg := &Message{
		Topic:           "t",
		Payload:         []byte{1, 2},
		CorrelationData: []byte{3},
		UserProperties:  []StringPair{{Key: "k", Value: "v"}},
	}

	clone := msg.Clone()
	msg.Payload[0] = 9
	msg.CorrelationData[0] = 9
	msg.UserProperties[0].Value = "changed"

	assert.Equal(t, []byte{1, 2}, clone.Payload)
	assert.Equal(t, []byte{3}, clone.CorrelationData)
	assert.Equal(t, "v", clone.UserProperties[0].Value)

	var nilMsg *Message
	assert.Nil(t, nilMsg.Clone())
}
