package mqttlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReasonCodeString(t *testing.T) {
	assert.Equal(t, "Success", ReasonSuccess.String())
	assert.Equal(t, "Not authorized", ReasonNotAuthorized.String())
	assert.Equal(t, "Not connected", StatusNotConnected.String())
	assert.Equal(t, "Unknown reason code", ReasonCode(0x7F).String())
}

func TestReasonCodeClass(t *testing.T) {
	assert.True(t, ReasonSuccess.IsSuccess())
	assert.True(t, ReasonGrantedQoS2.IsSuccess())
	assert.True(t, ReasonUnspecifiedError.IsError())
	assert.True(t, ReasonImplSpecificError.IsError())
	assert.False(t, ReasonNoMatchingSubscribers.IsError())
}

func TestReasonFromReturnCode(t *testing.T) {
	tests := []struct {
		code byte
		want ReasonCode
	}{
		{0, ReasonSuccess},
		{1, ReasonUnsupportedProtocolVersion},
		{2, ReasonClientIDNotValid},
		{3, ReasonServerUnavailable},
		{4, ReasonBadUserNameOrPassword},
		{5, ReasonNotAuthorized},
		{6, ReasonUnspecifiedError},
		{0x80, ReasonUnspecifiedError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ReasonFromReturnCode(tt.code), "code %d", tt.code)
	}
}

func TestReasonCodeValidFor(t *testing.T) {
	tests := []struct {
		code   ReasonCode
		packet PacketType
		want   bool
	}{
		{ReasonSuccess, PacketCONNACK, true},
		{ReasonSuccess, PacketAUTH, true},
		{ReasonGrantedQoS1, PacketSUBACK, true},
		{ReasonGrantedQoS1, PacketCONNACK, false},
		{ReasonNoMatchingSubscribers, PacketPUBACK, true},
		{ReasonNoMatchingSubscribers, PacketPUBREC, true},
		{ReasonNoMatchingSubscribers, PacketPUBCOMP, false},
		{ReasonPacketIDNotFound, PacketPUBREL, true},
		{ReasonNoSubscriptionExisted, PacketUNSUBACK, true},
		{ReasonSessionTakenOver, PacketDISCONNECT, true},
		{ReasonSessionTakenOver, PacketCONNACK, false},
		{ReasonContinueAuth, PacketAUTH, true},
		{StatusNotConnected, PacketCONNACK, false},
		{ReasonCode(0x7F), PacketDISCONNECT, false},
		{ReasonSuccess, PacketType(0), false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.code.ValidFor(tt.packet), "%s on %s", tt.code, tt.packet)
	}
}
