package mqttlite

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectError(t *testing.T) {
	tests := []struct {
		reason ReasonCode
		base   error
	}{
		{ReasonBadUserNameOrPassword, ErrAuthFailed},
		{ReasonNotAuthorized, ErrAuthFailed},
		{ReasonServerUnavailable, ErrConnectRefused},
		{ReasonBanned, ErrConnectRefused},
	}

	for _, tt := range tests {
		var err error = NewConnectError(tt.reason, NewProperties(0))
		assert.ErrorIs(t, err, tt.base, tt.reason.String())

		var connErr *ConnectError
		require.True(t, errors.As(err, &connErr))
		assert.Equal(t, tt.reason, connErr.ReasonCode)
		assert.Contains(t, err.Error(), tt.reason.String())
	}
}

func TestEventErrors(t *testing.T) {
	props := NewProperties(0)
	props.Add(PropReasonString, "bye")

	tests := []struct {
		name  string
		event error
		base  error
	}{
		{name: "connected", event: NewConnectedEvent(true, props), base: ErrConnected},
		{name: "disconnect", event: NewDisconnectError(ReasonSessionTakenOver, props), base: ErrServerDisconnect},
		{name: "publish", event: NewPublishError("t", 3, ReasonQuotaExceeded), base: ErrPublishFailed},
		{name: "subscribe", event: NewSubscribeError(4, 1, ReasonNotAuthorized), base: ErrSubscribeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.event, tt.base)
			assert.NotEmpty(t, tt.event.Error())
		})
	}

	var disc *DisconnectError
	require.ErrorAs(t, tests[1].event, &disc)
	assert.Equal(t, "bye", disc.Properties.GetString(PropReasonString))

	var sub *SubscribeError
	require.ErrorAs(t, tests[3].event, &sub)
	assert.Equal(t, 1, sub.Index)
	assert.Equal(t, uint16(4), sub.PacketID)
}
