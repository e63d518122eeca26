package mqttlite

import "errors"

// EventHandler receives client lifecycle events. Events are errors so
// callers can match them with errors.Is and errors.As.
type EventHandler func(client *Client, event error)

// Sentinel events - check with errors.Is().
var (
	// ErrConnected is emitted when the server accepts the connection.
	ErrConnected = errors.New("connected")

	// ErrServerDisconnect is emitted when the server sends DISCONNECT.
	ErrServerDisconnect = errors.New("server disconnect")
)

// Sentinel errors - check with errors.Is().
var (
	// ErrAuthFailed is the base of a ConnectError caused by credentials.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrConnectRefused is the base of any other ConnectError.
	ErrConnectRefused = errors.New("connection refused")

	// ErrNotConnected is returned when an operation requires an accepted connection.
	ErrNotConnected = errors.New("not connected")

	// ErrRateLimited is returned when the publish rate limit is exhausted.
	ErrRateLimited = errors.New("publish rate limit exceeded")

	// ErrPublishFailed is the base of a PublishError.
	ErrPublishFailed = errors.New("publish failed")

	// ErrSubscribeFailed is the base of a SubscribeError.
	ErrSubscribeFailed = errors.New("subscribe failed")

	// ErrNothingToSend is returned for subscribe or unsubscribe calls without topics.
	ErrNothingToSend = errors.New("no topics given")
)

// ConnectedEvent contains details about an accepted connection.
// Extract with errors.As().
type ConnectedEvent struct {
	err            error
	SessionPresent bool
	ServerProps    Properties
}

func (e *ConnectedEvent) Error() string { return e.err.Error() }
func (e *ConnectedEvent) Unwrap() error { return e.err }

// NewConnectedEvent creates a new ConnectedEvent.
func NewConnectedEvent(sessionPresent bool, props Properties) *ConnectedEvent {
	return &ConnectedEvent{
		err:            ErrConnected,
		SessionPresent: sessionPresent,
		ServerProps:    props,
	}
}

// ConnectError contains details about a refused connection.
// Extract with errors.As().
type ConnectError struct {
	err        error
	ReasonCode ReasonCode
	Properties Properties
}

func (e *ConnectError) Error() string {
	return "connect failed: " + e.ReasonCode.String()
}

func (e *ConnectError) Unwrap() error { return e.err }

// NewConnectError creates a new ConnectError from a reason code.
func NewConnectError(reason ReasonCode, props Properties) *ConnectError {
	baseErr := ErrConnectRefused
	if reason == ReasonBadUserNameOrPassword || reason == ReasonNotAuthorized {
		baseErr = ErrAuthFailed
	}
	return &ConnectError{
		err:        baseErr,
		ReasonCode: reason,
		Properties: props,
	}
}

// DisconnectError contains the reason of a server DISCONNECT.
// Extract with errors.As().
type DisconnectError struct {
	ReasonCode ReasonCode
	Properties Properties
}

func (e *DisconnectError) Error() string {
	return "server disconnect: " + e.ReasonCode.String()
}

func (e *DisconnectError) Unwrap() error { return ErrServerDisconnect }

// NewDisconnectError creates a new DisconnectError.
func NewDisconnectError(reason ReasonCode, props Properties) *DisconnectError {
	return &DisconnectError{ReasonCode: reason, Properties: props}
}

// PublishError contains details about a publish the server rejected.
// Extract with errors.As().
type PublishError struct {
	Topic      string
	PacketID   uint16
	ReasonCode ReasonCode
}

func (e *PublishError) Error() string {
	return "publish failed: " + e.ReasonCode.String()
}

func (e *PublishError) Unwrap() error { return ErrPublishFailed }

// NewPublishError creates a new PublishError.
func NewPublishError(topic string, packetID uint16, reason ReasonCode) *PublishError {
	return &PublishError{
		Topic:      topic,
		PacketID:   packetID,
		ReasonCode: reason,
	}
}

// SubscribeError contains details about a rejected subscription.
// Extract with errors.As().
type SubscribeError struct {
	PacketID   uint16
	Index      int
	ReasonCode ReasonCode
}

func (e *SubscribeError) Error() string {
	return "subscribe failed: " + e.ReasonCode.String()
}

func (e *SubscribeError) Unwrap() error { return ErrSubscribeFailed }

// NewSubscribeError creates a new SubscribeError for the index-th filter of
// the SUBSCRIBE with packetID.
func NewSubscribeError(packetID uint16, index int, reason ReasonCode) *SubscribeError {
	return &SubscribeError{
		PacketID:   packetID,
		Index:      index,
		ReasonCode: reason,
	}
}
