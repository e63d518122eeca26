package mqttlite

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ConnectionState is the client side of the connection handshake.
type ConnectionState int32

const (
	// StateDisconnected means no CONNECT has been sent.
	StateDisconnected ConnectionState = iota
	// StateConnectSent means CONNECT was written and CONNACK is awaited.
	StateConnectSent
	// StateConnected means the server accepted the connection.
	StateConnected
	// StateFailed means the server refused the connection.
	StateFailed
)

// String returns the string representation of the state.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnectSent:
		return "connect sent"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ConnectPayload holds the CONNECT payload fields. Optional fields are sent
// only when set: Username when non-empty, Password when non-nil and the will
// when WillTopic is non-empty.
type ConnectPayload struct {
	ClientID    string
	Username    string
	Password    []byte
	WillTopic   string
	WillPayload []byte
	WillQoS     byte
	WillRetain  bool
}

// Client is an MQTT client driven by its caller.
//
// The client spawns no goroutines. Process reads and handles one inbound
// packet and must be called repeatedly from a single goroutine. Send and
// everything built on it may be called concurrently with Process and with
// each other.
type Client struct {
	options *clientOptions
	stream  Stream
	decoder *Decoder
	logger  Logger
	metrics *ClientMetrics

	sendMu sync.Mutex

	state      atomic.Int32
	status     atomic.Uint32
	connectErr atomic.Pointer[ConnectError]

	pending   *PendingStore
	ids       PacketIDCounter
	flow      *FlowController
	keepAlive *KeepAliveTracker

	// Reused by Process; only touched by the reader.
	scratch [PacketAUTH + 1]Packet
	message Message
	puback  PubackPacket
}

// New creates a client talking over stream.
func New(stream Stream, opts ...Option) *Client {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	c := &Client{
		options: options,
		stream:  stream,
		logger:  options.logger.WithFields(LogFields{LogFieldClientID: options.clientID}),
		metrics: NewClientMetrics(options.metrics),
	}

	if err := options.limits.Validate(); err != nil {
		c.logger.Warn("invalid limits, using defaults", LogFields{LogFieldError: err.Error()})
		options.limits = DefaultLimits()
	}

	c.status.Store(uint32(StatusNotConnected))
	c.pending = NewPendingStore(options.limits.PendingPublishes)
	c.flow = NewFlowController(0)
	c.keepAlive = NewKeepAliveTracker(options.clock, options.keepAlive)
	for t := PacketCONNECT; t <= PacketAUTH; t++ {
		c.scratch[t], _ = NewPacket(t, &options.limits)
	}
	c.decoder = NewDecoder(stream, DecoderOptions{
		Clock:        options.clock,
		Timeout:      options.readTimeout,
		PollInterval: options.pollInterval,
		Observer:     c.truncated,
	})

	return c
}

// State returns the connection state.
func (c *Client) State() ConnectionState {
	return ConnectionState(c.state.Load())
}

// Status returns the reason code of the last CONNACK, or StatusNotConnected.
func (c *Client) Status() ReasonCode {
	return ReasonCode(c.status.Load())
}

// IsConnected reports whether the server accepted the connection.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// ClientID returns the configured client identifier.
func (c *Client) ClientID() string {
	return c.options.clientID
}

// KeepAliveInterval returns the negotiated keep-alive interval; zero
// disables keep-alive.
func (c *Client) KeepAliveInterval() time.Duration {
	return c.keepAlive.Interval()
}

// PingDue reports whether the client is connected and sent nothing for a
// full keep-alive interval. The caller should Ping.
func (c *Client) PingDue() bool {
	return c.IsConnected() && c.keepAlive.PingDue()
}

// KeepAliveExpired reports whether the server sent nothing for one and a
// half keep-alive intervals. The caller should drop the connection.
func (c *Client) KeepAliveExpired() bool {
	return c.IsConnected() && c.keepAlive.Expired()
}

// SendQuota returns how many more QoS 1 publishes the server accepts before
// the unacknowledged ones are acknowledged.
func (c *Client) SendQuota() uint16 {
	return c.flow.Available()
}

// ConnectError returns the refusal of the last CONNECT, or nil.
func (c *Client) ConnectError() error {
	if err := c.connectErr.Load(); err != nil {
		return err
	}
	return nil
}

// Connect sends CONNECT with the configured client id, credentials and will.
func (c *Client) Connect() error {
	return c.ConnectWithCredentials(c.options.username, string(c.options.password))
}

// ConnectWithCredentials sends CONNECT with the configured client id and will
// and the given credentials. Empty credentials are not sent.
func (c *Client) ConnectWithCredentials(username, password string) error {
	payload := ConnectPayload{
		ClientID:    c.options.clientID,
		Username:    username,
		WillTopic:   c.options.willTopic,
		WillPayload: c.options.willPayload,
		WillQoS:     c.options.willQoS,
		WillRetain:  c.options.willRetain,
	}
	if password != "" {
		payload.Password = []byte(password)
	}
	return c.ConnectAsync(payload)
}

// ConnectAsync writes a CONNECT built from payload and moves to
// StateConnectSent. It does not wait for CONNACK; Process handles it.
func (c *Client) ConnectAsync(payload ConnectPayload) error {
	p := NewConnectPacket(&c.options.limits)
	p.ProtocolVersion = c.options.protocolVersion
	p.KeepAlive = c.options.keepAlive
	p.ClientID = payload.ClientID

	flags := ConnectFlagCleanStart
	if payload.Username != "" {
		flags |= ConnectFlagUsername
		p.Username = payload.Username
	}
	if payload.Password != nil {
		flags |= ConnectFlagPassword
		p.Password = payload.Password
	}
	if payload.WillTopic != "" {
		flags = flags.With(ConnectFlagWill, true).
			WithWillQoS(payload.WillQoS).
			With(ConnectFlagWillRetain, payload.WillRetain)
		p.WillTopic = payload.WillTopic
		p.WillPayload = payload.WillPayload
	}
	if err := flags.Validate(); err != nil {
		return err
	}
	p.Flags = flags

	prev := c.setState(StateConnectSent)
	c.status.Store(uint32(StatusNotConnected))
	c.connectErr.Store(nil)
	c.keepAlive.Reset(p.KeepAlive)
	c.flow.Reset(0)

	if err := c.Send(p); err != nil {
		c.state.CompareAndSwap(int32(StateConnectSent), int32(prev))
		c.logger.Error("failed to send CONNECT", LogFields{LogFieldError: err.Error()})
		return err
	}

	c.logger.Debug("CONNECT sent", LogFields{LogFieldState: StateConnectSent.String()})
	return nil
}

func (c *Client) setState(s ConnectionState) ConnectionState {
	return ConnectionState(c.state.Swap(int32(s)))
}

// Send writes p as one packet: fixed header, variable header, then payload.
// The remaining length is computed from the populated fields.
func (c *Client) Send(p Packet) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	n, err := WritePacket(c.stream, p, c.options.protocolVersion)
	if err != nil {
		return fmt.Errorf("send %s: %w", p.Type(), err)
	}
	if f, ok := c.stream.(Flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("send %s: %w: %w", p.Type(), ErrTransport, err)
		}
	}

	c.keepAlive.Sent()
	c.metrics.PacketSent(p.Type(), n)
	return nil
}

// Publish sends an application message. QoS 2 is downgraded to QoS 1.
// For QoS 1 the assigned packet id is returned and the publish stays
// pending until its PUBACK.
func (c *Client) Publish(topic string, payload []byte, qos byte, dup bool) (uint16, error) {
	return c.PublishMessage(&Message{
		Topic:   topic,
		Payload: payload,
		QoS:     qos,
		DUP:     dup,
	})
}

// PublishMessage is Publish with retain and v5 message properties.
func (c *Client) PublishMessage(msg *Message) (uint16, error) {
	if !c.IsConnected() {
		return 0, ErrNotConnected
	}
	if l := c.options.publishLimiter; l != nil && !l.Allow() {
		return 0, ErrRateLimited
	}

	p := &PublishPacket{Props: NewProperties(c.options.limits.PublishProperties)}
	if dropped := p.FromMessage(msg); dropped > 0 {
		c.logger.Warn("message properties over capacity dropped", LogFields{
			LogFieldTopic: msg.Topic,
			LogFieldKind:  string(DroppedProperties),
			"count":       dropped,
		})
	}

	if p.QoS > 1 {
		c.logger.Warn("QoS 2 is not supported, publishing with QoS 1", LogFields{LogFieldTopic: p.Topic})
		p.QoS = 1
	}
	if p.QoS > 0 {
		p.PacketID = c.ids.Next(c.pending.Has)
		p.Payload = cloneBytes(p.Payload)
	}
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if p.QoS > 0 && !c.flow.TryAcquire() {
		c.logger.Debug("send quota exhausted", LogFields{
			LogFieldTopic: p.Topic,
			"receive_max": c.flow.ReceiveMaximum(),
		})
		return 0, ErrQuotaExceeded
	}

	// Tracked before the write so a fast PUBACK always finds its entry.
	tracked := false
	if p.QoS > 0 {
		tracked = c.pending.Add(PendingPublish{
			PacketID: p.PacketID,
			Packet:   p,
			SentAt:   c.options.clock.Now(),
			Attempts: 1,
		})
		if tracked {
			c.metrics.PendingChanged(c.pending.Len())
		} else {
			c.metrics.Untracked()
			c.logger.Warn("pending store full, publish not tracked", LogFields{
				LogFieldTopic:    p.Topic,
				LogFieldPacketID: p.PacketID,
				LogFieldPending:  c.pending.Len(),
			})
		}
	}

	if err := c.Send(p); err != nil {
		if p.QoS > 0 {
			c.flow.Release()
		}
		if tracked {
			c.pending.Remove(p.PacketID)
			c.metrics.PendingChanged(c.pending.Len())
		}
		return 0, err
	}

	c.metrics.MessageSent(p.QoS)
	return p.PacketID, nil
}

// Redeliver resends the pending publish id with DUP set.
func (c *Client) Redeliver(id uint16) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	entry, ok := c.pending.touch(id, c.options.clock.Now())
	if !ok {
		return fmt.Errorf("%w: %d", ErrPacketNotPending, id)
	}
	entry.Packet.DUP = true

	c.logger.Debug("redelivering publish", LogFields{
		LogFieldPacketID: id,
		LogFieldTopic:    entry.Packet.Topic,
		"attempts":       entry.Attempts,
	})
	return c.Send(entry.Packet)
}

// Pending returns the unacknowledged QoS 1 publishes, oldest first.
func (c *Client) Pending() []PendingPublish {
	return c.pending.All()
}

// Subscribe sends one SUBSCRIBE for subs and returns its packet id.
// Subscriptions beyond the configured maximum are dropped with a warning.
func (c *Client) Subscribe(subs ...Subscription) (uint16, error) {
	if len(subs) == 0 {
		return 0, ErrNothingToSend
	}
	if !c.IsConnected() {
		return 0, ErrNotConnected
	}

	p := NewSubscribePacket(&c.options.limits)
	for i, s := range subs {
		if !p.AddSubscription(s) {
			c.logger.Warn("subscriptions over capacity dropped", LogFields{
				LogFieldKind: string(DroppedListItems),
				"count":      len(subs) - i,
			})
			break
		}
	}
	p.PacketID = c.ids.Next(c.pending.Has)

	if err := p.Validate(); err != nil {
		return 0, err
	}
	if err := c.Send(p); err != nil {
		return 0, err
	}
	return p.PacketID, nil
}

// Unsubscribe sends one UNSUBSCRIBE for filters and returns its packet id.
func (c *Client) Unsubscribe(filters ...string) (uint16, error) {
	if len(filters) == 0 {
		return 0, ErrNothingToSend
	}
	if !c.IsConnected() {
		return 0, ErrNotConnected
	}

	p := NewUnsubscribePacket(&c.options.limits)
	for i, f := range filters {
		if !p.AddTopicFilter(f) {
			c.logger.Warn("topic filters over capacity dropped", LogFields{
				LogFieldKind: string(DroppedListItems),
				"count":      len(filters) - i,
			})
			break
		}
	}
	p.PacketID = c.ids.Next(c.pending.Has)

	if err := p.Validate(); err != nil {
		return 0, err
	}
	if err := c.Send(p); err != nil {
		return 0, err
	}
	return p.PacketID, nil
}

// Ping sends PINGREQ.
func (c *Client) Ping() error {
	return c.Send(&PingreqPacket{})
}

// Disconnect sends DISCONNECT with reason and moves to StateDisconnected.
// The stream is left open; pending publishes are kept for redelivery.
func (c *Client) Disconnect(reason ReasonCode) error {
	err := c.Send(&DisconnectPacket{ReasonCode: reason})
	c.setState(StateDisconnected)
	c.status.Store(uint32(StatusNotConnected))
	return err
}

// Process reads one packet from the stream and handles it.
//
// Read failures and timeouts are returned without any state change. A packet
// that fails to decode is skipped and reported wrapped in ErrMalformedPacket;
// the stream stays aligned on the next packet.
func (c *Client) Process() error {
	var h FixedHeader
	if err := h.Decode(c.decoder); err != nil {
		if errors.Is(err, ErrInvalidPacketType) {
			return c.skipInvalid(h, err)
		}
		return c.readFailed(err)
	}
	c.keepAlive.Received()

	p := c.scratch[h.PacketType]
	if err := DecodePacket(c.decoder, h, p, c.options.protocolVersion, &c.options.limits); err != nil {
		if errors.Is(err, ErrMalformedPacket) {
			c.metrics.Malformed(h.PacketType)
			c.logger.Warn("malformed packet skipped", LogFields{
				LogFieldPacketType: h.PacketType.String(),
				LogFieldError:      err.Error(),
			})
			return err
		}
		return c.readFailed(err)
	}
	c.metrics.PacketReceived(h.PacketType)

	var err error
	switch pkt := p.(type) {
	case *ConnackPacket:
		c.handleConnack(pkt)
	case *PublishPacket:
		err = c.handlePublish(pkt)
	case *PubackPacket:
		c.handlePuback(pkt)
	case *SubackPacket:
		c.handleSuback(pkt)
	case *UnsubackPacket:
		c.handleUnsuback(pkt)
	case *PingrespPacket:
		c.logger.Debug("PINGRESP received", nil)
	case *DisconnectPacket:
		c.handleDisconnect(pkt)
	default:
		c.logger.Debug("no action for packet", LogFields{LogFieldPacketType: h.PacketType.String()})
	}

	if c.options.onPacket != nil {
		c.options.onPacket(p)
	}
	return err
}

func (c *Client) readFailed(err error) error {
	if errors.Is(err, ErrTimeout) {
		c.metrics.ReadTimeout()
	}
	c.logger.Warn("cannot read MQTT packet", LogFields{LogFieldError: err.Error()})
	return err
}

func (c *Client) skipInvalid(h FixedHeader, err error) error {
	c.metrics.Malformed(h.PacketType)
	if skipErr := c.decoder.Skip(int(h.RemainingLength)); skipErr != nil {
		return c.readFailed(skipErr)
	}
	c.logger.Warn("packet with invalid type skipped", LogFields{
		LogFieldError: err.Error(),
		LogFieldBytes: h.RemainingLength,
	})
	return fmt.Errorf("%w: %w", ErrMalformedPacket, err)
}

func (c *Client) truncated(kind TruncationKind, dropped int) {
	c.metrics.Truncated(kind, dropped)
	c.logger.Debug("inbound data over capacity skipped", LogFields{
		LogFieldKind:  string(kind),
		LogFieldBytes: dropped,
	})
}

// checkReason warns about a v5 reason code the packet type may not carry.
func (c *Client) checkReason(t PacketType, code ReasonCode) {
	if c.options.protocolVersion < ProtocolV5 || code.ValidFor(t) {
		return
	}
	c.logger.Warn("unexpected reason code", LogFields{
		LogFieldPacketType: t.String(),
		LogFieldReasonCode: byte(code),
	})
}

func (c *Client) emit(event error) {
	if c.options.onEvent != nil {
		c.options.onEvent(c, event)
	}
}

func (c *Client) handleConnack(pkt *ConnackPacket) {
	reason := pkt.ReasonCode
	if c.options.protocolVersion < ProtocolV5 {
		reason = ReasonFromReturnCode(byte(pkt.ReasonCode))
	}
	c.checkReason(PacketCONNACK, reason)

	if c.State() != StateConnectSent {
		c.logger.Warn("unexpected CONNACK ignored", LogFields{
			LogFieldState:      c.State().String(),
			LogFieldReasonCode: reason.String(),
		})
		return
	}

	c.status.Store(uint32(reason))
	if reason == ReasonSuccess {
		c.keepAlive.SetServerOverride(pkt.Props.GetUint16(PropServerKeepAlive))
		c.flow.Reset(pkt.Props.GetUint16(PropReceiveMaximum))
		c.setState(StateConnected)
		c.logger.Info("connected", LogFields{"session_present": pkt.SessionPresent()})
		c.emit(NewConnectedEvent(pkt.SessionPresent(), pkt.Props.Clone()))
		return
	}

	connErr := NewConnectError(reason, pkt.Props.Clone())
	c.connectErr.Store(connErr)
	c.setState(StateFailed)
	c.logger.Warn("connection refused", LogFields{LogFieldReasonCode: reason.String()})
	c.emit(connErr)
}

func (c *Client) handlePublish(pkt *PublishPacket) error {
	pkt.fillMessage(&c.message)
	c.metrics.MessageReceived(pkt.QoS)

	accepted := true
	if c.options.onPublish != nil {
		accepted = c.options.onPublish(&c.message)
	} else {
		c.logger.Debug("no publish handler", LogFields{LogFieldTopic: pkt.Topic})
	}

	switch pkt.QoS {
	case 1:
		reason := ReasonSuccess
		if !accepted {
			reason = ReasonImplSpecificError
		}
		c.puback.reset()
		c.puback.PacketID = pkt.PacketID
		c.puback.ReasonCode = reason
		if err := c.Send(&c.puback); err != nil {
			c.logger.Error("failed to send PUBACK", LogFields{
				LogFieldPacketID: pkt.PacketID,
				LogFieldError:    err.Error(),
			})
			return err
		}
	case 2:
		c.metrics.QoS2Dropped()
		c.logger.Warn("QoS 2 is not supported, message not acknowledged", LogFields{
			LogFieldTopic:    pkt.Topic,
			LogFieldPacketID: pkt.PacketID,
		})
	}
	return nil
}

func (c *Client) handlePuback(pkt *PubackPacket) {
	c.flow.Release()
	c.checkReason(PacketPUBACK, pkt.ReasonCode)

	entry, ok := c.pending.Remove(pkt.PacketID)
	if !ok {
		c.metrics.UnmatchedAck()
		c.logger.Warn("PUBACK for unknown packet id", LogFields{
			LogFieldPacketID:   pkt.PacketID,
			LogFieldReasonCode: pkt.ReasonCode.String(),
		})
		return
	}
	c.metrics.PendingChanged(c.pending.Len())
	c.metrics.AckLatency(c.options.clock.Now().Sub(entry.SentAt))

	if pkt.ReasonCode != ReasonSuccess {
		c.logger.Warn("PUBACK with reason", LogFields{
			LogFieldPacketID:   pkt.PacketID,
			LogFieldTopic:      entry.Packet.Topic,
			LogFieldReasonCode: pkt.ReasonCode.String(),
		})
	}
	if pkt.ReasonCode.IsError() {
		c.metrics.FailedAck(pkt.ReasonCode)
		c.emit(NewPublishError(entry.Packet.Topic, pkt.PacketID, pkt.ReasonCode))
	}
}

func (c *Client) handleSuback(pkt *SubackPacket) {
	c.logger.Debug("SUBACK received", LogFields{
		LogFieldPacketID: pkt.PacketID,
		"reason_codes":   len(pkt.ReasonCodes),
	})
	for i, code := range pkt.ReasonCodes {
		c.checkReason(PacketSUBACK, code)
		if code.IsError() {
			c.logger.Warn("subscription refused", LogFields{
				LogFieldPacketID:   pkt.PacketID,
				LogFieldReasonCode: code.String(),
				"index":            i,
			})
			c.emit(NewSubscribeError(pkt.PacketID, i, code))
		}
	}
}

func (c *Client) handleUnsuback(pkt *UnsubackPacket) {
	c.logger.Debug("UNSUBACK received", LogFields{LogFieldPacketID: pkt.PacketID})
	for i, code := range pkt.ReasonCodes {
		c.checkReason(PacketUNSUBACK, code)
		if code.IsError() {
			c.logger.Warn("unsubscribe refused", LogFields{
				LogFieldPacketID:   pkt.PacketID,
				LogFieldReasonCode: code.String(),
				"index":            i,
			})
		}
	}
}

func (c *Client) handleDisconnect(pkt *DisconnectPacket) {
	c.checkReason(PacketDISCONNECT, pkt.ReasonCode)
	c.setState(StateDisconnected)
	c.status.Store(uint32(StatusNotConnected))
	c.logger.Warn("server disconnect", LogFields{LogFieldReasonCode: pkt.ReasonCode.String()})
	c.emit(NewDisconnectError(pkt.ReasonCode, pkt.Props.Clone()))
}
