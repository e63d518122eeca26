package mqttlite

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// WebSocketSubprotocol is the MQTT WebSocket subprotocol.
	WebSocketSubprotocol = "mqtt"
)

// ErrNonBinaryFrame is returned when the broker sends a text frame.
var ErrNonBinaryFrame = errors.New("websocket: MQTT requires binary frames")

// WSConn wraps a WebSocket connection as a net.Conn carrying MQTT bytes in
// binary messages.
//
// Frames are received by a background goroutine so Readable never blocks;
// gorilla connections cannot be read again after a read deadline expired.
type WSConn struct {
	conn *websocket.Conn

	frames    chan []byte
	done      chan struct{}
	closeOnce sync.Once
	err       error

	readMu  sync.Mutex
	buf     []byte
	writeMu sync.Mutex
}

func newWSConn(conn *websocket.Conn) *WSConn {
	c := &WSConn{
		conn:   conn,
		frames: make(chan []byte, 4),
		done:   make(chan struct{}),
	}
	go c.receive()
	return c
}

// receive sets err before frames is closed.
func (c *WSConn) receive() {
	defer close(c.frames)

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			c.err = err
			return
		}
		if messageType != websocket.BinaryMessage {
			c.err = ErrNonBinaryFrame
			return
		}

		select {
		case c.frames <- data:
		case <-c.done:
			c.err = net.ErrClosed
			return
		}
	}
}

// Readable reports whether received data is waiting. After the connection
// failed it reports true so Read returns the error.
func (c *WSConn) Readable() bool {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	for len(c.buf) == 0 {
		select {
		case data, ok := <-c.frames:
			if !ok {
				return true
			}
			c.buf = data
		default:
			return false
		}
	}
	return true
}

// Read reads data from the current message, waiting for the next one when
// it is used up.
func (c *WSConn) Read(b []byte) (int, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	for len(c.buf) == 0 {
		data, ok := <-c.frames
		if !ok {
			return 0, c.err
		}
		c.buf = data
	}

	n := copy(b, c.buf)
	c.buf = c.buf[n:]
	return n, nil
}

// Write writes b as one binary message.
func (c *WSConn) Write(b []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

// Close closes the connection.
func (c *WSConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return c.conn.Close()
}

// LocalAddr returns the local network address.
func (c *WSConn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// RemoteAddr returns the remote network address.
func (c *WSConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// SetDeadline sets the read and write deadlines.
func (c *WSConn) SetDeadline(t time.Time) error {
	if err := c.conn.SetReadDeadline(t); err != nil {
		return err
	}
	return c.conn.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline of the receiving goroutine.
func (c *WSConn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// SetWriteDeadline sets the write deadline.
func (c *WSConn) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}

// WSDialer connects to brokers over WebSocket.
type WSDialer struct {
	// Dialer is the underlying WebSocket dialer.
	Dialer *websocket.Dialer

	// Header is the HTTP header to send with the handshake.
	Header http.Header
}

// NewWSDialer creates a new WebSocket dialer with MQTT subprotocol.
func NewWSDialer() *WSDialer {
	return &WSDialer{
		Dialer: &websocket.Dialer{
			Subprotocols:     []string{WebSocketSubprotocol},
			ReadBufferSize:   4096,
			WriteBufferSize:  4096,
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// SetProxy routes the handshake through an HTTP proxy.
func (d *WSDialer) SetProxy(cfg ProxyConfig) error {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return fmt.Errorf("invalid proxy URL: %w", err)
	}
	if cfg.Username != "" {
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}
	d.Dialer.Proxy = http.ProxyURL(u)
	return nil
}

// SetProxyFromEnvironment takes the handshake proxy from the environment.
func (d *WSDialer) SetProxyFromEnvironment() {
	d.Dialer.Proxy = http.ProxyFromEnvironment
}

// Dial connects to the WebSocket address, e.g. ws://broker:8080/mqtt.
func (d *WSDialer) Dial(ctx context.Context, address string) (net.Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	header := d.Header
	if header == nil {
		header = http.Header{}
	}

	conn, resp, err := dialer.DialContext(ctx, address, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake: %s: %w", resp.Status, err)
		}
		return nil, err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	return newWSConn(conn), nil
}
