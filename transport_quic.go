package mqttlite

import (
	"context"
	"crypto/tls"
	"net"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
)

// QUICALPN is the ALPN protocol negotiated for MQTT over QUIC.
const QUICALPN = "mqtt"

// QUICConn carries MQTT over a single bidirectional QUIC stream.
type QUICConn struct {
	conn   *quic.Conn
	stream *quic.Stream
	mu     sync.Mutex
}

// Read reads from the stream.
func (c *QUICConn) Read(b []byte) (int, error) {
	return c.stream.Read(b)
}

// Write writes to the stream.
func (c *QUICConn) Write(b []byte) (int, error) {
	return c.stream.Write(b)
}

// Close closes the stream and the connection.
func (c *QUICConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.stream.Close(); err != nil {
		return err
	}
	return c.conn.CloseWithError(0, "")
}

// LocalAddr returns the local network address.
func (c *QUICConn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// RemoteAddr returns the remote network address.
func (c *QUICConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// SetDeadline sets the read and write deadlines of the stream.
func (c *QUICConn) SetDeadline(t time.Time) error {
	if err := c.stream.SetReadDeadline(t); err != nil {
		return err
	}
	return c.stream.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline of the stream.
func (c *QUICConn) SetReadDeadline(t time.Time) error {
	return c.stream.SetReadDeadline(t)
}

// SetWriteDeadline sets the write deadline of the stream.
func (c *QUICConn) SetWriteDeadline(t time.Time) error {
	return c.stream.SetWriteDeadline(t)
}

// QUICDialer connects to brokers over QUIC.
type QUICDialer struct {
	// TLSConfig must allow TLS 1.3. The mqtt ALPN is added when no
	// protocols are set.
	TLSConfig *tls.Config

	// QUICConfig is passed to quic-go; nil takes its defaults.
	QUICConfig *quic.Config
}

// NewQUICDialer creates a QUIC dialer. A nil config means TLS 1.3 with
// system roots.
func NewQUICDialer(tlsConfig *tls.Config) *QUICDialer {
	return &QUICDialer{TLSConfig: tlsConfig}
}

func (d *QUICDialer) tlsConfig() *tls.Config {
	cfg := d.TLSConfig
	if cfg == nil {
		return &tls.Config{
			MinVersion: tls.VersionTLS13,
			NextProtos: []string{QUICALPN},
		}
	}
	if len(cfg.NextProtos) == 0 {
		cfg = cfg.Clone()
		cfg.NextProtos = []string{QUICALPN}
	}
	return cfg
}

// Dial opens a QUIC connection to address and one stream on it.
func (d *QUICDialer) Dial(ctx context.Context, address string) (net.Conn, error) {
	conn, err := quic.DialAddr(ctx, address, d.tlsConfig(), d.QUICConfig)
	if err != nil {
		return nil, err
	}

	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		conn.CloseWithError(0, "failed to open stream")
		return nil, err
	}

	return &QUICConn{
		conn:   conn,
		stream: stream,
	}, nil
}
