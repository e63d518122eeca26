package mqttlite

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

// Default broker ports by URL scheme.
const (
	DefaultPortTCP = "1883"
	DefaultPortTLS = "8883"
	DefaultPortWS  = "80"
	DefaultPortWSS = "443"
)

// connPeekWait bounds how long Readable waits on a connection without
// buffered data.
const connPeekWait = time.Millisecond

// ErrUnsupportedScheme is returned by DialStream for unknown URL schemes.
var ErrUnsupportedScheme = errors.New("unsupported scheme")

// Dialer establishes broker connections.
type Dialer interface {
	// Dial connects to the address with the given context.
	Dial(ctx context.Context, address string) (net.Conn, error)
}

// readableConn is implemented by connections that know without blocking
// whether data is waiting.
type readableConn interface {
	Readable() bool
}

// ConnStream adapts a net.Conn to Stream. Reads and writes are buffered; the
// client flushes after every packet.
type ConnStream struct {
	conn net.Conn
	r    *bufio.Reader
	w    *bufio.Writer
}

// NewConnStream wraps conn.
func NewConnStream(conn net.Conn) *ConnStream {
	return &ConnStream{
		conn: conn,
		r:    bufio.NewReader(conn),
		w:    bufio.NewWriter(conn),
	}
}

// Conn returns the underlying connection.
func (s *ConnStream) Conn() net.Conn {
	return s.conn
}

// Readable reports whether a Read would return without blocking. A
// connection that failed reports true so the next Read surfaces the error.
func (s *ConnStream) Readable() bool {
	if s.r.Buffered() > 0 {
		return true
	}
	if rc, ok := s.conn.(readableConn); ok {
		return rc.Readable()
	}

	if err := s.conn.SetReadDeadline(time.Now().Add(connPeekWait)); err != nil {
		return true
	}
	_, err := s.r.Peek(1)
	_ = s.conn.SetReadDeadline(time.Time{})

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return false
	}
	return true
}

// Read reads buffered data from the connection.
func (s *ConnStream) Read(p []byte) (int, error) {
	return s.r.Read(p)
}

// Write buffers p until Flush.
func (s *ConnStream) Write(p []byte) (int, error) {
	return s.w.Write(p)
}

// Flush writes buffered data to the connection.
func (s *ConnStream) Flush() error {
	return s.w.Flush()
}

// Seek discards offset bytes of input. Only io.SeekCurrent is supported.
func (s *ConnStream) Seek(offset int64, whence int) (int64, error) {
	return discard(s.r, offset, whence)
}

// Close closes the connection.
func (s *ConnStream) Close() error {
	return s.conn.Close()
}

// TCPDialer connects to brokers over TCP.
type TCPDialer struct {
	// Timeout is the maximum time to wait for a connection.
	// Zero means no timeout.
	Timeout time.Duration
}

// Dial connects to the address.
func (d *TCPDialer) Dial(ctx context.Context, address string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: d.Timeout}
	return dialer.DialContext(ctx, "tcp", address)
}

// TLSDialer connects to brokers over TLS.
type TLSDialer struct {
	// Config is the TLS configuration. Nil means TLS 1.2 or newer with
	// system roots.
	Config *tls.Config

	// Timeout is the maximum time to wait for a connection.
	// Zero means no timeout.
	Timeout time.Duration
}

// Dial connects to the address.
func (d *TLSDialer) Dial(ctx context.Context, address string) (net.Conn, error) {
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: d.Timeout},
		Config:    tlsConfigOrDefault(d.Config),
	}
	return dialer.DialContext(ctx, "tcp", address)
}

func tlsConfigOrDefault(cfg *tls.Config) *tls.Config {
	if cfg == nil {
		return &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return cfg
}

type dialOptions struct {
	timeout      time.Duration
	tlsConfig    *tls.Config
	proxy        *ProxyConfig
	proxyFromEnv bool
	wsHeader     http.Header
}

// DialOption configures DialStream.
type DialOption func(*dialOptions)

// WithDialTimeout bounds connection establishment.
func WithDialTimeout(d time.Duration) DialOption {
	return func(o *dialOptions) {
		o.timeout = d
	}
}

// WithDialTLS sets the TLS configuration for tls, wss and quic URLs.
func WithDialTLS(cfg *tls.Config) DialOption {
	return func(o *dialOptions) {
		o.tlsConfig = cfg
	}
}

// WithDialProxy routes tcp and tls connections through an HTTP CONNECT or
// SOCKS5 proxy.
func WithDialProxy(cfg ProxyConfig) DialOption {
	return func(o *dialOptions) {
		o.proxy = &cfg
	}
}

// WithProxyFromEnvironment takes the proxy from HTTP_PROXY, HTTPS_PROXY and
// NO_PROXY.
func WithProxyFromEnvironment() DialOption {
	return func(o *dialOptions) {
		o.proxyFromEnv = true
	}
}

// WithDialHeader sets HTTP headers for the WebSocket handshake.
func WithDialHeader(header http.Header) DialOption {
	return func(o *dialOptions) {
		o.wsHeader = header
	}
}

// DialStream connects to the broker at rawURL and returns a stream for New.
//
// Supported schemes: tcp and mqtt, tls, ssl and mqtts, ws and wss, unix and
// quic. A missing port takes the scheme default.
func DialStream(ctx context.Context, rawURL string, opts ...DialOption) (*ConnStream, error) {
	o := &dialOptions{}
	for _, opt := range opts {
		opt(o)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	conn, err := dialURL(ctx, u, o)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}
	return NewConnStream(conn), nil
}

func hostWithDefaultPort(u *url.URL, port string) string {
	if u.Port() == "" {
		return net.JoinHostPort(u.Hostname(), port)
	}
	return u.Host
}

func dialURL(ctx context.Context, u *url.URL, o *dialOptions) (net.Conn, error) {
	switch u.Scheme {
	case "tcp", "mqtt":
		host := hostWithDefaultPort(u, DefaultPortTCP)
		pd, err := o.proxyDialer(u)
		if err != nil {
			return nil, err
		}
		if pd != nil {
			return pd.DialContext(ctx, "tcp", host)
		}
		return (&TCPDialer{}).Dial(ctx, host)

	case "tls", "ssl", "mqtts":
		host := hostWithDefaultPort(u, DefaultPortTLS)
		pd, err := o.proxyDialer(u)
		if err != nil {
			return nil, err
		}
		if pd == nil {
			return (&TLSDialer{Config: o.tlsConfig}).Dial(ctx, host)
		}

		conn, err := pd.DialContext(ctx, "tcp", host)
		if err != nil {
			return nil, err
		}
		cfg := tlsConfigOrDefault(o.tlsConfig)
		if cfg.ServerName == "" {
			cfg = cfg.Clone()
			cfg.ServerName = u.Hostname()
		}
		tlsConn := tls.Client(conn, cfg)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("TLS handshake failed: %w", err)
		}
		return tlsConn, nil

	case "ws", "wss":
		d := NewWSDialer()
		d.Header = o.wsHeader
		if o.tlsConfig != nil {
			d.Dialer.TLSClientConfig = o.tlsConfig
		}
		switch {
		case o.proxy != nil:
			if err := d.SetProxy(*o.proxy); err != nil {
				return nil, err
			}
		case o.proxyFromEnv:
			d.SetProxyFromEnvironment()
		}
		return d.Dial(ctx, u.String())

	case "unix":
		path := u.Path
		if path == "" {
			path = u.Host + u.Path
		}
		return NewUnixDialer().Dial(ctx, path)

	case "quic":
		return NewQUICDialer(o.tlsConfig).Dial(ctx, hostWithDefaultPort(u, DefaultPortTLS))

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}
}

func (o *dialOptions) proxyDialer(target *url.URL) (*ProxyDialer, error) {
	if o.proxy != nil {
		return NewProxyDialer(o.proxy.URL, o.proxy.Username, o.proxy.Password)
	}
	if !o.proxyFromEnv {
		return nil, nil
	}

	proxyURL, err := ProxyFromEnvironment(target.String())
	if err != nil || proxyURL == nil {
		return nil, err
	}
	return NewProxyDialer(proxyURL.String(), "", "")
}
