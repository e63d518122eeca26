package mqttlite

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// ErrProxyRefused is returned when an HTTP proxy answers CONNECT with a
// status other than 200.
var ErrProxyRefused = errors.New("proxy refused CONNECT")

// ProxyConfig holds proxy configuration for broker connections.
type ProxyConfig struct {
	// URL is the proxy URL in format: http://host:port or socks5://host:port
	URL string
	// Username for proxy authentication (optional)
	Username string
	// Password for proxy authentication (optional)
	Password string
}

// ProxyDialer implements dialing through HTTP CONNECT or SOCKS5 proxies.
type ProxyDialer struct {
	proxyURL *url.URL
	username string
	password string
	forward  net.Dialer
}

// NewProxyDialer creates a new proxy dialer from the given proxy URL.
// Supported schemes: http, https (HTTP CONNECT), socks5 and socks5h.
// Credentials in the URL are used when username is empty.
func NewProxyDialer(proxyURL, username, password string) (*ProxyDialer, error) {
	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL: %w", err)
	}

	switch u.Scheme {
	case "http", "https", "socks5", "socks5h":
	default:
		return nil, fmt.Errorf("%w: proxy %s", ErrUnsupportedScheme, u.Scheme)
	}

	if username == "" && u.User != nil {
		username = u.User.Username()
		password, _ = u.User.Password()
	}

	return &ProxyDialer{
		proxyURL: u,
		username: username,
		password: password,
	}, nil
}

// DialContext connects to the target address through the proxy.
func (d *ProxyDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	if strings.HasPrefix(d.proxyURL.Scheme, "socks5") {
		return d.dialSOCKS5(ctx, network, addr)
	}
	return d.dialHTTPConnect(ctx, addr)
}

func (d *ProxyDialer) proxyAddr(defaultPort string) string {
	if d.proxyURL.Port() == "" {
		return net.JoinHostPort(d.proxyURL.Hostname(), defaultPort)
	}
	return d.proxyURL.Host
}

// bufferedConn keeps bytes the CONNECT response reader buffered past the
// header.
type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (c *bufferedConn) Read(b []byte) (int, error) {
	return c.r.Read(b)
}

func (d *ProxyDialer) dialHTTPConnect(ctx context.Context, targetAddr string) (net.Conn, error) {
	port := "8080"
	if d.proxyURL.Scheme == "https" {
		port = "443"
	}

	conn, err := d.forward.DialContext(ctx, "tcp", d.proxyAddr(port))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to proxy: %w", err)
	}

	req := &http.Request{
		Method: http.MethodConnect,
		URL:    &url.URL{Opaque: targetAddr},
		Host:   targetAddr,
		Header: make(http.Header),
	}
	if d.username != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(d.username + ":" + d.password))
		req.Header.Set("Proxy-Authorization", "Basic "+auth)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if err := req.Write(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send CONNECT request: %w", err)
	}

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, req)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read CONNECT response: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		conn.Close()
		return nil, fmt.Errorf("%w: %s", ErrProxyRefused, resp.Status)
	}

	_ = conn.SetDeadline(time.Time{})
	if br.Buffered() > 0 {
		return &bufferedConn{Conn: conn, r: br}, nil
	}
	return conn, nil
}

func (d *ProxyDialer) dialSOCKS5(ctx context.Context, network, targetAddr string) (net.Conn, error) {
	var auth *proxy.Auth
	if d.username != "" {
		auth = &proxy.Auth{
			User:     d.username,
			Password: d.password,
		}
	}

	dialer, err := proxy.SOCKS5("tcp", d.proxyAddr("1080"), auth, &d.forward)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	var conn net.Conn
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		conn, err = cd.DialContext(ctx, network, targetAddr)
	} else {
		conn, err = dialer.Dial(network, targetAddr)
	}
	if err != nil {
		return nil, fmt.Errorf("SOCKS5 dial failed: %w", err)
	}
	return conn, nil
}

// ProxyFromEnvironment returns the proxy URL for the given broker URL
// based on HTTP_PROXY, HTTPS_PROXY and NO_PROXY (or their lowercase forms).
// It returns nil if no proxy should be used.
func ProxyFromEnvironment(targetAddr string) (*url.URL, error) {
	u, err := url.Parse(targetAddr)
	if err != nil {
		return nil, nil
	}

	if noProxyMatch(lookupEnv("NO_PROXY"), u.Hostname()) {
		return nil, nil
	}

	var proxyEnv string
	switch u.Scheme {
	case "https", "tls", "ssl", "mqtts", "wss":
		proxyEnv = lookupEnv("HTTPS_PROXY")
	}
	if proxyEnv == "" {
		proxyEnv = lookupEnv("HTTP_PROXY")
	}
	if proxyEnv == "" {
		return nil, nil
	}

	return url.Parse(proxyEnv)
}

func lookupEnv(name string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return os.Getenv(strings.ToLower(name))
}

func noProxyMatch(noProxy, host string) bool {
	for pattern := range strings.SplitSeq(noProxy, ",") {
		pattern = strings.TrimSpace(pattern)
		switch {
		case pattern == "":
			continue
		case pattern == "*":
			return true
		case strings.HasPrefix(pattern, "."):
			if strings.HasSuffix(host, pattern) || host == pattern[1:] {
				return true
			}
		case host == pattern || strings.HasSuffix(host, "."+pattern):
			return true
		}
	}
	return false
}
