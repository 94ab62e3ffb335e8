package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

const (
	// checkProxyTimeout bounds the SOCKS5 greeting performed by CheckProxy.
	checkProxyTimeout = 2 * time.Second

	// maxRedirects is the number of redirects followed for one request.
	maxRedirects = 10
)

// SOCKS5 protocol constants
const (
	socks5Version  = 0x05
	socks5AuthNone = 0x00
)

// Client builds HTTP clients for page fetching.
type Client struct {
	// timeout is the overall timeout of one HTTP request.
	timeout time.Duration

	// proxyAddress is the SOCKS5 proxy in "host:port" format, or "".
	proxyAddress string

	// dialer is the SOCKS5 dialer, nil for direct connections.
	dialer proxy.Dialer

	// cookie is a raw cookie string added to every request.
	cookie string

	// headers are added to every request.
	headers map[string]string
}

// Option configures a Client.
type Option func(*Client)

// WithProxy routes all connections through the SOCKS5 proxy at address.
func WithProxy(address string) Option {
	return func(c *Client) {
		c.proxyAddress = address
	}
}

// WithCookie adds a raw cookie string (e.g. "session_id=abc123") to every request.
func WithCookie(cookie string) Option {
	return func(c *Client) {
		c.cookie = cookie
	}
}

// WithHeaders adds the given headers to every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		c.headers = headers
	}
}

// NewClient creates a Client whose requests time out after timeout.
//
// The proxy address is validated, but the proxy is not contacted. Call
// CheckProxy to verify it.
func NewClient(timeout time.Duration, opts ...Option) (*Client, error) {
	c := &Client{timeout: timeout}
	for _, opt := range opts {
		opt(c)
	}

	if c.proxyAddress != "" {
		if !isValidProxyAddress(c.proxyAddress) {
			return nil, ErrInvalidProxyAddress
		}
		// Tor's SOCKS port does not require authentication.
		dialer, err := proxy.SOCKS5("tcp", c.proxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		c.dialer = dialer
	}
	return c, nil
}

// ProxyAddress returns the configured proxy address, or "".
func (c *Client) ProxyAddress() string {
	return c.proxyAddress
}

// HTTPClient returns a new *http.Client.
//
// The client keeps cookies set by servers for the rest of the session,
// follows at most 10 redirects and injects the configured cookie and
// headers into every request, redirects included.
func (c *Client) HTTPClient() *http.Client {
	base := http.DefaultTransport.(*http.Transport).Clone()
	if c.dialer != nil {
		base.Proxy = nil
		base.DialContext = c.dialContext
		// Each connection is a proxy circuit; keep the pool small.
		base.MaxIdleConns = 10
		base.MaxIdleConnsPerHost = 2
		base.IdleConnTimeout = 30 * time.Second
	}

	var rt http.RoundTripper = base
	if c.cookie != "" || len(c.headers) > 0 {
		rt = &headerInjectingTransport{
			base:    base,
			cookie:  c.cookie,
			headers: c.headers,
		}
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	return &http.Client{
		Transport: rt,
		Timeout:   c.timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

func (c *Client) dialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if cd, ok := c.dialer.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, network, address)
	}
	return c.dialer.Dial(network, address)
}

// CheckProxy verifies that the configured proxy speaks SOCKS5 and accepts
// connections without authentication.
func (c *Client) CheckProxy(ctx context.Context) ProxyStatus {
	if c.proxyAddress == "" {
		return ProxyStatusNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.proxyAddress)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(checkProxyTimeout)); err != nil {
		return ProxyStatusCannotConnect
	}

	// Greeting: version, one method, "no authentication".
	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return ProxyStatusCannotConnect
	}

	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusWrongType
	}
	if resp[0] != socks5Version || resp[1] != socks5AuthNone {
		return ProxyStatusWrongType
	}
	return ProxyStatusOK
}

// isValidProxyAddress checks if the address is in valid "host:port" format
// with a port between 1 and 65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// headerInjectingTransport wraps an http.RoundTripper to inject
// custom headers and cookies into every request.
type headerInjectingTransport struct {
	base    http.RoundTripper
	cookie  string
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}

	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}
