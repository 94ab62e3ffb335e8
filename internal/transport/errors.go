package transport

import "errors"

// Transport errors.
var (
	// ErrInvalidProxyAddress is returned when the proxy address format is invalid.
	// Expected format is "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrProxyNotSOCKS5 is returned when the proxy answers but does not speak
	// SOCKS5 without authentication.
	ErrProxyNotSOCKS5 = errors.New("proxy is not a SOCKS5 proxy")

	// ErrProxyCannotConnect is returned when no TCP connection to the proxy
	// could be established.
	ErrProxyCannotConnect = errors.New("cannot connect to proxy")

	// ErrProxyTimeout is returned when the proxy check timed out.
	ErrProxyTimeout = errors.New("timeout connecting to proxy")

	// ErrTorNotRunning is returned when a client is requested from an
	// embedded Tor daemon that has not been started.
	ErrTorNotRunning = errors.New("embedded Tor daemon is not running")

	// ErrInvalidOnionAddress is returned for a malformed onion host or one
	// whose checksum does not match.
	ErrInvalidOnionAddress = errors.New("invalid onion address")

	// ErrOnionV2 is returned for v2 onion addresses, which Tor no longer serves.
	ErrOnionV2 = errors.New("v2 onion addresses are no longer supported")
)

// ProxyStatus is the result of checking the configured proxy.
type ProxyStatus int

const (
	// ProxyStatusOK indicates the proxy completed a SOCKS5 greeting.
	ProxyStatusOK ProxyStatus = iota

	// ProxyStatusNotConfigured indicates the client connects directly.
	ProxyStatusNotConfigured

	// ProxyStatusWrongType indicates the peer is not a SOCKS5 proxy.
	ProxyStatusWrongType

	// ProxyStatusCannotConnect indicates we could not establish a connection.
	ProxyStatusCannotConnect

	// ProxyStatusTimeout indicates the check timed out.
	ProxyStatusTimeout
)

// String returns a human-readable description of the proxy status.
func (s ProxyStatus) String() string {
	switch s {
	case ProxyStatusOK:
		return "OK"
	case ProxyStatusNotConfigured:
		return "not configured"
	case ProxyStatusWrongType:
		return "wrong type (not SOCKS5)"
	case ProxyStatusCannotConnect:
		return "cannot connect"
	case ProxyStatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error returns the error matching this status, or nil for OK and
// NotConfigured.
func (s ProxyStatus) Error() error {
	switch s {
	case ProxyStatusOK, ProxyStatusNotConfigured:
		return nil
	case ProxyStatusWrongType:
		return ErrProxyNotSOCKS5
	case ProxyStatusCannotConnect:
		return ErrProxyCannotConnect
	case ProxyStatusTimeout:
		return ErrProxyTimeout
	default:
		return errors.New("unknown proxy status")
	}
}
