package transport

import (
	"encoding/base32"
	"net"
	"strings"

	"golang.org/x/crypto/sha3"
)

const (
	onionSuffix = ".onion"

	// onionV3Length is the number of base32 characters of a v3 address.
	onionV3Length = 56

	// onionV2Length is the number of base32 characters of a v2 address.
	onionV2Length = 16

	onionV3Version = 0x03
)

// IsOnionHost reports whether host, with or without port, is a Tor onion
// service. Onion hosts are only reachable through a Tor SOCKS proxy.
func IsOnionHost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.HasSuffix(strings.ToLower(host), onionSuffix)
}

// ValidateOnionHost checks that host is a well-formed v3 onion address,
// checksum included. Subdomains of an onion service are accepted.
// It returns ErrOnionV2 for retired v2 addresses and ErrInvalidOnionAddress
// otherwise.
func ValidateOnionHost(host string) error {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(strings.ToLower(host), onionSuffix)
	if i := strings.LastIndexByte(host, '.'); i >= 0 {
		host = host[i+1:]
	}

	switch len(host) {
	case onionV3Length:
	case onionV2Length:
		if isBase32(host) {
			return ErrOnionV2
		}
		return ErrInvalidOnionAddress
	default:
		return ErrInvalidOnionAddress
	}

	if !isBase32(host) {
		return ErrInvalidOnionAddress
	}
	decoded, err := base32.StdEncoding.DecodeString(strings.ToUpper(host))
	if err != nil || len(decoded) != 35 {
		return ErrInvalidOnionAddress
	}

	// 32-byte ed25519 key, 2-byte checksum, version.
	pubkey, checksum, version := decoded[:32], decoded[32:34], decoded[34]
	if version != onionV3Version {
		return ErrInvalidOnionAddress
	}
	want := onionChecksum(pubkey, version)
	if checksum[0] != want[0] || checksum[1] != want[1] {
		return ErrInvalidOnionAddress
	}
	return nil
}

// onionChecksum is SHA3-256(".onion checksum" || pubkey || version)[:2].
func onionChecksum(pubkey []byte, version byte) []byte {
	data := make([]byte, 0, 15+len(pubkey)+1)
	data = append(data, ".onion checksum"...)
	data = append(data, pubkey...)
	data = append(data, version)
	sum := sha3.Sum256(data)
	return sum[:2]
}

func isBase32(s string) bool {
	for _, c := range s {
		if (c < 'a' || c > 'z') && (c < '2' || c > '7') {
			return false
		}
	}
	return true
}
