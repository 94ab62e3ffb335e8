package transport

import (
	"encoding/base32"
	"errors"
	"strings"
	"testing"
)

// onionAddress encodes pubkey as a v3 onion host.
func onionAddress(pubkey []byte) string {
	data := make([]byte, 0, 35)
	data = append(data, pubkey...)
	data = append(data, onionChecksum(pubkey, onionV3Version)...)
	data = append(data, onionV3Version)
	return strings.ToLower(base32.StdEncoding.EncodeToString(data)) + onionSuffix
}

// TestIsOnionHost tests onion host detection.
func TestIsOnionHost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		host string
		want bool
	}{
		{host: "example.onion", want: true},
		{host: "EXAMPLE.ONION", want: true},
		{host: "example.onion:8080", want: true},
		{host: "example.com", want: false},
		{host: "onion.example.com", want: false},
		{host: "", want: false},
	}

	for _, tt := range tests {
		if got := IsOnionHost(tt.host); got != tt.want {
			t.Errorf("IsOnionHost(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}

// TestValidateOnionHost tests v3 address validation.
func TestValidateOnionHost(t *testing.T) {
	t.Parallel()

	pubkey := make([]byte, 32)
	for i := range pubkey {
		pubkey[i] = byte(i * 7)
	}
	valid := onionAddress(pubkey)

	// Flip one character of the key part to break the checksum.
	broken := []byte(valid)
	if broken[0] == 'a' {
		broken[0] = 'b'
	} else {
		broken[0] = 'a'
	}

	tests := []struct {
		name string
		host string
		want error
	}{
		{name: "valid", host: valid, want: nil},
		{name: "valid upper case with port", host: strings.ToUpper(valid) + ":80", want: nil},
		{name: "valid with subdomain", host: "www." + valid, want: nil},
		{name: "bad checksum", host: string(broken), want: ErrInvalidOnionAddress},
		{name: "v2", host: "abcdefghijklmnop.onion", want: ErrOnionV2},
		{name: "wrong length", host: "short.onion", want: ErrInvalidOnionAddress},
		{name: "invalid characters", host: strings.Repeat("1", 56) + ".onion", want: ErrInvalidOnionAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateOnionHost(tt.host)
			if tt.want == nil {
				if err != nil {
					t.Errorf("expected valid address, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
