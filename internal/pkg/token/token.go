// Package token issues opaque confirmation tokens and their expiry stamps.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// DefaultByteLength yields 64 hex characters per token.
const DefaultByteLength = 32

// Generate draws byteLength cryptographically random bytes and renders them as
// lowercase hex. byteLength <= 0 falls back to DefaultByteLength.
func Generate(byteLength int) (string, error) {
	if byteLength <= 0 {
		byteLength = DefaultByteLength
	}
	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// ExpiresIn returns the UTC instant the given number of hours from now.
func ExpiresIn(hours int) time.Time {
	return time.Now().UTC().Add(time.Duration(hours) * time.Hour)
}
