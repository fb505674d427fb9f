package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// TokenLength is the length of a hex-encoded session token.
const TokenLength = 64

// NewToken returns a 256-bit cryptographically random bearer token,
// hex-encoded to 64 characters.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
