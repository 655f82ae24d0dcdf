package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewRefreshToken draws 32 random bytes and returns them hex-encoded.
// Refresh tokens are opaque lookup keys, not structured tokens: the session
// row they point at holds all the state.
func NewRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
