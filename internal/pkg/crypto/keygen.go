// Package crypto provides token helpers for Sharecode.
package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

// TokenBytes is the entropy of generated verification and reset tokens.
const TokenBytes = 32

// ErrInvalidTokenLength indicates a non-positive token length.
var ErrInvalidTokenLength = errors.New("token length must be positive")

// GenerateToken returns n random bytes as a hex string of length 2n.
func GenerateToken(n int) (string, error) {
	if n <= 0 {
		return "", ErrInvalidTokenLength
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// MustGenerateToken is GenerateToken with TokenBytes, panicking on failure.
func MustGenerateToken() string {
	t, err := GenerateToken(TokenBytes)
	if err != nil {
		panic(err)
	}
	return t
}
