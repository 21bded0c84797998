// internal/utils/ids.go
// Id and secure-token generation helpers shared across the core.

package utils

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"

	"github.com/google/uuid"
)

// GenerateUUID generates a new random UUID string.
func GenerateUUID() string {
	return uuid.New().String()
}

// GenerateSecureToken generates a cryptographically strong random token
// with at least 128 bits of entropy, hex-encoded. Used for admin tokens
// and local user ids (spec.md §4.5).
func GenerateSecureToken() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic("utils: crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(b)
}

// RandomInt returns a cryptographically random integer in [0, max).
func RandomInt(max int) int {
	if max <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		panic("utils: crypto/rand unavailable: " + err.Error())
	}
	return int(n.Int64())
}
