package token

import (
	"crypto/rand"
	"encoding/hex"
)

// opaque tokens (refresh, verification, reset) carry 64 bytes of entropy.
const randomTokenBytes = 64

// Random produces a hex-encoded opaque token value.
func Random() (string, error) {
	b := make([]byte, randomTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
