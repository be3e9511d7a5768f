package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashText returns a hex SHA-256 of text, used for embedding cache keys.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
