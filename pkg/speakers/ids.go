package speakers

import (
	"crypto/rand"
	"encoding/hex"
)

const (
	idPrefix = "speaker"

	// UniqueIDLength is the length of a generated uniqueId.
	UniqueIDLength = 15

	maxUniqueIDAttempts = 16
)

// GenerateUniqueID returns UniqueIDLength lowercase hex characters from crypto/rand.
func GenerateUniqueID() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:])[:UniqueIDLength], nil
}
