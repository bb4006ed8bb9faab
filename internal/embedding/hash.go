package embedding

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHash returns a deterministic fingerprint of a text, used to decide
// whether a cached vector is still valid for the entity's current content.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
