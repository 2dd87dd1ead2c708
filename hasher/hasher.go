package hasher

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns the SHA-256 hex digest of the given bytes. It is the
// content-addressed key for deduplication and object naming: identical bytes
// always hash to the same fingerprint, and the empty input is hashed like any
// other byte sequence.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
