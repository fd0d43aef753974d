package cleaning

import (
	"crypto/sha256"
	"encoding/hex"
)

// Pseudonymize replaces an identifying value with a deterministic one-way
// token. Identical input yields identical output, which keeps records
// matchable for de-duplication without exposing the cleartext.
func Pseudonymize(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
