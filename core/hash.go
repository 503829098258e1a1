package core

import (
	"encoding/hex"

	"github.com/go-crypt/x/blake2b"
)

// ContentHash returns the deterministic BLAKE2b-256 fingerprint of normalized
// text, hex encoded. Identical text always produces an identical hash, which
// makes the result usable for exact-duplicate detection.
func ContentHash(text string) string {
	h, _ := blake2b.New(32, nil)
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
