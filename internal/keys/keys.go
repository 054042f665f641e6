// Package keys derives key material and initialization vectors for tokens.
package keys

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
)

// Size is the length in bytes of a derived key.
const Size = sha256.Size

// seedLen is the number of random bytes digested to produce an IV.
const seedLen = 32

// Derive returns the key derived from secret: its SHA-256 digest. The same
// secret always derives the same key. An empty secret is accepted; enforcing
// secret strength is left to callers.
func Derive(secret string) []byte {
	k := sha256.Sum256([]byte(secret))
	return k[:]
}

// NewIV returns an n byte initialization vector, taken from the head of the
// SHA-256 digest of seedLen bytes drawn from crypto/rand.
func NewIV(n int) ([]byte, error) {
	if n < 1 || n > sha256.Size {
		return nil, fmt.Errorf("IV length %d outside of [1, %d]", n, sha256.Size)
	}
	seed := make([]byte, seedLen)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("failed to read random IV seed: %w", err)
	}
	d := sha256.Sum256(seed)
	iv := make([]byte, n)
	copy(iv, d[:n])
	return iv, nil
}
