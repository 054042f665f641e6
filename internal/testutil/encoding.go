// Package testutil provides fixtures shared by tests across the module.
package testutil

import (
	"encoding/base64"
	"encoding/hex"
	"testing"
)

// MustDecodeBase64 decodes the provided base64-encoded string (standard
// alphabet, padded), as found in the "i" and "p" fields of a token document.
func MustDecodeBase64(t *testing.T, encoded string) []byte {
	t.Helper()
	bs, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("Unexpected error decoding %q: %v", encoded, err)
	}
	return bs
}

// MustDecodeHex decodes the provided hex string, e.g. a known-answer vector.
func MustDecodeHex(t *testing.T, encoded string) []byte {
	t.Helper()
	bs, err := hex.DecodeString(encoded)
	if err != nil {
		t.Fatalf("Unexpected error decoding %q: %v", encoded, err)
	}
	return bs
}
