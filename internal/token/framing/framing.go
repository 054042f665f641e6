// Package framing implements the URL-safe base64 framing of token documents:
// the standard base64 alphabet with '+' and '/' replaced by '-' and '_', and
// padding stripped.
package framing

import (
	"encoding/base64"
	"strings"
)

// Encode frames b, omitting padding.
func Encode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// Decode reverses Encode. Missing padding is restored up to the next multiple
// of four before decoding, so padded input is accepted as well. Unused trailing
// bits must be zero, so each byte string has exactly one unpadded framing.
func Decode(s string) ([]byte, error) {
	if r := len(s) % 4; r != 0 {
		s += strings.Repeat("=", 4-r)
	}
	return base64.URLEncoding.Strict().DecodeString(s)
}
