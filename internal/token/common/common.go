// Package common holds the error values shared by the token codec and the
// packages it is built from.
package common

import "errors"

var (
	// ErrRejected indicates that a token must not be trusted. Every decode
	// failure wraps it, in addition to one of the more specific errors below,
	// which are for internal diagnostics only.
	ErrRejected = errors.New("token rejected")
	// ErrMalformedToken indicates that the token string is structurally
	// invalid (framing, document structure, or a missing field).
	ErrMalformedToken = errors.New("malformed token")
	// ErrUnsupportedAlgorithm indicates that a cipher or MAC name is not one
	// of the supported algorithms.
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
	// ErrAuthenticationFailed indicates that the token failed MAC (or AEAD
	// tag) verification.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrInvalidIV indicates that a caller-supplied IV does not have the length
	// required by the selected cipher.
	ErrInvalidIV = errors.New("invalid IV")
)
