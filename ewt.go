// Package ewt implements encrypted web tokens: compact, URL-safe strings that
// carry an opaque payload which is both encrypted and signed under a shared
// secret.
//
// Encode derives a key from the secret (SHA-256), signs the plaintext with a
// keyed MAC, encrypts it, and frames the result:
//
//	token := base64url_nopad(json({"a": cipher, "i": IV, "h": MAC, "s": hex(MAC(plaintext)), "p": ciphertext}))
//
// Decode reverses the process and returns the payload only if the recomputed
// MAC matches. Algorithm names are read from the token before verification,
// so both the cipher and MAC are chosen from closed sets; anything else
// (including "none") is rejected.
//
// Callers should treat every Decode error the same way: the token is not to be
// trusted. Each error wraps ErrRejected; the more specific errors it also
// wraps are meant for internal diagnostics and should never be echoed to the
// token's sender.
//
// The package retains nothing between calls. In particular, derived keys are
// never cached.
package ewt

import (
	"bytes"

	"github.com/swfrench/ewt/internal/primitives"
	"github.com/swfrench/ewt/internal/token"
	"github.com/swfrench/ewt/internal/token/common"
)

var (
	// ErrRejected is wrapped by every Decode error.
	ErrRejected = common.ErrRejected
	// ErrMalformedToken indicates a framing or document structure failure.
	ErrMalformedToken = common.ErrMalformedToken
	// ErrUnsupportedAlgorithm indicates an unknown cipher or MAC name, on
	// either Encode or Decode.
	ErrUnsupportedAlgorithm = common.ErrUnsupportedAlgorithm
	// ErrAuthenticationFailed indicates a MAC (or AEAD tag) mismatch.
	ErrAuthenticationFailed = common.ErrAuthenticationFailed
	// ErrInvalidIV indicates that Options.IV does not fit the chosen cipher.
	ErrInvalidIV = common.ErrInvalidIV
)

const (
	// DefaultMAC is the MAC used when Options.MAC is empty.
	DefaultMAC = token.DefaultMAC
	// DefaultCipher is the cipher used when Options.Cipher is empty.
	DefaultCipher = token.DefaultCipher
)

// Options represents tunable knobs for Encode. A nil *Options selects all
// defaults.
type Options struct {
	// MAC names the MAC algorithm; see MACs.
	// Default if unspecified: "sha256"
	MAC string
	// Cipher names the symmetric cipher; see Ciphers.
	// Default if unspecified: "aes-256-ctr"
	Cipher string
	// IV fixes the initialization vector, making Encode deterministic. It must
	// have exactly the length the cipher requires (16 bytes for AES modes).
	// Never reuse an IV with the same secret outside of tests.
	// Default if unspecified: a fresh random IV per call.
	IV []byte
}

func (o *Options) params() *token.Params {
	if o == nil {
		return nil
	}
	return &token.Params{MAC: o.MAC, Cipher: o.Cipher, IV: o.IV}
}

// Ciphers returns the supported cipher names.
func Ciphers() []string {
	return primitives.Ciphers()
}

// MACs returns the supported MAC names.
func MACs() []string {
	return primitives.MACs()
}

// Encode returns a token carrying payload. It fails only on unsupported
// algorithm names, an unusable IV, or a failure of the random source.
func Encode(payload []byte, secret string, opts *Options) (string, error) {
	return token.Encode(payload, secret, opts.params())
}

// Decode verifies tok and returns its payload. On failure, the returned error
// wraps ErrRejected and the payload is nil.
func Decode(tok string, secret string) ([]byte, error) {
	return token.Decode(tok, secret)
}

// Header is the unauthenticated outer description of a token.
type Header = token.Header

// Inspect reports the algorithms and field sizes of tok without verifying it.
// Nothing in the result may be trusted.
func Inspect(tok string) (*Header, error) {
	return token.Inspect(tok)
}

// Codec binds a secret and encoding options for repeated use. The key is
// still derived on every call. A Codec is safe for concurrent use.
type Codec struct {
	secret string
	opts   Options
}

// NewCodec returns a Codec using secret. opts may be nil.
func NewCodec(secret string, opts *Options) *Codec {
	c := &Codec{secret: secret}
	if opts != nil {
		c.opts = *opts
		c.opts.IV = bytes.Clone(opts.IV)
	}
	return c
}

// Encode returns a token carrying payload.
func (c *Codec) Encode(payload []byte) (string, error) {
	return Encode(payload, c.secret, &c.opts)
}

// Decode verifies tok and returns its payload.
func (c *Codec) Decode(tok string) ([]byte, error) {
	return Decode(tok, c.secret)
}
