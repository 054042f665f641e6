// Package token implements the encode and decode pipelines for encrypted,
// signed tokens.
//
// A token is the URL-safe base64 framing of a JSON document
//
//	{"a": <cipher>, "i": <IV>, "h": <MAC>, "s": <hex MAC of plaintext>, "p": <ciphertext>}
//
// where the cipher key is derived from a shared secret. The MAC is computed
// over the plaintext, so decoding decrypts first and only returns the payload
// once the recomputed MAC matches.
package token

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/swfrench/ewt/internal/keys"
	"github.com/swfrench/ewt/internal/primitives"
	"github.com/swfrench/ewt/internal/token/common"
	"github.com/swfrench/ewt/internal/token/record"
)

const (
	// DefaultMAC is the MAC used when none is specified.
	DefaultMAC = "sha256"
	// DefaultCipher is the cipher used when none is specified.
	DefaultCipher = "aes-256-ctr"
)

// Params selects the algorithms and (optionally) the IV used by Encode.
type Params struct {
	// MAC names the MAC algorithm. Default if empty: DefaultMAC.
	MAC string
	// Cipher names the cipher. Default if empty: DefaultCipher.
	Cipher string
	// IV, if non-nil, is used instead of a freshly generated IV. Its length
	// must match the cipher's IV size.
	IV []byte
}

func (p *Params) resolve() (primitives.MAC, primitives.Cipher, error) {
	macName, cipherName := DefaultMAC, DefaultCipher
	if p != nil && p.MAC != "" {
		macName = p.MAC
	}
	if p != nil && p.Cipher != "" {
		cipherName = p.Cipher
	}
	m, err := primitives.ParseMAC(macName)
	if err != nil {
		return 0, 0, err
	}
	c, err := primitives.ParseCipher(cipherName)
	if err != nil {
		return 0, 0, err
	}
	return m, c, nil
}

// Encode returns a token carrying payload, encrypted and signed under the key
// derived from secret.
func Encode(payload []byte, secret string, p *Params) (string, error) {
	m, c, err := p.resolve()
	if err != nil {
		return "", err
	}
	key := keys.Derive(secret)
	var iv []byte
	if p != nil && p.IV != nil {
		if len(p.IV) != c.IVSize() {
			return "", fmt.Errorf("%v requires a %d byte IV, got %d bytes: %w", c, c.IVSize(), len(p.IV), common.ErrInvalidIV)
		}
		iv = append([]byte(nil), p.IV...)
	} else if iv, err = keys.NewIV(c.IVSize()); err != nil {
		return "", err
	}
	sig, err := m.Sum(key, payload)
	if err != nil {
		return "", err
	}
	ct, err := c.Encrypt(key, iv, payload)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt payload: %w", err)
	}
	r := &record.Record{
		Alg:     c.String(),
		IV:      iv,
		Hash:    m.String(),
		Sig:     hex.EncodeToString(sig),
		Payload: ct,
	}
	return r.Marshal()
}

// Decode verifies token under the key derived from secret and returns its
// payload. Every failure wraps ErrRejected and one of ErrMalformedToken,
// ErrUnsupportedAlgorithm or ErrAuthenticationFailed; the payload is only
// ever returned with a nil error.
func Decode(token string, secret string) ([]byte, error) {
	payload, err := decode(token, secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrRejected, err)
	}
	return payload, nil
}

func decode(token string, secret string) ([]byte, error) {
	r, err := record.Parse(token)
	if err != nil {
		return nil, err
	}
	c, err := primitives.ParseCipher(r.Alg)
	if err != nil {
		return nil, err
	}
	m, err := primitives.ParseMAC(r.Hash)
	if err != nil {
		return nil, err
	}
	if len(r.IV) != c.IVSize() {
		return nil, fmt.Errorf("%v requires a %d byte IV, got %d bytes: %w", c, c.IVSize(), len(r.IV), common.ErrMalformedToken)
	}
	sig, err := r.DecodeSig()
	if err != nil {
		return nil, err
	}
	key := keys.Derive(secret)
	payload, err := c.Decrypt(key, r.IV, r.Payload)
	if err != nil {
		if errors.Is(err, common.ErrAuthenticationFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to decrypt payload (error: %v): %w", err, common.ErrMalformedToken)
	}
	ok, err := m.Verify(key, payload, sig)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("token MAC verification failed: %w", common.ErrAuthenticationFailed)
	}
	return payload, nil
}

// Header describes the unauthenticated outer fields of a token.
type Header struct {
	Cipher        string
	MAC           string
	IVLen         int
	CiphertextLen int
}

// Inspect parses token without a secret and reports its header. Nothing it
// returns is authenticated; it exists for diagnostics only.
func Inspect(token string) (*Header, error) {
	r, err := record.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrRejected, err)
	}
	return &Header{
		Cipher:        r.Alg,
		MAC:           r.Hash,
		IVLen:         len(r.IV),
		CiphertextLen: len(r.Payload),
	}, nil
}
