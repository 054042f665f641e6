// Package primitives maps algorithm names carried in tokens to concrete
// symmetric ciphers and keyed MACs.
//
// Both sets are closed: a name outside the enumerations below is rejected
// with ErrUnsupportedAlgorithm, and no name ever selects "no encryption" or
// "no MAC".
package primitives

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"strings"

	"github.com/swfrench/ewt/internal/token/common"
	"golang.org/x/crypto/chacha20poly1305"
)

// Cipher identifies a supported symmetric cipher. The zero value is not a
// valid cipher.
type Cipher int

const (
	AES128CTR Cipher = iota + 1
	AES192CTR
	AES256CTR
	AES128GCM
	AES256GCM
	ChaCha20Poly1305
	XChaCha20Poly1305
)

// AES modes share the reference 16 byte IV, so GCM runs with a non-standard
// nonce size.
const (
	aesIVSize = aes.BlockSize
	gcmIVSize = 16
)

var cipherNames = []struct {
	c    Cipher
	name string
}{
	{AES128CTR, "aes-128-ctr"},
	{AES192CTR, "aes-192-ctr"},
	{AES256CTR, "aes-256-ctr"},
	{AES128GCM, "aes-128-gcm"},
	{AES256GCM, "aes-256-gcm"},
	{ChaCha20Poly1305, "chacha20-poly1305"},
	{XChaCha20Poly1305, "xchacha20-poly1305"},
}

// Ciphers returns the names of all supported ciphers.
func Ciphers() []string {
	names := make([]string, 0, len(cipherNames))
	for _, e := range cipherNames {
		names = append(names, e.name)
	}
	return names
}

// ParseCipher resolves a cipher name (case-insensitive).
func ParseCipher(name string) (Cipher, error) {
	n := strings.ToLower(name)
	for _, e := range cipherNames {
		if e.name == n {
			return e.c, nil
		}
	}
	return 0, fmt.Errorf("cipher %q: %w", truncate(name), common.ErrUnsupportedAlgorithm)
}

func (c Cipher) String() string {
	for _, e := range cipherNames {
		if e.c == c {
			return e.name
		}
	}
	return fmt.Sprintf("Cipher(%d)", int(c))
}

// KeySize returns the number of leading derived-key bytes the cipher uses.
func (c Cipher) KeySize() int {
	switch c {
	case AES128CTR, AES128GCM:
		return 16
	case AES192CTR:
		return 24
	case AES256CTR, AES256GCM:
		return 32
	case ChaCha20Poly1305, XChaCha20Poly1305:
		return chacha20poly1305.KeySize
	default:
		return 0
	}
}

// IVSize returns the IV (nonce) length the cipher requires.
func (c Cipher) IVSize() int {
	switch c {
	case AES128CTR, AES192CTR, AES256CTR:
		return aesIVSize
	case AES128GCM, AES256GCM:
		return gcmIVSize
	case ChaCha20Poly1305:
		return chacha20poly1305.NonceSize
	case XChaCha20Poly1305:
		return chacha20poly1305.NonceSizeX
	default:
		return 0
	}
}

func (c Cipher) checkParams(key, iv []byte) ([]byte, error) {
	ks := c.KeySize()
	if ks == 0 {
		return nil, fmt.Errorf("%v: %w", c, common.ErrUnsupportedAlgorithm)
	}
	if len(key) < ks {
		return nil, fmt.Errorf("%v requires a %d byte key, got %d bytes", c, ks, len(key))
	}
	if len(iv) != c.IVSize() {
		return nil, fmt.Errorf("%v requires a %d byte IV, got %d bytes: %w", c, c.IVSize(), len(iv), common.ErrInvalidIV)
	}
	return key[:ks], nil
}

func (c Cipher) aead(key []byte) (cipher.AEAD, error) {
	switch c {
	case AES128GCM, AES256GCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCMWithNonceSize(block, gcmIVSize)
	case ChaCha20Poly1305:
		return chacha20poly1305.New(key)
	case XChaCha20Poly1305:
		return chacha20poly1305.NewX(key)
	default:
		return nil, fmt.Errorf("%v is not an AEAD: %w", c, common.ErrUnsupportedAlgorithm)
	}
}

func ctr(key, iv, in []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(in))
	cipher.NewCTR(block, iv).XORKeyStream(out, in)
	return out, nil
}

// Encrypt encrypts plaintext under the leading KeySize bytes of key and the
// provided IV. The IV length must equal IVSize.
func (c Cipher) Encrypt(key, iv, plaintext []byte) ([]byte, error) {
	k, err := c.checkParams(key, iv)
	if err != nil {
		return nil, err
	}
	switch c {
	case AES128CTR, AES192CTR, AES256CTR:
		return ctr(k, iv, plaintext)
	case AES128GCM, AES256GCM, ChaCha20Poly1305, XChaCha20Poly1305:
		aead, err := c.aead(k)
		if err != nil {
			return nil, err
		}
		return aead.Seal(nil, iv, plaintext, nil), nil
	default:
		return nil, fmt.Errorf("%v: %w", c, common.ErrUnsupportedAlgorithm)
	}
}

// Decrypt reverses Encrypt. For AEAD ciphers, a tag mismatch is reported as
// ErrAuthenticationFailed.
func (c Cipher) Decrypt(key, iv, ciphertext []byte) ([]byte, error) {
	k, err := c.checkParams(key, iv)
	if err != nil {
		return nil, err
	}
	switch c {
	case AES128CTR, AES192CTR, AES256CTR:
		return ctr(k, iv, ciphertext)
	case AES128GCM, AES256GCM, ChaCha20Poly1305, XChaCha20Poly1305:
		aead, err := c.aead(k)
		if err != nil {
			return nil, err
		}
		pt, err := aead.Open(nil, iv, ciphertext, nil)
		if err != nil {
			return nil, fmt.Errorf("%v open failed: %w", c, common.ErrAuthenticationFailed)
		}
		return pt, nil
	default:
		return nil, fmt.Errorf("%v: %w", c, common.ErrUnsupportedAlgorithm)
	}
}

// Names in errors come from untrusted tokens.
const maxNameInError = 32

func truncate(name string) string {
	if len(name) > maxNameInError {
		return name[:maxNameInError] + "..."
	}
	return name
}
