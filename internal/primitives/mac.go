package primitives

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"strings"

	"github.com/swfrench/ewt/internal/token/common"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// MAC identifies a supported keyed MAC. The zero value is not a valid MAC.
type MAC int

const (
	HMACSHA256 MAC = iota + 1
	HMACSHA384
	HMACSHA512
	HMACSHA3_256
	HMACSHA3_512
	BLAKE2b256
)

var macNames = []struct {
	m    MAC
	name string
}{
	{HMACSHA256, "sha256"},
	{HMACSHA384, "sha384"},
	{HMACSHA512, "sha512"},
	{HMACSHA3_256, "sha3-256"},
	{HMACSHA3_512, "sha3-512"},
	{BLAKE2b256, "blake2b-256"},
}

// MACs returns the names of all supported MACs.
func MACs() []string {
	names := make([]string, 0, len(macNames))
	for _, e := range macNames {
		names = append(names, e.name)
	}
	return names
}

// ParseMAC resolves a MAC name (case-insensitive).
func ParseMAC(name string) (MAC, error) {
	n := strings.ToLower(name)
	for _, e := range macNames {
		if e.name == n {
			return e.m, nil
		}
	}
	return 0, fmt.Errorf("MAC %q: %w", truncate(name), common.ErrUnsupportedAlgorithm)
}

func (m MAC) String() string {
	for _, e := range macNames {
		if e.m == m {
			return e.name
		}
	}
	return fmt.Sprintf("MAC(%d)", int(m))
}

// Size returns the MAC output length in bytes.
func (m MAC) Size() int {
	switch m {
	case HMACSHA256, HMACSHA3_256, BLAKE2b256:
		return 32
	case HMACSHA384:
		return 48
	case HMACSHA512, HMACSHA3_512:
		return 64
	default:
		return 0
	}
}

func (m MAC) new(key []byte) (hash.Hash, error) {
	switch m {
	case HMACSHA256:
		return hmac.New(sha256.New, key), nil
	case HMACSHA384:
		return hmac.New(sha512.New384, key), nil
	case HMACSHA512:
		return hmac.New(sha512.New, key), nil
	case HMACSHA3_256:
		return hmac.New(sha3.New256, key), nil
	case HMACSHA3_512:
		return hmac.New(sha3.New512, key), nil
	case BLAKE2b256:
		return blake2b.New256(key)
	default:
		return nil, fmt.Errorf("%v: %w", m, common.ErrUnsupportedAlgorithm)
	}
}

// Sum returns the MAC of msg under key.
func (m MAC) Sum(key, msg []byte) ([]byte, error) {
	h, err := m.new(key)
	if err != nil {
		return nil, err
	}
	h.Write(msg)
	return h.Sum(nil), nil
}

// Verify recomputes the MAC of msg and compares it with sum in constant time.
func (m MAC) Verify(key, msg, sum []byte) (bool, error) {
	want, err := m.Sum(key, msg)
	if err != nil {
		return false, err
	}
	return hmac.Equal(want, sum), nil
}
