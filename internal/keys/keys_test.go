package keys_test

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/swfrench/ewt/internal/keys"
)

func TestDerive(t *testing.T) {
	testCases := []struct {
		name   string
		secret string
		want   string
	}{
		{
			name:   "empty secret",
			secret: "",
			want:   "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name:   "non-empty secret",
			secret: "abc",
			want:   "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := keys.Derive(tc.secret)
			if len(got) != keys.Size {
				t.Fatalf("Derive(%q) returned key of incorrect length - got: %d want: %d", tc.secret, len(got), keys.Size)
			}
			if got := hex.EncodeToString(got); got != tc.want {
				t.Errorf("Derive(%q) returned incorrect key - got: %s want: %s", tc.secret, got, tc.want)
			}
		})
	}
}

func TestDeriveIsStable(t *testing.T) {
	if a, b := keys.Derive("correct-secret"), keys.Derive("correct-secret"); !bytes.Equal(a, b) {
		t.Errorf("Derive() returned distinct keys for the same secret - got: %x and %x", a, b)
	}
	if a, b := keys.Derive("correct-secret"), keys.Derive("wrong-secret"); bytes.Equal(a, b) {
		t.Errorf("Derive() returned identical keys for distinct secrets: %x", a)
	}
}

func TestNewIV(t *testing.T) {
	for _, n := range []int{1, 12, 16, 24, 32} {
		a, err := keys.NewIV(n)
		if err != nil {
			t.Fatalf("NewIV(%d) returned unexpected error: %v", n, err)
		}
		if len(a) != n {
			t.Errorf("NewIV(%d) returned IV of incorrect length: %d", n, len(a))
		}
		if n < 12 {
			continue
		}
		b, err := keys.NewIV(n)
		if err != nil {
			t.Fatalf("NewIV(%d) returned unexpected error: %v", n, err)
		}
		if bytes.Equal(a, b) {
			t.Errorf("NewIV(%d) returned the same IV twice: %x", n, a)
		}
	}
}

func TestNewIVInvalidLength(t *testing.T) {
	for _, n := range []int{-1, 0, 33} {
		if _, err := keys.NewIV(n); err == nil {
			t.Errorf("NewIV(%d) should have returned an error", n)
		}
	}
}
