package token_test

import (
	"errors"
	"testing"

	"github.com/swfrench/ewt/internal/token"
	"github.com/swfrench/ewt/internal/token/common"
)

// FuzzDecode feeds arbitrary strings to the decoder.
// Goal: no panics, and every failure is a rejection.
func FuzzDecode(f *testing.F) {
	valid, err := token.Encode([]byte("hello-world"), testSecret, nil)
	if err != nil {
		f.Fatal(err)
	}
	f.Add(valid)
	f.Add("")
	f.Add("e30")
	f.Add("eyJhIjoibm9uZSIsImkiOiIiLCJoIjoibm9uZSIsInMiOiIiLCJwIjoiIn0")
	f.Add("not-a-token")

	f.Fuzz(func(t *testing.T, input string) {
		payload, err := token.Decode(input, testSecret)
		if err != nil {
			if payload != nil {
				t.Fatal("Decode returned a payload alongside an error")
			}
			if !errors.Is(err, common.ErrRejected) {
				t.Fatalf("Decode returned an error that is not a rejection: %v", err)
			}
			return
		}
		if input != valid {
			h, herr := token.Inspect(input)
			if herr != nil || h.Cipher == "" {
				t.Fatalf("Decode accepted a token Inspect cannot parse: %q", input)
			}
		}
	})
}
