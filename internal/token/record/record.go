// Package record defines the token record and its canonical document form.
package record

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/swfrench/ewt/internal/token/common"
	"github.com/swfrench/ewt/internal/token/framing"
)

// Record is the structure carried inside a token. Byte fields are encoded as
// standard base64 strings in the document.
type Record struct {
	// Alg names the cipher.
	Alg string `json:"a"`
	// IV is the cipher's initialization vector.
	IV []byte `json:"i"`
	// Hash names the MAC.
	Hash string `json:"h"`
	// Sig is the hex-encoded MAC of the plaintext.
	Sig string `json:"s"`
	// Payload is the ciphertext.
	Payload []byte `json:"p"`
}

// Marshal returns the framed document for r.
func (r *Record) Marshal() (string, error) {
	doc, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to serialize token document: %w", err)
	}
	return framing.Encode(doc), nil
}

var (
	errMissingField   = errors.New("missing field")
	errUnknownField   = errors.New("unknown field")
	errDuplicateField = errors.New("duplicate field")
)

// Parse unframes and parses a token string. Any failure wraps
// ErrMalformedToken.
func Parse(token string) (*Record, error) {
	doc, err := framing.Decode(token)
	if err != nil {
		return nil, fmt.Errorf("failed to unframe token (error: %v): %w", err, common.ErrMalformedToken)
	}
	r, err := parseDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token document (error: %v): %w", err, common.ErrMalformedToken)
	}
	if err := r.validate(); err != nil {
		return nil, fmt.Errorf("invalid token document (error: %v): %w", err, common.ErrMalformedToken)
	}
	return r, nil
}

// parseDocument reads the document strictly: keys must match exactly, at most
// once each, and byte fields must be canonical padded standard base64.
func parseDocument(doc []byte) (*Record, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	if tok, err := dec.Token(); err != nil {
		return nil, err
	} else if tok != json.Delim('{') {
		return nil, fmt.Errorf("document is not an object (got %v)", tok)
	}
	r := new(Record)
	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key := tok.(string)
		if seen[key] {
			return nil, fmt.Errorf("%w: %q", errDuplicateField, key)
		}
		seen[key] = true
		switch key {
		case "a":
			err = dec.Decode(&r.Alg)
		case "h":
			err = dec.Decode(&r.Hash)
		case "s":
			err = dec.Decode(&r.Sig)
		case "i":
			r.IV, err = decodeBytes(dec)
		case "p":
			r.Payload, err = decodeBytes(dec)
		default:
			return nil, fmt.Errorf("%w: %q", errUnknownField, key)
		}
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after document")
	}
	return r, nil
}

// decodeBytes reads a base64 string value. A null value yields nil.
func decodeBytes(dec *json.Decoder) ([]byte, error) {
	var s *string
	if err := dec.Decode(&s); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, nil
	}
	return base64.StdEncoding.Strict().DecodeString(*s)
}

func (r *Record) validate() error {
	switch {
	case r.Alg == "":
		return fmt.Errorf("%w: a", errMissingField)
	case r.IV == nil:
		return fmt.Errorf("%w: i", errMissingField)
	case r.Hash == "":
		return fmt.Errorf("%w: h", errMissingField)
	case r.Sig == "":
		return fmt.Errorf("%w: s", errMissingField)
	case r.Payload == nil:
		return fmt.Errorf("%w: p", errMissingField)
	}
	return nil
}

// DecodeSig returns the raw signature bytes. Hex digits of either case are
// accepted.
func (r *Record) DecodeSig() ([]byte, error) {
	sig, err := hex.DecodeString(r.Sig)
	if err != nil {
		return nil, fmt.Errorf("failed to decode signature (error: %v): %w", err, common.ErrMalformedToken)
	}
	return sig, nil
}
