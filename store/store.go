// Package store and its subpackages provide revocation lists for use by the
// session Manager.
//
// Sessions live entirely inside encrypted cookies, so the only server-side
// state is the set of session IDs that were cleared before they expired. A
// RevocationStore keeps each such ID until its TTL elapses, after which the
// session would have been rejected as expired anyway.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidID indicates that the provided ID cannot be stored (e.g., it
	// is empty).
	ErrInvalidID = errors.New("invalid id")
	// ErrInvalidTTL indicates that the provided TTL is not positive.
	ErrInvalidTTL = errors.New("invalid ttl")
)

// RevocationStore represents an abstract revocation list. See the redis and
// memory subpackages for concrete implementations thereof.
type RevocationStore interface {
	// Revoke records id as revoked for ttl. Revoking an already revoked id
	// is not an error.
	Revoke(ctx context.Context, id string, ttl time.Duration) error
	// IsRevoked reports whether id is currently revoked.
	IsRevoked(ctx context.Context, id string) (bool, error)
}

// Validate checks the arguments of a Revoke call.
func Validate(id string, ttl time.Duration) error {
	if id == "" {
		return ErrInvalidID
	}
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	return nil
}
