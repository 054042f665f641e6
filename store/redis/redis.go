// Package redis provides a Redis-backed RevocationStore.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/swfrench/ewt/store"
)

// ErrRedisClient is wrapped by errors returned by the underlying Redis client.
var ErrRedisClient = errors.New("redis client error")

// Store is a Redis-based revocation list, implementing the
// store.RevocationStore interface. Revocations are stored as keys carrying a
// TTL, so expiration is handled by Redis itself.
type Store struct {
	rc     *goredis.Client
	prefix string
}

// New returns a new Store using the provided Redis client. Keys will be stored
// with the provided prefix.
func New(rc *goredis.Client, prefix string) *Store {
	return &Store{rc: rc, prefix: prefix}
}

func (rs *Store) revocationKey(id string) string {
	return fmt.Sprintf("%s:%s", rs.prefix, id)
}

// Revoke records id as revoked for ttl. Revoking an already revoked id leaves
// the existing revocation (and its expiration) unchanged.
func (rs *Store) Revoke(ctx context.Context, id string, ttl time.Duration) error {
	if err := store.Validate(id, ttl); err != nil {
		return err
	}
	if err := rs.rc.SetNX(ctx, rs.revocationKey(id), 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store revocation to Redis (error: %v): %w", err, ErrRedisClient)
	}
	return nil
}

// IsRevoked reports whether id is currently revoked.
func (rs *Store) IsRevoked(ctx context.Context, id string) (bool, error) {
	n, err := rs.rc.Exists(ctx, rs.revocationKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to query revocation from Redis (error: %v): %w", err, ErrRedisClient)
	}
	return n > 0, nil
}
