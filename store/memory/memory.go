// Package memory provides an in-memory RevocationStore.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/swfrench/ewt/store"
)

// Store is a simple in-memory revocation list, for use in tests or in
// single-process deployments where an external store is not available.
//
// Eviction: Expired revocations are garbage collected on entry to any Store
// method.
type Store struct {
	// Clock can be overridden in tests (e.g., to test eviciton logic).
	Clock     func() time.Time
	mu        sync.Mutex
	revoked   map[string]time.Time
	evictions *evictionQueue
}

// New returns a new Store instance.
func New() *Store {
	return &Store{
		Clock:     func() time.Time { return time.Now() },
		revoked:   make(map[string]time.Time),
		evictions: newEvictionQueue(),
	}
}

func (ms *Store) evict(t time.Time) {
	for ms.evictions.Len() > 0 && ms.evictions.Peek().expires.Before(t) {
		delete(ms.revoked, ms.evictions.Pop().id)
	}
}

// Revoke records id as revoked for ttl. Revoking an already revoked id leaves
// the existing revocation (and its expiration) unchanged.
func (ms *Store) Revoke(ctx context.Context, id string, ttl time.Duration) error {
	if err := store.Validate(id, ttl); err != nil {
		return err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	t := ms.Clock()
	ms.evict(t)
	if _, ok := ms.revoked[id]; ok {
		return nil
	}
	exp := t.Add(ttl)
	ms.revoked[id] = exp
	ms.evictions.Push(id, exp)
	return nil
}

// IsRevoked reports whether id is currently revoked.
func (ms *Store) IsRevoked(ctx context.Context, id string) (bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.evict(ms.Clock())
	_, ok := ms.revoked[id]
	return ok, nil
}

// Len returns the number of live revocations.
func (ms *Store) Len() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.evict(ms.Clock())
	return len(ms.revoked)
}
