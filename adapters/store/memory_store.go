// Package store provides NonceStore implementations for single-use challenge
// enforcement.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/KMA-JAVA-CARD/cardpoint/ports"
)

// MemoryStore keeps consumed nonces in process memory. Suitable for a single
// terminal; shared deployments use the Redis store.
type MemoryStore struct {
	used map[string]time.Time
	mu   sync.RWMutex
}

// NewMemoryStore creates an in-memory nonce store.
func NewMemoryStore() ports.NonceStore {
	return &MemoryStore{
		used: make(map[string]time.Time),
	}
}

// MarkUsed records a consumed nonce until its TTL elapses.
func (s *MemoryStore) MarkUsed(ctx context.Context, nonce string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry := time.Now().Add(ttl)
	s.used[nonce] = expiry

	go func() {
		time.Sleep(ttl)

		s.mu.Lock()
		defer s.mu.Unlock()

		// Only delete if a later MarkUsed has not extended the entry.
		if stored, exists := s.used[nonce]; exists && !stored.After(expiry) {
			delete(s.used, nonce)
		}
	}()

	return nil
}

// IsUsed reports whether a nonce has been consumed and is still inside its
// validity window.
func (s *MemoryStore) IsUsed(ctx context.Context, nonce string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiry, exists := s.used[nonce]
	if !exists {
		return false, nil
	}
	if time.Now().After(expiry) {
		return false, nil
	}
	return true, nil
}
