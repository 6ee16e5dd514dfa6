package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/KMA-JAVA-CARD/cardpoint/ports"
)

// RedisStore tracks consumed nonces in Redis so that terminals sharing one
// ledger also share the single-use guarantee.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed nonce store.
func NewRedisStore(client *redis.Client) ports.NonceStore {
	return &RedisStore{
		client: client,
		prefix: "cardpoint:nonce:",
	}
}

// MarkUsed records a consumed nonce with the given TTL.
func (s *RedisStore) MarkUsed(ctx context.Context, nonce string, ttl time.Duration) error {
	key := s.prefix + nonce
	if err := s.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark nonce used: %w", err)
	}
	return nil
}

// IsUsed reports whether a nonce has been consumed.
func (s *RedisStore) IsUsed(ctx context.Context, nonce string) (bool, error) {
	key := s.prefix + nonce
	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check nonce: %w", err)
	}
	return val > 0, nil
}
