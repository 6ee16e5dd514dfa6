package ports

import (
	"context"
	"time"
)

// NonceStore tracks challenge nonces that have been through their one
// verification round, so a nonce can never be submitted twice even across
// terminals sharing a ledger.
type NonceStore interface {
	// MarkUsed records a nonce as consumed. The TTL should cover the
	// challenge's validity window.
	MarkUsed(ctx context.Context, nonce string, ttl time.Duration) error

	// IsUsed reports whether a nonce has already been consumed.
	IsUsed(ctx context.Context, nonce string) (bool, error)
}
