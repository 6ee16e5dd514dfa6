package ports

import (
	"context"

	"github.com/KMA-JAVA-CARD/cardpoint/core"
)

// LedgerService owns the durable member record and points balance. Calls may
// run concurrently with each other, but never concurrently with a reader
// operation that depends on their result.
type LedgerService interface {
	// Member looks up the record for a card serial. Returns
	// core.ErrMemberNotFound when no record exists.
	Member(ctx context.Context, cardSerial string) (*core.Member, error)

	// RegisterMember creates the member record for a freshly provisioned
	// card, including its public key and optional photo.
	RegisterMember(ctx context.Context, cardSerial, publicKey string, reg core.Registration) (*core.Member, error)

	// Challenge issues a fresh single-use auth nonce.
	Challenge(ctx context.Context) (string, error)

	// VerifyChallenge checks the card's signature over a challenge against
	// the registered public key. Returns core.ErrChallengeVerificationFailed
	// when the ledger rejects the signature.
	VerifyChallenge(ctx context.Context, cardSerial, challenge, signature string) error

	// CommitTransaction commits an earn or redeem. The ledger recomputes the
	// point delta from the raw amount; the returned balance is authoritative.
	CommitTransaction(ctx context.Context, cardSerial string, req core.TransactionRequest) (*core.TransactionResult, error)

	// UpdateMember changes profile fields on the member record.
	UpdateMember(ctx context.Context, cardSerial string, upd core.MemberUpdate) error

	// Transactions lists committed transactions, paginated and filterable.
	Transactions(ctx context.Context, filter core.TransactionFilter) (*core.TransactionPage, error)
}
