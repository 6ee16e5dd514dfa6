package core

import (
	"errors"
	"fmt"
)

var (
	// ErrReaderUnavailable means the reader middleware cannot be reached.
	// Fatal for the flow; the user must reconnect the hardware.
	ErrReaderUnavailable = errors.New("card reader unavailable")

	// ErrCardAbsent means no card is inserted.
	ErrCardAbsent = errors.New("no card detected")

	// ErrCardBlank means the inserted card has not been provisioned.
	ErrCardBlank = errors.New("card is blank")

	// ErrCardBlocked means the card's PIN is exhausted.
	ErrCardBlocked = errors.New("card is blocked")

	// ErrPinLockedOut means this PIN submission exhausted the card.
	// Terminal until an unblock.
	ErrPinLockedOut = errors.New("card PIN locked out")

	// ErrPinVerificationFailed is a PIN-class failure that consumed no attempt.
	ErrPinVerificationFailed = errors.New("pin verification failed")

	// ErrChallengeVerificationFailed means the ledger rejected the card's
	// challenge signature. The session is not created; the PIN must be
	// re-entered with a fresh challenge.
	ErrChallengeVerificationFailed = errors.New("challenge verification failed")

	// ErrChallengeReused means a challenge nonce was submitted for a second
	// verification round. Challenges are strictly single-use.
	ErrChallengeReused = errors.New("challenge nonce already used")

	// ErrLedgerUnreachable means the ledger service cannot be reached.
	// Recoverable; callers retry the whole flow.
	ErrLedgerUnreachable = errors.New("ledger service unreachable")

	// ErrInsufficientPoints rejects a redeem whose required points exceed the
	// ledger balance. No side effects occur.
	ErrInsufficientPoints = errors.New("insufficient points")

	// ErrSessionExpired means the card session is no longer valid, typically
	// because the card was removed mid-flow. Restart from authentication.
	ErrSessionExpired = errors.New("card session expired")

	// ErrMemberNotFound means no ledger record exists for the card serial.
	ErrMemberNotFound = errors.New("member not found")

	// ErrInvalidToken is returned for malformed or unverifiable session
	// reference tokens.
	ErrInvalidToken = errors.New("invalid session token")
)

// PinIncorrectError is a recoverable wrong-PIN outcome carrying the number of
// attempts left before the card blocks.
type PinIncorrectError struct {
	Remaining int
}

func (e *PinIncorrectError) Error() string {
	return fmt.Sprintf("incorrect PIN, %d attempts remaining", e.Remaining)
}

// PartialInconsistencyError reports a transaction that committed on the
// ledger while the balance write-back to the card failed. The transaction is
// final; Result carries the committed values. The next reconcile run pushes
// the ledger balance onto the card.
type PartialInconsistencyError struct {
	Result *TransactionResult
	Err    error
}

func (e *PartialInconsistencyError) Error() string {
	return fmt.Sprintf("transaction %d committed but card update failed: %v", e.Result.TransactionID, e.Err)
}

func (e *PartialInconsistencyError) Unwrap() error {
	return e.Err
}
