package ports

import (
	"context"

	"github.com/KMA-JAVA-CARD/cardpoint/core"
)

// ReaderGateway is the middleware that speaks to the single inserted card.
// The card is a one-operation-at-a-time resource: implementations serialize
// all calls against one physical reader.
type ReaderGateway interface {
	// Connect checks reader connectivity.
	Connect(ctx context.Context) error

	// CardSerial returns the raw serial of the inserted card, including any
	// blocked marker. Empty when no card is present.
	CardSerial(ctx context.Context) (string, error)

	// VerifyPin submits a PIN to the card. Attempt counting happens on the
	// card; the returned status word carries the outcome.
	VerifyPin(ctx context.Context, pin string) (*core.PinResult, error)

	// SignChallenge has the card sign hex-encoded data with its embedded
	// private key, returning the signature as hex. Requires a preceding
	// successful PIN verification in the same card session.
	SignChallenge(ctx context.Context, challengeHex string) (string, error)

	// SecureInfo performs the PIN-gated read of the on-card personal record,
	// returned raw in pipe-delimited form.
	SecureInfo(ctx context.Context, pin string) (string, error)

	// ReadImage returns the on-card photo as hex.
	ReadImage(ctx context.Context) (string, error)

	// UploadImage writes a photo (hex) onto the card.
	UploadImage(ctx context.Context, hexData string) error

	// UpdateInfo rewrites the on-card personal record.
	UpdateInfo(ctx context.Context, info core.CardInfoWrite) error

	// UpdatePoints overwrites the on-card balance snapshot.
	UpdatePoints(ctx context.Context, points int64) error

	// ChangePin replaces the card PIN, keyed to the verified old PIN.
	ChangePin(ctx context.Context, oldPin, newPin string) (*core.PinResult, error)

	// UnblockPin clears the blocked state without a PIN. The underlying
	// primitive resets all on-card personal data to blank.
	UnblockPin(ctx context.Context) (*core.PinResult, error)

	// Register provisions a blank card with the given PIN, assigning a serial
	// and generating the card's key pair.
	Register(ctx context.Context, pin string) (*core.ProvisionedCard, error)
}
