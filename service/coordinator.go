// Package service contains the card-authentication-and-transaction
// orchestration logic: authentication, balance reconciliation, transaction
// commits and PIN lifecycle, independent of any presentation layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/KMA-JAVA-CARD/cardpoint/core"
	"github.com/KMA-JAVA-CARD/cardpoint/ports"
)

// AuthenticationCoordinator drives card detection, PIN verification and
// challenge-response, producing a verified card session. Within one flow PIN
// verification strictly precedes the challenge round, which strictly precedes
// any balance read/write or transaction signing.
type AuthenticationCoordinator struct {
	reader   ports.ReaderGateway
	ledger   ports.LedgerService
	nonces   ports.NonceStore
	sessions *SessionRegistry
	events   ports.EventPublisher
	log      *logrus.Entry

	challengeTTL time.Duration
}

// NewAuthenticationCoordinator creates a coordinator. One coordinator
// instance serves one physical reader.
func NewAuthenticationCoordinator(
	reader ports.ReaderGateway,
	ledger ports.LedgerService,
	nonces ports.NonceStore,
	sessions *SessionRegistry,
	events ports.EventPublisher,
	log *logrus.Logger,
) *AuthenticationCoordinator {
	return &AuthenticationCoordinator{
		reader:       reader,
		ledger:       ledger,
		nonces:       nonces,
		sessions:     sessions,
		events:       events,
		log:          log.WithField("component", "auth"),
		challengeTTL: 5 * time.Minute,
	}
}

// Detect queries reader presence and classifies what is inserted. Idempotent
// and side-effect free; callers may poll it.
func (c *AuthenticationCoordinator) Detect(ctx context.Context) (*core.CardPresence, error) {
	if err := c.reader.Connect(ctx); err != nil {
		return nil, err
	}

	raw, err := c.reader.CardSerial(ctx)
	if err != nil {
		return nil, err
	}

	presence := core.ClassifySerial(raw)
	return &presence, nil
}

// Authenticate runs the full authentication flow for the inserted card:
// detection, PIN verification, then immediately the challenge round. A
// session is created only when both succeed; PIN success alone never
// produces one.
func (c *AuthenticationCoordinator) Authenticate(ctx context.Context, pin string) (*core.CardSession, error) {
	state := core.StateDetecting
	log := c.log.WithField("state", state)

	presence, err := c.Detect(ctx)
	if err != nil {
		return nil, err
	}

	switch presence.Presence {
	case core.PresenceAbsent:
		c.transition(&state, core.StateCardAbsent)
		return nil, core.ErrCardAbsent
	case core.PresenceBlank:
		c.transition(&state, core.StateCardBlank)
		return nil, core.ErrCardBlank
	case core.PresenceBlocked:
		c.transition(&state, core.StateCardBlocked)
		return nil, core.ErrCardBlocked
	}
	c.transition(&state, core.StateCardPresent)

	serial := presence.Serial
	log = log.WithField("card_serial", serial)

	c.transition(&state, core.StateAwaitingPin)
	if err := c.verifyPin(ctx, serial, pin, &state); err != nil {
		return nil, err
	}

	// The challenge round runs immediately after PIN success, never skipped
	// and never reordered.
	c.transition(&state, core.StateAwaitingChallenge)
	if err := c.challengeRound(ctx, serial); err != nil {
		return nil, err
	}

	c.transition(&state, core.StateAuthenticated)
	session := c.sessions.Create(serial, pin)
	log.WithField("session_id", session.ID).Info("card authenticated")
	return session, nil
}

// VerifyPinAndChallenge runs PIN verification plus the challenge round
// against the already-detected card without creating a session. Used by the
// PIN lifecycle, which needs the same security sequence as authentication.
func (c *AuthenticationCoordinator) VerifyPinAndChallenge(ctx context.Context, cardSerial, pin string) error {
	state := core.StateAwaitingPin
	if err := c.verifyPin(ctx, cardSerial, pin, &state); err != nil {
		return err
	}
	return c.challengeRound(ctx, cardSerial)
}

// CancelSession destroys a session, e.g. when the consuming flow is
// abandoned before reaching a terminal state.
func (c *AuthenticationCoordinator) CancelSession(id string) {
	c.sessions.Cancel(id)
}

// verifyPin submits the PIN and classifies the status word. Lockout
// transitions publish a card.locked event.
func (c *AuthenticationCoordinator) verifyPin(ctx context.Context, cardSerial, pin string, state *core.AuthState) error {
	result, err := c.reader.VerifyPin(ctx, pin)
	if err != nil {
		return err
	}

	switch result.Verdict() {
	case core.PinOK:
		c.transition(state, core.StatePinVerified)
		return nil
	case core.PinLocked:
		c.transition(state, core.StateLocked)
		c.sessions.CancelForCard(cardSerial)
		if err := c.events.PublishCardLocked(ctx, cardSerial); err != nil {
			c.log.WithError(err).Warn("failed to publish lockout event")
		}
		return core.ErrPinLockedOut
	case core.PinWrong:
		// Stay in AwaitingPin; the caller re-prompts.
		return &core.PinIncorrectError{Remaining: result.RemainingTries}
	default:
		// No attempt consumed.
		return fmt.Errorf("%w: sw=%s", core.ErrPinVerificationFailed, result.StatusWord)
	}
}

// challengeRound fetches a fresh nonce from the ledger, has the card sign it
// and submits the signature for verification. The nonce is consumed by its
// one round whatever the outcome; on failure the whole flow restarts from
// PIN entry with a fresh challenge.
func (c *AuthenticationCoordinator) challengeRound(ctx context.Context, cardSerial string) error {
	nonce, err := c.ledger.Challenge(ctx)
	if err != nil {
		return err
	}

	used, err := c.nonces.IsUsed(ctx, nonce)
	if err != nil {
		return fmt.Errorf("nonce check: %w", err)
	}
	if used {
		return core.ErrChallengeReused
	}

	signature, err := c.reader.SignChallenge(ctx, nonce)
	if err != nil {
		return err
	}

	if err := c.nonces.MarkUsed(ctx, nonce, c.challengeTTL); err != nil {
		return fmt.Errorf("nonce mark: %w", err)
	}

	if err := c.ledger.VerifyChallenge(ctx, cardSerial, nonce, signature); err != nil {
		if errors.Is(err, core.ErrChallengeVerificationFailed) {
			c.log.WithField("card_serial", cardSerial).Warn("challenge verification rejected")
			return core.ErrChallengeVerificationFailed
		}
		return err
	}
	return nil
}

func (c *AuthenticationCoordinator) transition(state *core.AuthState, next core.AuthState) {
	c.log.WithFields(logrus.Fields{"from": *state, "to": next}).Debug("auth transition")
	*state = next
}
