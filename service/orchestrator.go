package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/KMA-JAVA-CARD/cardpoint/core"
	"github.com/KMA-JAVA-CARD/cardpoint/ports"
)

// TransactionOrchestrator signs and commits earn/redeem transactions against
// a verified, reconciled session, then propagates the ledger's new balance
// back onto the card.
type TransactionOrchestrator struct {
	reader   ports.ReaderGateway
	ledger   ports.LedgerService
	sessions *SessionRegistry
	events   ports.EventPublisher
	log      *logrus.Entry

	conversionRate int64
}

// NewTransactionOrchestrator creates an orchestrator with the fixed currency
// to point conversion rate.
func NewTransactionOrchestrator(
	reader ports.ReaderGateway,
	ledger ports.LedgerService,
	sessions *SessionRegistry,
	events ports.EventPublisher,
	conversionRate int64,
	log *logrus.Logger,
) *TransactionOrchestrator {
	return &TransactionOrchestrator{
		reader:         reader,
		ledger:         ledger,
		sessions:       sessions,
		events:         events,
		conversionRate: conversionRate,
		log:            log.WithField("component", "orchestrator"),
	}
}

// PointsPreview returns the non-binding point delta the terminal shows for
// an amount. The ledger recomputes the delta at commit and its value wins.
func (o *TransactionOrchestrator) PointsPreview(amount int64) int64 {
	return core.PointsForAmount(amount, o.conversionRate)
}

// Commit executes one transaction against a reconciled session.
//
// A redeem whose required points exceed the ledger balance is rejected before
// any reader or ledger call. Once the ledger has committed, the transaction
// is final: a failure writing the new balance back to the card is reported as
// a PartialInconsistencyError carrying the committed result, and the next
// reconcile run heals the card. Failures before the ledger commit leave no
// state anywhere; the caller retries the whole commit.
func (o *TransactionOrchestrator) Commit(
	ctx context.Context,
	rs *core.ReconciledSession,
	txType core.TransactionType,
	amount int64,
	description string,
) (*core.TransactionResult, error) {
	if !txType.Valid() {
		return nil, fmt.Errorf("unknown transaction type %q", txType)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %d", amount)
	}

	// Eligibility uses the ledger balance only, never the on-card copy.
	required := core.PointsForAmount(amount, o.conversionRate)
	if txType == core.TransactionRedeem && rs.Member.PointBalance < required {
		return nil, core.ErrInsufficientPoints
	}

	session, err := o.sessions.Resolve(rs.Session.ID)
	if err != nil {
		return nil, err
	}

	log := o.log.WithFields(logrus.Fields{
		"card_serial": session.CardSerial,
		"type":        txType,
		"amount":      amount,
	})

	now := time.Now()
	payload := core.CanonicalPayload(txType, amount, now)

	signature, err := o.reader.SignChallenge(ctx, core.PayloadHex(payload))
	if err != nil {
		// The card is gone or the reader dropped; nothing was committed.
		o.sessions.Cancel(session.ID)
		return nil, fmt.Errorf("%w: %v", core.ErrSessionExpired, err)
	}

	result, err := o.ledger.CommitTransaction(ctx, session.CardSerial, core.TransactionRequest{
		Type:        txType,
		Amount:      amount,
		Timestamp:   strconv.FormatInt(now.UnixMilli(), 10),
		Signature:   signature,
		Description: description,
	})
	if err != nil {
		return nil, err
	}

	log = log.WithFields(logrus.Fields{
		"tx_id":       result.TransactionID,
		"new_balance": result.NewBalance,
	})
	log.Info("transaction committed")

	writeErr := o.reader.UpdatePoints(ctx, result.NewBalance)
	if writeErr != nil {
		// Committed on the ledger, card write failed. Not a rollback: the
		// next reconcile run detects the mismatch and pushes the ledger
		// balance to the card.
		log.WithError(writeErr).Warn("card balance write failed after ledger commit")
	}

	o.publish(ctx, session.CardSerial, txType, amount, result, writeErr == nil)

	if writeErr != nil {
		return result, &core.PartialInconsistencyError{Result: result, Err: writeErr}
	}
	return result, nil
}

func (o *TransactionOrchestrator) publish(
	ctx context.Context,
	cardSerial string,
	txType core.TransactionType,
	amount int64,
	result *core.TransactionResult,
	cardUpdated bool,
) {
	event := &ports.TransactionEvent{
		CardSerial:  cardSerial,
		Type:        txType,
		Amount:      amount,
		Result:      *result,
		CardUpdated: cardUpdated,
	}
	if err := o.events.PublishTransaction(ctx, event); err != nil {
		// The commit already happened; event delivery is best effort.
		o.log.WithError(err).Warn("failed to publish transaction event")
	}
}
