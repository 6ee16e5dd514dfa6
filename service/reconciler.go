package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/KMA-JAVA-CARD/cardpoint/core"
	"github.com/KMA-JAVA-CARD/cardpoint/ports"
)

// PointsReconciler makes the on-card balance snapshot agree with the ledger
// before any transaction is allowed. The ledger is always the source of
// truth; the on-card copy is a cache for offline display and never feeds an
// eligibility decision.
type PointsReconciler struct {
	reader   ports.ReaderGateway
	ledger   ports.LedgerService
	sessions *SessionRegistry
	log      *logrus.Entry
}

// NewPointsReconciler creates a reconciler.
func NewPointsReconciler(
	reader ports.ReaderGateway,
	ledger ports.LedgerService,
	sessions *SessionRegistry,
	log *logrus.Logger,
) *PointsReconciler {
	return &PointsReconciler{
		reader:   reader,
		ledger:   ledger,
		sessions: sessions,
		log:      log.WithField("component", "reconciler"),
	}
}

// Reconcile reads the on-card secure balance and the ledger balance in
// parallel and, when they differ, pushes the ledger value onto the card.
// Idempotent: with equal balances the second run performs no card write.
func (r *PointsReconciler) Reconcile(ctx context.Context, session *core.CardSession) (*core.ReconciledSession, error) {
	if _, err := r.sessions.Resolve(session.ID); err != nil {
		return nil, err
	}

	var (
		info   *core.SecureInfo
		member *core.Member
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		raw, err := r.reader.SecureInfo(gctx, session.PIN)
		if err != nil {
			return err
		}
		info, err = core.ParseSecureInfo(raw)
		if err != nil {
			return fmt.Errorf("card secure record: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		member, err = r.ledger.Member(gctx, session.CardSerial)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	synced := false
	if info.Points != member.PointBalance {
		r.log.WithFields(logrus.Fields{
			"card_serial": session.CardSerial,
			"card":        info.Points,
			"ledger":      member.PointBalance,
		}).Info("balance mismatch, pushing ledger value to card")

		if err := r.reader.UpdatePoints(ctx, member.PointBalance); err != nil {
			return nil, fmt.Errorf("push balance to card: %w", err)
		}
		synced = true
	}

	return &core.ReconciledSession{
		Session:    session,
		Member:     member,
		CardPoints: info.Points,
		Synced:     synced,
	}, nil
}
