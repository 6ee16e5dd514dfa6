package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/KMA-JAVA-CARD/cardpoint/core"
	"github.com/KMA-JAVA-CARD/cardpoint/ports"
)

// MemberService handles card issuance and member profile maintenance: the
// write path that provisions a card, registers the member with the ledger and
// mirrors the personal record onto the card.
type MemberService struct {
	reader   ports.ReaderGateway
	ledger   ports.LedgerService
	sessions *SessionRegistry
	log      *logrus.Entry
}

// NewMemberService creates a member service.
func NewMemberService(
	reader ports.ReaderGateway,
	ledger ports.LedgerService,
	sessions *SessionRegistry,
	log *logrus.Logger,
) *MemberService {
	return &MemberService{
		reader:   reader,
		ledger:   ledger,
		sessions: sessions,
		log:      log.WithField("component", "members"),
	}
}

// Register issues a new membership card: the reader provisions the blank card
// with the chosen PIN (assigning a serial and generating the key pair), the
// ledger registers the member against that serial and public key, and the
// personal record is written onto the card.
func (s *MemberService) Register(ctx context.Context, reg core.Registration) (*core.Member, error) {
	card, err := s.reader.Register(ctx, reg.PIN)
	if err != nil {
		return nil, err
	}

	log := s.log.WithField("card_serial", card.CardID)

	member, err := s.ledger.RegisterMember(ctx, card.CardID, card.PublicKey, reg)
	if err != nil {
		return nil, fmt.Errorf("ledger registration after card provisioning: %w", err)
	}

	write := core.CardInfoWrite{
		PIN:      reg.PIN,
		FullName: reg.FullName,
		DOB:      reg.DOB,
		Address:  reg.Address,
		Phone:    reg.Phone,
	}
	if err := s.reader.UpdateInfo(ctx, write); err != nil {
		return nil, fmt.Errorf("write personal record to card: %w", err)
	}

	if reg.AvatarIx != "" {
		if err := s.reader.UploadImage(ctx, reg.AvatarIx); err != nil {
			// The member exists either way; the photo can be re-uploaded
			// through a profile update.
			log.WithError(err).Warn("card photo upload failed")
		}
	}

	log.WithField("member_id", member.ID).Info("member registered")
	return member, nil
}

// UpdateProfile changes the member's personal data on both copies: the card
// record first (PIN-gated, so an authenticated session is required), then the
// ledger record.
func (s *MemberService) UpdateProfile(ctx context.Context, sessionID string, upd core.MemberUpdate) error {
	session, err := s.sessions.Resolve(sessionID)
	if err != nil {
		return err
	}

	write := core.CardInfoWrite{
		PIN:      session.PIN,
		FullName: upd.FullName,
		DOB:      upd.DOB,
		Address:  upd.Address,
		Phone:    upd.Phone,
	}
	if err := s.reader.UpdateInfo(ctx, write); err != nil {
		return err
	}

	if upd.AvatarIx != "" {
		if err := s.reader.UploadImage(ctx, upd.AvatarIx); err != nil {
			return err
		}
	}

	if err := s.ledger.UpdateMember(ctx, session.CardSerial, upd); err != nil {
		return err
	}

	s.log.WithField("card_serial", session.CardSerial).Info("member profile updated")
	return nil
}

// CardInfo reads the on-card personal record and photo for an authenticated
// session.
func (s *MemberService) CardInfo(ctx context.Context, sessionID string) (*core.CardInfo, error) {
	session, err := s.sessions.Resolve(sessionID)
	if err != nil {
		return nil, err
	}

	raw, err := s.reader.SecureInfo(ctx, session.PIN)
	if err != nil {
		return nil, err
	}
	secure, err := core.ParseSecureInfo(raw)
	if err != nil {
		return nil, err
	}

	imageHex, err := s.reader.ReadImage(ctx)
	if err != nil {
		// The personal record is still useful without the photo.
		s.log.WithError(err).Warn("card image read failed")
		imageHex = ""
	}

	return &core.CardInfo{Secure: secure, ImageHex: imageHex}, nil
}

// MemberInfo looks up the ledger record for a card serial.
func (s *MemberService) MemberInfo(ctx context.Context, cardSerial string) (*core.Member, error) {
	return s.ledger.Member(ctx, cardSerial)
}

// ListTransactions lists committed transactions from the ledger, fetching the
// member record alongside when the filter names a card.
func (s *MemberService) ListTransactions(ctx context.Context, filter core.TransactionFilter) (*core.TransactionPage, *core.Member, error) {
	var (
		page   *core.TransactionPage
		member *core.Member
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		page, err = s.ledger.Transactions(gctx, filter)
		return err
	})
	if filter.CardSerial != "" {
		g.Go(func() error {
			var err error
			member, err = s.ledger.Member(gctx, filter.CardSerial)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return page, member, nil
}
