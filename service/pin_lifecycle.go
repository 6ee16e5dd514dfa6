package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/KMA-JAVA-CARD/cardpoint/core"
	"github.com/KMA-JAVA-CARD/cardpoint/ports"
)

// PinLifecycleManager handles PIN changes and the admin unblock/restore flow.
type PinLifecycleManager struct {
	coordinator *AuthenticationCoordinator
	reader      ports.ReaderGateway
	ledger      ports.LedgerService
	events      ports.EventPublisher
	log         *logrus.Entry

	defaultPin string
}

// UnblockResult reports the outcome of an unblock: whether a ledger record
// existed and the card's personal data could be restored.
type UnblockResult struct {
	CardSerial string `json:"cardSerial"`
	Restored   bool   `json:"restored"`
}

// NewPinLifecycleManager creates a manager. defaultPin is written to the card
// after an unblock, mirroring the initial registration write path.
func NewPinLifecycleManager(
	coordinator *AuthenticationCoordinator,
	reader ports.ReaderGateway,
	ledger ports.LedgerService,
	events ports.EventPublisher,
	defaultPin string,
	log *logrus.Logger,
) *PinLifecycleManager {
	return &PinLifecycleManager{
		coordinator: coordinator,
		reader:      reader,
		ledger:      ledger,
		events:      events,
		defaultPin:  defaultPin,
		log:         log.WithField("component", "pin_lifecycle"),
	}
}

// ChangePin replaces the card PIN. It requires the same PIN-verify then
// challenge-response sequence as authentication; a PIN change is never
// allowed on an unauthenticated card.
func (m *PinLifecycleManager) ChangePin(ctx context.Context, oldPin, newPin string) error {
	presence, err := m.coordinator.Detect(ctx)
	if err != nil {
		return err
	}
	if presence.Presence != core.PresencePresent {
		return presenceError(presence.Presence)
	}

	if err := m.coordinator.VerifyPinAndChallenge(ctx, presence.Serial, oldPin); err != nil {
		return err
	}

	result, err := m.reader.ChangePin(ctx, oldPin, newPin)
	if err != nil {
		return err
	}
	if result.StatusWord != core.StatusWordOK {
		return fmt.Errorf("%w: sw=%s", core.ErrPinVerificationFailed, result.StatusWord)
	}

	m.log.WithField("card_serial", presence.Serial).Info("card PIN changed")
	return nil
}

// Unblock clears the blocked state via the admin, PIN-less unblock primitive.
// The primitive resets all on-card personal data to blank, so a restore step
// always follows: if a ledger record exists for the serial, its personal
// fields are rewritten to the card under the default PIN; otherwise the card
// is left blank with only the default PIN set.
func (m *PinLifecycleManager) Unblock(ctx context.Context) (*UnblockResult, error) {
	presence, err := m.coordinator.Detect(ctx)
	if err != nil {
		return nil, err
	}
	if presence.Presence == core.PresenceAbsent {
		return nil, core.ErrCardAbsent
	}
	serial := presence.Serial

	result, err := m.reader.UnblockPin(ctx)
	if err != nil {
		return nil, err
	}
	if !result.Success || result.StatusWord != core.StatusWordOK {
		return nil, fmt.Errorf("unblock rejected: sw=%s %s", result.StatusWord, result.Message)
	}

	restored, err := m.restore(ctx, serial)
	if err != nil {
		// The card is unblocked but blank; surface the restore failure so the
		// operator can retry the restore by re-running the flow.
		return nil, fmt.Errorf("card unblocked but restore failed: %w", err)
	}

	if err := m.events.PublishCardUnblocked(ctx, serial, restored); err != nil {
		m.log.WithError(err).Warn("failed to publish unblock event")
	}

	m.log.WithFields(logrus.Fields{"card_serial": serial, "restored": restored}).
		Info("card unblocked")
	return &UnblockResult{CardSerial: serial, Restored: restored}, nil
}

// restore rewrites the ledger's personal record onto the card under the
// default PIN. Returns false when no ledger record exists.
func (m *PinLifecycleManager) restore(ctx context.Context, serial string) (bool, error) {
	member, err := m.ledger.Member(ctx, serial)
	if err != nil {
		if errors.Is(err, core.ErrMemberNotFound) {
			return false, nil
		}
		return false, err
	}

	dob := ""
	if member.User.DOB != nil {
		dob = member.User.DOB.Format("2006-01-02")
	}

	write := core.CardInfoWrite{
		PIN:      m.defaultPin,
		FullName: member.User.FullName,
		DOB:      dob,
		Address:  member.User.Address,
		Phone:    member.User.Phone,
	}
	if err := m.reader.UpdateInfo(ctx, write); err != nil {
		return false, err
	}
	return true, nil
}

func presenceError(p core.Presence) error {
	switch p {
	case core.PresenceAbsent:
		return core.ErrCardAbsent
	case core.PresenceBlank:
		return core.ErrCardBlank
	case core.PresenceBlocked:
		return core.ErrCardBlocked
	}
	return nil
}
