package ports

import (
	"context"

	"github.com/KMA-JAVA-CARD/cardpoint/core"
)

// TransactionEvent is emitted after a ledger commit. CardUpdated is false
// when the balance write-back to the card failed and the reconciler is
// expected to heal the card on its next run.
type TransactionEvent struct {
	CardSerial  string               `json:"card_serial"`
	Type        core.TransactionType `json:"type"`
	Amount      int64                `json:"amount"`
	Result      core.TransactionResult `json:"result"`
	CardUpdated bool                   `json:"card_updated"`
}

// EventPublisher notifies back-office consumers about terminal events.
type EventPublisher interface {
	PublishTransaction(ctx context.Context, event *TransactionEvent) error
	PublishCardLocked(ctx context.Context, cardSerial string) error
	PublishCardUnblocked(ctx context.Context, cardSerial string, restored bool) error
}
