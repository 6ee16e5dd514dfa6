// Package events publishes terminal events for back-office consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/KMA-JAVA-CARD/cardpoint/ports"
)

// Topics for terminal events.
const (
	TopicTransaction   = "card.transaction"
	TopicCardLocked    = "card.locked"
	TopicCardUnblocked = "card.unblocked"
)

// CardLockedEvent is emitted when a PIN submission exhausts a card.
type CardLockedEvent struct {
	CardSerial string    `json:"card_serial"`
	LockedAt   time.Time `json:"locked_at"`
}

// CardUnblockedEvent is emitted after an admin unblock, noting whether the
// personal record could be restored from the ledger.
type CardUnblockedEvent struct {
	CardSerial  string    `json:"card_serial"`
	Restored    bool      `json:"restored"`
	UnblockedAt time.Time `json:"unblocked_at"`
}

// WatermillPublisher implements EventPublisher on a Watermill publisher.
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates an event publisher.
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishTransaction publishes a committed transaction.
func (p *WatermillPublisher) PublishTransaction(ctx context.Context, event *ports.TransactionEvent) error {
	return p.publish(TopicTransaction, event)
}

// PublishCardLocked publishes a lockout.
func (p *WatermillPublisher) PublishCardLocked(ctx context.Context, cardSerial string) error {
	return p.publish(TopicCardLocked, CardLockedEvent{
		CardSerial: cardSerial,
		LockedAt:   time.Now(),
	})
}

// PublishCardUnblocked publishes an unblock.
func (p *WatermillPublisher) PublishCardUnblocked(ctx context.Context, cardSerial string, restored bool) error {
	return p.publish(TopicCardUnblocked, CardUnblockedEvent{
		CardSerial:  cardSerial,
		Restored:    restored,
		UnblockedAt: time.Now(),
	})
}

func (p *WatermillPublisher) publish(topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
