package event

import (
	"context"
	"fmt"
	"time"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxPublisher is the shared.OutboxEventSaver used by the ledger unit of
// work. Each event becomes one PENDING outbox row written on the unit's own
// transaction, so a rolled back ledger change leaves no event behind.
type OutboxPublisher struct {
	serializer *EventSerializer
	maxRetries int
	now        func() time.Time
}

var _ shared.OutboxEventSaver = (*OutboxPublisher)(nil)

// NewOutboxPublisher gives every entry a delivery budget of maxRetries
func NewOutboxPublisher(serializer *EventSerializer, maxRetries int) *OutboxPublisher {
	return &OutboxPublisher{serializer: serializer, maxRetries: maxRetries, now: time.Now}
}

// SaveEvents writes events on tx, which must be the open *gorm.DB transaction
func (p *OutboxPublisher) SaveEvents(ctx context.Context, tx any, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	db, ok := tx.(*gorm.DB)
	if !ok {
		return fmt.Errorf("outbox: expected *gorm.DB transaction, got %T", tx)
	}

	entries, err := p.encode(events)
	if err != nil {
		return err
	}
	return NewGormOutboxRepository(db).Save(ctx, entries...)
}

func (p *OutboxPublisher) encode(events []shared.DomainEvent) ([]*shared.OutboxEntry, error) {
	at := p.now()
	out := make([]*shared.OutboxEntry, 0, len(events))
	for _, e := range events {
		payload, err := p.serializer.Serialize(e)
		if err != nil {
			return nil, fmt.Errorf("outbox: encode %s: %w", e.EventType(), err)
		}
		out = append(out, shared.NewOutboxEntry(e, payload, p.maxRetries, at))
	}
	return out, nil
}
