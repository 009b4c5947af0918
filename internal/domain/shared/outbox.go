package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus is the delivery state of an outbox entry
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
	OutboxStatusDead       OutboxStatus = "DEAD"
)

// Retry defaults. The backoff doubles per attempt up to MaxBackoff.
const (
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = time.Second
	MaxBackoff         = 5 * time.Minute
)

// ErrOutboxEntryNotDead is returned when retrying an entry that is still in flight
var ErrOutboxEntryNotDead = NewDomainError("INVALID_STATE", "Only dead outbox entries can be retried")

// OutboxEntry is a domain event waiting for delivery to the in-process handlers.
// It is written in the same transaction as the ledger change that raised it.
type OutboxEntry struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	EventID       uuid.UUID
	EventType     string
	AggregateID   uuid.UUID
	AggregateType string
	Payload       []byte
	Status        OutboxStatus
	RetryCount    int
	MaxRetries    int
	LastError     string
	NextRetryAt   *time.Time
	ProcessedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOutboxEntry wraps a serialized event. maxRetries below one falls back
// to DefaultMaxRetries.
func NewOutboxEntry(event DomainEvent, payload []byte, maxRetries int, now time.Time) *OutboxEntry {
	if maxRetries < 1 {
		maxRetries = DefaultMaxRetries
	}
	return &OutboxEntry{
		ID:            uuid.New(),
		TenantID:      event.TenantID(),
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		Payload:       payload,
		Status:        OutboxStatusPending,
		MaxRetries:    maxRetries,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// RetryBackoff is the wait before the given attempt (1-based)
func RetryBackoff(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	backoff := DefaultBaseBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff >= MaxBackoff {
			return MaxBackoff
		}
	}
	return backoff
}

// Due reports whether the entry should be delivered at now
func (e *OutboxEntry) Due(now time.Time) bool {
	switch e.Status {
	case OutboxStatusPending:
		return true
	case OutboxStatusFailed:
		return e.NextRetryAt == nil || !e.NextRetryAt.After(now)
	default:
		return false
	}
}

// MarkSent records a successful delivery
func (e *OutboxEntry) MarkSent(now time.Time) {
	e.Status = OutboxStatusSent
	e.ProcessedAt = &now
	e.NextRetryAt = nil
	e.UpdatedAt = now
}

// MarkFailed records a failed delivery. The entry is scheduled for another
// attempt or, once MaxRetries is reached, parked as dead.
func (e *OutboxEntry) MarkFailed(cause error, now time.Time) {
	e.RetryCount++
	if cause != nil {
		e.LastError = cause.Error()
	}
	e.UpdatedAt = now

	if e.RetryCount >= e.MaxRetries {
		e.Status = OutboxStatusDead
		e.NextRetryAt = nil
		return
	}
	e.Status = OutboxStatusFailed
	next := now.Add(RetryBackoff(e.RetryCount))
	e.NextRetryAt = &next
}

// ResetForRetry puts a dead entry back in the queue with a fresh budget
func (e *OutboxEntry) ResetForRetry(now time.Time) error {
	if e.Status != OutboxStatusDead {
		return ErrOutboxEntryNotDead
	}
	e.Status = OutboxStatusPending
	e.RetryCount = 0
	e.LastError = ""
	e.NextRetryAt = nil
	e.UpdatedAt = now
	return nil
}

// IsDead reports whether the entry gave up
func (e *OutboxEntry) IsDead() bool {
	return e.Status == OutboxStatusDead
}

// OutboxRepository persists outbox entries. Delivery methods work across
// tenants; the inspection methods are scoped to one tenant.
type OutboxRepository interface {
	Save(ctx context.Context, entries ...*OutboxEntry) error
	// FindDue returns pending entries and failed entries whose retry time has come, oldest first
	FindDue(ctx context.Context, now time.Time, limit int) ([]*OutboxEntry, error)
	// Claim marks the given entries as processing and returns the ones this worker won
	Claim(ctx context.Context, ids []uuid.UUID, now time.Time) ([]*OutboxEntry, error)
	Update(ctx context.Context, entry *OutboxEntry) error
	// ReclaimStale returns entries stuck in processing since before the cutoff to the queue
	ReclaimStale(ctx context.Context, before time.Time) (int64, error)
	// DeleteSentBefore drops delivered entries processed before the cutoff
	DeleteSentBefore(ctx context.Context, before time.Time) (int64, error)

	FindDead(ctx context.Context, tenantID uuid.UUID, page, pageSize int) ([]*OutboxEntry, int64, error)
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*OutboxEntry, error)
	CountByStatus(ctx context.Context, tenantID uuid.UUID) (map[OutboxStatus]int64, error)
}
