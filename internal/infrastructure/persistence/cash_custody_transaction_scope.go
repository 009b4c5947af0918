package persistence

import (
	"context"
	"fmt"
	"time"

	appcash "github.com/eduard0708/exits-saas-lms-sub008/internal/application/cashcustody"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/cashcustody"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/shared"
	"gorm.io/gorm"
)

// GormLedgerScope implements LedgerScope using GORM transactions.
// On postgres each transaction sets a local lock_timeout so a writer blocked
// on a collector-day row gives up instead of queueing indefinitely.
type GormLedgerScope struct {
	db          *gorm.DB
	outbox      shared.OutboxEventSaver
	lockTimeout time.Duration
}

// NewGormLedgerScope creates a new GormLedgerScope. outbox may be nil, in
// which case domain events are dropped.
func NewGormLedgerScope(db *gorm.DB, outbox shared.OutboxEventSaver, lockTimeout time.Duration) *GormLedgerScope {
	return &GormLedgerScope{db: db, outbox: outbox, lockTimeout: lockTimeout}
}

// Execute runs the given function within a database transaction.
func (s *GormLedgerScope) Execute(ctx context.Context, fn func(repos appcash.LedgerRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.lockTimeout > 0 && tx.Dialector.Name() == "postgres" {
			// SET does not accept bind parameters
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("set lock timeout: %w", err)
			}
		}
		return fn(&gormLedgerRepositories{tx: tx, outbox: s.outbox})
	})
}

// gormLedgerRepositories provides access to the ledger repositories within a transaction.
type gormLedgerRepositories struct {
	tx     *gorm.DB
	outbox shared.OutboxEventSaver
}

// Balances returns the balance repository scoped to the current transaction.
func (r *gormLedgerRepositories) Balances() cashcustody.CashBalanceRepository {
	return NewGormCashBalanceRepository(r.tx)
}

// Floats returns the float repository scoped to the current transaction.
func (r *gormLedgerRepositories) Floats() cashcustody.CashFloatRepository {
	return NewGormCashFloatRepository(r.tx)
}

// Transactions returns the ledger entry repository scoped to the current transaction.
func (r *gormLedgerRepositories) Transactions() cashcustody.CashTransactionRepository {
	return NewGormCashTransactionRepository(r.tx)
}

// RecordEvents writes events to the outbox in the current transaction.
func (r *gormLedgerRepositories) RecordEvents(ctx context.Context, events ...shared.DomainEvent) error {
	if r.outbox == nil || len(events) == 0 {
		return nil
	}
	return r.outbox.SaveEvents(ctx, r.tx, events...)
}

// Ensure GormLedgerScope implements LedgerScope
var _ appcash.LedgerScope = (*GormLedgerScope)(nil)

// Ensure gormLedgerRepositories implements LedgerRepositories
var _ appcash.LedgerRepositories = (*gormLedgerRepositories)(nil)
