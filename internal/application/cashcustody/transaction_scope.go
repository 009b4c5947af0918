package cashcustody

import (
	"context"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/cashcustody"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/shared"
)

// LedgerScope runs a unit of work against the cash ledger. Every mutating
// operation on a collector-day executes inside exactly one Execute call, so
// the balance row, its ledger entries and the outbox entries commit together.
type LedgerScope interface {
	// Execute runs fn within a database transaction. An error from fn rolls
	// the transaction back; otherwise it is committed.
	Execute(ctx context.Context, fn func(repos LedgerRepositories) error) error
}

// LedgerRepositories gives access to the ledger repositories within a transaction.
// All repositories returned share the same underlying database transaction.
//
//   - Balances: the CollectorCashBalance aggregate, the serialization point of a
//     collector-day. Mutations must lock the row with FindByCollectorDateForUpdate.
//   - Floats: issuance and handover handshakes.
//   - Transactions: append-only ledger entries.
type LedgerRepositories interface {
	Balances() cashcustody.CashBalanceRepository
	Floats() cashcustody.CashFloatRepository
	Transactions() cashcustody.CashTransactionRepository
	// RecordEvents writes domain events to the outbox within the transaction
	RecordEvents(ctx context.Context, events ...shared.DomainEvent) error
}

// NoOpLedgerScope runs the function without a real transaction.
// Events are handed straight to the publisher, if any.
type NoOpLedgerScope struct {
	balances     cashcustody.CashBalanceRepository
	floats       cashcustody.CashFloatRepository
	transactions cashcustody.CashTransactionRepository
	publisher    shared.EventPublisher
}

// NewNoOpLedgerScope creates a NoOpLedgerScope with the given repositories.
func NewNoOpLedgerScope(
	balances cashcustody.CashBalanceRepository,
	floats cashcustody.CashFloatRepository,
	transactions cashcustody.CashTransactionRepository,
	publisher shared.EventPublisher,
) *NoOpLedgerScope {
	return &NoOpLedgerScope{
		balances:     balances,
		floats:       floats,
		transactions: transactions,
		publisher:    publisher,
	}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpLedgerScope) Execute(_ context.Context, fn func(repos LedgerRepositories) error) error {
	return fn(s)
}

// Balances returns the balance repository.
func (s *NoOpLedgerScope) Balances() cashcustody.CashBalanceRepository {
	return s.balances
}

// Floats returns the float repository.
func (s *NoOpLedgerScope) Floats() cashcustody.CashFloatRepository {
	return s.floats
}

// Transactions returns the ledger entry repository.
func (s *NoOpLedgerScope) Transactions() cashcustody.CashTransactionRepository {
	return s.transactions
}

// RecordEvents publishes directly.
func (s *NoOpLedgerScope) RecordEvents(ctx context.Context, events ...shared.DomainEvent) error {
	if s.publisher == nil || len(events) == 0 {
		return nil
	}
	return s.publisher.Publish(ctx, events...)
}

// Ensure NoOpLedgerScope implements both interfaces
var _ LedgerScope = (*NoOpLedgerScope)(nil)
var _ LedgerRepositories = (*NoOpLedgerScope)(nil)
