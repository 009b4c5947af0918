package cashcustody

import (
	"context"
	"errors"
	"time"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/shared"
	"github.com/google/uuid"
)

// CashBalanceRepository persists collector-day balances.
type CashBalanceRepository interface {
	// FindByCollectorDate returns the balance for a collector-day or ErrNotFound.
	FindByCollectorDate(ctx context.Context, tenantID, collectorID uuid.UUID, date time.Time) (*CollectorCashBalance, error)

	// FindByCollectorDateForUpdate is FindByCollectorDate holding an exclusive
	// row lock until the surrounding transaction ends.
	FindByCollectorDateForUpdate(ctx context.Context, tenantID, collectorID uuid.UUID, date time.Time) (*CollectorCashBalance, error)

	// FindByDate returns every collector's balance for a date.
	FindByDate(ctx context.Context, tenantID uuid.UUID, date time.Time) ([]CollectorCashBalance, error)

	// Create inserts a new balance row.
	Create(ctx context.Context, balance *CollectorCashBalance) error

	// SaveWithLock updates the row if its version still matches (optimistic lock).
	SaveWithLock(ctx context.Context, balance *CollectorCashBalance) error
}

// FloatQuery filters handshake records.
type FloatQuery struct {
	Type        FloatType
	Status      FloatStatus
	CollectorID *uuid.UUID
	CashierID   *uuid.UUID
	From        *time.Time
	To          *time.Time
	// OldestFirst orders by creation ascending, the default is newest first.
	OldestFirst bool
	Limit       int
}

// CashFloatRepository persists issuance and handover handshakes.
type CashFloatRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*CashFloat, error)

	// FindActiveIssuance returns the pending or confirmed issuance of a
	// collector-day, or ErrNotFound.
	FindActiveIssuance(ctx context.Context, tenantID, collectorID uuid.UUID, date time.Time) (*CashFloat, error)

	Find(ctx context.Context, tenantID uuid.UUID, query FloatQuery) ([]CashFloat, error)

	Create(ctx context.Context, float *CashFloat) error

	// SaveWithLock updates the record if its version still matches.
	SaveWithLock(ctx context.Context, float *CashFloat) error
}

// TransactionQuery filters ledger history.
type TransactionQuery struct {
	From     *time.Time
	To       *time.Time
	Type     TransactionType
	Page     int
	PageSize int
}

// CashTransactionRepository is the append-only ledger.
type CashTransactionRepository interface {
	Append(ctx context.Context, entry *CashTransaction) error

	// FindByLocalID finds an entry by the client-generated id used for retries.
	FindByLocalID(ctx context.Context, tenantID, collectorID uuid.UUID, localID string) (*CashTransaction, error)

	FindByCollectorDate(ctx context.Context, tenantID, collectorID uuid.UUID, date time.Time) ([]CashTransaction, error)

	// FindHistory returns a page of a collector's entries, newest first.
	FindHistory(ctx context.Context, tenantID, collectorID uuid.UUID, query TransactionQuery) ([]CashTransaction, int64, error)

	// Totals counts and sums entries of one type over [from, to).
	Totals(ctx context.Context, tenantID, collectorID uuid.UUID, txType TransactionType, from, to time.Time) (ActivityTotals, error)
}

// CollectorLimitsRepository persists per-collector limits.
type CollectorLimitsRepository interface {
	// FindByCollector returns the stored row (active or not) or ErrNotFound.
	FindByCollector(ctx context.Context, tenantID, collectorID uuid.UUID) (*CollectorLimits, error)

	// Upsert inserts or replaces the collector's row.
	Upsert(ctx context.Context, limits *CollectorLimits) error
}

// ActionLogRepository persists the collector audit trail.
type ActionLogRepository interface {
	Append(ctx context.Context, entry *CollectorActionLog) error

	// Totals counts and sums entries of one type and status over [from, to).
	Totals(ctx context.Context, tenantID, collectorID uuid.UUID, actionType ActionType, status ActionStatus, from, to time.Time) (ActivityTotals, error)

	Find(ctx context.Context, tenantID uuid.UUID, query ActionLogQuery) ([]CollectorActionLog, error)
}

// LoanDirectory is the loan subsystem as seen by the ledger.
type LoanDirectory interface {
	// Exists reports whether a loan belongs to the tenant.
	Exists(ctx context.Context, tenantID, loanID uuid.UUID) (bool, error)

	// LoanNumbers resolves display numbers for a set of loans.
	LoanNumbers(ctx context.Context, tenantID uuid.UUID, loanIDs []uuid.UUID) (map[uuid.UUID]string, error)

	// DisbursementTotals counts and sums loans disbursed by a collector over [from, to).
	DisbursementTotals(ctx context.Context, tenantID, collectorID uuid.UUID, from, to time.Time) (ActivityTotals, error)
}

// CollectorDirectory resolves employee display names.
type CollectorDirectory interface {
	DisplayNames(ctx context.Context, tenantID uuid.UUID, userIDs []uuid.UUID) (map[uuid.UUID]string, error)
}

// IsNotFound reports whether err is the shared not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}
