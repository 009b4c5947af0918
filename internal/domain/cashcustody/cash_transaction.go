package cashcustody

import (
	"time"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType classifies a ledger entry
type TransactionType string

const (
	TransactionTypeFloatReceived TransactionType = "float_received"
	TransactionTypeCollection    TransactionType = "collection"
	TransactionTypeDisbursement  TransactionType = "disbursement"
	TransactionTypeHandover      TransactionType = "handover"
)

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// IsValid returns true if the transaction type is known
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeFloatReceived,
		TransactionTypeCollection,
		TransactionTypeDisbursement,
		TransactionTypeHandover:
		return true
	}
	return false
}

// Sign returns +1 for entries that add to the running balance, -1 for those
// that subtract, and 0 for entries outside the running total (float receipt
// is the opening float itself, handover moves the remaining cash out).
func (t TransactionType) Sign() int {
	switch t {
	case TransactionTypeCollection:
		return 1
	case TransactionTypeDisbursement:
		return -1
	}
	return 0
}

// CashTransaction is an immutable ledger entry for a collector-day.
// Entries are appended once and never updated or deleted.
type CashTransaction struct {
	shared.BaseEntity
	TenantID           uuid.UUID
	CollectorID        uuid.UUID
	TransactionDate    time.Time
	Type               TransactionType
	Amount             decimal.Decimal
	BalanceBefore      decimal.Decimal
	BalanceAfter       decimal.Decimal
	LoanID             *uuid.UUID
	PaymentID          *uuid.UUID
	FloatID            *uuid.UUID
	Geo                *GeoPoint
	Notes              string
	LocalTransactionID string
}

// MovementDetails carries the optional references of a collection or disbursement.
type MovementDetails struct {
	LoanID             *uuid.UUID
	PaymentID          *uuid.UUID
	Geo                *GeoPoint
	Notes              string
	LocalTransactionID string
}

func newCashTransaction(b *CollectorCashBalance, txType TransactionType, amount, before, after decimal.Decimal) *CashTransaction {
	return &CashTransaction{
		BaseEntity:      shared.NewBaseEntity(),
		TenantID:        b.TenantID,
		CollectorID:     b.CollectorID,
		TransactionDate: b.BalanceDate,
		Type:            txType,
		Amount:          amount,
		BalanceBefore:   before,
		BalanceAfter:    after,
	}
}

func (t *CashTransaction) withDetails(d MovementDetails) *CashTransaction {
	t.LoanID = d.LoanID
	t.PaymentID = d.PaymentID
	t.Geo = d.Geo
	t.Notes = d.Notes
	t.LocalTransactionID = d.LocalTransactionID
	return t
}

// SignedAmount returns the entry's contribution to currentBalance - openingFloat.
func (t *CashTransaction) SignedAmount() decimal.Decimal {
	return t.Amount.Mul(decimal.NewFromInt(int64(t.Type.Sign())))
}

// LedgerSum returns the signed sum of a collector-day's entries.
func LedgerSum(entries []CashTransaction) decimal.Decimal {
	sum := decimal.Zero
	for i := range entries {
		sum = sum.Add(entries[i].SignedAmount())
	}
	return sum
}
