package cashcustody

import (
	"time"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type constants
const (
	EventTypeCashFloatIssued          = "CashFloatIssued"
	EventTypeCashFloatConfirmed       = "CashFloatConfirmed"
	EventTypeCashFloatRejected        = "CashFloatRejected"
	EventTypeCashCollectionRecorded   = "CashCollectionRecorded"
	EventTypeCashDisbursementRecorded = "CashDisbursementRecorded"
	EventTypeCashHandoverInitiated    = "CashHandoverInitiated"
	EventTypeCashHandoverConfirmed    = "CashHandoverConfirmed"
	EventTypeCashHandoverRejected     = "CashHandoverRejected"
)

// CashFloatIssuedEvent is raised when a cashier issues a float
type CashFloatIssuedEvent struct {
	shared.BaseDomainEvent
	FloatID     uuid.UUID       `json:"float_id"`
	CollectorID uuid.UUID       `json:"collector_id"`
	CashierID   uuid.UUID       `json:"cashier_id"`
	Amount      decimal.Decimal `json:"amount"`
	DailyCap    decimal.Decimal `json:"daily_cap"`
	FloatDate   time.Time       `json:"float_date"`
}

// NewCashFloatIssuedEvent creates a new CashFloatIssuedEvent
func NewCashFloatIssuedEvent(f *CashFloat) *CashFloatIssuedEvent {
	return &CashFloatIssuedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCashFloatIssued, AggregateTypeCashFloat, f.ID, f.TenantID),
		FloatID:         f.ID,
		CollectorID:     f.CollectorID,
		CashierID:       f.CashierID,
		Amount:          f.Amount,
		DailyCap:        f.DailyCap,
		FloatDate:       f.FloatDate,
	}
}

// CashFloatConfirmedEvent is raised when the collector accepts the float
type CashFloatConfirmedEvent struct {
	shared.BaseDomainEvent
	FloatID     uuid.UUID       `json:"float_id"`
	CollectorID uuid.UUID       `json:"collector_id"`
	CashierID   uuid.UUID       `json:"cashier_id"`
	Amount      decimal.Decimal `json:"amount"`
	FloatDate   time.Time       `json:"float_date"`
}

// NewCashFloatConfirmedEvent creates a new CashFloatConfirmedEvent
func NewCashFloatConfirmedEvent(f *CashFloat) *CashFloatConfirmedEvent {
	return &CashFloatConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCashFloatConfirmed, AggregateTypeCashFloat, f.ID, f.TenantID),
		FloatID:         f.ID,
		CollectorID:     f.CollectorID,
		CashierID:       f.CashierID,
		Amount:          f.Amount,
		FloatDate:       f.FloatDate,
	}
}

// CashFloatRejectedEvent is raised when the collector refuses the float.
// The cashier learns about it through this event and the float history.
type CashFloatRejectedEvent struct {
	shared.BaseDomainEvent
	FloatID     uuid.UUID       `json:"float_id"`
	CollectorID uuid.UUID       `json:"collector_id"`
	CashierID   uuid.UUID       `json:"cashier_id"`
	Amount      decimal.Decimal `json:"amount"`
	FloatDate   time.Time       `json:"float_date"`
	Reason      string          `json:"reason"`
}

// NewCashFloatRejectedEvent creates a new CashFloatRejectedEvent
func NewCashFloatRejectedEvent(f *CashFloat) *CashFloatRejectedEvent {
	return &CashFloatRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCashFloatRejected, AggregateTypeCashFloat, f.ID, f.TenantID),
		FloatID:         f.ID,
		CollectorID:     f.CollectorID,
		CashierID:       f.CashierID,
		Amount:          f.Amount,
		FloatDate:       f.FloatDate,
		Reason:          f.RejectionReason,
	}
}

// CashMovementEvent carries a collection or disbursement posted to the ledger
type CashMovementEvent struct {
	shared.BaseDomainEvent
	TransactionID uuid.UUID       `json:"transaction_id"`
	CollectorID   uuid.UUID       `json:"collector_id"`
	BalanceDate   time.Time       `json:"balance_date"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	LoanID        *uuid.UUID      `json:"loan_id,omitempty"`
	PaymentID     *uuid.UUID      `json:"payment_id,omitempty"`
}

// CashCollectionRecordedEvent is raised when cash is collected from a borrower
type CashCollectionRecordedEvent struct {
	CashMovementEvent
}

// NewCashCollectionRecordedEvent creates a new CashCollectionRecordedEvent
func NewCashCollectionRecordedEvent(b *CollectorCashBalance, entry *CashTransaction) *CashCollectionRecordedEvent {
	return &CashCollectionRecordedEvent{
		CashMovementEvent: newCashMovementEvent(EventTypeCashCollectionRecorded, b, entry),
	}
}

// CashDisbursementRecordedEvent is raised when cash is released to a borrower
type CashDisbursementRecordedEvent struct {
	CashMovementEvent
}

// NewCashDisbursementRecordedEvent creates a new CashDisbursementRecordedEvent
func NewCashDisbursementRecordedEvent(b *CollectorCashBalance, entry *CashTransaction) *CashDisbursementRecordedEvent {
	return &CashDisbursementRecordedEvent{
		CashMovementEvent: newCashMovementEvent(EventTypeCashDisbursementRecorded, b, entry),
	}
}

func newCashMovementEvent(eventType string, b *CollectorCashBalance, entry *CashTransaction) CashMovementEvent {
	return CashMovementEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeCashBalance, b.ID, b.TenantID),
		TransactionID:   entry.ID,
		CollectorID:     b.CollectorID,
		BalanceDate:     b.BalanceDate,
		Amount:          entry.Amount,
		BalanceBefore:   entry.BalanceBefore,
		BalanceAfter:    entry.BalanceAfter,
		LoanID:          entry.LoanID,
		PaymentID:       entry.PaymentID,
	}
}

// HandoverEvent carries the reconciliation figures of a handover
type HandoverEvent struct {
	shared.BaseDomainEvent
	HandoverID       uuid.UUID       `json:"handover_id"`
	CollectorID      uuid.UUID       `json:"collector_id"`
	CashierID        uuid.UUID       `json:"cashier_id"`
	BalanceDate      time.Time       `json:"balance_date"`
	StartingFloat    decimal.Decimal `json:"starting_float"`
	Collections      decimal.Decimal `json:"collections"`
	Disbursements    decimal.Decimal `json:"disbursements"`
	ExpectedHandover decimal.Decimal `json:"expected_handover"`
	ActualHandover   decimal.Decimal `json:"actual_handover"`
	Variance         decimal.Decimal `json:"variance"`
	Reason           string          `json:"reason,omitempty"`
}

// CashHandoverInitiatedEvent is raised when a collector declares end-of-day cash
type CashHandoverInitiatedEvent struct {
	HandoverEvent
}

// NewCashHandoverInitiatedEvent creates a new CashHandoverInitiatedEvent
func NewCashHandoverInitiatedEvent(f *CashFloat) *CashHandoverInitiatedEvent {
	return &CashHandoverInitiatedEvent{HandoverEvent: newHandoverEvent(EventTypeCashHandoverInitiated, f)}
}

// CashHandoverConfirmedEvent is raised when the cashier counts the cash and
// closes the day
type CashHandoverConfirmedEvent struct {
	HandoverEvent
}

// NewCashHandoverConfirmedEvent creates a new CashHandoverConfirmedEvent
func NewCashHandoverConfirmedEvent(f *CashFloat) *CashHandoverConfirmedEvent {
	return &CashHandoverConfirmedEvent{HandoverEvent: newHandoverEvent(EventTypeCashHandoverConfirmed, f)}
}

// CashHandoverRejectedEvent is raised when the cashier refuses a handover
type CashHandoverRejectedEvent struct {
	HandoverEvent
}

// NewCashHandoverRejectedEvent creates a new CashHandoverRejectedEvent
func NewCashHandoverRejectedEvent(f *CashFloat) *CashHandoverRejectedEvent {
	return &CashHandoverRejectedEvent{HandoverEvent: newHandoverEvent(EventTypeCashHandoverRejected, f)}
}

func newHandoverEvent(eventType string, f *CashFloat) HandoverEvent {
	return HandoverEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(eventType, AggregateTypeCashFloat, f.ID, f.TenantID),
		HandoverID:       f.ID,
		CollectorID:      f.CollectorID,
		CashierID:        f.CashierID,
		BalanceDate:      f.FloatDate,
		StartingFloat:    f.StartingFloat,
		Collections:      f.Collections,
		Disbursements:    f.Disbursements,
		ExpectedHandover: f.ExpectedHandover,
		ActualHandover:   f.ActualHandover,
		Variance:         f.Variance,
		Reason:           f.RejectionReason,
	}
}
