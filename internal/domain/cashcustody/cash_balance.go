package cashcustody

import (
	"fmt"
	"time"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeCashBalance is the aggregate type of CollectorCashBalance
const AggregateTypeCashBalance = "CollectorCashBalance"

// DayState is the lifecycle state of a collector-day
type DayState string

const (
	DayStateNoFloat         DayState = "no_float"
	DayStateFloatPending    DayState = "float_pending"
	DayStateFloatRejected   DayState = "float_rejected"
	DayStateFloatConfirmed  DayState = "float_confirmed"
	DayStateHandoverPending DayState = "handover_pending"
	DayStateClosed          DayState = "day_closed"
)

// CollectorCashBalance is the running cash position of one collector on one
// business date. It is the serialization point for every ledger mutation:
// callers must hold the row lock before invoking any mutating method.
//
// Invariants, re-established by recompute after every mutation:
//
//	CurrentBalance == OpeningFloat + TotalCollections - TotalDisbursements
//	AvailableForDisbursement == min(CurrentBalance, DailyCap - TotalDisbursements)
type CollectorCashBalance struct {
	shared.TenantAggregateRoot
	CollectorID              uuid.UUID
	BalanceDate              time.Time
	CashierID                *uuid.UUID
	OpeningFloat             decimal.Decimal
	TotalCollections         decimal.Decimal
	TotalDisbursements       decimal.Decimal
	CurrentBalance           decimal.Decimal
	DailyCap                 decimal.Decimal
	AvailableForDisbursement decimal.Decimal
	IsFloatConfirmed         bool
	IsDayClosed              bool
	DayClosedAt              *time.Time
	FloatIssuanceID          *uuid.UUID
	HandoverID               *uuid.UUID
}

// NewCollectorCashBalance creates an empty, unconfirmed balance for a collector-day.
func NewCollectorCashBalance(tenantID, collectorID uuid.UUID, date time.Time) *CollectorCashBalance {
	return &CollectorCashBalance{
		TenantAggregateRoot:      shared.NewTenantAggregateRoot(tenantID),
		CollectorID:              collectorID,
		BalanceDate:              NormalizeDate(date),
		OpeningFloat:             decimal.Zero,
		TotalCollections:         decimal.Zero,
		TotalDisbursements:       decimal.Zero,
		CurrentBalance:           decimal.Zero,
		DailyCap:                 decimal.Zero,
		AvailableForDisbursement: decimal.Zero,
	}
}

// EmptyBalanceView is what reads return for a collector-day without a row.
// It is never persisted.
func EmptyBalanceView(tenantID, collectorID uuid.UUID, date time.Time) *CollectorCashBalance {
	b := NewCollectorCashBalance(tenantID, collectorID, date)
	b.ID = uuid.Nil
	b.Version = 0
	return b
}

// SeedFloat initialises the day from a pending issuance. current is the
// issuance the row already points to, nil for a fresh row. A row is only
// reseeded once that issuance was rejected and the day is still open.
func (b *CollectorCashBalance) SeedFloat(issuance, current *CashFloat) error {
	if issuance == nil || issuance.Type != FloatTypeIssuance {
		return shared.NewDomainError("INVALID_FLOAT", "Balance can only be seeded from an issuance")
	}
	if b.IsDayClosed {
		return NewDayAlreadyClosedError(b.BalanceDate)
	}
	if b.IsFloatConfirmed {
		return NewFloatAlreadyIssuedError(b.BalanceDate, FloatStatusConfirmed)
	}
	if b.FloatIssuanceID != nil {
		if current == nil || current.ID != *b.FloatIssuanceID {
			return NewFloatAlreadyIssuedError(b.BalanceDate, FloatStatusPending)
		}
		if current.Status != FloatStatusRejected {
			return NewFloatAlreadyIssuedError(b.BalanceDate, current.Status)
		}
	}

	cashierID := issuance.CashierID
	issuanceID := issuance.ID
	b.CashierID = &cashierID
	b.FloatIssuanceID = &issuanceID
	b.HandoverID = nil
	b.OpeningFloat = issuance.Amount
	b.TotalCollections = decimal.Zero
	b.TotalDisbursements = decimal.Zero
	b.DailyCap = issuance.DailyCap
	b.recompute()
	b.touch()
	return nil
}

// ConfirmFloat marks the issued float as received by the collector and
// returns the float_received ledger entry. This is the only transition that
// makes the day eligible for collections and disbursements.
func (b *CollectorCashBalance) ConfirmFloat(issuance *CashFloat) (*CashTransaction, error) {
	if b.IsDayClosed {
		return nil, NewDayAlreadyClosedError(b.BalanceDate)
	}
	if b.FloatIssuanceID == nil || issuance == nil || *b.FloatIssuanceID != issuance.ID {
		return nil, NewFloatNotFoundError()
	}
	if b.IsFloatConfirmed {
		return nil, shared.NewDomainError("INVALID_STATE", "Float has already been confirmed")
	}

	b.IsFloatConfirmed = true
	b.recompute()
	b.touch()

	entry := newCashTransaction(b, TransactionTypeFloatReceived, b.OpeningFloat, decimal.Zero, b.OpeningFloat)
	floatID := issuance.ID
	entry.FloatID = &floatID
	entry.Geo = issuance.ConfirmationGeo
	entry.Notes = "Float received from cashier"
	return entry, nil
}

// RecordCollection adds collected cash to the running balance.
func (b *CollectorCashBalance) RecordCollection(amount decimal.Decimal, details MovementDetails) (*CashTransaction, error) {
	if !amount.IsPositive() {
		return nil, NewInvalidAmountError("Collection amount")
	}
	if err := b.ensureOperational(); err != nil {
		return nil, err
	}

	before := b.CurrentBalance
	b.TotalCollections = b.TotalCollections.Add(amount)
	b.recompute()
	b.touch()

	entry := newCashTransaction(b, TransactionTypeCollection, amount, before, b.CurrentBalance).withDetails(details)
	b.AddDomainEvent(NewCashCollectionRecordedEvent(b, entry))
	return entry, nil
}

// CheckDisbursement validates a proposed disbursement against the locked
// values without mutating anything. Float confirmation is checked first so an
// unconfirmed day always reports FLOAT_NOT_CONFIRMED regardless of balance.
func (b *CollectorCashBalance) CheckDisbursement(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return NewInvalidAmountError("Disbursement amount")
	}
	if err := b.ensureOperational(); err != nil {
		return err
	}
	if amount.GreaterThan(b.CurrentBalance) {
		return NewInsufficientFundsError(b.CurrentBalance, amount)
	}
	if b.TotalDisbursements.Add(amount).GreaterThan(b.DailyCap) {
		return NewDailyCapExceededError(b.DailyCap, b.TotalDisbursements, amount)
	}
	return nil
}

// RecordDisbursement releases cash to a borrower.
func (b *CollectorCashBalance) RecordDisbursement(amount decimal.Decimal, details MovementDetails) (*CashTransaction, error) {
	if err := b.CheckDisbursement(amount); err != nil {
		return nil, err
	}

	before := b.CurrentBalance
	b.TotalDisbursements = b.TotalDisbursements.Add(amount)
	b.recompute()
	b.touch()

	entry := newCashTransaction(b, TransactionTypeDisbursement, amount, before, b.CurrentBalance).withDetails(details)
	b.AddDomainEvent(NewCashDisbursementRecordedEvent(b, entry))
	return entry, nil
}

// ExpectedHandover is the cash the collector should return at end of day.
func (b *CollectorCashBalance) ExpectedHandover() decimal.Decimal {
	return b.OpeningFloat.Add(b.TotalCollections).Sub(b.TotalDisbursements)
}

// BeginHandover attaches a pending handover to the day. Movements are refused
// until the cashier confirms or rejects it.
func (b *CollectorCashBalance) BeginHandover(handover *CashFloat) error {
	if b.IsDayClosed {
		return NewDayAlreadyClosedError(b.BalanceDate)
	}
	if !b.IsFloatConfirmed {
		return NewFloatNotConfirmedError()
	}
	if b.HandoverID != nil {
		return NewHandoverPendingError()
	}
	if handover == nil || handover.Type != FloatTypeHandover {
		return shared.NewDomainError("INVALID_FLOAT", "Expected a handover record")
	}

	id := handover.ID
	b.HandoverID = &id
	b.touch()
	return nil
}

// CancelHandover detaches a rejected handover and returns the day to its
// operating state.
func (b *CollectorCashBalance) CancelHandover(handoverID uuid.UUID) error {
	if b.IsDayClosed {
		return NewDayAlreadyClosedError(b.BalanceDate)
	}
	if b.HandoverID == nil || *b.HandoverID != handoverID {
		return NewHandoverNotFoundError()
	}
	b.HandoverID = nil
	b.touch()
	return nil
}

// CloseDay finalises the day against a confirmed handover and returns the
// handover ledger entry. The running totals are kept so the balance identity
// still holds on the closed row; the entry records the cash leaving custody.
func (b *CollectorCashBalance) CloseDay(handover *CashFloat, at time.Time) (*CashTransaction, error) {
	if b.IsDayClosed {
		return nil, NewDayAlreadyClosedError(b.BalanceDate)
	}
	if handover == nil || b.HandoverID == nil || *b.HandoverID != handover.ID {
		return nil, NewHandoverNotFoundError()
	}

	b.IsDayClosed = true
	b.DayClosedAt = &at
	b.touch()

	entry := newCashTransaction(b, TransactionTypeHandover, handover.ActualHandover, b.CurrentBalance, decimal.Zero)
	handoverID := handover.ID
	entry.FloatID = &handoverID
	entry.Geo = handover.ConfirmationGeo
	entry.Notes = fmt.Sprintf("Handover confirmed by cashier. Variance: %s", handover.Variance.StringFixed(2))
	return entry, nil
}

// State derives the lifecycle state. The issuance is needed to tell a
// rejected float from a pending one, since rejection leaves the row as is.
func (b *CollectorCashBalance) State(issuance *CashFloat) DayState {
	switch {
	case b == nil || b.FloatIssuanceID == nil:
		return DayStateNoFloat
	case b.IsDayClosed:
		return DayStateClosed
	case b.HandoverID != nil:
		return DayStateHandoverPending
	case b.IsFloatConfirmed:
		return DayStateFloatConfirmed
	case issuance != nil && issuance.Status == FloatStatusRejected:
		return DayStateFloatRejected
	default:
		return DayStateFloatPending
	}
}

// CheckInvariants verifies the balance identity and availability formula.
func (b *CollectorCashBalance) CheckInvariants() error {
	if !b.CurrentBalance.Equal(b.ExpectedHandover()) {
		return shared.NewDomainError("BALANCE_IDENTITY_VIOLATED",
			fmt.Sprintf("current balance %s does not match opening %s + collections %s - disbursements %s",
				b.CurrentBalance, b.OpeningFloat, b.TotalCollections, b.TotalDisbursements))
	}
	if !b.AvailableForDisbursement.Equal(b.availability()) {
		return shared.NewDomainError("AVAILABILITY_VIOLATED",
			fmt.Sprintf("available for disbursement %s, expected %s", b.AvailableForDisbursement, b.availability()))
	}
	return nil
}

func (b *CollectorCashBalance) ensureOperational() error {
	if b.IsDayClosed {
		return NewDayAlreadyClosedError(b.BalanceDate)
	}
	if !b.IsFloatConfirmed {
		return NewFloatNotConfirmedError()
	}
	if b.HandoverID != nil {
		return NewHandoverPendingError()
	}
	return nil
}

func (b *CollectorCashBalance) availability() decimal.Decimal {
	return decimal.Min(b.CurrentBalance, b.DailyCap.Sub(b.TotalDisbursements))
}

func (b *CollectorCashBalance) recompute() {
	b.CurrentBalance = b.ExpectedHandover()
	b.AvailableForDisbursement = b.availability()
}

func (b *CollectorCashBalance) touch() {
	b.UpdatedAt = time.Now()
	b.IncrementVersion()
}
