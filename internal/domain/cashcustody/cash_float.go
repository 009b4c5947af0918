package cashcustody

import (
	"strings"
	"time"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeCashFloat is the aggregate type of CashFloat
const AggregateTypeCashFloat = "CashFloat"

// FloatType distinguishes the two handshakes of a collector-day
type FloatType string

const (
	FloatTypeIssuance FloatType = "issuance"
	FloatTypeHandover FloatType = "handover"
)

// FloatStatus is the handshake status
type FloatStatus string

const (
	FloatStatusPending   FloatStatus = "pending"
	FloatStatusConfirmed FloatStatus = "confirmed"
	FloatStatusRejected  FloatStatus = "rejected"
)

// IsActive reports whether a record still blocks a new issuance for the day.
func (s FloatStatus) IsActive() bool {
	return s == FloatStatusPending || s == FloatStatusConfirmed
}

// CashFloat is one two-party handshake: a cashier issuing the day's float to a
// collector, or a collector handing the remaining cash back. The initiating
// party creates it pending; the counter-party moves it exactly once to
// confirmed or rejected, after which it is immutable.
type CashFloat struct {
	shared.TenantAggregateRoot
	CollectorID uuid.UUID
	CashierID   uuid.UUID
	Type        FloatType
	Status      FloatStatus
	Amount      decimal.Decimal
	FloatDate   time.Time
	DailyCap    decimal.Decimal

	// Handover snapshot of the day at initiation
	StartingFloat    decimal.Decimal
	Collections      decimal.Decimal
	Disbursements    decimal.Decimal
	ExpectedHandover decimal.Decimal
	ActualHandover   decimal.Decimal
	Variance         decimal.Decimal

	InitiatorGeo         *GeoPoint
	ConfirmationGeo      *GeoPoint
	CollectorConfirmedAt *time.Time
	CashierConfirmedAt   *time.Time
	RejectionReason      string
	Notes                string
}

// NewFloatIssuance creates a pending issuance from cashier to collector.
func NewFloatIssuance(tenantID, cashierID, collectorID uuid.UUID, amount, dailyCap decimal.Decimal, floatDate time.Time, geo *GeoPoint, notes string) (*CashFloat, error) {
	if collectorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COLLECTOR", "Collector ID cannot be empty")
	}
	if cashierID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CASHIER", "Cashier ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, NewInvalidAmountError("Float amount")
	}
	if dailyCap.IsNegative() {
		return nil, NewNegativeAmountError("Daily cap")
	}

	f := &CashFloat{
		TenantAggregateRoot: shared.NewTenantAggregateRootWithCreator(tenantID, cashierID),
		CollectorID:         collectorID,
		CashierID:           cashierID,
		Type:                FloatTypeIssuance,
		Status:              FloatStatusPending,
		Amount:              amount,
		FloatDate:           NormalizeDate(floatDate),
		DailyCap:            dailyCap,
		InitiatorGeo:        geo,
		Notes:               notes,
	}
	f.AddDomainEvent(NewCashFloatIssuedEvent(f))
	return f, nil
}

// NewHandover creates a pending handover from the collector's current day.
// The cashier is carried over from the issuance so only that relationship can
// receive the cash back.
func NewHandover(balance *CollectorCashBalance, actualHandover decimal.Decimal, geo *GeoPoint, notes string) (*CashFloat, error) {
	if actualHandover.IsNegative() {
		return nil, NewNegativeAmountError("Handover amount")
	}
	if balance.CashierID == nil {
		return nil, NewFloatNotConfirmedError()
	}

	expected := balance.ExpectedHandover()
	now := time.Now()
	f := &CashFloat{
		TenantAggregateRoot:  shared.NewTenantAggregateRootWithCreator(balance.TenantID, balance.CollectorID),
		CollectorID:          balance.CollectorID,
		CashierID:            *balance.CashierID,
		Type:                 FloatTypeHandover,
		Status:               FloatStatusPending,
		Amount:               actualHandover,
		FloatDate:            balance.BalanceDate,
		StartingFloat:        balance.OpeningFloat,
		Collections:          balance.TotalCollections,
		Disbursements:        balance.TotalDisbursements,
		ExpectedHandover:     expected,
		ActualHandover:       actualHandover,
		Variance:             actualHandover.Sub(expected),
		InitiatorGeo:         geo,
		CollectorConfirmedAt: &now,
		Notes:                notes,
	}
	f.AddDomainEvent(NewCashHandoverInitiatedEvent(f))
	return f, nil
}

// ConfirmReceipt records the collector accepting an issued float.
func (f *CashFloat) ConfirmReceipt(geo *GeoPoint) error {
	if f.Type != FloatTypeIssuance || f.Status != FloatStatusPending {
		return NewFloatNotFoundError()
	}
	now := time.Now()
	f.Status = FloatStatusConfirmed
	f.CollectorConfirmedAt = &now
	f.ConfirmationGeo = geo
	f.touch()
	f.AddDomainEvent(NewCashFloatConfirmedEvent(f))
	return nil
}

// RejectReceipt records the collector refusing an issued float.
func (f *CashFloat) RejectReceipt(reason string, geo *GeoPoint) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return NewRejectionReasonRequiredError()
	}
	if f.Type != FloatTypeIssuance || f.Status != FloatStatusPending {
		return NewFloatNotFoundError()
	}
	f.Status = FloatStatusRejected
	f.RejectionReason = reason
	f.ConfirmationGeo = geo
	f.touch()
	f.AddDomainEvent(NewCashFloatRejectedEvent(f))
	return nil
}

// ConfirmHandover records the cashier's count. The counted amount is
// authoritative and replaces the collector's declaration in the variance.
func (f *CashFloat) ConfirmHandover(counted decimal.Decimal, geo *GeoPoint, notes string) error {
	if f.Type != FloatTypeHandover || f.Status != FloatStatusPending {
		return NewHandoverNotFoundError()
	}
	if counted.IsNegative() {
		return NewNegativeAmountError("Counted amount")
	}
	now := time.Now()
	f.Status = FloatStatusConfirmed
	f.ActualHandover = counted
	f.Variance = counted.Sub(f.ExpectedHandover)
	f.CashierConfirmedAt = &now
	f.ConfirmationGeo = geo
	if notes != "" {
		f.Notes = strings.TrimSpace(f.Notes + "\n" + notes)
	}
	f.touch()
	f.AddDomainEvent(NewCashHandoverConfirmedEvent(f))
	return nil
}

// RejectHandover records the cashier refusing the handover; the collector may
// initiate a new one.
func (f *CashFloat) RejectHandover(reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return NewRejectionReasonRequiredError()
	}
	if f.Type != FloatTypeHandover || f.Status != FloatStatusPending {
		return NewHandoverNotFoundError()
	}
	now := time.Now()
	f.Status = FloatStatusRejected
	f.RejectionReason = reason
	f.CashierConfirmedAt = &now
	f.touch()
	f.AddDomainEvent(NewCashHandoverRejectedEvent(f))
	return nil
}

// IsReceivableBy reports whether cashierID is the cashier of record.
func (f *CashFloat) IsReceivableBy(cashierID uuid.UUID) bool {
	return f.CashierID == cashierID
}

func (f *CashFloat) touch() {
	f.UpdatedAt = time.Now()
	f.IncrementVersion()
}
