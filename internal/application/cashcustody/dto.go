package cashcustody

import (
	"time"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/cashcustody"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IssueFloatRequest is the cashier's morning float for a collector
type IssueFloatRequest struct {
	CollectorID uuid.UUID
	Amount      decimal.Decimal
	DailyCap    *decimal.Decimal // nil applies the service default
	FloatDate   *time.Time
	Geo         *cashcustody.GeoPoint
	Notes       string
}

// ConfirmFloatRequest accepts an issued float
type ConfirmFloatRequest struct {
	FloatID uuid.UUID
	Geo     *cashcustody.GeoPoint
}

// RejectFloatRequest refuses an issued float
type RejectFloatRequest struct {
	FloatID uuid.UUID
	Reason  string
	Geo     *cashcustody.GeoPoint
}

// RecordCollectionRequest records cash collected from a borrower
type RecordCollectionRequest struct {
	Amount             decimal.Decimal
	LoanID             *uuid.UUID
	PaymentID          *uuid.UUID
	Geo                *cashcustody.GeoPoint
	Notes              string
	LocalTransactionID string
}

// RecordDisbursementRequest records cash released to a borrower
type RecordDisbursementRequest struct {
	Amount             decimal.Decimal
	LoanID             uuid.UUID
	Geo                *cashcustody.GeoPoint
	Notes              string
	LocalTransactionID string
}

// InitiateHandoverRequest is the collector's end-of-day declaration
type InitiateHandoverRequest struct {
	ActualHandover decimal.Decimal
	Geo            *cashcustody.GeoPoint
	Notes          string
}

// ConfirmHandoverRequest is the cashier's count of a handover.
// AllowAnyCashier lets a cash manager receive a handover issued by someone else.
type ConfirmHandoverRequest struct {
	HandoverID      uuid.UUID
	ActualAmount    decimal.Decimal
	Geo             *cashcustody.GeoPoint
	Notes           string
	AllowAnyCashier bool
}

// HandoverDecisionRequest confirms or rejects a handover by id.
// A confirmation without ActualAmount accepts the collector's declared amount.
type HandoverDecisionRequest struct {
	Confirmed       bool
	ActualAmount    *decimal.Decimal
	RejectionReason string
	Geo             *cashcustody.GeoPoint
	Notes           string
	AllowAnyCashier bool
}

// HistoryFilter selects a page of ledger entries
type HistoryFilter struct {
	From     *time.Time
	To       *time.Time
	Type     cashcustody.TransactionType
	Page     int
	PageSize int
}

const (
	// DefaultHistoryPageSize is the history page size when none is given
	DefaultHistoryPageSize = 50
	// MaxHistoryPageSize caps the history page size
	MaxHistoryPageSize = 200
)

// FloatHistoryFilter selects handshake records
type FloatHistoryFilter struct {
	CollectorID *uuid.UUID
	CashierID   *uuid.UUID
	Type        cashcustody.FloatType
	Status      cashcustody.FloatStatus
	From        *time.Time
	To          *time.Time
	Limit       int
}

// BalanceResponse is the view of a collector-day
type BalanceResponse struct {
	ID                       uuid.UUID            `json:"id"`
	TenantID                 uuid.UUID            `json:"tenant_id"`
	CollectorID              uuid.UUID            `json:"collector_id"`
	BalanceDate              string               `json:"balance_date"`
	CashierID                *uuid.UUID           `json:"cashier_id,omitempty"`
	OpeningFloat             decimal.Decimal      `json:"opening_float"`
	TotalCollections         decimal.Decimal      `json:"total_collections"`
	TotalDisbursements       decimal.Decimal      `json:"total_disbursements"`
	CurrentBalance           decimal.Decimal      `json:"current_balance"`
	DailyCap                 decimal.Decimal      `json:"daily_cap"`
	AvailableForDisbursement decimal.Decimal      `json:"available_for_disbursement"`
	IsFloatConfirmed         bool                 `json:"is_float_confirmed"`
	IsDayClosed              bool                 `json:"is_day_closed"`
	DayClosedAt              *time.Time           `json:"day_closed_at,omitempty"`
	FloatIssuanceID          *uuid.UUID           `json:"float_issuance_id,omitempty"`
	HandoverID               *uuid.UUID           `json:"handover_id,omitempty"`
	State                    cashcustody.DayState `json:"state"`
	Version                  int                  `json:"version"`
	UpdatedAt                *time.Time           `json:"updated_at,omitempty"`
}

// ToBalanceResponse converts a domain balance to a response
func ToBalanceResponse(b *cashcustody.CollectorCashBalance, state cashcustody.DayState) BalanceResponse {
	resp := BalanceResponse{
		ID:                       b.ID,
		TenantID:                 b.TenantID,
		CollectorID:              b.CollectorID,
		BalanceDate:              b.BalanceDate.Format(cashcustody.DateLayout),
		CashierID:                b.CashierID,
		OpeningFloat:             b.OpeningFloat,
		TotalCollections:         b.TotalCollections,
		TotalDisbursements:       b.TotalDisbursements,
		CurrentBalance:           b.CurrentBalance,
		DailyCap:                 b.DailyCap,
		AvailableForDisbursement: b.AvailableForDisbursement,
		IsFloatConfirmed:         b.IsFloatConfirmed,
		IsDayClosed:              b.IsDayClosed,
		DayClosedAt:              b.DayClosedAt,
		FloatIssuanceID:          b.FloatIssuanceID,
		HandoverID:               b.HandoverID,
		State:                    state,
		Version:                  b.Version,
	}
	if b.ID != uuid.Nil {
		updatedAt := b.UpdatedAt
		resp.UpdatedAt = &updatedAt
	}
	return resp
}

// FloatResponse is the view of an issuance or handover record
type FloatResponse struct {
	ID                   uuid.UUID               `json:"id"`
	CollectorID          uuid.UUID               `json:"collector_id"`
	CollectorName        string                  `json:"collector_name,omitempty"`
	CashierID            uuid.UUID               `json:"cashier_id"`
	CashierName          string                  `json:"cashier_name,omitempty"`
	Type                 cashcustody.FloatType   `json:"type"`
	Status               cashcustody.FloatStatus `json:"status"`
	Amount               decimal.Decimal         `json:"amount"`
	FloatDate            string                  `json:"float_date"`
	DailyCap             decimal.Decimal         `json:"daily_cap"`
	StartingFloat        decimal.Decimal         `json:"starting_float"`
	Collections          decimal.Decimal         `json:"collections"`
	Disbursements        decimal.Decimal         `json:"disbursements"`
	ExpectedHandover     decimal.Decimal         `json:"expected_handover"`
	ActualHandover       decimal.Decimal         `json:"actual_handover"`
	Variance             decimal.Decimal         `json:"variance"`
	InitiatorGeo         *cashcustody.GeoPoint   `json:"initiator_geo,omitempty"`
	ConfirmationGeo      *cashcustody.GeoPoint   `json:"confirmation_geo,omitempty"`
	CollectorConfirmedAt *time.Time              `json:"collector_confirmed_at,omitempty"`
	CashierConfirmedAt   *time.Time              `json:"cashier_confirmed_at,omitempty"`
	RejectionReason      string                  `json:"rejection_reason,omitempty"`
	Notes                string                  `json:"notes,omitempty"`
	CreatedAt            time.Time               `json:"created_at"`
	Version              int                     `json:"version"`
}

// ToFloatResponse converts a domain float record to a response
func ToFloatResponse(f *cashcustody.CashFloat) FloatResponse {
	return FloatResponse{
		ID:                   f.ID,
		CollectorID:          f.CollectorID,
		CashierID:            f.CashierID,
		Type:                 f.Type,
		Status:               f.Status,
		Amount:               f.Amount,
		FloatDate:            f.FloatDate.Format(cashcustody.DateLayout),
		DailyCap:             f.DailyCap,
		StartingFloat:        f.StartingFloat,
		Collections:          f.Collections,
		Disbursements:        f.Disbursements,
		ExpectedHandover:     f.ExpectedHandover,
		ActualHandover:       f.ActualHandover,
		Variance:             f.Variance,
		InitiatorGeo:         f.InitiatorGeo,
		ConfirmationGeo:      f.ConfirmationGeo,
		CollectorConfirmedAt: f.CollectorConfirmedAt,
		CashierConfirmedAt:   f.CashierConfirmedAt,
		RejectionReason:      f.RejectionReason,
		Notes:                f.Notes,
		CreatedAt:            f.CreatedAt,
		Version:              f.Version,
	}
}

// TransactionResponse is the view of a ledger entry
type TransactionResponse struct {
	ID                 uuid.UUID                   `json:"id"`
	CollectorID        uuid.UUID                   `json:"collector_id"`
	TransactionDate    string                      `json:"transaction_date"`
	Type               cashcustody.TransactionType `json:"transaction_type"`
	Amount             decimal.Decimal             `json:"amount"`
	BalanceBefore      decimal.Decimal             `json:"balance_before"`
	BalanceAfter       decimal.Decimal             `json:"balance_after"`
	LoanID             *uuid.UUID                  `json:"loan_id,omitempty"`
	LoanNumber         string                      `json:"loan_number,omitempty"`
	PaymentID          *uuid.UUID                  `json:"payment_id,omitempty"`
	FloatID            *uuid.UUID                  `json:"float_id,omitempty"`
	Geo                *cashcustody.GeoPoint       `json:"geo,omitempty"`
	Notes              string                      `json:"notes,omitempty"`
	LocalTransactionID string                      `json:"local_transaction_id,omitempty"`
	CreatedAt          time.Time                   `json:"created_at"`
}

// ToTransactionResponse converts a ledger entry to a response
func ToTransactionResponse(t *cashcustody.CashTransaction) TransactionResponse {
	return TransactionResponse{
		ID:                 t.ID,
		CollectorID:        t.CollectorID,
		TransactionDate:    t.TransactionDate.Format(cashcustody.DateLayout),
		Type:               t.Type,
		Amount:             t.Amount,
		BalanceBefore:      t.BalanceBefore,
		BalanceAfter:       t.BalanceAfter,
		LoanID:             t.LoanID,
		PaymentID:          t.PaymentID,
		FloatID:            t.FloatID,
		Geo:                t.Geo,
		Notes:              t.Notes,
		LocalTransactionID: t.LocalTransactionID,
		CreatedAt:          t.CreatedAt,
	}
}

// MovementResponse is returned by collection and disbursement posts.
// Duplicate is set when the local transaction id was already recorded.
type MovementResponse struct {
	Balance     BalanceResponse      `json:"balance"`
	Transaction *TransactionResponse `json:"transaction,omitempty"`
	Duplicate   bool                 `json:"duplicate"`
}

// HandoverResult is returned by handover confirmation and rejection
type HandoverResult struct {
	Balance  BalanceResponse `json:"balance"`
	Handover FloatResponse   `json:"handover"`
}

// HistoryResponse is a page of ledger entries
type HistoryResponse struct {
	Items      []TransactionResponse `json:"items"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}

// CollectorStatusResponse is one row of the cashier dashboard
type CollectorStatusResponse struct {
	CollectorName string `json:"collector_name"`
	BalanceResponse
}

// DailyReport is the reconciliation summary of a business date
type DailyReport struct {
	TenantID    uuid.UUID
	Date        time.Time
	GeneratedAt time.Time
	Rows        []DailyReportRow
}

// DailyReportRow is one collector's line in the daily report
type DailyReportRow struct {
	CollectorID      uuid.UUID
	CollectorName    string
	State            cashcustody.DayState
	OpeningFloat     decimal.Decimal
	Collections      decimal.Decimal
	Disbursements    decimal.Decimal
	CurrentBalance   decimal.Decimal
	ExpectedHandover decimal.Decimal
	ActualHandover   *decimal.Decimal
	Variance         *decimal.Decimal
}

// HandoverStatement is the archived record of a closed collector-day
type HandoverStatement struct {
	TenantID      uuid.UUID
	CollectorID   uuid.UUID
	CollectorName string
	CashierID     uuid.UUID
	CashierName   string
	Handover      FloatResponse
	Entries       []TransactionResponse
}

// LimitsResponse is the view of a collector's limits
type LimitsResponse struct {
	CollectorID                     uuid.UUID       `json:"collector_id"`
	MaxApprovalAmount               decimal.Decimal `json:"max_approval_amount"`
	MaxApprovalPerDay               int             `json:"max_approval_per_day"`
	MaxDisbursementAmount           decimal.Decimal `json:"max_disbursement_amount"`
	DailyDisbursementLimit          decimal.Decimal `json:"daily_disbursement_limit"`
	MonthlyDisbursementLimit        decimal.Decimal `json:"monthly_disbursement_limit"`
	MaxPenaltyWaiverAmount          decimal.Decimal `json:"max_penalty_waiver_amount"`
	MaxPenaltyWaiverPercent         decimal.Decimal `json:"max_penalty_waiver_percent"`
	RequiresManagerApprovalAbove    decimal.Decimal `json:"requires_manager_approval_above"`
	MaxCashCollectionPerTransaction decimal.Decimal `json:"max_cash_collection_per_transaction"`
	IsActive                        bool            `json:"is_active"`
	IsDefault                       bool            `json:"is_default"`
	UpdatedBy                       *uuid.UUID      `json:"updated_by,omitempty"`
	UpdatedAt                       *time.Time      `json:"updated_at,omitempty"`
}

// ToLimitsResponse converts domain limits to a response
func ToLimitsResponse(l *cashcustody.CollectorLimits) LimitsResponse {
	resp := LimitsResponse{
		CollectorID:                     l.CollectorID,
		MaxApprovalAmount:               l.MaxApprovalAmount,
		MaxApprovalPerDay:               l.MaxApprovalPerDay,
		MaxDisbursementAmount:           l.MaxDisbursementAmount,
		DailyDisbursementLimit:          l.DailyDisbursementLimit,
		MonthlyDisbursementLimit:        l.MonthlyDisbursementLimit,
		MaxPenaltyWaiverAmount:          l.MaxPenaltyWaiverAmount,
		MaxPenaltyWaiverPercent:         l.MaxPenaltyWaiverPercent,
		RequiresManagerApprovalAbove:    l.RequiresManagerApprovalAbove,
		MaxCashCollectionPerTransaction: l.MaxCashCollectionPerTransaction,
		IsActive:                        l.IsActive,
		IsDefault:                       l.IsDefault(),
		UpdatedBy:                       l.UpdatedBy,
	}
	if !l.IsDefault() {
		updatedAt := l.UpdatedAt
		resp.UpdatedAt = &updatedAt
	}
	return resp
}

// UpdateLimitsRequest replaces a collector's limits. IsActive defaults to true.
type UpdateLimitsRequest struct {
	Values   cashcustody.LimitValues
	IsActive *bool
}

// WaiverCheckRequest asks whether a penalty waiver is within limits
type WaiverCheckRequest struct {
	PenaltyAmount decimal.Decimal
	WaiverAmount  decimal.Decimal
}

// LogActionRequest appends an entry to the collector audit trail
type LogActionRequest struct {
	CollectorID     uuid.UUID
	CustomerID      *uuid.UUID
	ActionType      cashcustody.ActionType
	ApplicationID   *uuid.UUID
	LoanID          *uuid.UUID
	PaymentID       *uuid.UUID
	Amount          *decimal.Decimal
	PreviousValue   map[string]any
	NewValue        map[string]any
	Status          cashcustody.ActionStatus
	RejectionReason string
	ApprovedBy      *uuid.UUID
	Notes           string
	Geo             *cashcustody.GeoPoint
	DeviceInfo      map[string]any
}

// ActionLogResponse is the view of an audit entry
type ActionLogResponse struct {
	ID              uuid.UUID                `json:"id"`
	CollectorID     uuid.UUID                `json:"collector_id"`
	CustomerID      *uuid.UUID               `json:"customer_id,omitempty"`
	ActionType      cashcustody.ActionType   `json:"action_type"`
	ApplicationID   *uuid.UUID               `json:"application_id,omitempty"`
	LoanID          *uuid.UUID               `json:"loan_id,omitempty"`
	PaymentID       *uuid.UUID               `json:"payment_id,omitempty"`
	Amount          *decimal.Decimal         `json:"amount,omitempty"`
	PreviousValue   map[string]any           `json:"previous_value,omitempty"`
	NewValue        map[string]any           `json:"new_value,omitempty"`
	Status          cashcustody.ActionStatus `json:"status"`
	RejectionReason string                   `json:"rejection_reason,omitempty"`
	ApprovedBy      *uuid.UUID               `json:"approved_by,omitempty"`
	Notes           string                   `json:"notes,omitempty"`
	Geo             *cashcustody.GeoPoint    `json:"geo,omitempty"`
	DeviceInfo      map[string]any           `json:"device_info,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`
}

// ToActionLogResponse converts an audit entry to a response
func ToActionLogResponse(l *cashcustody.CollectorActionLog) ActionLogResponse {
	return ActionLogResponse{
		ID:              l.ID,
		CollectorID:     l.CollectorID,
		CustomerID:      l.CustomerID,
		ActionType:      l.ActionType,
		ApplicationID:   l.ApplicationID,
		LoanID:          l.LoanID,
		PaymentID:       l.PaymentID,
		Amount:          l.Amount,
		PreviousValue:   l.PreviousValue,
		NewValue:        l.NewValue,
		Status:          l.Status,
		RejectionReason: l.RejectionReason,
		ApprovedBy:      l.ApprovedBy,
		Notes:           l.Notes,
		Geo:             l.Geo,
		DeviceInfo:      l.DeviceInfo,
		CreatedAt:       l.CreatedAt,
	}
}
