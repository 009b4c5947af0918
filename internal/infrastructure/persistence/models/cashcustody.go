package models

import (
	"encoding/json"
	"time"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/cashcustody"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var cashModelLogger = zap.L().Named("cashcustody.models")

// CollectorCashBalanceModel is the persistence model for the CollectorCashBalance aggregate.
// One row per (tenant, collector, business date). Migrations own the unique
// index on (tenant_id, collector_id, balance_date).
type CollectorCashBalanceModel struct {
	TenantAggregateModel
	CollectorID              uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_cash_balance_collector_date,priority:2"`
	BalanceDate              time.Time       `gorm:"type:date;not null;uniqueIndex:idx_cash_balance_collector_date,priority:3;index"`
	CashierID                *uuid.UUID      `gorm:"type:uuid"`
	OpeningFloat             decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalCollections         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalDisbursements       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CurrentBalance           decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	DailyCap                 decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	AvailableForDisbursement decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	IsFloatConfirmed         bool            `gorm:"not null;default:false"`
	IsDayClosed              bool            `gorm:"not null;default:false"`
	DayClosedAt              *time.Time
	FloatIssuanceID          *uuid.UUID `gorm:"type:uuid"`
	HandoverID               *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (CollectorCashBalanceModel) TableName() string {
	return "collector_cash_balances"
}

// ToDomain converts the persistence model to a domain CollectorCashBalance.
func (m *CollectorCashBalanceModel) ToDomain() *cashcustody.CollectorCashBalance {
	b := &cashcustody.CollectorCashBalance{
		CollectorID:              m.CollectorID,
		BalanceDate:              cashcustody.NormalizeDate(m.BalanceDate),
		CashierID:                m.CashierID,
		OpeningFloat:             m.OpeningFloat,
		TotalCollections:         m.TotalCollections,
		TotalDisbursements:       m.TotalDisbursements,
		CurrentBalance:           m.CurrentBalance,
		DailyCap:                 m.DailyCap,
		AvailableForDisbursement: m.AvailableForDisbursement,
		IsFloatConfirmed:         m.IsFloatConfirmed,
		IsDayClosed:              m.IsDayClosed,
		DayClosedAt:              m.DayClosedAt,
		FloatIssuanceID:          m.FloatIssuanceID,
		HandoverID:               m.HandoverID,
	}
	m.PopulateTenantAggregateRoot(&b.TenantAggregateRoot)
	return b
}

// FromDomain populates the persistence model from a domain CollectorCashBalance.
func (m *CollectorCashBalanceModel) FromDomain(b *cashcustody.CollectorCashBalance) {
	m.FromDomainTenantAggregateRoot(b.TenantAggregateRoot)
	m.CollectorID = b.CollectorID
	m.BalanceDate = cashcustody.NormalizeDate(b.BalanceDate)
	m.CashierID = b.CashierID
	m.OpeningFloat = b.OpeningFloat
	m.TotalCollections = b.TotalCollections
	m.TotalDisbursements = b.TotalDisbursements
	m.CurrentBalance = b.CurrentBalance
	m.DailyCap = b.DailyCap
	m.AvailableForDisbursement = b.AvailableForDisbursement
	m.IsFloatConfirmed = b.IsFloatConfirmed
	m.IsDayClosed = b.IsDayClosed
	m.DayClosedAt = b.DayClosedAt
	m.FloatIssuanceID = b.FloatIssuanceID
	m.HandoverID = b.HandoverID
}

// CollectorCashBalanceModelFromDomain creates a new persistence model from a domain CollectorCashBalance.
func CollectorCashBalanceModelFromDomain(b *cashcustody.CollectorCashBalance) *CollectorCashBalanceModel {
	m := &CollectorCashBalanceModel{}
	m.FromDomain(b)
	return m
}

// CashFloatModel is the persistence model for the CashFloat aggregate.
// At most one active issuance per collector-day is enforced by a partial
// unique index created in migrations.
type CashFloatModel struct {
	TenantAggregateModel
	CollectorID           uuid.UUID               `gorm:"type:uuid;not null;index:idx_cash_float_collector_date,priority:1"`
	CashierID             uuid.UUID               `gorm:"type:uuid;not null;index"`
	Type                  cashcustody.FloatType   `gorm:"type:varchar(20);not null;index"`
	Status                cashcustody.FloatStatus `gorm:"type:varchar(20);not null;index"`
	Amount                decimal.Decimal         `gorm:"type:decimal(18,4);not null;default:0"`
	FloatDate             time.Time               `gorm:"type:date;not null;index:idx_cash_float_collector_date,priority:2"`
	DailyCap              decimal.Decimal         `gorm:"type:decimal(18,4);not null;default:0"`
	StartingFloat         decimal.Decimal         `gorm:"type:decimal(18,4);not null;default:0"`
	Collections           decimal.Decimal         `gorm:"type:decimal(18,4);not null;default:0"`
	Disbursements         decimal.Decimal         `gorm:"type:decimal(18,4);not null;default:0"`
	ExpectedHandover      decimal.Decimal         `gorm:"type:decimal(18,4);not null;default:0"`
	ActualHandover        decimal.Decimal         `gorm:"type:decimal(18,4);not null;default:0"`
	Variance              decimal.Decimal         `gorm:"type:decimal(18,4);not null;default:0"`
	InitiatorLatitude     *float64                `gorm:"type:decimal(10,7)"`
	InitiatorLongitude    *float64                `gorm:"type:decimal(10,7)"`
	ConfirmationLatitude  *float64                `gorm:"type:decimal(10,7)"`
	ConfirmationLongitude *float64                `gorm:"type:decimal(10,7)"`
	CollectorConfirmedAt  *time.Time
	CashierConfirmedAt    *time.Time
	RejectionReason       string `gorm:"type:text"`
	Notes                 string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (CashFloatModel) TableName() string {
	return "cash_floats"
}

// ToDomain converts the persistence model to a domain CashFloat.
func (m *CashFloatModel) ToDomain() *cashcustody.CashFloat {
	f := &cashcustody.CashFloat{
		CollectorID:          m.CollectorID,
		CashierID:            m.CashierID,
		Type:                 m.Type,
		Status:               m.Status,
		Amount:               m.Amount,
		FloatDate:            cashcustody.NormalizeDate(m.FloatDate),
		DailyCap:             m.DailyCap,
		StartingFloat:        m.StartingFloat,
		Collections:          m.Collections,
		Disbursements:        m.Disbursements,
		ExpectedHandover:     m.ExpectedHandover,
		ActualHandover:       m.ActualHandover,
		Variance:             m.Variance,
		InitiatorGeo:         geoFromColumns(m.InitiatorLatitude, m.InitiatorLongitude),
		ConfirmationGeo:      geoFromColumns(m.ConfirmationLatitude, m.ConfirmationLongitude),
		CollectorConfirmedAt: m.CollectorConfirmedAt,
		CashierConfirmedAt:   m.CashierConfirmedAt,
		RejectionReason:      m.RejectionReason,
		Notes:                m.Notes,
	}
	m.PopulateTenantAggregateRoot(&f.TenantAggregateRoot)
	return f
}

// FromDomain populates the persistence model from a domain CashFloat.
func (m *CashFloatModel) FromDomain(f *cashcustody.CashFloat) {
	m.FromDomainTenantAggregateRoot(f.TenantAggregateRoot)
	m.CollectorID = f.CollectorID
	m.CashierID = f.CashierID
	m.Type = f.Type
	m.Status = f.Status
	m.Amount = f.Amount
	m.FloatDate = cashcustody.NormalizeDate(f.FloatDate)
	m.DailyCap = f.DailyCap
	m.StartingFloat = f.StartingFloat
	m.Collections = f.Collections
	m.Disbursements = f.Disbursements
	m.ExpectedHandover = f.ExpectedHandover
	m.ActualHandover = f.ActualHandover
	m.Variance = f.Variance
	m.InitiatorLatitude, m.InitiatorLongitude = geoToColumns(f.InitiatorGeo)
	m.ConfirmationLatitude, m.ConfirmationLongitude = geoToColumns(f.ConfirmationGeo)
	m.CollectorConfirmedAt = f.CollectorConfirmedAt
	m.CashierConfirmedAt = f.CashierConfirmedAt
	m.RejectionReason = f.RejectionReason
	m.Notes = f.Notes
}

// CashFloatModelFromDomain creates a new persistence model from a domain CashFloat.
func CashFloatModelFromDomain(f *cashcustody.CashFloat) *CashFloatModel {
	m := &CashFloatModel{}
	m.FromDomain(f)
	return m
}

// CashTransactionModel is the persistence model for ledger entries.
// Rows are insert-only.
type CashTransactionModel struct {
	BaseModel
	TenantID           uuid.UUID                   `gorm:"type:uuid;not null;index:idx_cash_tx_collector_date,priority:1"`
	CollectorID        uuid.UUID                   `gorm:"type:uuid;not null;index:idx_cash_tx_collector_date,priority:2"`
	TransactionDate    time.Time                   `gorm:"type:date;not null;index:idx_cash_tx_collector_date,priority:3"`
	Type               cashcustody.TransactionType `gorm:"column:transaction_type;type:varchar(20);not null;index"`
	Amount             decimal.Decimal             `gorm:"type:decimal(18,4);not null"`
	BalanceBefore      decimal.Decimal             `gorm:"type:decimal(18,4);not null"`
	BalanceAfter       decimal.Decimal             `gorm:"type:decimal(18,4);not null"`
	LoanID             *uuid.UUID                  `gorm:"type:uuid;index"`
	PaymentID          *uuid.UUID                  `gorm:"type:uuid"`
	FloatID            *uuid.UUID                  `gorm:"type:uuid"`
	Latitude           *float64                    `gorm:"type:decimal(10,7)"`
	Longitude          *float64                    `gorm:"type:decimal(10,7)"`
	Notes              string                      `gorm:"type:text"`
	LocalTransactionID *string                     `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (CashTransactionModel) TableName() string {
	return "cash_transactions"
}

// ToDomain converts the persistence model to a domain CashTransaction.
func (m *CashTransactionModel) ToDomain() *cashcustody.CashTransaction {
	t := &cashcustody.CashTransaction{
		BaseEntity:      m.BaseModel.ToDomain(),
		TenantID:        m.TenantID,
		CollectorID:     m.CollectorID,
		TransactionDate: cashcustody.NormalizeDate(m.TransactionDate),
		Type:            m.Type,
		Amount:          m.Amount,
		BalanceBefore:   m.BalanceBefore,
		BalanceAfter:    m.BalanceAfter,
		LoanID:          m.LoanID,
		PaymentID:       m.PaymentID,
		FloatID:         m.FloatID,
		Geo:             geoFromColumns(m.Latitude, m.Longitude),
		Notes:           m.Notes,
	}
	if m.LocalTransactionID != nil {
		t.LocalTransactionID = *m.LocalTransactionID
	}
	return t
}

// FromDomain populates the persistence model from a domain CashTransaction.
func (m *CashTransactionModel) FromDomain(t *cashcustody.CashTransaction) {
	m.FromDomainBaseEntity(t.BaseEntity)
	m.TenantID = t.TenantID
	m.CollectorID = t.CollectorID
	m.TransactionDate = cashcustody.NormalizeDate(t.TransactionDate)
	m.Type = t.Type
	m.Amount = t.Amount
	m.BalanceBefore = t.BalanceBefore
	m.BalanceAfter = t.BalanceAfter
	m.LoanID = t.LoanID
	m.PaymentID = t.PaymentID
	m.FloatID = t.FloatID
	m.Latitude, m.Longitude = geoToColumns(t.Geo)
	m.Notes = t.Notes
	// empty ids stay NULL so the partial unique index ignores them
	m.LocalTransactionID = nil
	if t.LocalTransactionID != "" {
		localID := t.LocalTransactionID
		m.LocalTransactionID = &localID
	}
}

// CashTransactionModelFromDomain creates a new persistence model from a domain CashTransaction.
func CashTransactionModelFromDomain(t *cashcustody.CashTransaction) *CashTransactionModel {
	m := &CashTransactionModel{}
	m.FromDomain(t)
	return m
}

// CollectorLimitsModel is the persistence model for per-collector limits.
type CollectorLimitsModel struct {
	TenantAggregateModel
	CollectorID                     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_collector_limits_collector,priority:2"`
	MaxApprovalAmount               decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	MaxApprovalPerDay               int             `gorm:"not null"`
	MaxDisbursementAmount           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DailyDisbursementLimit          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	MonthlyDisbursementLimit        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	MaxPenaltyWaiverAmount          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	MaxPenaltyWaiverPercent         decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	RequiresManagerApprovalAbove    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	MaxCashCollectionPerTransaction decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	IsActive                        bool            `gorm:"not null;default:true"`
	UpdatedBy                       *uuid.UUID      `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (CollectorLimitsModel) TableName() string {
	return "collector_limits"
}

// ToDomain converts the persistence model to domain CollectorLimits.
func (m *CollectorLimitsModel) ToDomain() *cashcustody.CollectorLimits {
	l := &cashcustody.CollectorLimits{
		CollectorID: m.CollectorID,
		LimitValues: cashcustody.LimitValues{
			MaxApprovalAmount:               m.MaxApprovalAmount,
			MaxApprovalPerDay:               m.MaxApprovalPerDay,
			MaxDisbursementAmount:           m.MaxDisbursementAmount,
			DailyDisbursementLimit:          m.DailyDisbursementLimit,
			MonthlyDisbursementLimit:        m.MonthlyDisbursementLimit,
			MaxPenaltyWaiverAmount:          m.MaxPenaltyWaiverAmount,
			MaxPenaltyWaiverPercent:         m.MaxPenaltyWaiverPercent,
			RequiresManagerApprovalAbove:    m.RequiresManagerApprovalAbove,
			MaxCashCollectionPerTransaction: m.MaxCashCollectionPerTransaction,
		},
		IsActive:  m.IsActive,
		UpdatedBy: m.UpdatedBy,
	}
	m.PopulateTenantAggregateRoot(&l.TenantAggregateRoot)
	return l
}

// FromDomain populates the persistence model from domain CollectorLimits.
func (m *CollectorLimitsModel) FromDomain(l *cashcustody.CollectorLimits) {
	m.FromDomainTenantAggregateRoot(l.TenantAggregateRoot)
	m.CollectorID = l.CollectorID
	m.MaxApprovalAmount = l.MaxApprovalAmount
	m.MaxApprovalPerDay = l.MaxApprovalPerDay
	m.MaxDisbursementAmount = l.MaxDisbursementAmount
	m.DailyDisbursementLimit = l.DailyDisbursementLimit
	m.MonthlyDisbursementLimit = l.MonthlyDisbursementLimit
	m.MaxPenaltyWaiverAmount = l.MaxPenaltyWaiverAmount
	m.MaxPenaltyWaiverPercent = l.MaxPenaltyWaiverPercent
	m.RequiresManagerApprovalAbove = l.RequiresManagerApprovalAbove
	m.MaxCashCollectionPerTransaction = l.MaxCashCollectionPerTransaction
	m.IsActive = l.IsActive
	m.UpdatedBy = l.UpdatedBy
}

// CollectorLimitsModelFromDomain creates a new persistence model from domain CollectorLimits.
func CollectorLimitsModelFromDomain(l *cashcustody.CollectorLimits) *CollectorLimitsModel {
	m := &CollectorLimitsModel{}
	m.FromDomain(l)
	return m
}

// CollectorActionLogModel is the persistence model for the collector audit trail.
type CollectorActionLogModel struct {
	BaseModel
	TenantID          uuid.UUID                `gorm:"type:uuid;not null;index:idx_action_log_collector,priority:1"`
	CollectorID       uuid.UUID                `gorm:"type:uuid;not null;index:idx_action_log_collector,priority:2"`
	CustomerID        *uuid.UUID               `gorm:"type:uuid"`
	ActionType        cashcustody.ActionType   `gorm:"type:varchar(50);not null;index"`
	ApplicationID     *uuid.UUID               `gorm:"type:uuid"`
	LoanID            *uuid.UUID               `gorm:"type:uuid"`
	PaymentID         *uuid.UUID               `gorm:"type:uuid"`
	Amount            *decimal.Decimal         `gorm:"type:decimal(18,4)"`
	PreviousValueJSON string                   `gorm:"column:previous_value;type:jsonb"`
	NewValueJSON      string                   `gorm:"column:new_value;type:jsonb"`
	Status            cashcustody.ActionStatus `gorm:"type:varchar(30);not null;index"`
	RejectionReason   string                   `gorm:"type:text"`
	ApprovedBy        *uuid.UUID               `gorm:"type:uuid"`
	Notes             string                   `gorm:"type:text"`
	Latitude          *float64                 `gorm:"type:decimal(10,7)"`
	Longitude         *float64                 `gorm:"type:decimal(10,7)"`
	DeviceInfoJSON    string                   `gorm:"column:device_info;type:jsonb"`
}

// TableName returns the table name for GORM
func (CollectorActionLogModel) TableName() string {
	return "collector_action_logs"
}

// ToDomain converts the persistence model to a domain CollectorActionLog.
func (m *CollectorActionLogModel) ToDomain() *cashcustody.CollectorActionLog {
	return &cashcustody.CollectorActionLog{
		BaseEntity:      m.BaseModel.ToDomain(),
		TenantID:        m.TenantID,
		CollectorID:     m.CollectorID,
		CustomerID:      m.CustomerID,
		ActionType:      m.ActionType,
		ApplicationID:   m.ApplicationID,
		LoanID:          m.LoanID,
		PaymentID:       m.PaymentID,
		Amount:          m.Amount,
		PreviousValue:   decodeJSONMap(m.PreviousValueJSON, "previous_value"),
		NewValue:        decodeJSONMap(m.NewValueJSON, "new_value"),
		Status:          m.Status,
		RejectionReason: m.RejectionReason,
		ApprovedBy:      m.ApprovedBy,
		Notes:           m.Notes,
		Geo:             geoFromColumns(m.Latitude, m.Longitude),
		DeviceInfo:      decodeJSONMap(m.DeviceInfoJSON, "device_info"),
	}
}

// FromDomain populates the persistence model from a domain CollectorActionLog.
func (m *CollectorActionLogModel) FromDomain(l *cashcustody.CollectorActionLog) {
	m.FromDomainBaseEntity(l.BaseEntity)
	m.TenantID = l.TenantID
	m.CollectorID = l.CollectorID
	m.CustomerID = l.CustomerID
	m.ActionType = l.ActionType
	m.ApplicationID = l.ApplicationID
	m.LoanID = l.LoanID
	m.PaymentID = l.PaymentID
	m.Amount = l.Amount
	m.PreviousValueJSON = encodeJSONMap(l.PreviousValue, "previous_value")
	m.NewValueJSON = encodeJSONMap(l.NewValue, "new_value")
	m.Status = l.Status
	m.RejectionReason = l.RejectionReason
	m.ApprovedBy = l.ApprovedBy
	m.Notes = l.Notes
	m.Latitude, m.Longitude = geoToColumns(l.Geo)
	m.DeviceInfoJSON = encodeJSONMap(l.DeviceInfo, "device_info")
}

// CollectorActionLogModelFromDomain creates a new persistence model from a domain CollectorActionLog.
func CollectorActionLogModelFromDomain(l *cashcustody.CollectorActionLog) *CollectorActionLogModel {
	m := &CollectorActionLogModel{}
	m.FromDomain(l)
	return m
}

func geoFromColumns(lat, lng *float64) *cashcustody.GeoPoint {
	if lat == nil || lng == nil {
		return nil
	}
	return &cashcustody.GeoPoint{Latitude: *lat, Longitude: *lng}
}

func geoToColumns(g *cashcustody.GeoPoint) (*float64, *float64) {
	if g == nil {
		return nil, nil
	}
	lat, lng := g.Latitude, g.Longitude
	return &lat, &lng
}

func decodeJSONMap(raw, field string) map[string]any {
	if raw == "" || raw == "null" {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		cashModelLogger.Warn("failed to unmarshal action log column",
			zap.String("field", field),
			zap.Error(err))
		return nil
	}
	return out
}

// encodeJSONMap returns "null" for empty maps; jsonb rejects the empty string.
func encodeJSONMap(v map[string]any, field string) string {
	if len(v) == 0 {
		return "null"
	}
	raw, err := json.Marshal(v)
	if err != nil {
		cashModelLogger.Warn("failed to marshal action log column",
			zap.String("field", field),
			zap.Error(err))
		return "null"
	}
	return string(raw)
}
