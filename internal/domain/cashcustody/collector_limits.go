package cashcustody

import (
	"time"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LimitValues is the set of monetary thresholds applied to a collector.
type LimitValues struct {
	MaxApprovalAmount               decimal.Decimal
	MaxApprovalPerDay               int
	MaxDisbursementAmount           decimal.Decimal
	DailyDisbursementLimit          decimal.Decimal
	MonthlyDisbursementLimit        decimal.Decimal
	MaxPenaltyWaiverAmount          decimal.Decimal
	MaxPenaltyWaiverPercent         decimal.Decimal
	RequiresManagerApprovalAbove    decimal.Decimal
	MaxCashCollectionPerTransaction decimal.Decimal
}

// DefaultLimitValues are applied when a collector has no active limits row.
func DefaultLimitValues() LimitValues {
	return LimitValues{
		MaxApprovalAmount:               decimal.NewFromInt(50000),
		MaxApprovalPerDay:               10,
		MaxDisbursementAmount:           decimal.NewFromInt(100000),
		DailyDisbursementLimit:          decimal.NewFromInt(500000),
		MonthlyDisbursementLimit:        decimal.NewFromInt(5000000),
		MaxPenaltyWaiverAmount:          decimal.NewFromInt(5000),
		MaxPenaltyWaiverPercent:         decimal.NewFromInt(50),
		RequiresManagerApprovalAbove:    decimal.NewFromInt(2000),
		MaxCashCollectionPerTransaction: decimal.NewFromInt(50000),
	}
}

// Validate checks that every threshold is usable.
func (v LimitValues) Validate() error {
	amounts := map[string]decimal.Decimal{
		"max_approval_amount":                 v.MaxApprovalAmount,
		"max_disbursement_amount":             v.MaxDisbursementAmount,
		"daily_disbursement_limit":            v.DailyDisbursementLimit,
		"monthly_disbursement_limit":          v.MonthlyDisbursementLimit,
		"max_penalty_waiver_amount":           v.MaxPenaltyWaiverAmount,
		"requires_manager_approval_above":     v.RequiresManagerApprovalAbove,
		"max_cash_collection_per_transaction": v.MaxCashCollectionPerTransaction,
	}
	for field, amount := range amounts {
		if amount.IsNegative() {
			return shared.NewDomainError(CodeInvalidLimits, field+" cannot be negative")
		}
	}
	if v.MaxApprovalPerDay < 0 {
		return shared.NewDomainError(CodeInvalidLimits, "max_approval_per_day cannot be negative")
	}
	if v.MaxPenaltyWaiverPercent.IsNegative() || v.MaxPenaltyWaiverPercent.GreaterThan(decimal.NewFromInt(100)) {
		return shared.NewDomainError(CodeInvalidLimits, "max_penalty_waiver_percent must be between 0 and 100")
	}
	if v.DailyDisbursementLimit.GreaterThan(v.MonthlyDisbursementLimit) {
		return shared.NewDomainError(CodeInvalidLimits, "daily_disbursement_limit cannot exceed monthly_disbursement_limit")
	}
	return nil
}

// CollectorLimits holds the authorization thresholds of one collector.
// Rows are never deleted, only deactivated; an inactive or missing row means
// the defaults apply.
type CollectorLimits struct {
	shared.TenantAggregateRoot
	CollectorID uuid.UUID
	LimitValues
	IsActive  bool
	UpdatedBy *uuid.UUID

	isDefault bool
}

// NewCollectorLimits creates an explicit limits row.
func NewCollectorLimits(tenantID, collectorID, createdBy uuid.UUID, values LimitValues) (*CollectorLimits, error) {
	if collectorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COLLECTOR", "Collector ID cannot be empty")
	}
	if err := values.Validate(); err != nil {
		return nil, err
	}
	return &CollectorLimits{
		TenantAggregateRoot: shared.NewTenantAggregateRootWithCreator(tenantID, createdBy),
		CollectorID:         collectorID,
		LimitValues:         values,
		IsActive:            true,
		UpdatedBy:           &createdBy,
	}, nil
}

// DefaultCollectorLimits returns the unsaved default limits for a collector.
func DefaultCollectorLimits(tenantID, collectorID uuid.UUID) *CollectorLimits {
	return &CollectorLimits{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		CollectorID:         collectorID,
		LimitValues:         DefaultLimitValues(),
		IsActive:            true,
		isDefault:           true,
	}
}

// IsDefault reports whether these limits were synthesised from defaults.
func (l *CollectorLimits) IsDefault() bool {
	return l.isDefault
}

// Effective returns the limits to enforce: the row itself when active,
// otherwise the defaults.
func (l *CollectorLimits) Effective() *CollectorLimits {
	if l == nil {
		return nil
	}
	if l.IsActive {
		return l
	}
	return DefaultCollectorLimits(l.TenantID, l.CollectorID)
}

// Update replaces the thresholds and activation flag.
func (l *CollectorLimits) Update(values LimitValues, isActive bool, updatedBy uuid.UUID) error {
	if err := values.Validate(); err != nil {
		return err
	}
	l.LimitValues = values
	l.IsActive = isActive
	l.UpdatedBy = &updatedBy
	l.UpdatedAt = time.Now()
	l.IncrementVersion()
	return nil
}

// CheckCollectionAmount enforces the per-transaction collection ceiling.
func (l *CollectorLimits) CheckCollectionAmount(amount decimal.Decimal) error {
	if amount.GreaterThan(l.MaxCashCollectionPerTransaction) {
		return shared.NewDomainError(CodeCollectionLimitExceeded,
			"Collection amount exceeds the per-transaction limit of "+FormatPeso(l.MaxCashCollectionPerTransaction))
	}
	return nil
}
