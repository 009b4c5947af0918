package telemetry

import (
	"context"
	"time"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/cashcustody"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormLedgerSnapshotProvider implements LedgerSnapshotProvider using GORM.
// It aggregates collector_cash_balances directly; unconfirmed days read as
// float_pending because a rejected issuance is only visible on cash_floats.
type GormLedgerSnapshotProvider struct {
	db *gorm.DB
}

// NewGormLedgerSnapshotProvider creates a new GormLedgerSnapshotProvider.
func NewGormLedgerSnapshotProvider(db *gorm.DB) *GormLedgerSnapshotProvider {
	return &GormLedgerSnapshotProvider{db: db}
}

const dayStateExpr = `CASE
	WHEN is_day_closed THEN 'day_closed'
	WHEN handover_id IS NOT NULL THEN 'handover_pending'
	WHEN is_float_confirmed THEN 'float_confirmed'
	ELSE 'float_pending' END`

// Snapshot returns one entry per tenant with collector-days on date.
func (p *GormLedgerSnapshotProvider) Snapshot(ctx context.Context, date time.Time) ([]LedgerSnapshot, error) {
	type result struct {
		TenantID   uuid.UUID       `gorm:"column:tenant_id"`
		DayState   string          `gorm:"column:day_state"`
		Days       int64           `gorm:"column:days"`
		CashOnHand decimal.Decimal `gorm:"column:cash_on_hand"`
	}

	var results []result
	err := p.db.WithContext(ctx).
		Table("collector_cash_balances").
		Select("tenant_id, "+dayStateExpr+" AS day_state, COUNT(*) AS days, "+
			"COALESCE(SUM(CASE WHEN is_day_closed THEN 0 ELSE current_balance END), 0) AS cash_on_hand").
		Where("balance_date = ?", cashcustody.NormalizeDate(date)).
		Group("tenant_id, day_state").
		Order("tenant_id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}

	byTenant := make(map[uuid.UUID]*LedgerSnapshot)
	var snapshots []LedgerSnapshot
	order := make([]uuid.UUID, 0)
	for _, r := range results {
		s, ok := byTenant[r.TenantID]
		if !ok {
			s = &LedgerSnapshot{TenantID: r.TenantID, DaysByState: make(map[cashcustody.DayState]int64)}
			byTenant[r.TenantID] = s
			order = append(order, r.TenantID)
		}
		s.DaysByState[cashcustody.DayState(r.DayState)] += r.Days
		s.CashOnHand = s.CashOnHand.Add(r.CashOnHand)
	}
	for _, id := range order {
		snapshots = append(snapshots, *byTenant[id])
	}
	return snapshots, nil
}

// Ensure GormLedgerSnapshotProvider implements LedgerSnapshotProvider
var _ LedgerSnapshotProvider = (*GormLedgerSnapshotProvider)(nil)
