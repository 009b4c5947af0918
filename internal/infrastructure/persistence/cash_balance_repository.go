package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/cashcustody"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/shared"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCashBalanceRepository implements CashBalanceRepository using GORM
type GormCashBalanceRepository struct {
	db *gorm.DB
}

// NewGormCashBalanceRepository creates a new GormCashBalanceRepository
func NewGormCashBalanceRepository(db *gorm.DB) *GormCashBalanceRepository {
	return &GormCashBalanceRepository{db: db}
}

// FindByCollectorDate finds the balance of a collector-day
func (r *GormCashBalanceRepository) FindByCollectorDate(ctx context.Context, tenantID, collectorID uuid.UUID, date time.Time) (*cashcustody.CollectorCashBalance, error) {
	return r.findByCollectorDate(r.db.WithContext(ctx), tenantID, collectorID, date)
}

// FindByCollectorDateForUpdate finds the balance of a collector-day and locks
// the row (SELECT ... FOR UPDATE). Must run inside a transaction.
func (r *GormCashBalanceRepository) FindByCollectorDateForUpdate(ctx context.Context, tenantID, collectorID uuid.UUID, date time.Time) (*cashcustody.CollectorCashBalance, error) {
	return r.findByCollectorDate(
		r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}),
		tenantID, collectorID, date,
	)
}

func (r *GormCashBalanceRepository) findByCollectorDate(db *gorm.DB, tenantID, collectorID uuid.UUID, date time.Time) (*cashcustody.CollectorCashBalance, error) {
	var model models.CollectorCashBalanceModel
	if err := db.
		Where("tenant_id = ? AND collector_id = ? AND balance_date = ?", tenantID, collectorID, cashcustody.NormalizeDate(date)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByDate finds every collector's balance for a business date
func (r *GormCashBalanceRepository) FindByDate(ctx context.Context, tenantID uuid.UUID, date time.Time) ([]cashcustody.CollectorCashBalance, error) {
	var rows []models.CollectorCashBalanceModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND balance_date = ?", tenantID, cashcustody.NormalizeDate(date)).
		Order("collector_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	balances := make([]cashcustody.CollectorCashBalance, len(rows))
	for i := range rows {
		balances[i] = *rows[i].ToDomain()
	}
	return balances, nil
}

// Create inserts a new balance row. A concurrent insert for the same
// collector-day fails on the unique index and surfaces as a driver error.
func (r *GormCashBalanceRepository) Create(ctx context.Context, balance *cashcustody.CollectorCashBalance) error {
	return r.db.WithContext(ctx).Create(models.CollectorCashBalanceModelFromDomain(balance)).Error
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormCashBalanceRepository) SaveWithLock(ctx context.Context, balance *cashcustody.CollectorCashBalance) error {
	result := r.db.WithContext(ctx).
		Model(&models.CollectorCashBalanceModel{}).
		Where("id = ? AND version = ?", balance.ID, balance.Version-1).
		Updates(map[string]any{
			"cashier_id":                 balance.CashierID,
			"opening_float":              balance.OpeningFloat,
			"total_collections":          balance.TotalCollections,
			"total_disbursements":        balance.TotalDisbursements,
			"current_balance":            balance.CurrentBalance,
			"daily_cap":                  balance.DailyCap,
			"available_for_disbursement": balance.AvailableForDisbursement,
			"is_float_confirmed":         balance.IsFloatConfirmed,
			"is_day_closed":              balance.IsDayClosed,
			"day_closed_at":              balance.DayClosedAt,
			"float_issuance_id":          balance.FloatIssuanceID,
			"handover_id":                balance.HandoverID,
			"version":                    balance.Version,
			"updated_at":                 balance.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("OPTIMISTIC_LOCK_FAILED", "Cash balance was modified by another transaction")
	}
	return nil
}

// Ensure GormCashBalanceRepository implements CashBalanceRepository
var _ cashcustody.CashBalanceRepository = (*GormCashBalanceRepository)(nil)
