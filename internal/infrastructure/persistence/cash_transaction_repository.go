package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/cashcustody"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/shared"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormCashTransactionRepository implements CashTransactionRepository using GORM.
// The ledger is insert-only; there is no update or delete path.
type GormCashTransactionRepository struct {
	db *gorm.DB
}

// NewGormCashTransactionRepository creates a new GormCashTransactionRepository
func NewGormCashTransactionRepository(db *gorm.DB) *GormCashTransactionRepository {
	return &GormCashTransactionRepository{db: db}
}

// Append inserts a ledger entry
func (r *GormCashTransactionRepository) Append(ctx context.Context, entry *cashcustody.CashTransaction) error {
	return r.db.WithContext(ctx).Create(models.CashTransactionModelFromDomain(entry)).Error
}

// FindByLocalID finds an entry by its client-generated id
func (r *GormCashTransactionRepository) FindByLocalID(ctx context.Context, tenantID, collectorID uuid.UUID, localID string) (*cashcustody.CashTransaction, error) {
	var model models.CashTransactionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND collector_id = ? AND local_transaction_id = ?", tenantID, collectorID, localID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCollectorDate returns a collector-day's entries in posting order
func (r *GormCashTransactionRepository) FindByCollectorDate(ctx context.Context, tenantID, collectorID uuid.UUID, date time.Time) ([]cashcustody.CashTransaction, error) {
	var rows []models.CashTransactionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND collector_id = ? AND transaction_date = ?", tenantID, collectorID, cashcustody.NormalizeDate(date)).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toCashTransactions(rows), nil
}

// FindHistory returns a page of a collector's entries, newest first, and the total count
func (r *GormCashTransactionRepository) FindHistory(ctx context.Context, tenantID, collectorID uuid.UUID, q cashcustody.TransactionQuery) ([]cashcustody.CashTransaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.CashTransactionModel{}).
		Where("tenant_id = ? AND collector_id = ?", tenantID, collectorID)

	if q.From != nil {
		query = query.Where("transaction_date >= ?", cashcustody.NormalizeDate(*q.From))
	}
	if q.To != nil {
		query = query.Where("transaction_date <= ?", cashcustody.NormalizeDate(*q.To))
	}
	if q.Type != "" {
		query = query.Where("transaction_type = ?", q.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if q.PageSize > 0 {
		page := max(q.Page, 1)
		query = query.Offset((page - 1) * q.PageSize).Limit(q.PageSize)
	}

	var rows []models.CashTransactionModel
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toCashTransactions(rows), total, nil
}

// Totals counts and sums entries of one type over [from, to)
func (r *GormCashTransactionRepository) Totals(ctx context.Context, tenantID, collectorID uuid.UUID, txType cashcustody.TransactionType, from, to time.Time) (cashcustody.ActivityTotals, error) {
	var result struct {
		Count int64
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.CashTransactionModel{}).
		Select("COUNT(*) as count, COALESCE(SUM(amount), 0) as total").
		Where("tenant_id = ? AND collector_id = ? AND transaction_type = ?", tenantID, collectorID, txType).
		Where("transaction_date >= ? AND transaction_date < ?", cashcustody.NormalizeDate(from), cashcustody.NormalizeDate(to)).
		Scan(&result).Error
	if err != nil {
		return cashcustody.ActivityTotals{}, err
	}
	return cashcustody.ActivityTotals{Count: result.Count, Total: result.Total}, nil
}

func toCashTransactions(rows []models.CashTransactionModel) []cashcustody.CashTransaction {
	entries := make([]cashcustody.CashTransaction, len(rows))
	for i := range rows {
		entries[i] = *rows[i].ToDomain()
	}
	return entries
}

// Ensure GormCashTransactionRepository implements CashTransactionRepository
var _ cashcustody.CashTransactionRepository = (*GormCashTransactionRepository)(nil)
