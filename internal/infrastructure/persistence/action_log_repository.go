package persistence

import (
	"context"
	"time"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/cashcustody"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormActionLogRepository implements ActionLogRepository using GORM
type GormActionLogRepository struct {
	db *gorm.DB
}

// NewGormActionLogRepository creates a new GormActionLogRepository
func NewGormActionLogRepository(db *gorm.DB) *GormActionLogRepository {
	return &GormActionLogRepository{db: db}
}

// Append inserts an audit entry
func (r *GormActionLogRepository) Append(ctx context.Context, entry *cashcustody.CollectorActionLog) error {
	return r.db.WithContext(ctx).Create(models.CollectorActionLogModelFromDomain(entry)).Error
}

// Totals counts and sums entries of one type and status over [from, to)
func (r *GormActionLogRepository) Totals(ctx context.Context, tenantID, collectorID uuid.UUID, actionType cashcustody.ActionType, status cashcustody.ActionStatus, from, to time.Time) (cashcustody.ActivityTotals, error) {
	var result struct {
		Count int64
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.CollectorActionLogModel{}).
		Select("COUNT(*) as count, COALESCE(SUM(amount), 0) as total").
		Where("tenant_id = ? AND collector_id = ? AND action_type = ? AND status = ?", tenantID, collectorID, actionType, status).
		Where("created_at >= ? AND created_at < ?", from, to).
		Scan(&result).Error
	if err != nil {
		return cashcustody.ActivityTotals{}, err
	}
	return cashcustody.ActivityTotals{Count: result.Count, Total: result.Total}, nil
}

// Find lists entries matching the query, newest first
func (r *GormActionLogRepository) Find(ctx context.Context, tenantID uuid.UUID, q cashcustody.ActionLogQuery) ([]cashcustody.CollectorActionLog, error) {
	query := r.db.WithContext(ctx).Model(&models.CollectorActionLogModel{}).Where("tenant_id = ?", tenantID)

	if q.CollectorID != nil {
		query = query.Where("collector_id = ?", *q.CollectorID)
	}
	if q.ActionType != "" {
		query = query.Where("action_type = ?", q.ActionType)
	}
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if q.From != nil {
		query = query.Where("created_at >= ?", *q.From)
	}
	if q.To != nil {
		query = query.Where("created_at <= ?", *q.To)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = cashcustody.DefaultActionLogLimit
	}

	var rows []models.CollectorActionLogModel
	if err := query.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}

	logs := make([]cashcustody.CollectorActionLog, len(rows))
	for i := range rows {
		logs[i] = *rows[i].ToDomain()
	}
	return logs, nil
}

// Ensure GormActionLogRepository implements ActionLogRepository
var _ cashcustody.ActionLogRepository = (*GormActionLogRepository)(nil)
