package persistence

import (
	"context"
	"errors"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/cashcustody"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/shared"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCollectorLimitsRepository implements CollectorLimitsRepository using GORM
type GormCollectorLimitsRepository struct {
	db *gorm.DB
}

// NewGormCollectorLimitsRepository creates a new GormCollectorLimitsRepository
func NewGormCollectorLimitsRepository(db *gorm.DB) *GormCollectorLimitsRepository {
	return &GormCollectorLimitsRepository{db: db}
}

// FindByCollector finds the stored limits row of a collector, active or not
func (r *GormCollectorLimitsRepository) FindByCollector(ctx context.Context, tenantID, collectorID uuid.UUID) (*cashcustody.CollectorLimits, error) {
	var model models.CollectorLimitsModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND collector_id = ?", tenantID, collectorID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Upsert inserts the row or replaces the thresholds of the existing one
func (r *GormCollectorLimitsRepository) Upsert(ctx context.Context, limits *cashcustody.CollectorLimits) error {
	model := models.CollectorLimitsModelFromDomain(limits)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "collector_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"max_approval_amount",
			"max_approval_per_day",
			"max_disbursement_amount",
			"daily_disbursement_limit",
			"monthly_disbursement_limit",
			"max_penalty_waiver_amount",
			"max_penalty_waiver_percent",
			"requires_manager_approval_above",
			"max_cash_collection_per_transaction",
			"is_active",
			"updated_by",
			"version",
			"updated_at",
		}),
	}).Create(model).Error
}

// Ensure GormCollectorLimitsRepository implements CollectorLimitsRepository
var _ cashcustody.CollectorLimitsRepository = (*GormCollectorLimitsRepository)(nil)
