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
)

// GormCashFloatRepository implements CashFloatRepository using GORM
type GormCashFloatRepository struct {
	db *gorm.DB
}

// NewGormCashFloatRepository creates a new GormCashFloatRepository
func NewGormCashFloatRepository(db *gorm.DB) *GormCashFloatRepository {
	return &GormCashFloatRepository{db: db}
}

// FindByID finds a float or handover record within a tenant
func (r *GormCashFloatRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*cashcustody.CashFloat, error) {
	var model models.CashFloatModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActiveIssuance finds the pending or confirmed issuance of a collector-day
func (r *GormCashFloatRepository) FindActiveIssuance(ctx context.Context, tenantID, collectorID uuid.UUID, date time.Time) (*cashcustody.CashFloat, error) {
	var model models.CashFloatModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND collector_id = ? AND float_date = ? AND type = ?",
			tenantID, collectorID, cashcustody.NormalizeDate(date), cashcustody.FloatTypeIssuance).
		Where("status IN ?", []cashcustody.FloatStatus{cashcustody.FloatStatusPending, cashcustody.FloatStatusConfirmed}).
		Order("created_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Find lists records matching the query
func (r *GormCashFloatRepository) Find(ctx context.Context, tenantID uuid.UUID, q cashcustody.FloatQuery) ([]cashcustody.CashFloat, error) {
	query := r.db.WithContext(ctx).Model(&models.CashFloatModel{}).Where("tenant_id = ?", tenantID)

	if q.Type != "" {
		query = query.Where("type = ?", q.Type)
	}
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if q.CollectorID != nil {
		query = query.Where("collector_id = ?", *q.CollectorID)
	}
	if q.CashierID != nil {
		query = query.Where("cashier_id = ?", *q.CashierID)
	}
	if q.From != nil {
		query = query.Where("float_date >= ?", cashcustody.NormalizeDate(*q.From))
	}
	if q.To != nil {
		query = query.Where("float_date <= ?", cashcustody.NormalizeDate(*q.To))
	}
	if q.OldestFirst {
		query = query.Order("created_at ASC")
	} else {
		query = query.Order("created_at DESC")
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var rows []models.CashFloatModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	floats := make([]cashcustody.CashFloat, len(rows))
	for i := range rows {
		floats[i] = *rows[i].ToDomain()
	}
	return floats, nil
}

// Create inserts a new record. A second active issuance for the same
// collector-day is refused as FLOAT_ALREADY_ISSUED.
func (r *GormCashFloatRepository) Create(ctx context.Context, float *cashcustody.CashFloat) error {
	err := r.db.WithContext(ctx).Create(models.CashFloatModelFromDomain(float)).Error
	if err != nil && float.Type == cashcustody.FloatTypeIssuance && isActiveIssuanceConflict(err) {
		return cashcustody.NewFloatAlreadyIssuedError(float.FloatDate, cashcustody.FloatStatusPending)
	}
	return err
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormCashFloatRepository) SaveWithLock(ctx context.Context, float *cashcustody.CashFloat) error {
	model := models.CashFloatModelFromDomain(float)
	result := r.db.WithContext(ctx).
		Model(&models.CashFloatModel{}).
		Where("id = ? AND version = ?", float.ID, float.Version-1).
		Updates(map[string]any{
			"status":                 model.Status,
			"actual_handover":        model.ActualHandover,
			"variance":               model.Variance,
			"confirmation_latitude":  model.ConfirmationLatitude,
			"confirmation_longitude": model.ConfirmationLongitude,
			"collector_confirmed_at": model.CollectorConfirmedAt,
			"cashier_confirmed_at":   model.CashierConfirmedAt,
			"rejection_reason":       model.RejectionReason,
			"notes":                  model.Notes,
			"version":                model.Version,
			"updated_at":             model.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("OPTIMISTIC_LOCK_FAILED", "Cash float was modified by another transaction")
	}
	return nil
}

// Ensure GormCashFloatRepository implements CashFloatRepository
var _ cashcustody.CashFloatRepository = (*GormCashFloatRepository)(nil)
