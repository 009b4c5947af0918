package persistence

import (
	"context"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/cashcustody"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCollectorDirectory resolves employee names from the users table
type GormCollectorDirectory struct {
	db *gorm.DB
}

// NewGormCollectorDirectory creates a new GormCollectorDirectory
func NewGormCollectorDirectory(db *gorm.DB) *GormCollectorDirectory {
	return &GormCollectorDirectory{db: db}
}

// DisplayNames returns names keyed by user id; unknown ids are omitted
func (d *GormCollectorDirectory) DisplayNames(ctx context.Context, tenantID uuid.UUID, userIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(userIDs))
	if len(userIDs) == 0 {
		return names, nil
	}

	var rows []models.CollectorUserModel
	if err := d.db.WithContext(ctx).
		Select("id", "username", "display_name").
		Where("tenant_id = ? AND id IN ?", tenantID, userIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		names[rows[i].ID] = rows[i].Name()
	}
	return names, nil
}

// Ensure GormCollectorDirectory implements CollectorDirectory
var _ cashcustody.CollectorDirectory = (*GormCollectorDirectory)(nil)
