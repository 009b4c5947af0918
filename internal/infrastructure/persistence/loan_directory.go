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

// GormLoanDirectory reads the loan subsystem's tables for the cash ledger
type GormLoanDirectory struct {
	db *gorm.DB
}

// NewGormLoanDirectory creates a new GormLoanDirectory
func NewGormLoanDirectory(db *gorm.DB) *GormLoanDirectory {
	return &GormLoanDirectory{db: db}
}

// Exists reports whether the loan belongs to the tenant
func (d *GormLoanDirectory) Exists(ctx context.Context, tenantID, loanID uuid.UUID) (bool, error) {
	var count int64
	if err := d.db.WithContext(ctx).
		Model(&models.LoanRecordModel{}).
		Where("tenant_id = ? AND id = ?", tenantID, loanID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// LoanNumbers resolves display numbers for the given loans; unknown ids are omitted
func (d *GormLoanDirectory) LoanNumbers(ctx context.Context, tenantID uuid.UUID, loanIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	result := make(map[uuid.UUID]string, len(loanIDs))
	if len(loanIDs) == 0 {
		return result, nil
	}

	var rows []models.LoanRecordModel
	if err := d.db.WithContext(ctx).
		Select("id", "loan_number").
		Where("tenant_id = ? AND id IN ?", tenantID, loanIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.ID] = row.LoanNumber
	}
	return result, nil
}

// DisbursementTotals counts and sums the principal of loans a collector disbursed over [from, to)
func (d *GormLoanDirectory) DisbursementTotals(ctx context.Context, tenantID, collectorID uuid.UUID, from, to time.Time) (cashcustody.ActivityTotals, error) {
	var result struct {
		Count int64
		Total decimal.Decimal
	}
	err := d.db.WithContext(ctx).
		Model(&models.LoanRecordModel{}).
		Select("COUNT(*) as count, COALESCE(SUM(principal_amount), 0) as total").
		Where("tenant_id = ? AND disbursed_by = ?", tenantID, collectorID).
		Where("disbursement_date >= ? AND disbursement_date < ?", from, to).
		Scan(&result).Error
	if err != nil {
		return cashcustody.ActivityTotals{}, err
	}
	return cashcustody.ActivityTotals{Count: result.Count, Total: result.Total}, nil
}

// Ensure GormLoanDirectory implements LoanDirectory
var _ cashcustody.LoanDirectory = (*GormLoanDirectory)(nil)
