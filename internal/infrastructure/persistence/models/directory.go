package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CollectorUserModel is a read-only projection of the identity service's users table.
// The ledger never writes to it.
type CollectorUserModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Username    string    `gorm:"type:varchar(100);not null"`
	DisplayName string    `gorm:"type:varchar(200)"`
	Email       string    `gorm:"type:varchar(200)"`
}

// TableName returns the table name for GORM
func (CollectorUserModel) TableName() string {
	return "users"
}

// Name returns the display name, falling back to the username.
func (m *CollectorUserModel) Name() string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.Username
}

// LoanRecordModel is a read-only projection of the loan service's loans table.
type LoanRecordModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	LoanNumber       string          `gorm:"type:varchar(50);not null"`
	PrincipalAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Status           string          `gorm:"type:varchar(30);not null"`
	DisbursedBy      *uuid.UUID      `gorm:"type:uuid;index"`
	DisbursementDate *time.Time      `gorm:"index"`
}

// TableName returns the table name for GORM
func (LoanRecordModel) TableName() string {
	return "money_loan_loans"
}
