package cashcustody

import (
	"time"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ActionType is the kind of collector activity being audited
type ActionType string

const (
	ActionApproveApplication          ActionType = "approve_application"
	ActionRejectApplication           ActionType = "reject_application"
	ActionDisburseLoan                ActionType = "disburse_loan"
	ActionCollectPayment              ActionType = "collect_payment"
	ActionCustomerVisit               ActionType = "customer_visit"
	ActionRequestApplicationReview    ActionType = "request_application_review"
	ActionRequestDisbursementApproval ActionType = "request_disbursement_approval"
	ActionRequestPenaltyWaiver        ActionType = "request_penalty_waiver"
	ActionWaivePenalty                ActionType = "waive_penalty"
	ActionReceiveFloat                ActionType = "receive_float"
	ActionRejectFloat                 ActionType = "reject_float"
	ActionInitiateHandover            ActionType = "initiate_handover"
	ActionHandoverConfirmed           ActionType = "handover_confirmed"
	ActionHandoverRejected            ActionType = "handover_rejected"
)

// IsValid returns true if the action type is known
func (a ActionType) IsValid() bool {
	switch a {
	case ActionApproveApplication, ActionRejectApplication, ActionDisburseLoan,
		ActionCollectPayment, ActionCustomerVisit, ActionRequestApplicationReview,
		ActionRequestDisbursementApproval, ActionRequestPenaltyWaiver, ActionWaivePenalty,
		ActionReceiveFloat, ActionRejectFloat, ActionInitiateHandover,
		ActionHandoverConfirmed, ActionHandoverRejected:
		return true
	}
	return false
}

// ActionStatus is the outcome of an audited action
type ActionStatus string

const (
	ActionStatusSuccess         ActionStatus = "success"
	ActionStatusFailed          ActionStatus = "failed"
	ActionStatusPendingApproval ActionStatus = "pending_approval"
	ActionStatusRejected        ActionStatus = "rejected"
)

// IsValid returns true if the status is known
func (s ActionStatus) IsValid() bool {
	switch s {
	case ActionStatusSuccess, ActionStatusFailed, ActionStatusPendingApproval, ActionStatusRejected:
		return true
	}
	return false
}

// CollectorActionLog is an append-only audit entry of a collector's activity.
// Successful approve_application entries feed the daily approval count.
type CollectorActionLog struct {
	shared.BaseEntity
	TenantID        uuid.UUID
	CollectorID     uuid.UUID
	CustomerID      *uuid.UUID
	ActionType      ActionType
	ApplicationID   *uuid.UUID
	LoanID          *uuid.UUID
	PaymentID       *uuid.UUID
	Amount          *decimal.Decimal
	PreviousValue   map[string]any
	NewValue        map[string]any
	Status          ActionStatus
	RejectionReason string
	ApprovedBy      *uuid.UUID
	Notes           string
	Geo             *GeoPoint
	DeviceInfo      map[string]any
}

// NewCollectorActionLog creates an audit entry.
func NewCollectorActionLog(tenantID, collectorID uuid.UUID, actionType ActionType, status ActionStatus) (*CollectorActionLog, error) {
	if collectorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COLLECTOR", "Collector ID cannot be empty")
	}
	if !actionType.IsValid() {
		return nil, shared.NewDomainError("INVALID_ACTION_TYPE", "Unknown action type: "+string(actionType))
	}
	if status == "" {
		status = ActionStatusSuccess
	}
	if !status.IsValid() {
		return nil, shared.NewDomainError("INVALID_ACTION_STATUS", "Unknown action status: "+string(status))
	}
	return &CollectorActionLog{
		BaseEntity:  shared.NewBaseEntity(),
		TenantID:    tenantID,
		CollectorID: collectorID,
		ActionType:  actionType,
		Status:      status,
	}, nil
}

// WithAmount sets the monetary amount of the action.
func (l *CollectorActionLog) WithAmount(amount decimal.Decimal) *CollectorActionLog {
	l.Amount = &amount
	return l
}

// ActionLogQuery filters the audit trail.
type ActionLogQuery struct {
	CollectorID *uuid.UUID
	ActionType  ActionType
	Status      ActionStatus
	From        *time.Time
	To          *time.Time
	Limit       int
}

// DefaultActionLogLimit is the page size when none is given.
const DefaultActionLogLimit = 100
