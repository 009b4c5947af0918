package handler

import (
	"context"
	"time"

	cashapp "github.com/eduard0708/exits-saas-lms-sub008/internal/application/cashcustody"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/cashcustody"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CollectorLimits is the authority-limit service used by CollectorLimitsHandler
type CollectorLimits interface {
	GetLimits(ctx context.Context, tenantID, collectorID uuid.UUID) (*cashapp.LimitsResponse, error)
	UpdateLimits(ctx context.Context, tenantID, collectorID, updatedBy uuid.UUID, req cashapp.UpdateLimitsRequest) (*cashapp.LimitsResponse, error)
	CanApprove(ctx context.Context, collectorID, tenantID uuid.UUID, amount decimal.Decimal) (cashcustody.AuthorizationDecision, error)
	CanDisburse(ctx context.Context, collectorID, tenantID uuid.UUID, amount decimal.Decimal) (cashcustody.AuthorizationDecision, error)
	CanWaivePenalty(ctx context.Context, collectorID, tenantID uuid.UUID, req cashapp.WaiverCheckRequest) (cashcustody.WaiverDecision, error)
	GetUsage(ctx context.Context, tenantID, collectorID uuid.UUID) (*cashcustody.LimitsUsage, error)
}

// ActionLogs is the collector audit trail used by CollectorLimitsHandler
type ActionLogs interface {
	LogAction(ctx context.Context, tenantID uuid.UUID, req cashapp.LogActionRequest) (*cashapp.ActionLogResponse, error)
	ListActionLogs(ctx context.Context, tenantID uuid.UUID, query cashcustody.ActionLogQuery) ([]cashapp.ActionLogResponse, error)
}

var (
	_ CollectorLimits = (*cashapp.LimitsService)(nil)
	_ ActionLogs      = (*cashapp.ActionLogService)(nil)
)

// CollectorLimitsHandler handles collector authority limits and the
// collector action log
type CollectorLimitsHandler struct {
	BaseHandler
	limits  CollectorLimits
	actions ActionLogs
}

// NewCollectorLimitsHandler creates a new CollectorLimitsHandler
func NewCollectorLimitsHandler(limits CollectorLimits, actions ActionLogs) *CollectorLimitsHandler {
	return &CollectorLimitsHandler{limits: limits, actions: actions}
}

// UpdateLimitsHTTPRequest replaces a collector's limits
type UpdateLimitsHTTPRequest struct {
	MaxApprovalAmount               decimal.Decimal `json:"max_approval_amount" binding:"decimal_gte0" swaggertype:"string" example:"50000"`
	MaxApprovalPerDay               int             `json:"max_approval_per_day" binding:"min=0" example:"10"`
	MaxDisbursementAmount           decimal.Decimal `json:"max_disbursement_amount" binding:"decimal_gte0" swaggertype:"string" example:"100000"`
	DailyDisbursementLimit          decimal.Decimal `json:"daily_disbursement_limit" binding:"decimal_gte0" swaggertype:"string" example:"500000"`
	MonthlyDisbursementLimit        decimal.Decimal `json:"monthly_disbursement_limit" binding:"decimal_gte0" swaggertype:"string" example:"5000000"`
	MaxPenaltyWaiverAmount          decimal.Decimal `json:"max_penalty_waiver_amount" binding:"decimal_gte0" swaggertype:"string" example:"5000"`
	MaxPenaltyWaiverPercent         decimal.Decimal `json:"max_penalty_waiver_percent" binding:"decimal_gte0" swaggertype:"string" example:"50"`
	RequiresManagerApprovalAbove    decimal.Decimal `json:"requires_manager_approval_above" binding:"decimal_gte0" swaggertype:"string" example:"2000"`
	MaxCashCollectionPerTransaction decimal.Decimal `json:"max_cash_collection_per_transaction" binding:"decimal_gte0" swaggertype:"string" example:"50000"`
	IsActive                        *bool           `json:"is_active" example:"true"`
}

// LimitCheckHTTPRequest asks whether an action fits the collector's limits.
// Amount is used by approve and disburse; waive uses the penalty fields.
type LimitCheckHTTPRequest struct {
	Type          string          `json:"type" binding:"required,oneof=approve disburse waive" example:"approve"`
	Amount        decimal.Decimal `json:"amount" binding:"decimal_gte0" swaggertype:"string"`
	PenaltyAmount decimal.Decimal `json:"penalty_amount" binding:"decimal_gte0" swaggertype:"string"`
	WaiverAmount  decimal.Decimal `json:"waiver_amount" binding:"decimal_gte0" swaggertype:"string"`
}

// LogActionHTTPRequest appends an entry to the caller's audit trail
type LogActionHTTPRequest struct {
	CustomerID      string           `json:"customer_id" binding:"omitempty,uuid"`
	ActionType      string           `json:"action_type" binding:"required,max=50" example:"customer_visit"`
	ApplicationID   string           `json:"application_id" binding:"omitempty,uuid"`
	LoanID          string           `json:"loan_id" binding:"omitempty,uuid"`
	PaymentID       string           `json:"payment_id" binding:"omitempty,uuid"`
	Amount          *decimal.Decimal `json:"amount" binding:"omitempty,decimal_gte0" swaggertype:"string"`
	PreviousValue   map[string]any   `json:"previous_value"`
	NewValue        map[string]any   `json:"new_value"`
	Status          string           `json:"status" binding:"omitempty,max=30" example:"success"`
	RejectionReason string           `json:"rejection_reason" binding:"max=500"`
	ApprovedBy      string           `json:"approved_by" binding:"omitempty,uuid"`
	Notes           string           `json:"notes" binding:"max=1000"`
	Geo             *GeoRequest      `json:"geo"`
	DeviceInfo      map[string]any   `json:"device_info"`
}

// ActionLogListQuery filters the audit trail
type ActionLogListQuery struct {
	CollectorID string `form:"collector_id" binding:"omitempty,uuid"`
	ActionType  string `form:"action_type" binding:"max=50"`
	Status      string `form:"status" binding:"max=30"`
	StartDate   string `form:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate     string `form:"end_date" binding:"omitempty,datetime=2006-01-02"`
	Limit       int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

// GetLimits godoc
// @ID           getCollectorLimits
// @Summary      Get a collector's effective limits
// @Description  Returns tenant defaults when the collector has no active limits
// @Tags         collector-limits
// @Produce      json
// @Param        collectorId path string true "Collector ID" format(uuid)
// @Success      200 {object} APIResponse[cashapp.LimitsResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /money-loan/collector-limits/{collectorId} [get]
func (h *CollectorLimitsHandler) GetLimits(c *gin.Context) {
	actor, collectorID, ok := h.collectorParam(c)
	if !ok {
		return
	}
	resp, err := h.limits.GetLimits(c.Request.Context(), actor.TenantID, collectorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// UpdateLimits godoc
// @ID           updateCollectorLimits
// @Summary      Replace a collector's limits
// @Tags         collector-limits
// @Accept       json
// @Produce      json
// @Param        collectorId path string                  true "Collector ID" format(uuid)
// @Param        request     body UpdateLimitsHTTPRequest true "Limits"
// @Success      200 {object} APIResponse[cashapp.LimitsResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /money-loan/collector-limits/{collectorId} [put]
func (h *CollectorLimitsHandler) UpdateLimits(c *gin.Context) {
	actor, collectorID, ok := h.collectorParam(c)
	if !ok {
		return
	}

	var req UpdateLimitsHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationFailed(c, err)
		return
	}

	resp, err := h.limits.UpdateLimits(c.Request.Context(), actor.TenantID, collectorID, actor.UserID, cashapp.UpdateLimitsRequest{
		Values: cashcustody.LimitValues{
			MaxApprovalAmount:               req.MaxApprovalAmount,
			MaxApprovalPerDay:               req.MaxApprovalPerDay,
			MaxDisbursementAmount:           req.MaxDisbursementAmount,
			DailyDisbursementLimit:          req.DailyDisbursementLimit,
			MonthlyDisbursementLimit:        req.MonthlyDisbursementLimit,
			MaxPenaltyWaiverAmount:          req.MaxPenaltyWaiverAmount,
			MaxPenaltyWaiverPercent:         req.MaxPenaltyWaiverPercent,
			RequiresManagerApprovalAbove:    req.RequiresManagerApprovalAbove,
			MaxCashCollectionPerTransaction: req.MaxCashCollectionPerTransaction,
		},
		IsActive: req.IsActive,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetUsage godoc
// @ID           getCollectorLimitsUsage
// @Summary      Today's approvals, disbursements and collections against the limits
// @Tags         collector-limits
// @Produce      json
// @Param        collectorId path string true "Collector ID" format(uuid)
// @Success      200 {object} APIResponse[cashcustody.LimitsUsage]
// @Security     BearerAuth
// @Router       /money-loan/collector-limits/{collectorId}/usage [get]
func (h *CollectorLimitsHandler) GetUsage(c *gin.Context) {
	actor, collectorID, ok := h.collectorParam(c)
	if !ok {
		return
	}
	resp, err := h.limits.GetUsage(c.Request.Context(), actor.TenantID, collectorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Check godoc
// @ID           checkCollectorLimits
// @Summary      Check an approval, disbursement or penalty waiver against the limits
// @Tags         collector-limits
// @Accept       json
// @Produce      json
// @Param        collectorId path string                true "Collector ID" format(uuid)
// @Param        request     body LimitCheckHTTPRequest true "Check"
// @Success      200 {object} APIResponse[cashcustody.AuthorizationDecision]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /money-loan/collector-limits/{collectorId}/check [post]
func (h *CollectorLimitsHandler) Check(c *gin.Context) {
	actor, collectorID, ok := h.collectorParam(c)
	if !ok {
		return
	}

	var req LimitCheckHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationFailed(c, err)
		return
	}

	ctx := c.Request.Context()
	var (
		decision any
		err      error
	)
	switch req.Type {
	case "approve":
		decision, err = h.limits.CanApprove(ctx, collectorID, actor.TenantID, req.Amount)
	case "disburse":
		decision, err = h.limits.CanDisburse(ctx, collectorID, actor.TenantID, req.Amount)
	default:
		decision, err = h.limits.CanWaivePenalty(ctx, collectorID, actor.TenantID, cashapp.WaiverCheckRequest{
			PenaltyAmount: req.PenaltyAmount,
			WaiverAmount:  req.WaiverAmount,
		})
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, decision)
}

// ListActionLogs godoc
// @ID           listCollectorActionLogs
// @Summary      List collector action log entries, newest first
// @Tags         collector-limits
// @Produce      json
// @Param        collector_id query string false "Collector ID" format(uuid)
// @Param        action_type  query string false "Action type"
// @Param        status       query string false "Outcome"
// @Param        start_date   query string false "From date" format(date)
// @Param        end_date     query string false "To date" format(date)
// @Param        limit        query int    false "Maximum rows" default(100)
// @Success      200 {object} APIResponse[[]cashapp.ActionLogResponse]
// @Security     BearerAuth
// @Router       /money-loan/collector-action-logs [get]
func (h *CollectorLimitsHandler) ListActionLogs(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var query ActionLogListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.ValidationFailed(c, err)
		return
	}
	from, err := parseOptionalDate(query.StartDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	to, err := parseOptionalDate(query.EndDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if to != nil {
		// end_date is inclusive
		end := to.Add(24*time.Hour - time.Nanosecond)
		to = &end
	}

	resp, err := h.actions.ListActionLogs(c.Request.Context(), actor.TenantID, cashcustody.ActionLogQuery{
		CollectorID: optionalUUID(query.CollectorID),
		ActionType:  cashcustody.ActionType(query.ActionType),
		Status:      cashcustody.ActionStatus(query.Status),
		From:        from,
		To:          to,
		Limit:       query.Limit,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// LogAction godoc
// @ID           logCollectorAction
// @Summary      Append an entry to the caller's action log
// @Tags         collector-limits
// @Accept       json
// @Produce      json
// @Param        request body LogActionHTTPRequest true "Action"
// @Success      201 {object} APIResponse[cashapp.ActionLogResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /money-loan/collector-action-logs [post]
func (h *CollectorLimitsHandler) LogAction(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req LogActionHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationFailed(c, err)
		return
	}
	geo, err := req.Geo.point()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp, err := h.actions.LogAction(c.Request.Context(), actor.TenantID, cashapp.LogActionRequest{
		CollectorID:     actor.UserID,
		CustomerID:      optionalUUID(req.CustomerID),
		ActionType:      cashcustody.ActionType(req.ActionType),
		ApplicationID:   optionalUUID(req.ApplicationID),
		LoanID:          optionalUUID(req.LoanID),
		PaymentID:       optionalUUID(req.PaymentID),
		Amount:          req.Amount,
		PreviousValue:   req.PreviousValue,
		NewValue:        req.NewValue,
		Status:          cashcustody.ActionStatus(req.Status),
		RejectionReason: req.RejectionReason,
		ApprovedBy:      optionalUUID(req.ApprovedBy),
		Notes:           req.Notes,
		Geo:             geo,
		DeviceInfo:      req.DeviceInfo,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// collectorParam resolves the caller and the :collectorId path parameter
func (h *CollectorLimitsHandler) collectorParam(c *gin.Context) (middleware.Actor, uuid.UUID, bool) {
	actor, ok := h.actor(c)
	if !ok {
		return actor, uuid.Nil, false
	}
	collectorID, err := uuid.Parse(c.Param("collectorId"))
	if err != nil {
		h.BadRequest(c, "Invalid collector ID")
		return actor, uuid.Nil, false
	}
	return actor, collectorID, true
}
