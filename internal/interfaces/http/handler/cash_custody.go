package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	cashapp "github.com/eduard0708/exits-saas-lms-sub008/internal/application/cashcustody"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/cashcustody"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/infrastructure/auth"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// XLSXContentType is the media type of exported workbooks
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// CashLedger is the collector cash ledger used by CashCustodyHandler
type CashLedger interface {
	IssueFloat(ctx context.Context, tenantID, cashierID uuid.UUID, req cashapp.IssueFloatRequest) (*cashapp.FloatResponse, error)
	ConfirmFloatReceipt(ctx context.Context, tenantID, collectorID uuid.UUID, req cashapp.ConfirmFloatRequest) (*cashapp.BalanceResponse, error)
	RejectFloatReceipt(ctx context.Context, tenantID, collectorID uuid.UUID, req cashapp.RejectFloatRequest) (*cashapp.FloatResponse, error)
	RecordCollection(ctx context.Context, tenantID, collectorID uuid.UUID, req cashapp.RecordCollectionRequest) (*cashapp.MovementResponse, error)
	RecordDisbursement(ctx context.Context, tenantID, collectorID uuid.UUID, req cashapp.RecordDisbursementRequest) (*cashapp.MovementResponse, error)
	InitiateHandover(ctx context.Context, tenantID, collectorID uuid.UUID, req cashapp.InitiateHandoverRequest) (*cashapp.FloatResponse, error)
	ConfirmHandover(ctx context.Context, tenantID, cashierID uuid.UUID, req cashapp.ConfirmHandoverRequest) (*cashapp.HandoverResult, error)
	ConfirmHandoverByID(ctx context.Context, tenantID, cashierID, handoverID uuid.UUID, req cashapp.HandoverDecisionRequest) (*cashapp.HandoverResult, error)
	GetCurrentBalance(ctx context.Context, tenantID, collectorID uuid.UUID, date *time.Time) (*cashapp.BalanceResponse, error)
	GetCashFlowHistory(ctx context.Context, tenantID, collectorID uuid.UUID, filter cashapp.HistoryFilter) (*cashapp.HistoryResponse, error)
	GetCollectorsCashStatus(ctx context.Context, tenantID uuid.UUID, date *time.Time) ([]cashapp.CollectorStatusResponse, error)
	GetPendingHandovers(ctx context.Context, tenantID uuid.UUID, collectorID *uuid.UUID) ([]cashapp.FloatResponse, error)
	GetPendingFloatsForCashier(ctx context.Context, tenantID, cashierID uuid.UUID) ([]cashapp.FloatResponse, error)
	GetPendingFloatsForCollector(ctx context.Context, tenantID, collectorID uuid.UUID) ([]cashapp.FloatResponse, error)
	GetFloatHistory(ctx context.Context, tenantID uuid.UUID, filter cashapp.FloatHistoryFilter) ([]cashapp.FloatResponse, error)
	GetHandoverDetails(ctx context.Context, tenantID, viewerID, handoverID uuid.UUID, canReadAll bool) (*cashapp.FloatResponse, error)
	ExportDailyReport(ctx context.Context, tenantID uuid.UUID, date *time.Time) ([]byte, string, error)
}

// Ensure the application service satisfies CashLedger
var _ CashLedger = (*cashapp.CashCustodyService)(nil)

// CashCustodyHandler handles the collector cash custody endpoints
type CashCustodyHandler struct {
	BaseHandler
	ledger CashLedger
}

// NewCashCustodyHandler creates a new CashCustodyHandler
func NewCashCustodyHandler(ledger CashLedger) *CashCustodyHandler {
	return &CashCustodyHandler{ledger: ledger}
}

// GeoRequest is the device position captured with a cash event
type GeoRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required,latitude" example:"14.5995"`
	Longitude *float64 `json:"longitude" binding:"required,longitude" example:"120.9842"`
}

func (g *GeoRequest) point() (*cashcustody.GeoPoint, error) {
	if g == nil {
		return nil, nil
	}
	return cashcustody.NewGeoPoint(*g.Latitude, *g.Longitude)
}

// IssueFloatHTTPRequest is the cashier's morning float for a collector
//
//	@Description	Request body for issuing a float
type IssueFloatHTTPRequest struct {
	CollectorID string           `json:"collector_id" binding:"required,uuid" example:"7c0d5e0c-1b1e-4a4a-9a43-9b0b1e3f6a10"`
	Amount      decimal.Decimal  `json:"amount" binding:"required,decimal_gt0" swaggertype:"string" example:"5000.00"`
	DailyCap    *decimal.Decimal `json:"daily_cap" binding:"omitempty,decimal_gte0" swaggertype:"string" example:"20000.00"`
	FloatDate   string           `json:"float_date" binding:"omitempty,datetime=2006-01-02" example:"2026-03-14"`
	Geo         *GeoRequest      `json:"geo"`
	Notes       string           `json:"notes" binding:"max=500"`
}

// ConfirmFloatHTTPRequest accepts or refuses an issued float.
// Accept defaults to true.
type ConfirmFloatHTTPRequest struct {
	FloatID string      `json:"float_id" binding:"required,uuid"`
	Accept  *bool       `json:"accept" example:"true"`
	Reason  string      `json:"reason" binding:"max=500"`
	Geo     *GeoRequest `json:"geo"`
}

// RecordCollectionHTTPRequest records cash collected from a borrower
type RecordCollectionHTTPRequest struct {
	Amount             decimal.Decimal `json:"amount" binding:"required,decimal_gt0" swaggertype:"string" example:"1500.00"`
	LoanID             string          `json:"loan_id" binding:"omitempty,uuid"`
	PaymentID          string          `json:"payment_id" binding:"omitempty,uuid"`
	Geo                *GeoRequest     `json:"geo"`
	Notes              string          `json:"notes" binding:"max=500"`
	LocalTransactionID string          `json:"local_transaction_id" binding:"max=100" example:"device-42-000017"`
}

// RecordDisbursementHTTPRequest records cash released to a borrower
type RecordDisbursementHTTPRequest struct {
	Amount             decimal.Decimal `json:"amount" binding:"required,decimal_gt0" swaggertype:"string" example:"4000.00"`
	LoanID             string          `json:"loan_id" binding:"required,uuid"`
	Geo                *GeoRequest     `json:"geo"`
	Notes              string          `json:"notes" binding:"max=500"`
	LocalTransactionID string          `json:"local_transaction_id" binding:"max=100"`
}

// InitiateHandoverHTTPRequest is the collector's end-of-day declaration
type InitiateHandoverHTTPRequest struct {
	ActualHandover decimal.Decimal `json:"actual_handover" binding:"required,decimal_gte0" swaggertype:"string" example:"2500.00"`
	Geo            *GeoRequest     `json:"geo"`
	Notes          string          `json:"notes" binding:"max=500"`
}

// ConfirmHandoverHTTPRequest is the cashier's count of a handover
type ConfirmHandoverHTTPRequest struct {
	HandoverID   string          `json:"handover_id" binding:"required,uuid"`
	ActualAmount decimal.Decimal `json:"actual_amount" binding:"required,decimal_gte0" swaggertype:"string" example:"2490.00"`
	Geo          *GeoRequest     `json:"geo"`
	Notes        string          `json:"notes" binding:"max=500"`
}

// HandoverDecisionHTTPRequest confirms or rejects a handover by id.
// A confirmation without actual_amount accepts the declared amount.
type HandoverDecisionHTTPRequest struct {
	Confirmed       bool             `json:"confirmed" example:"true"`
	ActualAmount    *decimal.Decimal `json:"actual_amount" binding:"omitempty,decimal_gte0" swaggertype:"string"`
	RejectionReason string           `json:"rejection_reason" binding:"max=500"`
	Geo             *GeoRequest      `json:"geo"`
	Notes           string           `json:"notes" binding:"max=500"`
}

// BalanceQuery selects a collector-day
type BalanceQuery struct {
	CollectorID string `form:"collector_id" binding:"omitempty,uuid"`
	Date        string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

// HistoryQuery selects a page of ledger entries
type HistoryQuery struct {
	CollectorID     string `form:"collector_id" binding:"omitempty,uuid"`
	StartDate       string `form:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate         string `form:"end_date" binding:"omitempty,datetime=2006-01-02"`
	TransactionType string `form:"transaction_type" binding:"max=32"`
	Page            int    `form:"page" binding:"omitempty,min=1"`
	Limit           int    `form:"limit" binding:"omitempty,min=1,max=200"`
}

// FloatHistoryQuery filters the handshake records
type FloatHistoryQuery struct {
	CollectorID string `form:"collector_id" binding:"omitempty,uuid"`
	CashierID   string `form:"cashier_id" binding:"omitempty,uuid"`
	Type        string `form:"type" binding:"omitempty,oneof=issuance handover"`
	Status      string `form:"status" binding:"omitempty,oneof=pending confirmed rejected"`
	StartDate   string `form:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate     string `form:"end_date" binding:"omitempty,datetime=2006-01-02"`
	Limit       int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

// IssueFloat godoc
// @ID           issueCashFloat
// @Summary      Issue a morning float
// @Description  Hand a collector their starting cash for the business date
// @Tags         cash
// @Accept       json
// @Produce      json
// @Param        request body IssueFloatHTTPRequest true "Float issuance"
// @Success      201 {object} APIResponse[cashapp.FloatResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /money-loan/cash/issue-float [post]
func (h *CashCustodyHandler) IssueFloat(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req IssueFloatHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationFailed(c, err)
		return
	}
	geo, err := req.Geo.point()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	floatDate, err := parseOptionalDate(req.FloatDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp, err := h.ledger.IssueFloat(c.Request.Context(), actor.TenantID, actor.UserID, cashapp.IssueFloatRequest{
		CollectorID: uuid.MustParse(req.CollectorID),
		Amount:      req.Amount,
		DailyCap:    req.DailyCap,
		FloatDate:   floatDate,
		Geo:         geo,
		Notes:       req.Notes,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// ConfirmFloat godoc
// @ID           confirmCashFloat
// @Summary      Confirm or reject a received float
// @Tags         cash
// @Accept       json
// @Produce      json
// @Param        request body ConfirmFloatHTTPRequest true "Float decision"
// @Success      200 {object} APIResponse[cashapp.BalanceResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /money-loan/cash/confirm-float [post]
func (h *CashCustodyHandler) ConfirmFloat(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req ConfirmFloatHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationFailed(c, err)
		return
	}
	geo, err := req.Geo.point()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	floatID := uuid.MustParse(req.FloatID)
	ctx := c.Request.Context()

	if req.Accept != nil && !*req.Accept {
		resp, err := h.ledger.RejectFloatReceipt(ctx, actor.TenantID, actor.UserID, cashapp.RejectFloatRequest{
			FloatID: floatID,
			Reason:  req.Reason,
			Geo:     geo,
		})
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, resp)
		return
	}

	resp, err := h.ledger.ConfirmFloatReceipt(ctx, actor.TenantID, actor.UserID, cashapp.ConfirmFloatRequest{
		FloatID: floatID,
		Geo:     geo,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RecordCollection godoc
// @ID           recordCashCollection
// @Summary      Record a collection
// @Description  Adds borrower cash to the collector's balance. Replays of a local_transaction_id return the current balance with duplicate=true.
// @Tags         cash
// @Accept       json
// @Produce      json
// @Param        request body RecordCollectionHTTPRequest true "Collection"
// @Success      200 {object} APIResponse[cashapp.MovementResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /money-loan/cash/record-collection [post]
func (h *CashCustodyHandler) RecordCollection(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req RecordCollectionHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationFailed(c, err)
		return
	}
	geo, err := req.Geo.point()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp, err := h.ledger.RecordCollection(c.Request.Context(), actor.TenantID, actor.UserID, cashapp.RecordCollectionRequest{
		Amount:             req.Amount,
		LoanID:             optionalUUID(req.LoanID),
		PaymentID:          optionalUUID(req.PaymentID),
		Geo:                geo,
		Notes:              req.Notes,
		LocalTransactionID: req.LocalTransactionID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RecordDisbursement godoc
// @ID           recordCashDisbursement
// @Summary      Record a disbursement
// @Tags         cash
// @Accept       json
// @Produce      json
// @Param        request body RecordDisbursementHTTPRequest true "Disbursement"
// @Success      200 {object} APIResponse[cashapp.MovementResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /money-loan/cash/record-disbursement [post]
func (h *CashCustodyHandler) RecordDisbursement(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req RecordDisbursementHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationFailed(c, err)
		return
	}
	geo, err := req.Geo.point()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp, err := h.ledger.RecordDisbursement(c.Request.Context(), actor.TenantID, actor.UserID, cashapp.RecordDisbursementRequest{
		Amount:             req.Amount,
		LoanID:             uuid.MustParse(req.LoanID),
		Geo:                geo,
		Notes:              req.Notes,
		LocalTransactionID: req.LocalTransactionID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// InitiateHandover godoc
// @ID           initiateCashHandover
// @Summary      Declare the end-of-day handover
// @Tags         cash
// @Accept       json
// @Produce      json
// @Param        request body InitiateHandoverHTTPRequest true "Handover declaration"
// @Success      201 {object} APIResponse[cashapp.FloatResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /money-loan/cash/initiate-handover [post]
func (h *CashCustodyHandler) InitiateHandover(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req InitiateHandoverHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationFailed(c, err)
		return
	}
	geo, err := req.Geo.point()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp, err := h.ledger.InitiateHandover(c.Request.Context(), actor.TenantID, actor.UserID, cashapp.InitiateHandoverRequest{
		ActualHandover: req.ActualHandover,
		Geo:            geo,
		Notes:          req.Notes,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// ConfirmHandover godoc
// @ID           confirmCashHandover
// @Summary      Count and close a pending handover
// @Tags         cash
// @Accept       json
// @Produce      json
// @Param        request body ConfirmHandoverHTTPRequest true "Cashier count"
// @Success      200 {object} APIResponse[cashapp.HandoverResult]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /money-loan/cash/confirm-handover [put]
func (h *CashCustodyHandler) ConfirmHandover(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req ConfirmHandoverHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationFailed(c, err)
		return
	}
	geo, err := req.Geo.point()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp, err := h.ledger.ConfirmHandover(c.Request.Context(), actor.TenantID, actor.UserID, cashapp.ConfirmHandoverRequest{
		HandoverID:      uuid.MustParse(req.HandoverID),
		ActualAmount:    req.ActualAmount,
		Geo:             geo,
		Notes:           req.Notes,
		AllowAnyCashier: middleware.HasPermission(c, auth.PermCashManage),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// DecideHandover godoc
// @ID           decideCashHandover
// @Summary      Confirm or reject a handover by id
// @Tags         cash
// @Accept       json
// @Produce      json
// @Param        id      path string                      true "Handover ID" format(uuid)
// @Param        request body HandoverDecisionHTTPRequest true "Cashier decision"
// @Success      200 {object} APIResponse[cashapp.HandoverResult]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /money-loan/cash/confirm-handover/{id} [post]
func (h *CashCustodyHandler) DecideHandover(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	handoverID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid handover ID")
		return
	}

	var req HandoverDecisionHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationFailed(c, err)
		return
	}
	geo, err := req.Geo.point()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp, err := h.ledger.ConfirmHandoverByID(c.Request.Context(), actor.TenantID, actor.UserID, handoverID, cashapp.HandoverDecisionRequest{
		Confirmed:       req.Confirmed,
		ActualAmount:    req.ActualAmount,
		RejectionReason: req.RejectionReason,
		Geo:             geo,
		Notes:           req.Notes,
		AllowAnyCashier: middleware.HasPermission(c, auth.PermCashManage),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetBalance godoc
// @ID           getCashBalance
// @Summary      Get a collector-day balance
// @Description  Collectors read their own day; reading another collector needs money-loan:cash:read
// @Tags         cash
// @Produce      json
// @Param        collector_id query string false "Collector ID" format(uuid)
// @Param        date         query string false "Business date" format(date)
// @Success      200 {object} APIResponse[cashapp.BalanceResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /money-loan/cash/balance [get]
func (h *CashCustodyHandler) GetBalance(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var query BalanceQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.ValidationFailed(c, err)
		return
	}
	collectorID, ok := h.resolveCollector(c, actor, query.CollectorID)
	if !ok {
		return
	}
	h.respondBalance(c, actor.TenantID, collectorID, query.Date)
}

// GetCollectorBalance godoc
// @ID           getCollectorCashBalance
// @Summary      Get another collector's balance
// @Tags         cash
// @Produce      json
// @Param        id   path  string true  "Collector ID" format(uuid)
// @Param        date query string false "Business date" format(date)
// @Success      200 {object} APIResponse[cashapp.BalanceResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /money-loan/cash/collector/{id}/balance [get]
func (h *CashCustodyHandler) GetCollectorBalance(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	collectorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid collector ID")
		return
	}
	var query BalanceQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.ValidationFailed(c, err)
		return
	}
	h.respondBalance(c, actor.TenantID, collectorID, query.Date)
}

func (h *CashCustodyHandler) respondBalance(c *gin.Context, tenantID, collectorID uuid.UUID, rawDate string) {
	date, err := parseOptionalDate(rawDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	resp, err := h.ledger.GetCurrentBalance(c.Request.Context(), tenantID, collectorID, date)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetHistory godoc
// @ID           getCashHistory
// @Summary      List ledger entries
// @Description  Newest first. Collectors read their own entries; another collector needs money-loan:cash:read
// @Tags         cash
// @Produce      json
// @Param        collector_id     query string false "Collector ID" format(uuid)
// @Param        start_date       query string false "From business date" format(date)
// @Param        end_date         query string false "To business date" format(date)
// @Param        transaction_type query string false "Entry type"
// @Param        page             query int    false "Page number" default(1)
// @Param        limit            query int    false "Page size" default(50) maximum(200)
// @Success      200 {object} APIResponse[[]cashapp.TransactionResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /money-loan/cash/history [get]
func (h *CashCustodyHandler) GetHistory(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var query HistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.ValidationFailed(c, err)
		return
	}
	collectorID, ok := h.resolveCollector(c, actor, query.CollectorID)
	if !ok {
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

	resp, err := h.ledger.GetCashFlowHistory(c.Request.Context(), actor.TenantID, collectorID, cashapp.HistoryFilter{
		From:     from,
		To:       to,
		Type:     cashcustody.TransactionType(query.TransactionType),
		Page:     query.Page,
		PageSize: query.Limit,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, resp.Items, resp.Total, resp.Page, resp.PageSize)
}

// GetCollectorsStatus godoc
// @ID           getCollectorsCashStatus
// @Summary      Cashier dashboard of every collector-day
// @Tags         cash
// @Produce      json
// @Param        date query string false "Business date" format(date)
// @Success      200 {object} APIResponse[[]cashapp.CollectorStatusResponse]
// @Security     BearerAuth
// @Router       /money-loan/cash/collectors-status [get]
func (h *CashCustodyHandler) GetCollectorsStatus(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	date, err := parseOptionalDate(c.Query("date"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	resp, err := h.ledger.GetCollectorsCashStatus(c.Request.Context(), actor.TenantID, date)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetPendingHandovers godoc
// @ID           getPendingCashHandovers
// @Summary      List handovers waiting for a cashier, oldest first
// @Tags         cash
// @Produce      json
// @Param        collector_id query string false "Collector ID" format(uuid)
// @Success      200 {object} APIResponse[[]cashapp.FloatResponse]
// @Security     BearerAuth
// @Router       /money-loan/cash/pending-handovers [get]
func (h *CashCustodyHandler) GetPendingHandovers(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var collectorID *uuid.UUID
	if raw := c.Query("collector_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid collector ID")
			return
		}
		collectorID = &id
	}
	resp, err := h.ledger.GetPendingHandovers(c.Request.Context(), actor.TenantID, collectorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetPendingConfirmations godoc
// @ID           getPendingCashConfirmations
// @Summary      List floats the calling cashier issued that are still unconfirmed
// @Tags         cash
// @Produce      json
// @Success      200 {object} APIResponse[[]cashapp.FloatResponse]
// @Security     BearerAuth
// @Router       /money-loan/cash/pending-confirmations [get]
func (h *CashCustodyHandler) GetPendingConfirmations(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	resp, err := h.ledger.GetPendingFloatsForCashier(c.Request.Context(), actor.TenantID, actor.UserID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetPendingFloats godoc
// @ID           getPendingCashFloats
// @Summary      List floats waiting for the calling collector
// @Tags         cash
// @Produce      json
// @Success      200 {object} APIResponse[[]cashapp.FloatResponse]
// @Security     BearerAuth
// @Router       /money-loan/cash/pending-floats [get]
func (h *CashCustodyHandler) GetPendingFloats(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	resp, err := h.ledger.GetPendingFloatsForCollector(c.Request.Context(), actor.TenantID, actor.UserID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetHandover godoc
// @ID           getCashHandover
// @Summary      Get one handover
// @Description  Collectors see their own handovers; money-loan:cash:read sees all
// @Tags         cash
// @Produce      json
// @Param        id path string true "Handover ID" format(uuid)
// @Success      200 {object} APIResponse[cashapp.FloatResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /money-loan/cash/handover/{id} [get]
func (h *CashCustodyHandler) GetHandover(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	handoverID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid handover ID")
		return
	}
	canReadAll := middleware.HasPermission(c, auth.PermCashRead)
	resp, err := h.ledger.GetHandoverDetails(c.Request.Context(), actor.TenantID, actor.UserID, handoverID, canReadAll)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetFloatHistory godoc
// @ID           getCashFloatHistory
// @Summary      List issuances and handovers
// @Tags         cash
// @Produce      json
// @Param        collector_id query string false "Collector ID" format(uuid)
// @Param        cashier_id   query string false "Cashier ID" format(uuid)
// @Param        type         query string false "issuance or handover"
// @Param        status       query string false "pending, confirmed or rejected"
// @Param        start_date   query string false "From business date" format(date)
// @Param        end_date     query string false "To business date" format(date)
// @Param        limit        query int    false "Maximum rows"
// @Success      200 {object} APIResponse[[]cashapp.FloatResponse]
// @Security     BearerAuth
// @Router       /money-loan/cash/float-history [get]
func (h *CashCustodyHandler) GetFloatHistory(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var query FloatHistoryQuery
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

	resp, err := h.ledger.GetFloatHistory(c.Request.Context(), actor.TenantID, cashapp.FloatHistoryFilter{
		CollectorID: optionalUUID(query.CollectorID),
		CashierID:   optionalUUID(query.CashierID),
		Type:        cashcustody.FloatType(query.Type),
		Status:      cashcustody.FloatStatus(query.Status),
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

// ExportDailyReport godoc
// @ID           exportCashDailyReport
// @Summary      Download the daily reconciliation workbook
// @Tags         cash
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        date query string false "Business date" format(date)
// @Success      200 {file} file
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /money-loan/cash/reports/daily [get]
func (h *CashCustodyHandler) ExportDailyReport(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	date, err := parseOptionalDate(c.Query("date"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	content, filename, err := h.ledger.ExportDailyReport(c.Request.Context(), actor.TenantID, date)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, XLSXContentType, content)
}

// resolveCollector picks the collector a read is about. Reading someone
// else's day needs money-loan:cash:read.
func (h *CashCustodyHandler) resolveCollector(c *gin.Context, actor middleware.Actor, raw string) (uuid.UUID, bool) {
	if raw == "" {
		return actor.UserID, true
	}
	collectorID, err := uuid.Parse(raw)
	if err != nil {
		h.BadRequest(c, "Invalid collector ID")
		return uuid.Nil, false
	}
	if collectorID != actor.UserID && !middleware.HasPermission(c, auth.PermCashRead) {
		h.Forbidden(c, "Reading another collector's cash requires "+auth.PermCashRead)
		return uuid.Nil, false
	}
	return collectorID, true
}
