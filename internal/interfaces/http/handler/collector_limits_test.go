package handler

import (
	"net/http"
	"testing"
	"time"

	cashapp "github.com/eduard0708/exits-saas-lms-sub008/internal/application/cashcustody"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/cashcustody"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/infrastructure/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupLimitsRouter(caller testCaller) (*gin.Engine, *MockCollectorLimits, *MockActionLogs) {
	limits := new(MockCollectorLimits)
	actions := new(MockActionLogs)
	h := NewCollectorLimitsHandler(limits, actions)

	engine := newTestEngine(caller)
	api := engine.Group("/api/v1/money-loan")
	api.GET("/collector-limits/:collectorId", h.GetLimits)
	api.PUT("/collector-limits/:collectorId", h.UpdateLimits)
	api.GET("/collector-limits/:collectorId/usage", h.GetUsage)
	api.POST("/collector-limits/:collectorId/check", h.Check)
	api.GET("/collector-action-logs", h.ListActionLogs)
	api.POST("/collector-action-logs", h.LogAction)
	return engine, limits, actions
}

func TestCollectorLimitsHandler_GetLimits(t *testing.T) {
	collectorID := uuid.New()

	t.Run("returns defaults for a collector without limits", func(t *testing.T) {
		caller := newCaller(auth.PermCollectorRead)
		engine, limits, _ := setupLimitsRouter(caller)
		limits.On("GetLimits", mock.Anything, caller.tenantID, collectorID).
			Return(&cashapp.LimitsResponse{CollectorID: collectorID, MaxApprovalPerDay: 10, IsActive: true, IsDefault: true}, nil)

		w := doRequest(engine, http.MethodGet, "/api/v1/money-loan/collector-limits/"+collectorID.String(), "")

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeResponse(t, w).Data.(map[string]any)
		assert.Equal(t, true, data["is_default"])
		assert.Equal(t, float64(10), data["max_approval_per_day"])
		assert.Nil(t, data["updated_at"])
	})

	t.Run("invalid collector id", func(t *testing.T) {
		engine, limits, _ := setupLimitsRouter(newCaller(auth.PermCollectorRead))

		w := doRequest(engine, http.MethodGet, "/api/v1/money-loan/collector-limits/not-a-uuid", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		limits.AssertNotCalled(t, "GetLimits")
	})
}

func TestCollectorLimitsHandler_UpdateLimits(t *testing.T) {
	collectorID := uuid.New()

	t.Run("replaces the limits", func(t *testing.T) {
		caller := newCaller(auth.PermCollectorUpdate)
		engine, limits, _ := setupLimitsRouter(caller)
		limits.On("UpdateLimits", mock.Anything, caller.tenantID, collectorID, caller.userID,
			mock.MatchedBy(func(req cashapp.UpdateLimitsRequest) bool {
				return req.Values.MaxApprovalAmount.Equal(dec("50000")) &&
					req.Values.MaxApprovalPerDay == 5 &&
					req.Values.MaxCashCollectionPerTransaction.Equal(dec("20000")) &&
					req.IsActive == nil
			})).
			Return(&cashapp.LimitsResponse{CollectorID: collectorID, IsActive: true}, nil)

		w := doRequest(engine, http.MethodPut, "/api/v1/money-loan/collector-limits/"+collectorID.String(), `{
			"max_approval_amount": "50000",
			"max_approval_per_day": 5,
			"max_disbursement_amount": "100000",
			"daily_disbursement_limit": "500000",
			"monthly_disbursement_limit": "5000000",
			"max_penalty_waiver_amount": "5000",
			"max_penalty_waiver_percent": "50",
			"requires_manager_approval_above": "2000",
			"max_cash_collection_per_transaction": "20000"
		}`)

		assert.Equal(t, http.StatusOK, w.Code)
		limits.AssertExpectations(t)
	})

	t.Run("deactivates", func(t *testing.T) {
		caller := newCaller(auth.PermCollectorUpdate)
		engine, limits, _ := setupLimitsRouter(caller)
		limits.On("UpdateLimits", mock.Anything, caller.tenantID, collectorID, caller.userID,
			mock.MatchedBy(func(req cashapp.UpdateLimitsRequest) bool {
				return req.IsActive != nil && !*req.IsActive
			})).
			Return(&cashapp.LimitsResponse{CollectorID: collectorID}, nil)

		w := doRequest(engine, http.MethodPut, "/api/v1/money-loan/collector-limits/"+collectorID.String(),
			`{"is_active": false}`)

		assert.Equal(t, http.StatusOK, w.Code)
		limits.AssertExpectations(t)
	})

	t.Run("negative amounts are refused", func(t *testing.T) {
		engine, limits, _ := setupLimitsRouter(newCaller(auth.PermCollectorUpdate))

		w := doRequest(engine, http.MethodPut, "/api/v1/money-loan/collector-limits/"+collectorID.String(),
			`{"max_approval_amount": "-1"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		require.NotEmpty(t, resp.Error.Details)
		assert.Equal(t, "max_approval_amount", resp.Error.Details[0].Field)
		limits.AssertNotCalled(t, "UpdateLimits")
	})
}

func TestCollectorLimitsHandler_GetUsage(t *testing.T) {
	caller := newCaller(auth.PermCollectorRead)
	engine, limits, _ := setupLimitsRouter(caller)
	collectorID := uuid.New()
	limits.On("GetUsage", mock.Anything, caller.tenantID, collectorID).
		Return(&cashcustody.LimitsUsage{
			Approvals:              cashcustody.ActivityTotals{Count: 3, Total: dec("45000")},
			RemainingApprovals:     7,
			RemainingDisbursements: dec("455000"),
		}, nil)

	w := doRequest(engine, http.MethodGet, "/api/v1/money-loan/collector-limits/"+collectorID.String()+"/usage", "")

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w).Data.(map[string]any)
	assert.Equal(t, float64(7), data["remaining_approvals"])
	assert.Equal(t, "455000", data["remaining_disbursements"])
	approvals := data["approvals"].(map[string]any)
	assert.Equal(t, float64(3), approvals["count"])
}

func TestCollectorLimitsHandler_Check(t *testing.T) {
	collectorID := uuid.New()
	path := "/api/v1/money-loan/collector-limits/" + collectorID.String() + "/check"

	t.Run("approve", func(t *testing.T) {
		caller := newCaller(auth.PermCollectorRead)
		engine, limits, _ := setupLimitsRouter(caller)
		limits.On("CanApprove", mock.Anything, collectorID, caller.tenantID,
			mock.MatchedBy(func(amount decimal.Decimal) bool { return amount.Equal(dec("60000")) })).
			Return(cashcustody.AuthorizationDecision{Allowed: false, Reason: "Exceeds max approval amount"}, nil)

		w := doRequest(engine, http.MethodPost, path, `{"type": "approve", "amount": "60000"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeResponse(t, w).Data.(map[string]any)
		assert.Equal(t, false, data["allowed"])
		assert.Equal(t, "Exceeds max approval amount", data["reason"])
	})

	t.Run("disburse", func(t *testing.T) {
		caller := newCaller(auth.PermCollectorRead)
		engine, limits, _ := setupLimitsRouter(caller)
		limits.On("CanDisburse", mock.Anything, collectorID, caller.tenantID, mock.Anything).
			Return(cashcustody.AuthorizationDecision{Allowed: true}, nil)

		w := doRequest(engine, http.MethodPost, path, `{"type": "disburse", "amount": "4000"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, decodeResponse(t, w).Data.(map[string]any)["allowed"])
		limits.AssertNotCalled(t, "CanApprove")
	})

	t.Run("waive", func(t *testing.T) {
		caller := newCaller(auth.PermCollectorRead)
		engine, limits, _ := setupLimitsRouter(caller)
		limits.On("CanWaivePenalty", mock.Anything, collectorID, caller.tenantID,
			mock.MatchedBy(func(req cashapp.WaiverCheckRequest) bool {
				return req.PenaltyAmount.Equal(dec("1000")) && req.WaiverAmount.Equal(dec("600"))
			})).
			Return(cashcustody.WaiverDecision{CanWaive: true, RequiresApproval: true}, nil)

		w := doRequest(engine, http.MethodPost, path,
			`{"type": "waive", "penalty_amount": "1000", "waiver_amount": "600"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeResponse(t, w).Data.(map[string]any)
		assert.Equal(t, true, data["can_waive"])
		assert.Equal(t, true, data["requires_approval"])
	})

	t.Run("unknown check type", func(t *testing.T) {
		engine, _, _ := setupLimitsRouter(newCaller(auth.PermCollectorRead))

		w := doRequest(engine, http.MethodPost, path, `{"type": "refund", "amount": "1"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCollectorLimitsHandler_ListActionLogs(t *testing.T) {
	caller := newCaller(auth.PermCollectorRead)
	engine, _, actions := setupLimitsRouter(caller)
	collectorID := uuid.New()
	actions.On("ListActionLogs", mock.Anything, caller.tenantID,
		mock.MatchedBy(func(q cashcustody.ActionLogQuery) bool {
			return q.CollectorID != nil && *q.CollectorID == collectorID &&
				q.ActionType == cashcustody.ActionType("approve_application") &&
				dateIs("2026-03-01")(q.From) &&
				q.To != nil && q.To.Equal(time.Date(2026, 3, 2, 23, 59, 59, 999999999, time.UTC)) &&
				q.Limit == 20
		})).
		Return([]cashapp.ActionLogResponse{{CollectorID: collectorID}}, nil)

	w := doRequest(engine, http.MethodGet,
		"/api/v1/money-loan/collector-action-logs?collector_id="+collectorID.String()+
			"&action_type=approve_application&start_date=2026-03-01&end_date=2026-03-02&limit=20", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeResponse(t, w).Data.([]any), 1)
	actions.AssertExpectations(t)
}

func TestCollectorLimitsHandler_LogAction(t *testing.T) {
	t.Run("logs against the caller", func(t *testing.T) {
		caller := newCaller(auth.PermCollector)
		engine, _, actions := setupLimitsRouter(caller)
		loanID := uuid.New()
		actions.On("LogAction", mock.Anything, caller.tenantID,
			mock.MatchedBy(func(req cashapp.LogActionRequest) bool {
				return req.CollectorID == caller.userID &&
					req.ActionType == cashcustody.ActionType("customer_visit") &&
					req.LoanID != nil && *req.LoanID == loanID &&
					req.Geo != nil &&
					req.DeviceInfo["os"] == "android"
			})).
			Return(&cashapp.ActionLogResponse{ID: uuid.New(), CollectorID: caller.userID}, nil)

		w := doRequest(engine, http.MethodPost, "/api/v1/money-loan/collector-action-logs", `{
			"action_type": "customer_visit",
			"loan_id": "`+loanID.String()+`",
			"geo": {"latitude": 14.6, "longitude": 121.0},
			"device_info": {"os": "android"}
		}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		actions.AssertExpectations(t)
	})

	t.Run("action type is required", func(t *testing.T) {
		engine, _, actions := setupLimitsRouter(newCaller(auth.PermCollector))

		w := doRequest(engine, http.MethodPost, "/api/v1/money-loan/collector-action-logs", `{"notes": "visit"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		actions.AssertNotCalled(t, "LogAction")
	})
}
