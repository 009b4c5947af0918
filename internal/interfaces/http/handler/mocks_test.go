package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	cashapp "github.com/eduard0708/exits-saas-lms-sub008/internal/application/cashcustody"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/application/event"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/cashcustody"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockCashLedger is a mock implementation of CashLedger
type MockCashLedger struct {
	mock.Mock
}

func (m *MockCashLedger) IssueFloat(ctx context.Context, tenantID, cashierID uuid.UUID, req cashapp.IssueFloatRequest) (*cashapp.FloatResponse, error) {
	args := m.Called(ctx, tenantID, cashierID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cashapp.FloatResponse), args.Error(1)
}

func (m *MockCashLedger) ConfirmFloatReceipt(ctx context.Context, tenantID, collectorID uuid.UUID, req cashapp.ConfirmFloatRequest) (*cashapp.BalanceResponse, error) {
	args := m.Called(ctx, tenantID, collectorID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cashapp.BalanceResponse), args.Error(1)
}

func (m *MockCashLedger) RejectFloatReceipt(ctx context.Context, tenantID, collectorID uuid.UUID, req cashapp.RejectFloatRequest) (*cashapp.FloatResponse, error) {
	args := m.Called(ctx, tenantID, collectorID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cashapp.FloatResponse), args.Error(1)
}

func (m *MockCashLedger) RecordCollection(ctx context.Context, tenantID, collectorID uuid.UUID, req cashapp.RecordCollectionRequest) (*cashapp.MovementResponse, error) {
	args := m.Called(ctx, tenantID, collectorID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cashapp.MovementResponse), args.Error(1)
}

func (m *MockCashLedger) RecordDisbursement(ctx context.Context, tenantID, collectorID uuid.UUID, req cashapp.RecordDisbursementRequest) (*cashapp.MovementResponse, error) {
	args := m.Called(ctx, tenantID, collectorID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cashapp.MovementResponse), args.Error(1)
}

func (m *MockCashLedger) InitiateHandover(ctx context.Context, tenantID, collectorID uuid.UUID, req cashapp.InitiateHandoverRequest) (*cashapp.FloatResponse, error) {
	args := m.Called(ctx, tenantID, collectorID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cashapp.FloatResponse), args.Error(1)
}

func (m *MockCashLedger) ConfirmHandover(ctx context.Context, tenantID, cashierID uuid.UUID, req cashapp.ConfirmHandoverRequest) (*cashapp.HandoverResult, error) {
	args := m.Called(ctx, tenantID, cashierID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cashapp.HandoverResult), args.Error(1)
}

func (m *MockCashLedger) ConfirmHandoverByID(ctx context.Context, tenantID, cashierID, handoverID uuid.UUID, req cashapp.HandoverDecisionRequest) (*cashapp.HandoverResult, error) {
	args := m.Called(ctx, tenantID, cashierID, handoverID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cashapp.HandoverResult), args.Error(1)
}

func (m *MockCashLedger) GetCurrentBalance(ctx context.Context, tenantID, collectorID uuid.UUID, date *time.Time) (*cashapp.BalanceResponse, error) {
	args := m.Called(ctx, tenantID, collectorID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cashapp.BalanceResponse), args.Error(1)
}

func (m *MockCashLedger) GetCashFlowHistory(ctx context.Context, tenantID, collectorID uuid.UUID, filter cashapp.HistoryFilter) (*cashapp.HistoryResponse, error) {
	args := m.Called(ctx, tenantID, collectorID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cashapp.HistoryResponse), args.Error(1)
}

func (m *MockCashLedger) GetCollectorsCashStatus(ctx context.Context, tenantID uuid.UUID, date *time.Time) ([]cashapp.CollectorStatusResponse, error) {
	args := m.Called(ctx, tenantID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cashapp.CollectorStatusResponse), args.Error(1)
}

func (m *MockCashLedger) GetPendingHandovers(ctx context.Context, tenantID uuid.UUID, collectorID *uuid.UUID) ([]cashapp.FloatResponse, error) {
	args := m.Called(ctx, tenantID, collectorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cashapp.FloatResponse), args.Error(1)
}

func (m *MockCashLedger) GetPendingFloatsForCashier(ctx context.Context, tenantID, cashierID uuid.UUID) ([]cashapp.FloatResponse, error) {
	args := m.Called(ctx, tenantID, cashierID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cashapp.FloatResponse), args.Error(1)
}

func (m *MockCashLedger) GetPendingFloatsForCollector(ctx context.Context, tenantID, collectorID uuid.UUID) ([]cashapp.FloatResponse, error) {
	args := m.Called(ctx, tenantID, collectorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cashapp.FloatResponse), args.Error(1)
}

func (m *MockCashLedger) GetFloatHistory(ctx context.Context, tenantID uuid.UUID, filter cashapp.FloatHistoryFilter) ([]cashapp.FloatResponse, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cashapp.FloatResponse), args.Error(1)
}

func (m *MockCashLedger) GetHandoverDetails(ctx context.Context, tenantID, viewerID, handoverID uuid.UUID, canReadAll bool) (*cashapp.FloatResponse, error) {
	args := m.Called(ctx, tenantID, viewerID, handoverID, canReadAll)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cashapp.FloatResponse), args.Error(1)
}

func (m *MockCashLedger) ExportDailyReport(ctx context.Context, tenantID uuid.UUID, date *time.Time) ([]byte, string, error) {
	args := m.Called(ctx, tenantID, date)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

// MockCollectorLimits is a mock implementation of CollectorLimits
type MockCollectorLimits struct {
	mock.Mock
}

func (m *MockCollectorLimits) GetLimits(ctx context.Context, tenantID, collectorID uuid.UUID) (*cashapp.LimitsResponse, error) {
	args := m.Called(ctx, tenantID, collectorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cashapp.LimitsResponse), args.Error(1)
}

func (m *MockCollectorLimits) UpdateLimits(ctx context.Context, tenantID, collectorID, updatedBy uuid.UUID, req cashapp.UpdateLimitsRequest) (*cashapp.LimitsResponse, error) {
	args := m.Called(ctx, tenantID, collectorID, updatedBy, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cashapp.LimitsResponse), args.Error(1)
}

func (m *MockCollectorLimits) CanApprove(ctx context.Context, collectorID, tenantID uuid.UUID, amount decimal.Decimal) (cashcustody.AuthorizationDecision, error) {
	args := m.Called(ctx, collectorID, tenantID, amount)
	return args.Get(0).(cashcustody.AuthorizationDecision), args.Error(1)
}

func (m *MockCollectorLimits) CanDisburse(ctx context.Context, collectorID, tenantID uuid.UUID, amount decimal.Decimal) (cashcustody.AuthorizationDecision, error) {
	args := m.Called(ctx, collectorID, tenantID, amount)
	return args.Get(0).(cashcustody.AuthorizationDecision), args.Error(1)
}

func (m *MockCollectorLimits) CanWaivePenalty(ctx context.Context, collectorID, tenantID uuid.UUID, req cashapp.WaiverCheckRequest) (cashcustody.WaiverDecision, error) {
	args := m.Called(ctx, collectorID, tenantID, req)
	return args.Get(0).(cashcustody.WaiverDecision), args.Error(1)
}

func (m *MockCollectorLimits) GetUsage(ctx context.Context, tenantID, collectorID uuid.UUID) (*cashcustody.LimitsUsage, error) {
	args := m.Called(ctx, tenantID, collectorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cashcustody.LimitsUsage), args.Error(1)
}

// MockActionLogs is a mock implementation of ActionLogs
type MockActionLogs struct {
	mock.Mock
}

func (m *MockActionLogs) LogAction(ctx context.Context, tenantID uuid.UUID, req cashapp.LogActionRequest) (*cashapp.ActionLogResponse, error) {
	args := m.Called(ctx, tenantID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cashapp.ActionLogResponse), args.Error(1)
}

func (m *MockActionLogs) ListActionLogs(ctx context.Context, tenantID uuid.UUID, query cashcustody.ActionLogQuery) ([]cashapp.ActionLogResponse, error) {
	args := m.Called(ctx, tenantID, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cashapp.ActionLogResponse), args.Error(1)
}

// MockOutboxAdmin is a mock implementation of OutboxAdmin
type MockOutboxAdmin struct {
	mock.Mock
}

func (m *MockOutboxAdmin) GetDeadLetterEntries(ctx context.Context, tenantID uuid.UUID, filter event.OutboxFilter) (*event.OutboxListResult, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.OutboxListResult), args.Error(1)
}

func (m *MockOutboxAdmin) GetEntry(ctx context.Context, tenantID, id uuid.UUID) (*event.OutboxEntryDTO, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.OutboxEntryDTO), args.Error(1)
}

func (m *MockOutboxAdmin) RetryDeadEntry(ctx context.Context, tenantID, id uuid.UUID) (*event.OutboxEntryDTO, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.OutboxEntryDTO), args.Error(1)
}

func (m *MockOutboxAdmin) RetryAllDeadEntries(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOutboxAdmin) GetStats(ctx context.Context, tenantID uuid.UUID) (*event.OutboxStatsDTO, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.OutboxStatsDTO), args.Error(1)
}

// testCaller is the authenticated user a test request runs as
type testCaller struct {
	tenantID    uuid.UUID
	userID      uuid.UUID
	permissions []string
}

func newCaller(permissions ...string) testCaller {
	return testCaller{tenantID: uuid.New(), userID: uuid.New(), permissions: permissions}
}

// newTestEngine returns a gin engine whose requests carry the caller's claims
func newTestEngine(caller testCaller) *gin.Engine {
	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		setClaims(c, caller.tenantID, caller.userID, caller.permissions...)
		c.Next()
	})
	return engine
}

func doRequest(engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}
