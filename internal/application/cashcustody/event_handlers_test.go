package cashcustody

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/cashcustody"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockStatementSource is a mock implementation of StatementSource
type MockStatementSource struct {
	mock.Mock
}

func (m *MockStatementSource) BuildHandoverStatement(ctx context.Context, tenantID, handoverID uuid.UUID) (*HandoverStatement, error) {
	args := m.Called(ctx, tenantID, handoverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*HandoverStatement), args.Error(1)
}

// MockStatementRenderer is a mock implementation of StatementRenderer
type MockStatementRenderer struct {
	mock.Mock
}

func (m *MockStatementRenderer) RenderHandoverStatement(statement *HandoverStatement) ([]byte, error) {
	args := m.Called(statement)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockStatementStore is a mock implementation of StatementStore
type MockStatementStore struct {
	mock.Mock
}

func (m *MockStatementStore) PutStatement(ctx context.Context, key string, content []byte) error {
	args := m.Called(ctx, key, content)
	return args.Error(0)
}

// MockLedgerMetrics is a mock implementation of LedgerMetrics
type MockLedgerMetrics struct {
	mock.Mock
}

func (m *MockLedgerMetrics) RecordFloat(ctx context.Context, tenantID uuid.UUID, status cashcustody.FloatStatus, amount decimal.Decimal) {
	m.Called(ctx, tenantID, status, amount)
}

func (m *MockLedgerMetrics) RecordMovement(ctx context.Context, tenantID uuid.UUID, txType cashcustody.TransactionType, amount decimal.Decimal) {
	m.Called(ctx, tenantID, txType, amount)
}

func (m *MockLedgerMetrics) RecordHandover(ctx context.Context, tenantID uuid.UUID, status cashcustody.FloatStatus, variance decimal.Decimal) {
	m.Called(ctx, tenantID, status, variance)
}

func confirmedHandoverEvent(t *testing.T) *cashcustody.CashHandoverConfirmedEvent {
	t.Helper()
	tenantID := uuid.New()
	balance := cashcustody.NewCollectorCashBalance(tenantID, uuid.New(), time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC))
	issuance, err := cashcustody.NewFloatIssuance(tenantID, uuid.New(), balance.CollectorID, dec("1000"), dec("1000"), balance.BalanceDate, nil, "")
	require.NoError(t, err)
	require.NoError(t, balance.SeedFloat(issuance, nil))
	_, err = balance.ConfirmFloat(issuance)
	require.NoError(t, err)

	handover, err := cashcustody.NewHandover(balance, dec("1000"), nil, "")
	require.NoError(t, err)
	require.NoError(t, handover.ConfirmHandover(dec("990"), nil, ""))
	return cashcustody.NewCashHandoverConfirmedEvent(handover)
}

func TestHandoverStatementArchiver_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the rendered statement", func(t *testing.T) {
		event := confirmedHandoverEvent(t)
		statement := &HandoverStatement{CollectorID: event.CollectorID}
		content := []byte("xlsx")
		key := StatementKey(event.TenantID(), event.CollectorID, "2026-03-14", event.HandoverID)

		source := new(MockStatementSource)
		renderer := new(MockStatementRenderer)
		store := new(MockStatementStore)
		source.On("BuildHandoverStatement", ctx, event.TenantID(), event.HandoverID).Return(statement, nil).Once()
		renderer.On("RenderHandoverStatement", statement).Return(content, nil).Once()
		store.On("PutStatement", ctx, key, content).Return(nil).Once()

		archiver := NewHandoverStatementArchiver(source, renderer, store, zap.NewNop())
		require.NoError(t, archiver.Handle(ctx, event))

		assert.Contains(t, key, "/2026-03-14/")
		source.AssertExpectations(t)
		renderer.AssertExpectations(t)
		store.AssertExpectations(t)
	})

	t.Run("store failure is returned for redelivery", func(t *testing.T) {
		event := confirmedHandoverEvent(t)
		source := new(MockStatementSource)
		renderer := new(MockStatementRenderer)
		store := new(MockStatementStore)
		source.On("BuildHandoverStatement", ctx, event.TenantID(), event.HandoverID).Return(&HandoverStatement{}, nil)
		renderer.On("RenderHandoverStatement", mock.Anything).Return([]byte("x"), nil)
		store.On("PutStatement", ctx, mock.Anything, mock.Anything).Return(errors.New("bucket unavailable"))

		archiver := NewHandoverStatementArchiver(source, renderer, store, zap.NewNop())
		assert.EqualError(t, archiver.Handle(ctx, event), "bucket unavailable")
	})

	t.Run("build failure skips rendering", func(t *testing.T) {
		event := confirmedHandoverEvent(t)
		source := new(MockStatementSource)
		renderer := new(MockStatementRenderer)
		store := new(MockStatementStore)
		source.On("BuildHandoverStatement", ctx, event.TenantID(), event.HandoverID).Return(nil, cashcustody.NewHandoverNotFoundError())

		archiver := NewHandoverStatementArchiver(source, renderer, store, zap.NewNop())
		err := archiver.Handle(ctx, event)
		require.Error(t, err)
		renderer.AssertNotCalled(t, "RenderHandoverStatement", mock.Anything)
		store.AssertNotCalled(t, "PutStatement", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("wrong event type", func(t *testing.T) {
		archiver := NewHandoverStatementArchiver(nil, nil, nil, zap.NewNop())
		event := shared.NewBaseDomainEvent(cashcustody.EventTypeCashFloatIssued, cashcustody.AggregateTypeCashFloat, uuid.New(), uuid.New())
		err := archiver.Handle(ctx, &event)
		assert.ErrorContains(t, err, "unexpected event type")
	})

	assert.Equal(t, []string{cashcustody.EventTypeCashHandoverConfirmed}, NewHandoverStatementArchiver(nil, nil, nil, zap.NewNop()).EventTypes())
}

func TestLedgerMetricsProjector_Handle(t *testing.T) {
	ctx := context.Background()
	event := confirmedHandoverEvent(t)

	metrics := new(MockLedgerMetrics)
	metrics.On("RecordHandover", ctx, event.TenantID(), cashcustody.FloatStatusConfirmed, mock.MatchedBy(func(v decimal.Decimal) bool {
		return v.Equal(dec("-10"))
	})).Once()

	projector := NewLedgerMetricsProjector(metrics, zap.NewNop())
	require.NoError(t, projector.Handle(ctx, event))
	metrics.AssertExpectations(t)

	t.Run("every ledger event is subscribed", func(t *testing.T) {
		assert.Len(t, projector.EventTypes(), 8)
	})

	t.Run("movement events", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.issueAndConfirm(t, 5000, 20000)
		_, err := f.service.RecordCollection(ctx, f.tenantID, f.collectorID, RecordCollectionRequest{Amount: dec("120")})
		require.NoError(t, err)

		movements := new(MockLedgerMetrics)
		movements.On("RecordFloat", ctx, f.tenantID, mock.Anything, mock.Anything).Twice()
		movements.On("RecordMovement", ctx, f.tenantID, cashcustody.TransactionTypeCollection, mock.MatchedBy(func(v decimal.Decimal) bool {
			return v.Equal(dec("120"))
		})).Once()

		p := NewLedgerMetricsProjector(movements, zap.NewNop())
		for _, e := range f.publisher.events {
			require.NoError(t, p.Handle(ctx, e))
		}
		movements.AssertExpectations(t)
	})
}
