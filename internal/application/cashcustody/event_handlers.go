package cashcustody

import (
	"context"
	"fmt"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/cashcustody"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StatementRenderer renders an archived handover statement
type StatementRenderer interface {
	RenderHandoverStatement(statement *HandoverStatement) ([]byte, error)
}

// StatementStore persists rendered statements outside the database
type StatementStore interface {
	PutStatement(ctx context.Context, key string, content []byte) error
}

// StatementSource builds the statement of a confirmed handover
type StatementSource interface {
	BuildHandoverStatement(ctx context.Context, tenantID, handoverID uuid.UUID) (*HandoverStatement, error)
}

// HandoverStatementArchiver stores a spreadsheet of each closed collector-day.
// It runs from the outbox, so an unavailable store only delays the archive.
type HandoverStatementArchiver struct {
	source   StatementSource
	renderer StatementRenderer
	store    StatementStore
	logger   *zap.Logger
}

// NewHandoverStatementArchiver creates a new HandoverStatementArchiver
func NewHandoverStatementArchiver(source StatementSource, renderer StatementRenderer, store StatementStore, logger *zap.Logger) *HandoverStatementArchiver {
	return &HandoverStatementArchiver{
		source:   source,
		renderer: renderer,
		store:    store,
		logger:   logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *HandoverStatementArchiver) EventTypes() []string {
	return []string{cashcustody.EventTypeCashHandoverConfirmed}
}

// Handle archives the statement of a confirmed handover
func (h *HandoverStatementArchiver) Handle(ctx context.Context, event shared.DomainEvent) error {
	confirmed, ok := event.(*cashcustody.CashHandoverConfirmedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", cashcustody.EventTypeCashHandoverConfirmed),
			zap.String("actual", event.EventType()))
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			cashcustody.EventTypeCashHandoverConfirmed, event.EventType())
	}

	statement, err := h.source.BuildHandoverStatement(ctx, event.TenantID(), confirmed.HandoverID)
	if err != nil {
		return fmt.Errorf("build handover statement: %w", err)
	}
	content, err := h.renderer.RenderHandoverStatement(statement)
	if err != nil {
		return fmt.Errorf("render handover statement: %w", err)
	}

	key := StatementKey(event.TenantID(), confirmed.CollectorID, confirmed.BalanceDate.Format(cashcustody.DateLayout), confirmed.HandoverID)
	if err := h.store.PutStatement(ctx, key, content); err != nil {
		h.logger.Warn("failed to archive handover statement",
			zap.String("handover_id", confirmed.HandoverID.String()),
			zap.Error(err))
		return err
	}

	h.logger.Info("handover statement archived",
		zap.String("handover_id", confirmed.HandoverID.String()),
		zap.String("key", key),
		zap.Int("size", len(content)))
	return nil
}

// StatementKey is the object key of an archived statement
func StatementKey(tenantID, collectorID uuid.UUID, date string, handoverID uuid.UUID) string {
	return fmt.Sprintf("cash-statements/%s/%s/%s/%s.xlsx", tenantID, date, collectorID, handoverID)
}

// LedgerMetrics receives ledger activity for dashboards and alerts
type LedgerMetrics interface {
	RecordFloat(ctx context.Context, tenantID uuid.UUID, status cashcustody.FloatStatus, amount decimal.Decimal)
	RecordMovement(ctx context.Context, tenantID uuid.UUID, txType cashcustody.TransactionType, amount decimal.Decimal)
	RecordHandover(ctx context.Context, tenantID uuid.UUID, status cashcustody.FloatStatus, variance decimal.Decimal)
}

// LedgerMetricsProjector turns ledger events into metrics
type LedgerMetricsProjector struct {
	metrics LedgerMetrics
	logger  *zap.Logger
}

// NewLedgerMetricsProjector creates a new LedgerMetricsProjector
func NewLedgerMetricsProjector(metrics LedgerMetrics, logger *zap.Logger) *LedgerMetricsProjector {
	return &LedgerMetricsProjector{metrics: metrics, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (p *LedgerMetricsProjector) EventTypes() []string {
	return []string{
		cashcustody.EventTypeCashFloatIssued,
		cashcustody.EventTypeCashFloatConfirmed,
		cashcustody.EventTypeCashFloatRejected,
		cashcustody.EventTypeCashCollectionRecorded,
		cashcustody.EventTypeCashDisbursementRecorded,
		cashcustody.EventTypeCashHandoverInitiated,
		cashcustody.EventTypeCashHandoverConfirmed,
		cashcustody.EventTypeCashHandoverRejected,
	}
}

// Handle records the event. Unknown events are ignored.
func (p *LedgerMetricsProjector) Handle(ctx context.Context, event shared.DomainEvent) error {
	tenantID := event.TenantID()
	switch e := event.(type) {
	case *cashcustody.CashFloatIssuedEvent:
		p.metrics.RecordFloat(ctx, tenantID, cashcustody.FloatStatusPending, e.Amount)
	case *cashcustody.CashFloatConfirmedEvent:
		p.metrics.RecordFloat(ctx, tenantID, cashcustody.FloatStatusConfirmed, e.Amount)
	case *cashcustody.CashFloatRejectedEvent:
		p.metrics.RecordFloat(ctx, tenantID, cashcustody.FloatStatusRejected, e.Amount)
	case *cashcustody.CashCollectionRecordedEvent:
		p.metrics.RecordMovement(ctx, tenantID, cashcustody.TransactionTypeCollection, e.Amount)
	case *cashcustody.CashDisbursementRecordedEvent:
		p.metrics.RecordMovement(ctx, tenantID, cashcustody.TransactionTypeDisbursement, e.Amount)
	case *cashcustody.CashHandoverInitiatedEvent:
		p.metrics.RecordHandover(ctx, tenantID, cashcustody.FloatStatusPending, e.Variance)
	case *cashcustody.CashHandoverConfirmedEvent:
		p.metrics.RecordHandover(ctx, tenantID, cashcustody.FloatStatusConfirmed, e.Variance)
	case *cashcustody.CashHandoverRejectedEvent:
		p.metrics.RecordHandover(ctx, tenantID, cashcustody.FloatStatusRejected, e.Variance)
	default:
		p.logger.Debug("ignoring event", zap.String("event_type", event.EventType()))
	}
	return nil
}

// Ensure handlers implement shared.EventHandler
var (
	_ shared.EventHandler = (*HandoverStatementArchiver)(nil)
	_ shared.EventHandler = (*LedgerMetricsProjector)(nil)
	_ StatementSource     = (*CashCustodyService)(nil)
)
