package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/cashcustody"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// LedgerMetrics records collector cash ledger activity.
// Counters are fed from outbox events, gauges from periodic snapshots.
type LedgerMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	floatTotal       *Counter
	floatAmount      *Counter
	movementTotal    *Counter
	movementAmount   *Counter
	handoverTotal    *Counter
	handoverVariance *Histogram

	// Gauge metrics (point-in-time values)
	collectorDays *Gauge
	cashOnHand    *FloatGauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	snapshots LedgerSnapshotProvider
}

// LedgerSnapshot is the state of one tenant's collector-days on a business date
type LedgerSnapshot struct {
	TenantID    uuid.UUID
	DaysByState map[cashcustody.DayState]int64
	CashOnHand  decimal.Decimal
}

// LedgerSnapshotProvider reads ledger gauges without the telemetry layer
// depending on persistence
type LedgerSnapshotProvider interface {
	Snapshot(ctx context.Context, date time.Time) ([]LedgerSnapshot, error)
}

// LedgerMetricsConfig holds configuration for ledger metrics.
type LedgerMetricsConfig struct {
	Meter     metric.Meter
	Logger    *zap.Logger
	Snapshots LedgerSnapshotProvider
}

// NewLedgerMetrics creates a new LedgerMetrics instance.
func NewLedgerMetrics(cfg LedgerMetricsConfig) (*LedgerMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	lm := &LedgerMetrics{
		meter:     cfg.Meter,
		logger:    logger,
		stopChan:  make(chan struct{}),
		snapshots: cfg.Snapshots,
	}

	var err error
	if lm.floatTotal, err = NewCounter(cfg.Meter, "lms_cash_float_total",
		"Float issuances by status", "{floats}"); err != nil {
		return nil, err
	}
	if lm.floatAmount, err = NewCounter(cfg.Meter, "lms_cash_float_amount_total",
		"Float amount by status in centavos", "{centavos}"); err != nil {
		return nil, err
	}
	if lm.movementTotal, err = NewCounter(cfg.Meter, "lms_cash_movement_total",
		"Collections and disbursements recorded", "{transactions}"); err != nil {
		return nil, err
	}
	if lm.movementAmount, err = NewCounter(cfg.Meter, "lms_cash_movement_amount_total",
		"Collection and disbursement amount in centavos", "{centavos}"); err != nil {
		return nil, err
	}
	if lm.handoverTotal, err = NewCounter(cfg.Meter, "lms_cash_handover_total",
		"Handovers by status", "{handovers}"); err != nil {
		return nil, err
	}
	if lm.handoverVariance, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "lms_cash_handover_variance",
		Description: "Absolute difference between counted and expected handover",
		Unit:        "{pesos}",
		Boundaries:  VarianceBuckets,
	}); err != nil {
		return nil, err
	}
	if lm.collectorDays, err = NewGauge(cfg.Meter, "lms_cash_collector_days",
		"Collector-days of the current business date by state", "{days}"); err != nil {
		return nil, err
	}
	if lm.cashOnHand, err = NewFloatGauge(cfg.Meter, "lms_cash_on_hand",
		"Cash held by collectors on open days", "{pesos}"); err != nil {
		return nil, err
	}

	return lm, nil
}

func centavos(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// RecordFloat records a float issuance changing status
func (lm *LedgerMetrics) RecordFloat(ctx context.Context, tenantID uuid.UUID, status cashcustody.FloatStatus, amount decimal.Decimal) {
	attrs := []attribute.KeyValue{
		AttrTenantID.String(tenantID.String()),
		AttrFloatStatus.String(string(status)),
	}
	lm.floatTotal.Inc(ctx, attrs...)
	lm.floatAmount.Add(ctx, centavos(amount), attrs...)
}

// RecordMovement records a collection or disbursement
func (lm *LedgerMetrics) RecordMovement(ctx context.Context, tenantID uuid.UUID, txType cashcustody.TransactionType, amount decimal.Decimal) {
	attrs := []attribute.KeyValue{
		AttrTenantID.String(tenantID.String()),
		AttrTransactionType.String(string(txType)),
	}
	lm.movementTotal.Inc(ctx, attrs...)
	lm.movementAmount.Add(ctx, centavos(amount), attrs...)
}

// RecordHandover records a handover changing status with its variance
func (lm *LedgerMetrics) RecordHandover(ctx context.Context, tenantID uuid.UUID, status cashcustody.FloatStatus, variance decimal.Decimal) {
	attrs := []attribute.KeyValue{
		AttrTenantID.String(tenantID.String()),
		AttrHandoverStatus.String(string(status)),
	}
	lm.handoverTotal.Inc(ctx, attrs...)
	if status == cashcustody.FloatStatusConfirmed {
		lm.handoverVariance.Record(ctx, variance.Abs().InexactFloat64(), attrs...)
	}
}

// RecordSnapshot records the gauges of one tenant
func (lm *LedgerMetrics) RecordSnapshot(ctx context.Context, snapshot LedgerSnapshot) {
	tenant := AttrTenantID.String(snapshot.TenantID.String())
	for state, count := range snapshot.DaysByState {
		lm.collectorDays.Record(ctx, count, tenant, AttrDayState.String(string(state)))
	}
	lm.cashOnHand.Record(ctx, snapshot.CashOnHand.InexactFloat64(), tenant)
}

// StartPeriodicCollection samples the gauges every interval (default 5m)
// for the business date returned by today. Non-blocking; use Stop to end it.
func (lm *LedgerMetrics) StartPeriodicCollection(ctx context.Context, today func() time.Time, interval time.Duration) {
	lm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		go lm.runPeriodicCollection(ctx, today, interval)
	})
}

func (lm *LedgerMetrics) runPeriodicCollection(ctx context.Context, today func() time.Time, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lm.collect(ctx, today())

	for {
		select {
		case <-lm.stopChan:
			lm.logger.Info("Stopping periodic ledger metrics collection")
			return
		case <-ctx.Done():
			lm.logger.Info("Context cancelled, stopping periodic ledger metrics collection")
			return
		case <-ticker.C:
			lm.collect(ctx, today())
		}
	}
}

func (lm *LedgerMetrics) collect(ctx context.Context, date time.Time) {
	if lm.snapshots == nil {
		lm.logger.Debug("No snapshot provider configured, skipping ledger gauges")
		return
	}
	snapshots, err := lm.snapshots.Snapshot(ctx, date)
	if err != nil {
		lm.logger.Warn("Failed to read ledger snapshot", zap.Error(err))
		return
	}
	for _, s := range snapshots {
		lm.RecordSnapshot(ctx, s)
	}
}

// Stop stops the periodic collection.
func (lm *LedgerMetrics) Stop() {
	lm.stopOnce.Do(func() {
		close(lm.stopChan)
	})
}
