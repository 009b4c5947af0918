package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const startedAtKey = "telemetry:started_at"

// DBConfig controls database instrumentation.
type DBConfig struct {
	Tracing       bool          // register otelgorm spans
	FullSQL       bool          // keep bound values in span statements
	SlowThreshold time.Duration // statements slower than this are logged
	System        string        // db.system attribute, e.g. "postgresql"
}

type dbInstruments struct {
	duration *Histogram
	errors   *Counter
	slow     DBConfig
	logger   *zap.Logger
}

// InstrumentDB adds tracing, per-statement duration metrics, slow
// statement logging and connection pool gauges to db.
func InstrumentDB(db *gorm.DB, meter metric.Meter, cfg DBConfig, logger *zap.Logger) error {
	if meter == nil {
		return ErrMeterNil
	}
	if cfg.System == "" {
		cfg.System = "postgresql"
	}

	if cfg.Tracing {
		opts := []otelgorm.Option{otelgorm.WithDBName(cfg.System)}
		if !cfg.FullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return err
		}
	}

	in := &dbInstruments{slow: cfg, logger: logger}
	var err error
	if in.duration, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_client_operation_duration_seconds",
		Description: "Database statement latency by operation and table",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return err
	}
	if in.errors, err = NewCounter(meter, "db_client_errors_total",
		"Database statements that returned an error", "{statements}"); err != nil {
		return err
	}
	if err := in.register(db); err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return observePool(meter, sqlDB.Stats)
}

func (in *dbInstruments) register(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		op     string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, h := range hooks {
		if err := h.before("telemetry:before_"+h.op, markStart); err != nil {
			return err
		}
		if err := h.after("telemetry:after_"+h.op, in.observe(h.op)); err != nil {
			return err
		}
	}
	return nil
}

func markStart(db *gorm.DB) {
	db.InstanceSet(startedAtKey, time.Now())
}

func (in *dbInstruments) observe(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(startedAtKey)
		if !ok {
			return
		}
		started, ok := v.(time.Time)
		if !ok {
			return
		}
		elapsed := time.Since(started)

		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		table := db.Statement.Table
		attrs := []attribute.KeyValue{AttrDBOperation.String(op), AttrDBTable.String(table)}
		in.duration.RecordDuration(ctx, elapsed, attrs...)
		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			in.errors.Inc(ctx, attrs...)
		}

		if in.slow.SlowThreshold > 0 && elapsed > in.slow.SlowThreshold {
			AddEvent(ctx, "slow_query", AttrDBOperation.String(op), AttrDBTable.String(table))
			in.logger.Warn("Slow database statement",
				zap.String("operation", op),
				zap.String("table", table),
				zap.Duration("elapsed", elapsed),
				zap.Duration("threshold", in.slow.SlowThreshold),
				zap.String("trace_id", TraceID(ctx)),
			)
		}
	}
}

// observePool reports connection pool state on every collection.
func observePool(meter metric.Meter, stats func() sql.DBStats) error {
	conns, err := meter.Int64ObservableGauge("db_client_connections",
		metric.WithDescription("Pooled connections by state"),
		metric.WithUnit("{connections}"))
	if err != nil {
		return err
	}
	waits, err := meter.Int64ObservableCounter("db_client_connection_waits_total",
		metric.WithDescription("Times a statement waited for a free connection"),
		metric.WithUnit("{waits}"))
	if err != nil {
		return err
	}
	waited, err := meter.Float64ObservableCounter("db_client_connection_wait_seconds_total",
		metric.WithDescription("Total time spent waiting for a free connection"),
		metric.WithUnit("s"))
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := stats()
		o.ObserveInt64(conns, int64(s.InUse), metric.WithAttributes(AttrDBPoolState.String("in_use")))
		o.ObserveInt64(conns, int64(s.Idle), metric.WithAttributes(AttrDBPoolState.String("idle")))
		o.ObserveInt64(conns, int64(s.MaxOpenConnections), metric.WithAttributes(AttrDBPoolState.String("max")))
		o.ObserveInt64(waits, s.WaitCount)
		o.ObserveFloat64(waited, s.WaitDuration.Seconds())
		return nil
	}, conns, waits, waited)
	return err
}
