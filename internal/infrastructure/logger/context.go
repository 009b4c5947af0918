package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey      contextKey = "logger"
	requestIDKey   contextKey = "request_id"
	tenantIDKey    contextKey = "tenant_id"
	userIDKey      contextKey = "user_id"
	collectorIDKey contextKey = "collector_id"
)

// WithContext returns ctx carrying log
func WithContext(ctx context.Context, log *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}

// FromContext returns the logger carried by ctx, or a no-op logger. When
// ctx holds a sampled span the logger is tagged with its trace and span id.
func FromContext(ctx context.Context) *zap.Logger {
	log, ok := ctx.Value(loggerKey).(*zap.Logger)
	if !ok {
		return zap.NewNop()
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		log = log.With(
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	return log
}

func enrich(ctx context.Context, log *zap.Logger, key contextKey, value string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, key, value)
	log = log.With(zap.String(string(key), value))
	return WithContext(ctx, log), log
}

// WithRequestID records the request id on ctx and its logger
func WithRequestID(ctx context.Context, log *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	return enrich(ctx, log, requestIDKey, requestID)
}

// WithTenantID records the tenant on ctx and its logger
func WithTenantID(ctx context.Context, log *zap.Logger, tenantID string) (context.Context, *zap.Logger) {
	return enrich(ctx, log, tenantIDKey, tenantID)
}

// WithUserID records the authenticated user on ctx and its logger
func WithUserID(ctx context.Context, log *zap.Logger, userID string) (context.Context, *zap.Logger) {
	return enrich(ctx, log, userIDKey, userID)
}

// WithCollectorID records whose collector-day is being touched. It differs
// from the user when a cashier or manager acts on a collector's ledger.
func WithCollectorID(ctx context.Context, log *zap.Logger, collectorID string) (context.Context, *zap.Logger) {
	return enrich(ctx, log, collectorIDKey, collectorID)
}

func valueOf(ctx context.Context, key contextKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

// GetRequestID returns the request id on ctx, or ""
func GetRequestID(ctx context.Context) string { return valueOf(ctx, requestIDKey) }

// GetTenantID returns the tenant on ctx, or ""
func GetTenantID(ctx context.Context) string { return valueOf(ctx, tenantIDKey) }

// GetUserID returns the user on ctx, or ""
func GetUserID(ctx context.Context) string { return valueOf(ctx, userIDKey) }

// GetCollectorID returns the collector on ctx, or ""
func GetCollectorID(ctx context.Context) string { return valueOf(ctx, collectorIDKey) }
