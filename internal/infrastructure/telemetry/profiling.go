package telemetry

import (
	"context"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys.
const (
	ProfilingLabelRoute     = "route"
	ProfilingLabelMethod    = "method"
	ProfilingLabelTenantID  = "tenant_id"
	ProfilingLabelOperation = "operation"
)

// maxLabelValue bounds label values so a long route or operation name
// cannot blow up the profile index
const maxLabelValue = 128

// perEntityLabels identify single records and would give every request
// its own profile series
var perEntityLabels = map[string]bool{
	"collector_id": true,
	"cashier_id":   true,
	"float_id":     true,
	"handover_id":  true,
	"loan_id":      true,
	"request_id":   true,
	"user_id":      true,
}

// WithProfilingLabels runs fn with pprof labels so CPU samples taken in
// fn can be filtered in Pyroscope. Per-entity keys and empty values are
// dropped.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := labelPairs(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// ProfileOperation labels fn with a ledger operation name.
func ProfileOperation(ctx context.Context, operation string, fn func(context.Context)) {
	WithProfilingLabels(ctx, map[string]string{ProfilingLabelOperation: operation}, fn)
}

func labelPairs(labels map[string]string) []string {
	pairs := make([]string, 0, len(labels)*2)
	for key, value := range labels {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" || value == "" || perEntityLabels[key] {
			continue
		}
		if len(value) > maxLabelValue {
			value = value[:maxLabelValue]
		}
		pairs = append(pairs, key, value)
	}
	return pairs
}
