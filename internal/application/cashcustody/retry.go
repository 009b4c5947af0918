package cashcustody

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/cashcustody"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// RetryPolicy bounds how often a unit of work is re-run after losing a race
// for a collector-day row.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// IsRetryable classifies an error as transient contention. Nil means nothing retries.
	IsRetryable func(error) bool
}

// DefaultRetryPolicy returns three attempts starting at 20ms.
func DefaultRetryPolicy(isRetryable func(error) bool) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   20 * time.Millisecond,
		IsRetryable: isRetryable,
	}
}

// backoff returns a full-jitter delay in [0, base*2^attempt).
func (p RetryPolicy) backoff(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	ceiling := p.BaseDelay << min(attempt, 16)
	return time.Duration(rand.Int64N(int64(ceiling)))
}

// run executes fn until it succeeds, fails with a non-contention error, or
// the attempts are spent. Exhaustion surfaces as LEDGER_BUSY.
func (p RetryPolicy) run(ctx context.Context, logger *zap.Logger, op string, fn func() error) error {
	attempts := max(p.MaxAttempts, 1)

	var err error
	for attempt := range attempts {
		err = fn()
		if err == nil || p.IsRetryable == nil || !p.IsRetryable(err) {
			return err
		}

		telemetry.AddEvent(ctx, "ledger_contention", attribute.Int("attempt", attempt+1))
		logger.Debug("ledger contention, retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		if attempt == attempts-1 {
			break
		}

		timer := time.NewTimer(p.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	logger.Warn("ledger busy, giving up",
		zap.String("operation", op),
		zap.Int("attempts", attempts),
		zap.Error(err))
	return cashcustody.NewLedgerBusyError()
}
