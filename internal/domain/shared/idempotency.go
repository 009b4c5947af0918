package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which event deliveries a handler finished, so
// an outbox redelivery does not repeat a side effect such as an archive upload.
type IdempotencyStore interface {
	// MarkProcessed claims key for ttl and reports whether this call won the claim
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)
	// Release drops a claim so a failed delivery can run again
	Release(ctx context.Context, key string) error
	Close() error
}

// IdempotencyConfig controls the guard around an event handler
type IdempotencyConfig struct {
	TTL     time.Duration // how long a delivery stays claimed
	Enabled bool
}

// DefaultIdempotencyConfig keeps claims for a day
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{TTL: 24 * time.Hour, Enabled: true}
}
