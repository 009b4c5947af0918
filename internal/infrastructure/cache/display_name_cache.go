package cache

import (
	"context"
	"errors"
	"time"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/cashcustody"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Ensure CachedCollectorDirectory implements CollectorDirectory
var _ cashcustody.CollectorDirectory = (*CachedCollectorDirectory)(nil)

// CachedCollectorDirectory is a cache-aside decorator over a
// CollectorDirectory. Names change rarely and dashboards resolve the same
// collectors on every refresh. A Redis failure degrades to the wrapped
// directory.
type CachedCollectorDirectory struct {
	next   cashcustody.CollectorDirectory
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedCollectorDirectory creates a new CachedCollectorDirectory
func NewCachedCollectorDirectory(next cashcustody.CollectorDirectory, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedCollectorDirectory {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedCollectorDirectory{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func displayNameKey(tenantID, userID uuid.UUID) string {
	return KeyPrefix + "display-name:" + tenantID.String() + ":" + userID.String()
}

// DisplayNames serves cached names and loads the misses in one call
func (d *CachedCollectorDirectory) DisplayNames(ctx context.Context, tenantID uuid.UUID, userIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(userIDs))
	if len(userIDs) == 0 {
		return names, nil
	}

	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = displayNameKey(tenantID, id)
	}

	cached, err := d.client.MGet(ctx, keys...).Result()
	if err != nil {
		d.logger.Warn("display name cache read failed", zap.Error(err))
		return d.next.DisplayNames(ctx, tenantID, userIDs)
	}

	var misses []uuid.UUID
	for i, v := range cached {
		if name, ok := v.(string); ok {
			names[userIDs[i]] = name
			continue
		}
		misses = append(misses, userIDs[i])
	}
	if len(misses) == 0 {
		return names, nil
	}

	loaded, err := d.next.DisplayNames(ctx, tenantID, misses)
	if err != nil {
		return nil, err
	}

	_, err = d.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for id, name := range loaded {
			names[id] = name
			pipe.Set(ctx, displayNameKey(tenantID, id), name, d.ttl)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		d.logger.Warn("display name cache write failed", zap.Error(err))
	}
	return names, nil
}

// Invalidate drops a cached name, e.g. after a profile rename
func (d *CachedCollectorDirectory) Invalidate(ctx context.Context, tenantID, userID uuid.UUID) error {
	return d.client.Del(ctx, displayNameKey(tenantID, userID)).Err()
}
