package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationList answers whether a token was revoked before it expired.
// The identity service writes revocations into the shared Redis; this
// service only reads them on every request.
type RevocationList interface {
	// IsRevoked reports whether the token with this JTI was revoked
	IsRevoked(ctx context.Context, jti string) (bool, error)
	// IsUserTokenInvalidated reports whether tokens of userID issued at or
	// before issuedAt were invalidated (forced logout, role change)
	IsUserTokenInvalidated(ctx context.Context, userID string, issuedAt time.Time) (bool, error)
}

// DefaultRevocationPrefix matches the keys written by the identity service
const DefaultRevocationPrefix = "lms:auth:revoked:"

// RedisRevocationList implements RevocationList on Redis
type RedisRevocationList struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisRevocationList creates a revocation list over an existing client
func NewRedisRevocationList(client *redis.Client) *RedisRevocationList {
	return &RedisRevocationList{
		client:    client,
		keyPrefix: DefaultRevocationPrefix,
	}
}

func (r *RedisRevocationList) jtiKey(jti string) string {
	return r.keyPrefix + "jti:" + jti
}

func (r *RedisRevocationList) userKey(userID string) string {
	return r.keyPrefix + "user:" + userID
}

// IsRevoked checks if a token's JTI is on the list
func (r *RedisRevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, r.jtiKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}

// IsUserTokenInvalidated compares issuedAt with the user's invalidation
// timestamp, stored as Unix seconds
func (r *RedisRevocationList) IsUserTokenInvalidated(ctx context.Context, userID string, issuedAt time.Time) (bool, error) {
	raw, err := r.client.Get(ctx, r.userKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check user token invalidation: %w", err)
	}

	invalidatedAt, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("failed to parse invalidation timestamp: %w", err)
	}
	return issuedAt.Unix() <= invalidatedAt, nil
}

// Revoke puts a JTI on the list until ttl elapses
func (r *RedisRevocationList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.jtiKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// InvalidateUser rejects every token of userID issued up to now
func (r *RedisRevocationList) InvalidateUser(ctx context.Context, userID string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.userKey(userID), time.Now().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to invalidate user tokens: %w", err)
	}
	return nil
}

// Ensure RedisRevocationList implements RevocationList
var _ RevocationList = (*RedisRevocationList)(nil)
