package cache

import (
	"context"
	"sync"
	"time"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/shared"
)

// Ensure MemoryIdempotencyStore implements IdempotencyStore
var _ shared.IdempotencyStore = (*MemoryIdempotencyStore)(nil)

// MemoryIdempotencyStore keeps delivery claims in process memory. It only
// deduplicates within one instance; use Redis when several instances
// consume the outbox.
type MemoryIdempotencyStore struct {
	mu     sync.Mutex
	claims map[string]time.Time // key -> expiry
	now    func() time.Time
	writes int
}

// sweepEvery is how many claims are written between expiry sweeps
const sweepEvery = 256

// NewMemoryIdempotencyStore creates a new MemoryIdempotencyStore
func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		claims: make(map[string]time.Time),
		now:    time.Now,
	}
}

// MarkProcessed claims key unless an unexpired claim exists
func (s *MemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expiry, ok := s.claims[key]; ok && now.Before(expiry) {
		return false, nil
	}
	s.claims[key] = now.Add(ttl)

	s.writes++
	if s.writes%sweepEvery == 0 {
		s.sweep(now)
	}
	return true, nil
}

// IsProcessed reports whether key holds an unexpired claim
func (s *MemoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.claims[key]
	return ok && s.now().Before(expiry), nil
}

// Release drops the claim on key
func (s *MemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claims, key)
	return nil
}

// Close drops every claim
func (s *MemoryIdempotencyStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.claims)
	return nil
}

// Len returns the number of claims held, expired or not
func (s *MemoryIdempotencyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.claims)
}

// sweep removes expired claims. Callers hold mu.
func (s *MemoryIdempotencyStore) sweep(now time.Time) {
	for key, expiry := range s.claims {
		if !now.Before(expiry) {
			delete(s.claims, key)
		}
	}
}
