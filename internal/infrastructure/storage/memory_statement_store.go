package storage

import (
	"context"
	"errors"
	"slices"
	"sync"

	cashapp "github.com/eduard0708/exits-saas-lms-sub008/internal/application/cashcustody"
)

// Ensure MemoryStatementStore implements StatementStore
var _ cashapp.StatementStore = (*MemoryStatementStore)(nil)

// MemoryStatementStore keeps statements in process memory.
// Use it in development and tests where no bucket is available.
type MemoryStatementStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStatementStore creates a new MemoryStatementStore
func NewMemoryStatementStore() *MemoryStatementStore {
	return &MemoryStatementStore{objects: make(map[string][]byte)}
}

// PutStatement stores a copy of content under key, replacing any previous one
func (s *MemoryStatementStore) PutStatement(_ context.Context, key string, content []byte) error {
	if key == "" {
		return errors.New("statement key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = slices.Clone(content)
	return nil
}

// Get returns the statement stored under key
func (s *MemoryStatementStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.objects[key]
	return content, ok
}

// Keys returns the stored keys in lexical order
func (s *MemoryStatementStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
