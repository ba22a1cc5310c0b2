package refreshtoken

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rosterd/internal/auth/models"
	"rosterd/pkg/platform/sentinel"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return sentinel.ErrNotFound (wrapped) when the requested entity does not exist
// - Return nil for successful operations, including idempotent deletes
// - Return wrapped errors with context for infrastructure failures
//
// Expiry is the service's concern: stores hand back expired records as-is so
// the service can delete them and report the precise failure kind.

// InMemoryStore keeps refresh token records in a mutex-guarded map. Records
// are lost on restart; that is an accepted limitation of the in-memory
// backend, not a defect.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*models.RefreshTokenRecord
}

// NewInMemoryStore constructs an empty in-memory refresh token store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]*models.RefreshTokenRecord)}
}

// Put inserts or overwrites the record keyed by its token.
func (s *InMemoryStore) Put(_ context.Context, record *models.RefreshTokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Token] = record
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, token string) (*models.RefreshTokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if record, ok := s.records[token]; ok {
		return record, nil
	}
	return nil, fmt.Errorf("refresh token not found: %w", sentinel.ErrNotFound)
}

// Delete removes the record. Deleting an absent token is not an error.
func (s *InMemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, token)
	return nil
}

// DeleteExpiredAt removes all records expired as of the given time and
// reports how many were removed. The time is injected for testability.
func (s *InMemoryStore) DeleteExpiredAt(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for token, record := range s.records {
		if record.ExpiredAt(now) {
			delete(s.records, token)
			deleted++
		}
	}
	return deleted, nil
}
