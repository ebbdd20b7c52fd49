package repository

import (
	"context"
	"sync"
	"time"

	"github.com/onsamiro-welfare-service/onsae-console/internal/core/domain"
)

// MemorySessionStore implements domain.SessionStore in process memory.
// Intended for local development and tests; records vanish on restart.
type MemorySessionStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	records map[string]memoryRecord
}

type memoryRecord struct {
	rec       domain.SessionRecord
	expiresAt time.Time
}

// NewMemorySessionStore creates a MemorySessionStore with the given record TTL.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		ttl:     ttl,
		records: make(map[string]memoryRecord),
	}
}

// Save persists the record under the given session id.
func (s *MemorySessionStore) Save(_ context.Context, sessionID string, rec domain.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[sessionID] = memoryRecord{rec: rec, expiresAt: time.Now().Add(s.ttl)}
	return nil
}

// Load returns the record for the given session id, or (nil, nil) when the
// record is absent or expired.
func (s *MemorySessionStore) Load(_ context.Context, sessionID string) (*domain.SessionRecord, error) {
	s.mu.RLock()
	entry, ok := s.records[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		// Re-check under the write lock: a Save may have replaced the
		// entry between the two locks, and that record must survive.
		if cur, ok := s.records[sessionID]; ok && time.Now().After(cur.expiresAt) {
			delete(s.records, sessionID)
		}
		s.mu.Unlock()
		return nil, nil
	}
	rec := entry.rec
	return &rec, nil
}

// Delete removes the record for the given session id.
func (s *MemorySessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, sessionID)
	return nil
}
