package auth

import (
	"sync"
	"time"
)

// MemorySessionStore keeps sessions in process memory. Suitable for a single
// replica; production deployments share state through Postgres.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]SessionRecord
}

// NewMemorySessionStore constructs an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]SessionRecord)}
}

// Save stores or updates the session token.
func (s *MemorySessionStore) Save(token, userID string, expiresAt, absoluteExpiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = SessionRecord{
		Token:             token,
		UserID:            userID,
		ExpiresAt:         expiresAt,
		AbsoluteExpiresAt: absoluteExpiresAt,
	}
	return nil
}

// Get fetches the session details for the provided token.
func (s *MemorySessionStore) Get(token string) (SessionRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.sessions[token]
	return record, ok, nil
}

// Delete removes the session token.
func (s *MemorySessionStore) Delete(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

// PurgeExpired removes sessions whose expiry has passed.
func (s *MemorySessionStore) PurgeExpired(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, record := range s.sessions {
		expiresAt := record.ExpiresAt
		if !record.AbsoluteExpiresAt.IsZero() && record.AbsoluteExpiresAt.Before(expiresAt) {
			expiresAt = record.AbsoluteExpiresAt
		}
		if !expiresAt.After(now) {
			delete(s.sessions, token)
		}
	}
	return nil
}
