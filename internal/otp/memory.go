package otp

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	rec       Record
	expiresAt time.Time
}

// MemoryStore is an in-memory Store implementation with lazy TTL eviction.
// Used by tests and single-process dev setups; production uses RedisStore.
type MemoryStore struct {
	mu   sync.RWMutex
	m    map[string]entry
	nowF func() time.Time
}

// NewMemoryStore returns a new in-memory OTP store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]entry),
		nowF: func() time.Time { return time.Now().UTC() },
	}
}

// Get returns a copy of the record for key if present and not expired.
// Expired entries are deleted on read.
func (s *MemoryStore) Get(ctx context.Context, key string) (*Record, error) {
	s.mu.RLock()
	e, ok := s.m[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if !e.expiresAt.After(s.nowF()) {
		s.mu.Lock()
		delete(s.m, key)
		s.mu.Unlock()
		return nil, nil
	}
	rec := e.rec
	return &rec, nil
}

// Set stores a copy of rec under key until ttl elapses.
func (s *MemoryStore) Set(ctx context.Context, key string, rec *Record, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = entry{rec: *rec, expiresAt: s.nowF().Add(ttl)}
	return nil
}

// Delete removes the record for key. Deleting a missing key is not an error.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}
