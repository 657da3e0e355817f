package idempotency

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the single-process implementation used in tests and when no
// Redis is configured.
type MemoryStore struct {
	mu       sync.Mutex
	deadline map[string]time.Time
	now      func() time.Time
}

func NewMemory() *MemoryStore {
	return &MemoryStore{deadline: make(map[string]time.Time), now: time.Now}
}

func (s *MemoryStore) Reserve(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if until, held := s.deadline[key]; held && now.Before(until) {
		return false, nil
	}
	s.deadline[key] = now.Add(ttl)
	return true, nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.deadline, key)
	return nil
}
