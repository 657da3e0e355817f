package credential

import (
	"context"
	"sync"

	"intake/internal/registration/models"
	"intake/pkg/domain"
	"intake/pkg/platform/sentinel"
)

// MemoryStore keeps Credential records in memory, keyed by id with a
// secondary email index (credentials are 1:1 with an email).
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[domain.CredentialID]*models.Credential
	byEmail map[string]domain.CredentialID
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[domain.CredentialID]*models.Credential),
		byEmail: make(map[string]domain.CredentialID),
	}
}

func (s *MemoryStore) Create(_ context.Context, c *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := models.NormalizedEmail(c.Email)
	if _, exists := s.byEmail[email]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.byID[c.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *c
	s.byID[c.ID] = &cp
	s.byEmail[email] = c.ID
	return nil
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[models.NormalizedEmail(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *MemoryStore) Delete(_ context.Context, id domain.CredentialID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byID[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byEmail, models.NormalizedEmail(c.Email))
	delete(s.byID, id)
	return nil
}
