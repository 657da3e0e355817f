package person

import (
	"context"
	"sync"

	"intake/internal/registration/models"
	"intake/pkg/domain"
	"intake/pkg/phone"
	"intake/pkg/platform/sentinel"
)

// MemoryStore keeps Person records in memory. Insertion order is preserved so
// List reflects store source order, which the duplicate tie-break relies on.
type MemoryStore struct {
	mu      sync.RWMutex
	persons map[domain.PersonID]*models.Person
	order   []domain.PersonID
	plan    phone.Plan
}

func NewMemory(plan phone.Plan) *MemoryStore {
	return &MemoryStore{
		persons: make(map[domain.PersonID]*models.Person),
		plan:    plan,
	}
}

func (s *MemoryStore) Create(_ context.Context, p *models.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.persons[p.ID]; exists {
		return sentinel.ErrConflict
	}
	// Uniqueness of the normalized identity fields is re-checked here: the
	// resolver runs before the write without a lock, so two concurrent
	// registrations can both pass its read.
	for _, id := range s.order {
		existing := s.persons[id]
		if p.Email != "" && models.NormalizedEmail(existing.Email) == models.NormalizedEmail(p.Email) {
			return sentinel.ErrConflict
		}
		if p.Phone != "" && existing.Phone != "" && s.plan.Equal(existing.Phone, p.Phone) {
			return sentinel.ErrConflict
		}
		if models.NameBirthKey(existing.FirstName, existing.LastName, existing.BirthDate) ==
			models.NameBirthKey(p.FirstName, p.LastName, p.BirthDate) {
			return sentinel.ErrConflict
		}
	}

	cp := *p
	s.persons[p.ID] = &cp
	s.order = append(s.order, p.ID)
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id domain.PersonID) (*models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.persons[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// List returns every Person in insertion order. The registration workflow is
// low-volume, so the resolver scans the full set rather than maintaining
// secondary indexes.
func (s *MemoryStore) List(_ context.Context) ([]*models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Person, 0, len(s.order))
	for _, id := range s.order {
		cp := *s.persons[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, p *models.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.persons[p.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *p
	s.persons[p.ID] = &cp
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id domain.PersonID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.persons[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.persons, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}
