package request

import (
	"context"
	"sync"

	"intake/internal/registration/models"
	"intake/pkg/domain"
	"intake/pkg/platform/sentinel"
)

// MemoryStore keeps ServiceRequest records in memory, insertion-ordered.
type MemoryStore struct {
	mu       sync.RWMutex
	requests map[domain.RequestID]*models.ServiceRequest
	order    []domain.RequestID
}

func NewMemory() *MemoryStore {
	return &MemoryStore{requests: make(map[domain.RequestID]*models.ServiceRequest)}
}

func (s *MemoryStore) Create(_ context.Context, r *models.ServiceRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.requests[r.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *r
	s.requests[r.ID] = &cp
	s.order = append(s.order, r.ID)
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id domain.RequestID) (*models.ServiceRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.requests[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// FindByDate returns every request scheduled on the given calendar date, in
// insertion order.
func (s *MemoryStore) FindByDate(_ context.Context, date string) ([]*models.ServiceRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.ServiceRequest
	for _, id := range s.order {
		r := s.requests[id]
		if r.Date == date {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Execute runs validate and apply on the request under the store lock, so a
// status check and its mutation cannot interleave with another writer.
func (s *MemoryStore) Execute(_ context.Context, id domain.RequestID,
	validate func(*models.ServiceRequest) error,
	apply func(*models.ServiceRequest),
) (*models.ServiceRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(r); err != nil {
		return nil, err
	}
	apply(r)
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) Delete(_ context.Context, id domain.RequestID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.requests, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}
