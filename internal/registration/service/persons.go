package service

import (
	"context"
	"strings"

	"intake/internal/registration/models"
	"intake/pkg/domain"
	dErrors "intake/pkg/domain-errors"
)

// Persons owns updates to Person records after creation. Identity fields
// (name, birth date) are immutable here; only contact and demographic fields
// change, and never into a collision with another person.
type Persons struct {
	persons  PersonStore
	resolver *Resolver
	cfg      *serviceConfig
}

func NewPersons(persons PersonStore, resolver *Resolver, opts ...Option) *Persons {
	return &Persons{persons: persons, resolver: resolver, cfg: newServiceConfig(opts)}
}

// ContactUpdate carries the updatable fields. Empty strings leave the stored
// value unchanged.
type ContactUpdate struct {
	Email    string
	Phone    string
	Gender   string
	Address  string
	Position string
}

// UpdateContact applies a contact update. The duplicate check runs with the
// person itself excluded, so an unchanged email or phone never trips the
// uniqueness rule while a collision with a different person still does.
func (s *Persons) UpdateContact(ctx context.Context, id domain.PersonID, update ContactUpdate) (*models.Person, error) {
	person, err := s.persons.FindByID(ctx, id)
	if err != nil {
		return nil, wrapStoreErr(err, "person not found")
	}

	if email := models.NormalizedEmail(update.Email); email != "" {
		person.Email = email
	}
	if phoneNo := strings.TrimSpace(update.Phone); phoneNo != "" {
		person.Phone = phoneNo
	}
	if update.Gender != "" {
		person.Gender = update.Gender
	}
	if update.Address != "" {
		person.Address = update.Address
	}
	if update.Position != "" {
		person.Position = update.Position
	}

	resolution, err := s.resolver.Resolve(ctx, Candidate{
		Email: person.Email,
		Phone: person.Phone,
	}, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "duplicate check failed")
	}
	if resolution.IsDuplicate {
		return nil, dErrors.New(dErrors.CodeConflict, "contact details already belong to another person")
	}

	person.UpdatedAt = s.cfg.now()
	if err := s.persons.Update(ctx, person); err != nil {
		return nil, wrapStoreErr(err, "failed to update person")
	}
	return person, nil
}
