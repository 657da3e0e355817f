package models

import (
	"strings"
	"time"

	"intake/pkg/domain"
	dErrors "intake/pkg/domain-errors"
)

// Person is the canonical identity record a registration resolves to.
//
// Invariants:
//   - FirstName and LastName are non-empty
//   - No two Persons share a normalized email, a phone (by numbering-plan
//     equality), or an identical (name, birth date) tuple, enforced by the
//     duplicate resolver before creation and again by store unique indexes
//     under read-then-write races
//   - Identity fields of a reconciled Person are never mutated by a saga
type Person struct {
	ID         domain.PersonID `json:"id"`
	FirstName  string          `json:"first_name"`
	MiddleName string          `json:"middle_name,omitempty"`
	LastName   string          `json:"last_name"`
	BirthDate  string          `json:"birth_date"` // calendar date, YYYY-MM-DD
	Email      string          `json:"email,omitempty"`
	Phone      string          `json:"phone,omitempty"`
	Gender     string          `json:"gender,omitempty"`
	Address    string          `json:"address,omitempty"`
	Position   string          `json:"position,omitempty"` // freeform role/position tag
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// NormalizedEmail lower-cases and trims an email for identity comparison.
func NormalizedEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NameBirthKey builds the case-insensitive (name, birth date) identity tuple.
func NameBirthKey(firstName, lastName, birthDate string) string {
	return strings.ToLower(strings.TrimSpace(firstName)) + "|" +
		strings.ToLower(strings.TrimSpace(lastName)) + "|" +
		strings.TrimSpace(birthDate)
}

func NewPerson(id domain.PersonID, firstName, lastName, birthDate string, now time.Time) (*Person, error) {
	if strings.TrimSpace(firstName) == "" || strings.TrimSpace(lastName) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "person name cannot be empty")
	}
	if _, err := time.Parse(time.DateOnly, birthDate); err != nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "person birth date must be a calendar date")
	}
	return &Person{
		ID:        id,
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		BirthDate: birthDate,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
