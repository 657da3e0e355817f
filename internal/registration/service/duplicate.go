package service

import (
	"context"

	"intake/internal/registration/models"
	"intake/pkg/domain"
	"intake/pkg/phone"
)

// Candidate carries the identity fields of a submission for duplicate
// resolution.
type Candidate struct {
	Email     string
	Phone     string
	FirstName string
	LastName  string
	BirthDate string
}

// Resolver decides whether a candidate person already exists and which
// identity fields matched. A candidate is a duplicate when ANY of the three
// normalized comparisons succeeds: email, phone, or (name, birth date).
type Resolver struct {
	persons PersonStore
	plan    phone.Plan
}

func NewResolver(persons PersonStore, plan phone.Plan) *Resolver {
	return &Resolver{persons: persons, plan: plan}
}

// Resolve scans the person store for identity collisions. excludeID, when
// non-nil, removes that person from consideration, as when checking an
// update against the record itself. Store failures propagate as-is; there
// are no retries.
func (r *Resolver) Resolve(ctx context.Context, cand Candidate, excludeID domain.PersonID) (models.Resolution, error) {
	existing, err := r.persons.List(ctx)
	if err != nil {
		return models.Resolution{}, err
	}

	candEmail := models.NormalizedEmail(cand.Email)
	compareNameBirth := cand.FirstName != "" && cand.LastName != "" && cand.BirthDate != ""
	candKey := models.NameBirthKey(cand.FirstName, cand.LastName, cand.BirthDate)

	var res models.Resolution
	for _, p := range existing {
		if !excludeID.IsNil() && p.ID == excludeID {
			continue
		}
		// Record every comparison that succeeds, not just the first.
		var fields []models.MatchField
		if candEmail != "" && models.NormalizedEmail(p.Email) == candEmail {
			fields = append(fields, models.MatchEmail)
		}
		if cand.Phone != "" && p.Phone != "" && r.plan.Equal(cand.Phone, p.Phone) {
			fields = append(fields, models.MatchPhone)
		}
		if compareNameBirth && models.NameBirthKey(p.FirstName, p.LastName, p.BirthDate) == candKey {
			fields = append(fields, models.MatchNameBirthdate)
		}
		if len(fields) > 0 {
			res.Matches = append(res.Matches, models.Match{PersonID: p.ID, MatchedFields: fields})
		}
	}
	res.IsDuplicate = len(res.Matches) > 0
	return res, nil
}
