package models

import "intake/pkg/domain"

// MatchField names an identity comparison that succeeded.
type MatchField string

const (
	MatchEmail         MatchField = "email"
	MatchPhone         MatchField = "phone"
	MatchNameBirthdate MatchField = "name_birthdate"
)

// Match records one existing Person that collided with a candidate, with
// every comparison that succeeded, not just the first.
type Match struct {
	PersonID      domain.PersonID `json:"person_id"`
	MatchedFields []MatchField    `json:"matched_fields"`
}

// Matched reports whether the given field is among the matched ones.
func (m Match) Matched(field MatchField) bool {
	for _, f := range m.MatchedFields {
		if f == field {
			return true
		}
	}
	return false
}

// Resolution is the outcome of a duplicate check.
type Resolution struct {
	IsDuplicate bool    `json:"is_duplicate"`
	Matches     []Match `json:"matches,omitempty"`
}

// Preferred selects the match callers should reconcile to: the first whose
// matched fields include email, otherwise the first match in store order.
func (r Resolution) Preferred() (Match, bool) {
	if len(r.Matches) == 0 {
		return Match{}, false
	}
	for _, m := range r.Matches {
		if m.Matched(MatchEmail) {
			return m, true
		}
	}
	return r.Matches[0], true
}
