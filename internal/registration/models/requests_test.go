package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"intake/pkg/domain"
	"intake/pkg/phone"
)

func mustPersonID(t *testing.T) domain.PersonID {
	t.Helper()
	return domain.NewPersonID()
}

func validRequest() RegisterRequest {
	return RegisterRequest{
		FirstName: "Jane",
		LastName:  "Doe",
		BirthDate: "2000-01-01",
		Email:     "jane.doe@example.com",
		Phone:     "09171234567",
		Service:   "health-consult",
		Date:      "2026-09-15",
		Time:      "14:05",
	}
}

func TestApplyDefaults(t *testing.T) {
	req := RegisterRequest{
		FirstName: "  Jane ",
		LastName:  " Doe",
		Email:     " Jane.Doe@Example.COM ",
		BirthDate: " 2000-01-01 ",
		Service:   " health-consult ",
	}
	req.ApplyDefaults()

	assert.Equal(t, "Jane", req.FirstName)
	assert.Equal(t, "jane.doe@example.com", req.Email)
	assert.Equal(t, "2000-01-01", req.BirthDate)
	assert.Equal(t, "resident", req.Position)
	assert.Equal(t, "member", req.Role)
}

func TestValidateAcceptsWellFormedPayload(t *testing.T) {
	req := validRequest()
	req.ApplyDefaults()
	problems := req.Validate(KindAccounted, phone.DefaultPlan(), time.Now())
	assert.Empty(t, problems)
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	plan := phone.DefaultPlan()

	t.Run("missing required fields", func(t *testing.T) {
		req := RegisterRequest{}
		req.ApplyDefaults()
		problems := req.Validate(KindAccounted, plan, now)
		assert.Contains(t, problems, "first name is required")
		assert.Contains(t, problems, "last name is required")
		assert.Contains(t, problems, "service is required")
		assert.Contains(t, problems, "birth date is required")
		assert.Contains(t, problems, "email is required for accounted registration")
	})

	t.Run("future birth date", func(t *testing.T) {
		req := validRequest()
		req.BirthDate = "2030-01-01"
		assert.Contains(t, req.Validate(KindAccounted, plan, now), "birth date must be in the past")
	})

	t.Run("malformed email", func(t *testing.T) {
		req := validRequest()
		req.Email = "not-an-address"
		assert.Contains(t, req.Validate(KindAccounted, plan, now), "email is not a valid address")
	})

	t.Run("phone digit count out of range", func(t *testing.T) {
		req := validRequest()
		req.Phone = "12"
		assert.Contains(t, req.Validate(KindUnaccounted, plan, now), "phone number has an unacceptable digit count")
	})

	t.Run("time without date", func(t *testing.T) {
		req := validRequest()
		req.Date = ""
		assert.Contains(t, req.Validate(KindUnaccounted, plan, now), "a time requires a date")
	})

	t.Run("unaccounted flow does not require email", func(t *testing.T) {
		req := validRequest()
		req.Email = ""
		assert.Empty(t, req.Validate(KindUnaccounted, plan, now))
	})

	t.Run("unknown kind", func(t *testing.T) {
		req := validRequest()
		problems := req.Validate(RegistrationKind("walkin"), plan, now)
		assert.Contains(t, problems, `unknown registration kind "walkin"`)
	})
}

func TestPreferredMatchTieBreak(t *testing.T) {
	first := Match{PersonID: mustPersonID(t), MatchedFields: []MatchField{MatchPhone}}
	second := Match{PersonID: mustPersonID(t), MatchedFields: []MatchField{MatchNameBirthdate, MatchEmail}}

	t.Run("email match wins over store order", func(t *testing.T) {
		res := Resolution{IsDuplicate: true, Matches: []Match{first, second}}
		got, ok := res.Preferred()
		assert.True(t, ok)
		assert.Equal(t, second.PersonID, got.PersonID)
	})

	t.Run("otherwise first match in store order", func(t *testing.T) {
		res := Resolution{IsDuplicate: true, Matches: []Match{first, {PersonID: mustPersonID(t), MatchedFields: []MatchField{MatchNameBirthdate}}}}
		got, ok := res.Preferred()
		assert.True(t, ok)
		assert.Equal(t, first.PersonID, got.PersonID)
	})

	t.Run("no matches", func(t *testing.T) {
		_, ok := Resolution{}.Preferred()
		assert.False(t, ok)
	})
}
