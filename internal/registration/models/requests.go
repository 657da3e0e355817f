package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"intake/pkg/phone"
)

// RegistrationKind selects the saga flow.
type RegistrationKind string

const (
	// KindAccounted creates Person, ServiceRequest, and Credential; a
	// pre-existing Person aborts the registration.
	KindAccounted RegistrationKind = "accounted"
	// KindUnaccounted creates Person and ServiceRequest only; a
	// pre-existing Person is reconciled to, never duplicated.
	KindUnaccounted RegistrationKind = "unaccounted"
)

func (k RegistrationKind) IsValid() bool {
	return k == KindAccounted || k == KindUnaccounted
}

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// RegisterRequest is the single external submission a registration starts
// from: person identity fields plus the service request fields.
type RegisterRequest struct {
	FirstName  string            `json:"first_name"`
	MiddleName string            `json:"middle_name,omitempty"`
	LastName   string            `json:"last_name"`
	BirthDate  string            `json:"birth_date"`
	Email      string            `json:"email,omitempty"`
	Phone      string            `json:"phone,omitempty"`
	Gender     string            `json:"gender,omitempty"`
	Address    string            `json:"address,omitempty"`
	Position   string            `json:"position,omitempty"`
	Service    string            `json:"service"`
	Date       string            `json:"date,omitempty"`
	Time       string            `json:"time,omitempty"`
	Role       string            `json:"role,omitempty"`
	Secret     string            `json:"secret,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// ApplyDefaults normalizes whitespace and fills defaulted fields. Kept
// separate from Validate so defaults are testable on their own.
func (r *RegisterRequest) ApplyDefaults() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.MiddleName = strings.TrimSpace(r.MiddleName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.BirthDate = strings.TrimSpace(r.BirthDate)
	r.Email = NormalizedEmail(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Service = strings.TrimSpace(r.Service)
	r.Date = strings.TrimSpace(r.Date)
	r.Time = strings.TrimSpace(r.Time)
	if r.Position == "" {
		r.Position = "resident"
	}
	if r.Role == "" {
		r.Role = "member"
	}
}

// Validate checks required fields and format rules for the given flow. It
// returns every problem found, not just the first; an empty slice means the
// payload is acceptable. No store access happens here.
func (r *RegisterRequest) Validate(kind RegistrationKind, plan phone.Plan, now time.Time) []string {
	var problems []string

	if !kind.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown registration kind %q", kind))
	}
	if r.FirstName == "" {
		problems = append(problems, "first name is required")
	}
	if r.LastName == "" {
		problems = append(problems, "last name is required")
	}
	if r.Service == "" {
		problems = append(problems, "service is required")
	}

	switch {
	case r.BirthDate == "":
		problems = append(problems, "birth date is required")
	default:
		born, err := time.Parse(time.DateOnly, r.BirthDate)
		if err != nil {
			problems = append(problems, "birth date must be a valid date in YYYY-MM-DD form")
		} else if !born.Before(now) {
			problems = append(problems, "birth date must be in the past")
		}
	}

	if kind == KindAccounted && r.Email == "" {
		problems = append(problems, "email is required for accounted registration")
	}
	if r.Email != "" && !emailShape.MatchString(r.Email) {
		problems = append(problems, "email is not a valid address")
	}
	if r.Phone != "" && !plan.Valid(r.Phone) {
		problems = append(problems, "phone number has an unacceptable digit count")
	}
	if r.Date != "" {
		if _, err := time.Parse(time.DateOnly, r.Date); err != nil {
			problems = append(problems, "date must be a valid date in YYYY-MM-DD form")
		}
	}
	if r.Time != "" && r.Date == "" {
		problems = append(problems, "a time requires a date")
	}

	return problems
}
