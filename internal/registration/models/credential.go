package models

import (
	"time"

	"intake/pkg/domain"
	dErrors "intake/pkg/domain-errors"
)

// CredentialStatus is the state of a login credential.
type CredentialStatus string

const (
	CredentialActive   CredentialStatus = "active"
	CredentialDisabled CredentialStatus = "disabled"
)

// Credential is a login identity bound 1:1 to a Person's email. The secret is
// stored as a bcrypt hash only; the plaintext is returned exactly once, in
// the registration result, when it was generated server-side.
type Credential struct {
	ID         domain.CredentialID `json:"id"`
	Email      string              `json:"email"`
	SecretHash string              `json:"-"`
	Role       string              `json:"role"`
	Status     CredentialStatus    `json:"status"`
	CreatedAt  time.Time           `json:"created_at"`
}

func NewCredential(id domain.CredentialID, email, secretHash, role string, now time.Time) (*Credential, error) {
	if NormalizedEmail(email) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "credential requires an email")
	}
	if secretHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "credential requires a hashed secret")
	}
	if role == "" {
		role = "member"
	}
	return &Credential{
		ID:         id,
		Email:      NormalizedEmail(email),
		SecretHash: secretHash,
		Role:       role,
		Status:     CredentialActive,
		CreatedAt:  now,
	}, nil
}
