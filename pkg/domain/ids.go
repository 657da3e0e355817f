// Package domain holds shared domain primitives: typed identifiers for the
// entities the registration subsystem creates. Wrapping uuid.UUID keeps a
// PersonID from being passed where a RequestID is expected.
package domain

import "github.com/google/uuid"

type (
	// PersonID identifies a Person record.
	PersonID uuid.UUID
	// RequestID identifies a ServiceRequest record.
	RequestID uuid.UUID
	// CredentialID identifies a login Credential record.
	CredentialID uuid.UUID
)

func NewPersonID() PersonID         { return PersonID(uuid.New()) }
func NewRequestID() RequestID       { return RequestID(uuid.New()) }
func NewCredentialID() CredentialID { return CredentialID(uuid.New()) }

func (id PersonID) String() string     { return uuid.UUID(id).String() }
func (id RequestID) String() string    { return uuid.UUID(id).String() }
func (id CredentialID) String() string { return uuid.UUID(id).String() }

func (id PersonID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id RequestID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id CredentialID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id PersonID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id RequestID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id CredentialID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *PersonID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = PersonID(u)
	return nil
}

func (id *RequestID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = RequestID(u)
	return nil
}

func (id *CredentialID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = CredentialID(u)
	return nil
}

// ParsePersonID parses the canonical string form of a PersonID.
func ParsePersonID(s string) (PersonID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return PersonID{}, err
	}
	return PersonID(u), nil
}

// ParseRequestID parses the canonical string form of a RequestID.
func ParseRequestID(s string) (RequestID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return RequestID{}, err
	}
	return RequestID(u), nil
}
