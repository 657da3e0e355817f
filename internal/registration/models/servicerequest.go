package models

import (
	"time"

	"intake/pkg/domain"
	dErrors "intake/pkg/domain-errors"
)

// RequestStatus is the closed set of ServiceRequest states.
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusRejected  RequestStatus = "rejected"
	StatusCompleted RequestStatus = "completed"
	StatusCancelled RequestStatus = "cancelled"
)

// statusTransitions is the exhaustive transition table:
// pending -> approved | rejected | cancelled
// approved -> completed | cancelled
// rejected, completed, cancelled are terminal.
var statusTransitions = map[RequestStatus][]RequestStatus{
	StatusPending:   {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved:  {StatusCompleted, StatusCancelled},
	StatusRejected:  {},
	StatusCompleted: {},
	StatusCancelled: {},
}

// IsValid reports whether s is a known status.
func (s RequestStatus) IsValid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransitionTo reports whether the transition s -> next is allowed.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ServiceRequest is a request for a scheduled or unscheduled service, owned
// by exactly one Person. Date and Time are empty for unscheduled services;
// Time is stored in canonical HH:MM:SS form.
type ServiceRequest struct {
	ID         domain.RequestID  `json:"id"`
	PersonID   domain.PersonID   `json:"person_id"`
	Service    string            `json:"service"`
	Date       string            `json:"date,omitempty"` // YYYY-MM-DD
	Time       string            `json:"time,omitempty"` // HH:MM:SS
	Status     RequestStatus     `json:"status"`
	Attributes map[string]string `json:"attributes,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// CanTransition checks the transition without applying it.
func (r *ServiceRequest) CanTransition(next RequestStatus) error {
	if !next.IsValid() {
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown status %q", next)
	}
	if !r.Status.CanTransitionTo(next) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot move request from %s to %s", r.Status, next)
	}
	return nil
}

// ApplyTransition moves the request to next. Call CanTransition first; used
// inside store Execute callbacks so the check and the mutation run under the
// same lock.
func (r *ServiceRequest) ApplyTransition(next RequestStatus, now time.Time) {
	r.Status = next
	r.UpdatedAt = now
}

func NewServiceRequest(id domain.RequestID, personID domain.PersonID, service string, now time.Time) (*ServiceRequest, error) {
	if personID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "service request requires an owning person")
	}
	if service == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "service request requires a service")
	}
	return &ServiceRequest{
		ID:        id,
		PersonID:  personID,
		Service:   service,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
