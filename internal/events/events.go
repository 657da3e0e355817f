// Package events publishes post-commit registration events to a broker.
// Publishing is best-effort and runs only after every persistent step of a
// registration has succeeded; a broker failure never unwinds stored data.
package events

import (
	"context"
	"time"
)

// Kind names a registration event.
type Kind string

const (
	KindRegistrationCompleted Kind = "registration.completed"
	KindRequestApproved       Kind = "request.approved"
	KindRequestRejected       Kind = "request.rejected"
	KindRequestCompleted      Kind = "request.completed"
	KindRequestCancelled      Kind = "request.cancelled"
)

// Event is the broker payload for one registration fact.
type Event struct {
	Kind       Kind              `json:"kind"`
	OccurredAt time.Time         `json:"occurred_at"`
	PersonID   string            `json:"person_id,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
}

// Publisher emits registration events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
