// Package notify defines the notification collaborator the registration saga
// calls after its persistent steps commit. Delivery is best-effort: failures
// are collected by the caller and never unwind persisted data.
package notify

import (
	"context"
	"log/slog"
)

// TemplateKind names a notification template.
type TemplateKind string

const (
	TemplateRegistrationReceived TemplateKind = "registration_received"
	TemplateStaffAssigned        TemplateKind = "staff_assigned"
	TemplateRequestApproved      TemplateKind = "request_approved"
	TemplateRequestRejected      TemplateKind = "request_rejected"
)

// Message is one pending notification: a recipient contact, a template, and
// the template context.
type Message struct {
	Recipient string
	Template  TemplateKind
	Context   map[string]string
}

// Notifier delivers a single notification.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// LogNotifier records deliveries to the log. It is the default runtime
// implementation until a mail transport is wired in deployment config.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, msg Message) error {
	n.logger.Info("notification dispatched",
		"recipient", msg.Recipient,
		"template", string(msg.Template),
	)
	return nil
}
