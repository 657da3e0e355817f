package service

import (
	"context"
	"time"

	"intake/internal/events"
	"intake/internal/notify"
	"intake/internal/registration/models"
	"intake/pkg/domain"
	dErrors "intake/pkg/domain-errors"
)

// Requests owns the ServiceRequest lifecycle after the saga hands a request
// off in its initial pending state: approve, reject, complete, cancel, and
// schedule changes. Transitions are validated and applied inside the store's
// Execute callback so the check and the mutation run under one lock.
type Requests struct {
	requests RequestStore
	slots    *Checker
	runner   *effectRunner
	cfg      *serviceConfig
}

func NewRequests(requests RequestStore, slots *Checker, opts ...Option) *Requests {
	cfg := newServiceConfig(opts)
	return &Requests{
		requests: requests,
		slots:    slots,
		runner:   newEffectRunner(cfg.notifier, cfg.events, cfg.logger),
		cfg:      cfg,
	}
}

// Approve moves a pending request to approved. The requested slot is
// re-checked first, excluding the request itself; a conflict is returned as
// an advisory warning, never a block.
func (s *Requests) Approve(ctx context.Context, id domain.RequestID) (*models.ServiceRequest, string, error) {
	current, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return nil, "", wrapStoreErr(err, "service request not found")
	}

	var warning string
	check, err := s.slots.Check(ctx, current.Date, current.Time, id)
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "slot conflict check failed")
	}
	if check.Booked {
		if s.cfg.metrics != nil {
			s.cfg.metrics.IncrementSlotConflicts()
		}
		warning = check.Warning()
	}

	updated, err := s.transition(ctx, id, models.StatusApproved, events.KindRequestApproved, notify.TemplateRequestApproved)
	if err != nil {
		return nil, "", err
	}
	return updated, warning, nil
}

// Reject moves a pending request to rejected.
func (s *Requests) Reject(ctx context.Context, id domain.RequestID) (*models.ServiceRequest, error) {
	return s.transition(ctx, id, models.StatusRejected, events.KindRequestRejected, notify.TemplateRequestRejected)
}

// Complete moves an approved request to completed.
func (s *Requests) Complete(ctx context.Context, id domain.RequestID) (*models.ServiceRequest, error) {
	return s.transition(ctx, id, models.StatusCompleted, events.KindRequestCompleted, "")
}

// Cancel cancels a pending or approved request.
func (s *Requests) Cancel(ctx context.Context, id domain.RequestID) (*models.ServiceRequest, error) {
	return s.transition(ctx, id, models.StatusCancelled, events.KindRequestCancelled, "")
}

func (s *Requests) transition(ctx context.Context, id domain.RequestID, next models.RequestStatus, eventKind events.Kind, template notify.TemplateKind) (*models.ServiceRequest, error) {
	now := s.cfg.now()
	updated, err := s.requests.Execute(ctx, id,
		func(r *models.ServiceRequest) error { return r.CanTransition(next) },
		func(r *models.ServiceRequest) { r.ApplyTransition(next, now) },
	)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to transition service request")
	}

	fx := effects{
		events: []events.Event{{
			Kind:       eventKind,
			OccurredAt: now,
			PersonID:   updated.PersonID.String(),
			RequestID:  updated.ID.String(),
		}},
	}
	if template != "" {
		if contact := s.cfg.staffContact; contact != "" {
			fx.notifications = append(fx.notifications, notify.Message{
				Recipient: contact,
				Template:  template,
				Context: map[string]string{
					"request_id": updated.ID.String(),
					"service":    updated.Service,
					"status":     string(updated.Status),
				},
			})
		}
	}
	if failures := s.runner.run(ctx, fx); len(failures) > 0 {
		s.cfg.logger.Warn("transition notifications incomplete", "request_id", updated.ID.String(), "failures", len(failures))
	}
	return updated, nil
}

// UpdateSchedule changes a request's date and time. Terminal requests are
// immutable. The conflict check excludes the request being moved; its
// verdict is advisory and returned as a warning.
func (s *Requests) UpdateSchedule(ctx context.Context, id domain.RequestID, date, clock string) (*models.ServiceRequest, string, error) {
	if date == "" && clock != "" {
		return nil, "", dErrors.New(dErrors.CodeInvalidInput, "a time requires a date")
	}
	if date != "" {
		if _, err := time.Parse(time.DateOnly, date); err != nil {
			return nil, "", dErrors.New(dErrors.CodeInvalidInput, "date must be a valid date in YYYY-MM-DD form")
		}
	}

	var warning string
	check, err := s.slots.Check(ctx, date, clock, id)
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "slot conflict check failed")
	}
	if check.Booked {
		if s.cfg.metrics != nil {
			s.cfg.metrics.IncrementSlotConflicts()
		}
		warning = check.Warning()
	}

	canonical := clock
	if c, ok := CanonicalClock(clock); ok {
		canonical = c
	}

	now := s.cfg.now()
	updated, err := s.requests.Execute(ctx, id,
		func(r *models.ServiceRequest) error {
			if r.Status != models.StatusPending && r.Status != models.StatusApproved {
				return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot reschedule a %s request", r.Status)
			}
			return nil
		},
		func(r *models.ServiceRequest) {
			r.Date = date
			r.Time = canonical
			r.UpdatedAt = now
		},
	)
	if err != nil {
		return nil, "", wrapStoreErr(err, "failed to reschedule service request")
	}
	return updated, warning, nil
}
