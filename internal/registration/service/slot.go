package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"intake/internal/registration/models"
	"intake/pkg/domain"
)

// clockLayouts are the accepted clock-string forms, tried in order.
var clockLayouts = []string{
	"15:04:05",
	"15:04",
	"3:04:05 PM",
	"3:04 PM",
	"3:04PM",
	"3 PM",
	"3PM",
}

// CanonicalClock parses a clock string in any accepted format and returns
// the canonical HH:MM:SS form. ok is false when no layout matches.
func CanonicalClock(raw string) (canonical string, ok bool) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" {
		return "", false
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("15:04:05"), true
		}
	}
	return "", false
}

// sameMinute compares two canonical HH:MM:SS strings ignoring seconds.
// Minute granularity is deliberate: second-level comparison would report
// spurious near-miss conflicts.
func sameMinute(a, b string) bool {
	if len(a) < 5 || len(b) < 5 {
		return false
	}
	return a[:5] == b[:5]
}

// Checker decides whether a requested date/time collides with an existing
// confirmed reservation. Its verdict is advisory: callers attach it to the
// response as a warning and never block the write on it.
type Checker struct {
	requests RequestStore
	logger   *slog.Logger
}

func NewChecker(requests RequestStore, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{requests: requests, logger: logger}
}

// Check reports whether the slot at date/clock is already booked by an
// approved request. Only requests whose status is exactly "approved" block a
// slot; pending, rejected, cancelled, and completed never do.
// excludeRequestID removes a request (e.g. the one being updated) from
// consideration.
//
// A clock string that parses in no accepted format fails OPEN: the checker
// reports the slot free rather than letting a malformed time block a
// registration.
func (c *Checker) Check(ctx context.Context, date, clock string, excludeRequestID domain.RequestID) (models.SlotCheck, error) {
	if date == "" || clock == "" {
		return models.SlotCheck{}, nil
	}
	canonical, ok := CanonicalClock(clock)
	if !ok {
		c.logger.Warn("unparseable time string, skipping slot check", "time", clock)
		return models.SlotCheck{}, nil
	}

	sameDay, err := c.requests.FindByDate(ctx, date)
	if err != nil {
		return models.SlotCheck{}, err
	}
	for _, existing := range sameDay {
		if !excludeRequestID.IsNil() && existing.ID == excludeRequestID {
			continue
		}
		if existing.Status != models.StatusApproved {
			continue
		}
		existingCanonical, ok := CanonicalClock(existing.Time)
		if !ok {
			continue
		}
		if sameMinute(canonical, existingCanonical) {
			return models.SlotCheck{Booked: true, Conflict: existing}, nil
		}
	}
	return models.SlotCheck{}, nil
}
