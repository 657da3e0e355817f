package service

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"intake/internal/events"
	"intake/internal/notify"
)

// effects is everything a saga decided to do after its persistent steps
// committed: notifications to deliver and events to publish. Keeping the
// decision (building this list) separate from the execution makes the saga
// testable without any delivery dependency.
type effects struct {
	notifications []notify.Message
	events        []events.Event
}

// effectRunner executes post-commit effects. Notification failures are
// collected and returned; they never unwind persisted data. Event publish
// failures are logged only; the broker is an observer, not a participant.
type effectRunner struct {
	notifier notify.Notifier
	events   events.Publisher
	logger   *slog.Logger
}

func newEffectRunner(notifier notify.Notifier, publisher events.Publisher, logger *slog.Logger) *effectRunner {
	return &effectRunner{notifier: notifier, events: publisher, logger: logger}
}

// run delivers every pending effect. Notifications for independent
// recipients run concurrently; the returned slice holds one entry per failed
// delivery.
func (r *effectRunner) run(ctx context.Context, fx effects) []string {
	var (
		mu       sync.Mutex
		failures []string
	)
	if r.notifier != nil && len(fx.notifications) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		for _, msg := range fx.notifications {
			g.Go(func() error {
				if err := r.notifier.Notify(gctx, msg); err != nil {
					r.logger.Warn("notification failed",
						"recipient", msg.Recipient,
						"template", string(msg.Template),
						"error", err,
					)
					mu.Lock()
					failures = append(failures, "failed to notify "+msg.Recipient+": "+err.Error())
					mu.Unlock()
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	for _, event := range fx.events {
		if r.events == nil {
			break
		}
		if err := r.events.Publish(ctx, event); err != nil {
			r.logger.Warn("event publish failed", "kind", string(event.Kind), "error", err)
		}
	}
	return failures
}
