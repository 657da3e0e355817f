package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intake/internal/events"
	"intake/internal/notify"
	"intake/internal/registration/models"
	requeststore "intake/internal/registration/store/request"
	"intake/pkg/domain"
	dErrors "intake/pkg/domain-errors"
)

func seedRequest(t *testing.T, store *requeststore.MemoryStore, date, clock string, status models.RequestStatus) *models.ServiceRequest {
	t.Helper()
	r, err := models.NewServiceRequest(domain.NewRequestID(), domain.NewPersonID(), "health-consult", time.Now())
	require.NoError(t, err)
	r.Date = date
	r.Time = clock
	r.Status = status
	require.NoError(t, store.Create(context.Background(), r))
	return r
}

func newRequestsService(store *requeststore.MemoryStore, opts ...Option) *Requests {
	return NewRequests(store, NewChecker(store, slog.Default()), opts...)
}

func TestRequestsApprove(t *testing.T) {
	ctx := context.Background()

	t.Run("pending request is approved", func(t *testing.T) {
		store := requeststore.NewMemory()
		r := seedRequest(t, store, "2026-09-15", "14:05:00", models.StatusPending)

		updated, warning, err := newRequestsService(store).Approve(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, updated.Status)
		assert.Empty(t, warning)

		stored, err := store.FindByID(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, stored.Status)
	})

	t.Run("approving over an approved slot warns but succeeds", func(t *testing.T) {
		store := requeststore.NewMemory()
		seedRequest(t, store, "2026-09-15", "14:05:00", models.StatusApproved)
		r := seedRequest(t, store, "2026-09-15", "14:05:30", models.StatusPending)

		updated, warning, err := newRequestsService(store).Approve(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, updated.Status)
		assert.NotEmpty(t, warning)
	})

	t.Run("rejected request cannot be approved", func(t *testing.T) {
		store := requeststore.NewMemory()
		r := seedRequest(t, store, "2026-09-15", "14:05:00", models.StatusRejected)

		_, _, err := newRequestsService(store).Approve(ctx, r.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

		stored, findErr := store.FindByID(ctx, r.ID)
		require.NoError(t, findErr)
		assert.Equal(t, models.StatusRejected, stored.Status, "a failed transition must not mutate the record")
	})

	t.Run("unknown request id", func(t *testing.T) {
		store := requeststore.NewMemory()
		_, _, err := newRequestsService(store).Approve(ctx, domain.NewRequestID())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestRequestsLifecycle(t *testing.T) {
	ctx := context.Background()
	store := requeststore.NewMemory()
	published := events.NewMemoryPublisher()
	notifier := notify.NewMemoryNotifier()
	svc := newRequestsService(store,
		WithNotifier(notifier),
		WithEventPublisher(published),
		WithStaffContact("desk@intake.local"),
	)

	r := seedRequest(t, store, "2026-09-15", "14:05:00", models.StatusPending)

	_, _, err := svc.Approve(ctx, r.ID)
	require.NoError(t, err)

	updated, err := svc.Complete(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)

	_, err = svc.Cancel(ctx, r.ID)
	require.Error(t, err, "completed is terminal")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	kinds := make([]events.Kind, 0, 2)
	for _, e := range published.Events() {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []events.Kind{events.KindRequestApproved, events.KindRequestCompleted}, kinds)

	sent := notifier.Sent()
	require.Len(t, sent, 1, "only the approval carries a staff notification")
	assert.Equal(t, notify.TemplateRequestApproved, sent[0].Template)
}

func TestRequestsRejectAndCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("pending can be rejected", func(t *testing.T) {
		store := requeststore.NewMemory()
		r := seedRequest(t, store, "", "", models.StatusPending)
		updated, err := newRequestsService(store).Reject(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusRejected, updated.Status)
	})

	t.Run("approved can be cancelled", func(t *testing.T) {
		store := requeststore.NewMemory()
		r := seedRequest(t, store, "", "", models.StatusApproved)
		updated, err := newRequestsService(store).Cancel(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, updated.Status)
	})

	t.Run("approved cannot be rejected", func(t *testing.T) {
		store := requeststore.NewMemory()
		r := seedRequest(t, store, "", "", models.StatusApproved)
		_, err := newRequestsService(store).Reject(ctx, r.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestRequestsUpdateSchedule(t *testing.T) {
	ctx := context.Background()

	t.Run("reschedules and canonicalizes the time", func(t *testing.T) {
		store := requeststore.NewMemory()
		r := seedRequest(t, store, "2026-09-15", "14:05:00", models.StatusPending)

		updated, warning, err := newRequestsService(store).UpdateSchedule(ctx, r.ID, "2026-09-16", "2:30 PM")
		require.NoError(t, err)
		assert.Equal(t, "2026-09-16", updated.Date)
		assert.Equal(t, "14:30:00", updated.Time)
		assert.Empty(t, warning)
	})

	t.Run("moving onto an approved slot warns but succeeds", func(t *testing.T) {
		store := requeststore.NewMemory()
		seedRequest(t, store, "2026-09-16", "09:00:00", models.StatusApproved)
		r := seedRequest(t, store, "2026-09-15", "14:05:00", models.StatusPending)

		updated, warning, err := newRequestsService(store).UpdateSchedule(ctx, r.ID, "2026-09-16", "09:00")
		require.NoError(t, err)
		assert.Equal(t, "09:00:00", updated.Time)
		assert.NotEmpty(t, warning)
	})

	t.Run("a time requires a date", func(t *testing.T) {
		store := requeststore.NewMemory()
		r := seedRequest(t, store, "2026-09-15", "14:05:00", models.StatusPending)

		_, _, err := newRequestsService(store).UpdateSchedule(ctx, r.ID, "", "14:05")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects an invalid date", func(t *testing.T) {
		store := requeststore.NewMemory()
		r := seedRequest(t, store, "2026-09-15", "14:05:00", models.StatusPending)

		_, _, err := newRequestsService(store).UpdateSchedule(ctx, r.ID, "15-09-2026", "14:05")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("terminal requests are immutable", func(t *testing.T) {
		store := requeststore.NewMemory()
		r := seedRequest(t, store, "2026-09-15", "14:05:00", models.StatusCompleted)

		_, _, err := newRequestsService(store).UpdateSchedule(ctx, r.ID, "2026-09-16", "10:00")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

		stored, findErr := store.FindByID(ctx, r.ID)
		require.NoError(t, findErr)
		assert.Equal(t, "2026-09-15", stored.Date)
	})

	t.Run("clearing the schedule", func(t *testing.T) {
		store := requeststore.NewMemory()
		r := seedRequest(t, store, "2026-09-15", "14:05:00", models.StatusPending)

		updated, warning, err := newRequestsService(store).UpdateSchedule(ctx, r.ID, "", "")
		require.NoError(t, err)
		assert.Empty(t, updated.Date)
		assert.Empty(t, updated.Time)
		assert.Empty(t, warning)
	})
}
