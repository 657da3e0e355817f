// Package service holds the registration subsystem's decision logic: the
// duplicate resolver, the slot conflict checker, the registration saga, and
// the lifecycle operations on the records a saga created.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"intake/internal/events"
	"intake/internal/notify"
	regmetrics "intake/internal/registration/metrics"
	"intake/internal/registration/models"
	"intake/pkg/domain"
	dErrors "intake/pkg/domain-errors"
	"intake/pkg/platform/sentinel"
)

// PersonStore is the persistence surface the registration flow needs for
// Person records. Implementations must enforce uniqueness of the normalized
// identity fields on Create; the resolver read and the saga write are not
// serialized.
type PersonStore interface {
	Create(ctx context.Context, p *models.Person) error
	FindByID(ctx context.Context, id domain.PersonID) (*models.Person, error)
	List(ctx context.Context) ([]*models.Person, error)
	Update(ctx context.Context, p *models.Person) error
	Delete(ctx context.Context, id domain.PersonID) error
}

// RequestStore is the persistence surface for ServiceRequest records.
// Execute must run validate and apply atomically against other writers.
type RequestStore interface {
	Create(ctx context.Context, r *models.ServiceRequest) error
	FindByID(ctx context.Context, id domain.RequestID) (*models.ServiceRequest, error)
	FindByDate(ctx context.Context, date string) ([]*models.ServiceRequest, error)
	Execute(ctx context.Context, id domain.RequestID,
		validate func(*models.ServiceRequest) error,
		apply func(*models.ServiceRequest)) (*models.ServiceRequest, error)
	Delete(ctx context.Context, id domain.RequestID) error
}

// CredentialStore is the persistence surface for login credentials.
type CredentialStore interface {
	Create(ctx context.Context, c *models.Credential) error
	FindByEmail(ctx context.Context, email string) (*models.Credential, error)
	Delete(ctx context.Context, id domain.CredentialID) error
}

type serviceConfig struct {
	logger       *slog.Logger
	metrics      *regmetrics.Metrics
	notifier     notify.Notifier
	events       events.Publisher
	staffContact string
	now          func() time.Time
}

func newServiceConfig(opts []Option) *serviceConfig {
	cfg := &serviceConfig{now: time.Now}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return cfg
}

// Option configures the registration services.
type Option func(*serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) { c.logger = logger }
}

func WithMetrics(m *regmetrics.Metrics) Option {
	return func(c *serviceConfig) { c.metrics = m }
}

func WithNotifier(n notify.Notifier) Option {
	return func(c *serviceConfig) { c.notifier = n }
}

func WithEventPublisher(p events.Publisher) Option {
	return func(c *serviceConfig) { c.events = p }
}

// WithStaffContact sets the contact that receives the staff-facing
// notification for each new registration.
func WithStaffContact(contact string) Option {
	return func(c *serviceConfig) { c.staffContact = contact }
}

// WithClock fixes the time source; tests use it for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *serviceConfig) { c.now = now }
}

// wrapStoreErr translates storage sentinels into coded errors. Errors that
// already carry a code pass through untouched.
func wrapStoreErr(err error, message string) error {
	if err == nil {
		return nil
	}
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, message)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, message)
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, message)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, message)
	}
}
