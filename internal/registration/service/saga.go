package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"intake/internal/events"
	"intake/internal/notify"
	"intake/internal/registration/models"
	"intake/pkg/domain"
	dErrors "intake/pkg/domain-errors"
	"intake/pkg/phone"
	"intake/pkg/platform/sentinel"
	"intake/pkg/secrets"
)

// Saga orchestrates the ordered creation of Person -> ServiceRequest ->
// (optional) Credential from one external submission, with compensating
// deletes on failure. A saga invocation only ever compensates resources it
// created itself: a reconciled (pre-existing) Person is never deleted.
//
// Steps are strictly sequential, since each depends on ids the previous one
// produced, and hold no lock, so two concurrent submissions for the same
// identity can both pass the duplicate read; the store's uniqueness
// constraints are the backstop for that race.
type Saga struct {
	persons     PersonStore
	requests    RequestStore
	credentials CredentialStore
	resolver    *Resolver
	slots       *Checker
	runner      *effectRunner
	plan        phone.Plan
	cfg         *serviceConfig
	tracer      trace.Tracer
}

func NewSaga(persons PersonStore, requests RequestStore, credentials CredentialStore,
	resolver *Resolver, slots *Checker, plan phone.Plan, opts ...Option,
) *Saga {
	cfg := newServiceConfig(opts)
	return &Saga{
		persons:     persons,
		requests:    requests,
		credentials: credentials,
		resolver:    resolver,
		slots:       slots,
		runner:      newEffectRunner(cfg.notifier, cfg.events, cfg.logger),
		plan:        plan,
		cfg:         cfg,
		tracer:      otel.Tracer("intake/registration"),
	}
}

// compensation is one undo action for a resource this invocation created.
type compensation struct {
	name string
	undo func(context.Context) error
}

// Register runs one registration saga.
//
// Accounted flow: Person -> ServiceRequest -> Credential, full creation
// required; a pre-existing Person aborts with a conflict before any write.
// Unaccounted flow: Person -> ServiceRequest; a pre-existing Person is
// reconciled to rather than duplicated, and no Credential is ever created.
//
// Hard failures return a nil Result and a coded error; nothing the
// invocation created survives them. When every persistent step succeeded but
// one or more notifications failed, the Result carries the persisted
// entities with Success=false and a non-empty NotifyErrors list.
func (s *Saga) Register(ctx context.Context, kind models.RegistrationKind, payload models.RegisterRequest) (*models.Result, error) {
	ctx, span := s.tracer.Start(ctx, "registration.register",
		trace.WithAttributes(attribute.String("registration.kind", string(kind))))
	defer span.End()

	start := time.Now()
	defer func() {
		if s.cfg.metrics != nil {
			s.cfg.metrics.RegisterDurationSec.Observe(time.Since(start).Seconds())
		}
	}()

	now := s.cfg.now()
	payload.ApplyDefaults()
	if problems := payload.Validate(kind, s.plan, now); len(problems) > 0 {
		s.observe(kind, "validation_failed")
		return nil, dErrors.New(dErrors.CodeInvalidInput, strings.Join(problems, "; "))
	}

	person, fresh, err := s.resolvePerson(ctx, kind, payload, now)
	if err != nil {
		s.observe(kind, outcomeOf(err))
		return nil, err
	}

	var undo []compensation
	if fresh {
		undo = append(undo, compensation{
			name: "person",
			undo: func(ctx context.Context) error { return s.persons.Delete(ctx, person.ID) },
		})
	}

	request, slotWarning, err := s.createRequest(ctx, person.ID, payload, now)
	if err != nil {
		s.compensate(ctx, undo)
		s.observe(kind, "persistence_failed")
		return nil, err
	}
	undo = append(undo, compensation{
		name: "service_request",
		undo: func(ctx context.Context) error { return s.requests.Delete(ctx, request.ID) },
	})

	var credential *models.Credential
	var generatedSecret string
	if kind == models.KindAccounted {
		credential, generatedSecret, err = s.createCredential(ctx, payload, now)
		if err != nil {
			s.compensate(ctx, undo)
			s.observe(kind, "persistence_failed")
			return nil, err
		}
	}

	notifyErrs := s.runner.run(ctx, s.pendingEffects(kind, person, request, now))

	result := &models.Result{
		Person:          person,
		Request:         request,
		Credential:      credential,
		GeneratedSecret: generatedSecret,
		Reconciled:      !fresh,
		SlotWarning:     slotWarning,
		NotifyErrors:    notifyErrs,
	}
	if len(notifyErrs) == 0 {
		result.Success = true
		result.Message = "registration completed"
		s.observe(kind, "success")
	} else {
		result.Message = "registration stored, but some notifications failed"
		s.observe(kind, "partial")
	}
	return result, nil
}

// resolvePerson runs the duplicate check and either reconciles to an
// existing Person (unaccounted flow) or creates a fresh one. fresh reports
// whether this invocation created the returned Person and therefore owns it
// for compensation purposes.
func (s *Saga) resolvePerson(ctx context.Context, kind models.RegistrationKind, payload models.RegisterRequest, now time.Time) (person *models.Person, fresh bool, err error) {
	candidate := Candidate{
		Email:     payload.Email,
		Phone:     payload.Phone,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		BirthDate: payload.BirthDate,
	}
	resolution, err := s.resolver.Resolve(ctx, candidate, domain.PersonID{})
	if err != nil {
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "duplicate check failed")
	}

	if resolution.IsDuplicate {
		if s.cfg.metrics != nil {
			s.cfg.metrics.IncrementDuplicateHits()
		}
		if kind == models.KindAccounted {
			return nil, false, dErrors.New(dErrors.CodeConflict, "a person with the same identity is already registered")
		}
		match, _ := resolution.Preferred()
		existing, err := s.persons.FindByID(ctx, match.PersonID)
		if err != nil {
			return nil, false, wrapStoreErr(err, "failed to load matched person")
		}
		s.cfg.logger.Info("reconciled submission to existing person",
			"person_id", existing.ID.String(),
			"matched_fields", match.MatchedFields,
		)
		return existing, false, nil
	}

	person, err = s.buildPerson(payload, now)
	if err != nil {
		return nil, false, err
	}
	if err := s.persons.Create(ctx, person); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Lost the read-then-write race: another submission created this
			// identity between our duplicate read and our write.
			if kind == models.KindUnaccounted {
				return s.reconcileAfterRace(ctx, candidate)
			}
			return nil, false, dErrors.Wrap(err, dErrors.CodeConflict, "a person with the same identity is already registered")
		}
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create person")
	}
	return person, true, nil
}

// reconcileAfterRace re-resolves after a uniqueness conflict so an
// unaccounted submission still lands on the person that won the race.
func (s *Saga) reconcileAfterRace(ctx context.Context, candidate Candidate) (*models.Person, bool, error) {
	resolution, err := s.resolver.Resolve(ctx, candidate, domain.PersonID{})
	if err != nil || !resolution.IsDuplicate {
		return nil, false, dErrors.New(dErrors.CodeConflict, "person creation conflicted with a concurrent registration")
	}
	match, _ := resolution.Preferred()
	existing, err := s.persons.FindByID(ctx, match.PersonID)
	if err != nil {
		return nil, false, wrapStoreErr(err, "failed to load matched person")
	}
	return existing, false, nil
}

func (s *Saga) buildPerson(payload models.RegisterRequest, now time.Time) (*models.Person, error) {
	person, err := models.NewPerson(domain.NewPersonID(), payload.FirstName, payload.LastName, payload.BirthDate, now)
	if err != nil {
		return nil, err
	}
	person.MiddleName = payload.MiddleName
	person.Email = payload.Email
	person.Phone = payload.Phone
	person.Gender = payload.Gender
	person.Address = payload.Address
	person.Position = payload.Position
	return person, nil
}

// createRequest checks the requested slot (advisory), then persists the
// ServiceRequest in its initial pending state.
func (s *Saga) createRequest(ctx context.Context, personID domain.PersonID, payload models.RegisterRequest, now time.Time) (*models.ServiceRequest, string, error) {
	var slotWarning string
	if payload.Date != "" && payload.Time != "" {
		check, err := s.slots.Check(ctx, payload.Date, payload.Time, domain.RequestID{})
		if err != nil {
			return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "slot conflict check failed")
		}
		if check.Booked {
			if s.cfg.metrics != nil {
				s.cfg.metrics.IncrementSlotConflicts()
			}
			slotWarning = check.Warning()
		}
	}

	request, err := models.NewServiceRequest(domain.NewRequestID(), personID, payload.Service, now)
	if err != nil {
		return nil, "", err
	}
	request.Date = payload.Date
	if canonical, ok := CanonicalClock(payload.Time); ok {
		request.Time = canonical
	} else {
		request.Time = payload.Time
	}
	request.Attributes = payload.Attributes

	if err := s.requests.Create(ctx, request); err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to create service request")
	}
	return request, slotWarning, nil
}

// createCredential hashes the supplied secret, or generates one when the
// submission carried none; a generated secret is surfaced exactly once in
// the result.
func (s *Saga) createCredential(ctx context.Context, payload models.RegisterRequest, now time.Time) (*models.Credential, string, error) {
	secret := payload.Secret
	var generated string
	if secret == "" {
		var err error
		secret, err = secrets.Generate()
		if err != nil {
			return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate credential secret")
		}
		generated = secret
	}
	hash, err := secrets.Hash(secret)
	if err != nil {
		return nil, "", err
	}
	credential, err := models.NewCredential(domain.NewCredentialID(), payload.Email, hash, payload.Role, now)
	if err != nil {
		return nil, "", err
	}
	if err := s.credentials.Create(ctx, credential); err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to create credential")
	}
	return credential, generated, nil
}

// compensate deletes, in reverse creation order, every resource this
// invocation created before the failing step. A compensation failure is
// logged and swallowed so it can never mask the original error.
func (s *Saga) compensate(ctx context.Context, undo []compensation) {
	for i := len(undo) - 1; i >= 0; i-- {
		step := undo[i]
		if err := step.undo(ctx); err != nil {
			s.cfg.logger.Error("compensation failed", "resource", step.name, "error", err)
			continue
		}
		if s.cfg.metrics != nil {
			s.cfg.metrics.IncrementCompensations()
		}
		s.cfg.logger.Info("compensated resource", "resource", step.name)
	}
}

// pendingEffects builds the post-commit effect list: one notification to the
// registrant (when reachable), one to the staff contact (when configured),
// and the completion event.
func (s *Saga) pendingEffects(kind models.RegistrationKind, person *models.Person, request *models.ServiceRequest, now time.Time) effects {
	templateCtx := map[string]string{
		"first_name": person.FirstName,
		"last_name":  person.LastName,
		"service":    request.Service,
		"date":       request.Date,
		"time":       request.Time,
		"request_id": request.ID.String(),
	}

	var fx effects
	if person.Email != "" {
		fx.notifications = append(fx.notifications, notify.Message{
			Recipient: person.Email,
			Template:  notify.TemplateRegistrationReceived,
			Context:   templateCtx,
		})
	}
	if s.cfg.staffContact != "" {
		fx.notifications = append(fx.notifications, notify.Message{
			Recipient: s.cfg.staffContact,
			Template:  notify.TemplateStaffAssigned,
			Context:   templateCtx,
		})
	}
	fx.events = append(fx.events, events.Event{
		Kind:       events.KindRegistrationCompleted,
		OccurredAt: now,
		PersonID:   person.ID.String(),
		RequestID:  request.ID.String(),
		Fields: map[string]string{
			"kind":    string(kind),
			"service": request.Service,
		},
	})
	return fx
}

func (s *Saga) observe(kind models.RegistrationKind, outcome string) {
	if s.cfg.metrics != nil {
		s.cfg.metrics.ObserveRegistration(string(kind), outcome)
	}
}

func outcomeOf(err error) string {
	if dErrors.HasCode(err, dErrors.CodeConflict) {
		return "duplicate"
	}
	return "persistence_failed"
}
