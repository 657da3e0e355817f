package handler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"intake/internal/platform/metrics"
	"intake/internal/platform/middleware"
	"intake/internal/registration/models"
	"intake/internal/registration/service"
	"intake/pkg/domain"
	dErrors "intake/pkg/domain-errors"
	"intake/pkg/platform/httputil"
)

// Registrar runs the registration saga.
type Registrar interface {
	Register(ctx context.Context, kind models.RegistrationKind, payload models.RegisterRequest) (*models.Result, error)
}

// RequestService drives the ServiceRequest lifecycle.
type RequestService interface {
	Approve(ctx context.Context, id domain.RequestID) (*models.ServiceRequest, string, error)
	Reject(ctx context.Context, id domain.RequestID) (*models.ServiceRequest, error)
	Complete(ctx context.Context, id domain.RequestID) (*models.ServiceRequest, error)
	Cancel(ctx context.Context, id domain.RequestID) (*models.ServiceRequest, error)
	UpdateSchedule(ctx context.Context, id domain.RequestID, date, clock string) (*models.ServiceRequest, string, error)
}

// PersonService applies contact updates to existing persons.
type PersonService interface {
	UpdateContact(ctx context.Context, id domain.PersonID, update service.ContactUpdate) (*models.Person, error)
}

// SubmissionGuard keeps a rapid double-submit of the same payload from
// running the saga twice.
type SubmissionGuard interface {
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Handler handles registration and records endpoints.
type Handler struct {
	logger        *slog.Logger
	registrar     Registrar
	requests      RequestService
	persons       PersonService
	guard         SubmissionGuard
	metrics       *metrics.Metrics
	staff         middleware.StaffValidator
	submissionTTL time.Duration
}

// New creates a new registration Handler.
func New(
	registrar Registrar,
	requests RequestService,
	persons PersonService,
	guard SubmissionGuard,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	staff middleware.StaffValidator,
	submissionTTL time.Duration,
) *Handler {
	return &Handler{
		logger:        logger,
		registrar:     registrar,
		requests:      requests,
		persons:       persons,
		guard:         guard,
		metrics:       metrics,
		staff:         staff,
		submissionTTL: submissionTTL,
	}
}

// Register registers the routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.LatencyMiddleware(h.metrics))

	router.Post("/registrations/{kind}", h.handleRegister)

	router.Group(func(staff chi.Router) {
		staff.Use(middleware.RequireStaff(h.staff, h.logger))
		staff.Post("/requests/{id}/approve", h.transitionHandler(h.approve))
		staff.Post("/requests/{id}/reject", h.transitionHandler(h.reject))
		staff.Post("/requests/{id}/complete", h.transitionHandler(h.complete))
		staff.Post("/requests/{id}/cancel", h.transitionHandler(h.cancel))
		staff.Patch("/requests/{id}/schedule", h.handleUpdateSchedule)
		staff.Patch("/persons/{id}", h.handleUpdateContact)
	})

	r.Mount("/", router)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	kind := models.RegistrationKind(chi.URLParam(r, "kind"))
	if !kind.IsValid() {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeBadRequest, "unknown registration kind %q", string(kind)))
		return
	}

	var payload models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.WarnContext(ctx, "invalid registration request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	key := submissionKey(kind, payload)
	if h.guard != nil {
		reserved, err := h.guard.Reserve(ctx, key, h.submissionTTL)
		if err != nil {
			// The guard is advisory; a broken guard must not block intake.
			h.logger.WarnContext(ctx, "submission guard unavailable",
				"request_id", requestID,
				"error", err.Error(),
			)
		} else if !reserved {
			httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, "this submission is already being processed"))
			return
		}
	}

	result, err := h.registrar.Register(ctx, kind, payload)
	if err != nil {
		if h.guard != nil {
			// A failed registration may be corrected and resubmitted at once.
			if releaseErr := h.guard.Release(ctx, key); releaseErr != nil {
				h.logger.WarnContext(ctx, "failed to release submission key",
					"request_id", requestID,
					"error", releaseErr.Error(),
				)
			}
		}
		code := dErrors.CodeOf(err)
		if code == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "registration failed",
				"request_id", requestID,
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Reconciled {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, result)
}

func (h *Handler) transitionHandler(fn func(ctx context.Context, id domain.RequestID) (*transitionResponse, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := domain.ParseRequestID(chi.URLParam(r, "id"))
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request id"))
			return
		}
		resp, err := fn(ctx, id)
		if err != nil {
			h.logTransitionFailure(ctx, id, err)
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, resp)
	}
}

func (h *Handler) approve(ctx context.Context, id domain.RequestID) (*transitionResponse, error) {
	updated, warning, err := h.requests.Approve(ctx, id)
	if err != nil {
		return nil, err
	}
	return &transitionResponse{Request: updated, SlotWarning: warning}, nil
}

func (h *Handler) reject(ctx context.Context, id domain.RequestID) (*transitionResponse, error) {
	updated, err := h.requests.Reject(ctx, id)
	if err != nil {
		return nil, err
	}
	return &transitionResponse{Request: updated}, nil
}

func (h *Handler) complete(ctx context.Context, id domain.RequestID) (*transitionResponse, error) {
	updated, err := h.requests.Complete(ctx, id)
	if err != nil {
		return nil, err
	}
	return &transitionResponse{Request: updated}, nil
}

func (h *Handler) cancel(ctx context.Context, id domain.RequestID) (*transitionResponse, error) {
	updated, err := h.requests.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}
	return &transitionResponse{Request: updated}, nil
}

func (h *Handler) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request id"))
		return
	}

	var payload updateSchedulePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	updated, warning, err := h.requests.UpdateSchedule(ctx, id, payload.Date, payload.Time)
	if err != nil {
		h.logTransitionFailure(ctx, id, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &transitionResponse{Request: updated, SlotWarning: warning})
}

func (h *Handler) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParsePersonID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid person id"))
		return
	}

	var payload contactUpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	updated, err := h.persons.UpdateContact(ctx, id, payload.toUpdate())
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "contact update failed",
				"request_id", middleware.GetRequestID(ctx),
				"person_id", id.String(),
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) logTransitionFailure(ctx context.Context, id domain.RequestID, err error) {
	if dErrors.CodeOf(err) != dErrors.CodeInternal {
		return
	}
	h.logger.ErrorContext(ctx, "request transition failed",
		"request_id", middleware.GetRequestID(ctx),
		"service_request_id", id.String(),
		"error", err.Error(),
	)
}

// submissionKey fingerprints the identity-bearing fields of a submission.
// Two submissions with the same fingerprint inside the guard window are
// treated as one.
func submissionKey(kind models.RegistrationKind, payload models.RegisterRequest) string {
	sum := sha256.Sum256([]byte(string(kind) + "|" +
		payload.FirstName + "|" + payload.LastName + "|" + payload.BirthDate + "|" +
		payload.Email + "|" + payload.Phone + "|" + payload.Service))
	return hex.EncodeToString(sum[:])
}
