package handler

import (
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intake/internal/platform/middleware"
	"intake/internal/registration/models"
	"intake/internal/registration/service"
	credentialstore "intake/internal/registration/store/credential"
	"intake/internal/registration/store/idempotency"
	personstore "intake/internal/registration/store/person"
	requeststore "intake/internal/registration/store/request"
	dErrors "intake/pkg/domain-errors"
	"intake/pkg/phone"
	"intake/pkg/testutil"
)

const (
	staffToken  = "valid-staff-token"
	memberToken = "valid-member-token"
)

type fakeStaffValidator struct{}

func (fakeStaffValidator) ValidateToken(token string) (*middleware.StaffClaims, error) {
	switch token {
	case staffToken:
		return &middleware.StaffClaims{Subject: "clerk-01", Role: "staff"}, nil
	case memberToken:
		return &middleware.StaffClaims{Subject: "resident-07", Role: "member"}, nil
	default:
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
}

type testEnv struct {
	router   chi.Router
	persons  *personstore.MemoryStore
	requests *requeststore.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	plan := phone.DefaultPlan()
	persons := personstore.NewMemory(plan)
	requests := requeststore.NewMemory()
	credentials := credentialstore.NewMemory()

	logger := slog.Default()
	resolver := service.NewResolver(persons, plan)
	checker := service.NewChecker(requests, logger)
	saga := service.NewSaga(persons, requests, credentials, resolver, checker, plan)
	requestsSvc := service.NewRequests(requests, checker)
	personsSvc := service.NewPersons(persons, resolver)

	h := New(saga, requestsSvc, personsSvc, idempotency.NewMemory(),
		logger, nil, fakeStaffValidator{}, 10*time.Minute)

	router := chi.NewRouter()
	h.Register(router)
	return &testEnv{router: router, persons: persons, requests: requests}
}

func registrationBody(email string) map[string]any {
	return map[string]any{
		"first_name": "Jane",
		"last_name":  "Doe",
		"birth_date": "2000-01-01",
		"email":      email,
		"phone":      "09171234567",
		"service":    "health-consult",
		"date":       "2026-09-15",
		"time":       "14:05",
	}
}

func TestHandleRegister(t *testing.T) {
	t.Run("accounted registration succeeds", func(t *testing.T) {
		env := newTestEnv(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/registrations/accounted", registrationBody("jane@example.com"))
		rr := testutil.DoRequest(env.router, req)

		testutil.AssertStatus(t, rr, http.StatusCreated)
		testutil.AssertJSONContains(t, rr, "success", true)
		testutil.AssertJSONHasKey(t, rr, "person")
		testutil.AssertJSONHasKey(t, rr, "service_request")
		testutil.AssertJSONHasKey(t, rr, "credential")
		testutil.AssertJSONHasKey(t, rr, "generated_secret")
	})

	t.Run("credential secret hash never leaves the API", func(t *testing.T) {
		env := newTestEnv(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/registrations/accounted", registrationBody("jane@example.com"))
		rr := testutil.DoRequest(env.router, req)

		testutil.AssertStatus(t, rr, http.StatusCreated)
		assert.NotContains(t, string(testutil.ReadBody(t, rr)), "secret_hash")
	})

	t.Run("unaccounted reconciliation returns 200", func(t *testing.T) {
		env := newTestEnv(t)
		first := testutil.DoRequest(env.router, testutil.NewJSONRequest(t, http.MethodPost, "/registrations/unaccounted", registrationBody("jane@example.com")))
		testutil.AssertStatus(t, first, http.StatusCreated)

		body := registrationBody("jane@example.com")
		body["service"] = "document-request"
		second := testutil.DoRequest(env.router, testutil.NewJSONRequest(t, http.MethodPost, "/registrations/unaccounted", body))
		testutil.AssertStatus(t, second, http.StatusOK)
		testutil.AssertJSONContains(t, second, "reconciled", true)
	})

	t.Run("unknown kind", func(t *testing.T) {
		env := newTestEnv(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/registrations/express", registrationBody("jane@example.com"))
		rr := testutil.DoRequest(env.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
	})

	t.Run("malformed body", func(t *testing.T) {
		env := newTestEnv(t)
		req := testutil.NewRequestWithBody(t, http.MethodPost, "/registrations/accounted", "{not json")
		rr := testutil.DoRequest(env.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
	})

	t.Run("validation problems surface as invalid_input", func(t *testing.T) {
		env := newTestEnv(t)
		body := registrationBody("jane@example.com")
		body["birth_date"] = "2099-01-01"
		rr := testutil.DoRequest(env.router, testutil.NewJSONRequest(t, http.MethodPost, "/registrations/accounted", body))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
	})

	t.Run("duplicate identity returns conflict", func(t *testing.T) {
		env := newTestEnv(t)
		first := testutil.DoRequest(env.router, testutil.NewJSONRequest(t, http.MethodPost, "/registrations/accounted", registrationBody("jane@example.com")))
		testutil.AssertStatus(t, first, http.StatusCreated)

		body := registrationBody("other@example.com")
		body["phone"] = "+639171234567"
		second := testutil.DoRequest(env.router, testutil.NewJSONRequest(t, http.MethodPost, "/registrations/accounted", body))
		testutil.AssertStatusAndError(t, second, http.StatusConflict, "conflict")
	})

	t.Run("rapid double submit of the same payload is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		first := testutil.DoRequest(env.router, testutil.NewJSONRequest(t, http.MethodPost, "/registrations/accounted", registrationBody("jane@example.com")))
		testutil.AssertStatus(t, first, http.StatusCreated)

		second := testutil.DoRequest(env.router, testutil.NewJSONRequest(t, http.MethodPost, "/registrations/accounted", registrationBody("jane@example.com")))
		testutil.AssertStatusAndError(t, second, http.StatusConflict, "conflict")
	})

	t.Run("a failed submission can be corrected and resubmitted", func(t *testing.T) {
		env := newTestEnv(t)
		body := registrationBody("jane@example.com")
		body["service"] = ""
		first := testutil.DoRequest(env.router, testutil.NewJSONRequest(t, http.MethodPost, "/registrations/accounted", body))
		testutil.AssertStatus(t, first, http.StatusBadRequest)

		second := testutil.DoRequest(env.router, testutil.NewJSONRequest(t, http.MethodPost, "/registrations/accounted", body))
		testutil.AssertStatus(t, second, http.StatusBadRequest)
	})
}

func TestStaffEndpoints(t *testing.T) {
	register := func(t *testing.T, env *testEnv) map[string]any {
		t.Helper()
		rr := testutil.DoRequest(env.router, testutil.NewJSONRequest(t, http.MethodPost, "/registrations/unaccounted", registrationBody("jane@example.com")))
		testutil.AssertStatus(t, rr, http.StatusCreated)
		return *testutil.UnmarshalResponse[map[string]any](t, rr)
	}
	requestID := func(t *testing.T, result map[string]any) string {
		t.Helper()
		sr, ok := result["service_request"].(map[string]any)
		require.True(t, ok)
		id, ok := sr["id"].(string)
		require.True(t, ok)
		return id
	}

	t.Run("missing token", func(t *testing.T) {
		env := newTestEnv(t)
		rr := testutil.DoRequest(env.router, testutil.NewJSONRequest(t, http.MethodPost, "/requests/"+"00000000-0000-0000-0000-000000000000"+"/approve", nil))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("member role is forbidden", func(t *testing.T) {
		env := newTestEnv(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/requests/00000000-0000-0000-0000-000000000000/approve", nil)
		req.Header.Set("Authorization", "Bearer "+memberToken)
		rr := testutil.DoRequest(env.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
	})

	t.Run("approve then complete", func(t *testing.T) {
		env := newTestEnv(t)
		id := requestID(t, register(t, env))

		approve := testutil.NewJSONRequest(t, http.MethodPost, "/requests/"+id+"/approve", nil)
		approve.Header.Set("Authorization", "Bearer "+staffToken)
		rr := testutil.DoRequest(env.router, approve)
		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[transitionResponse](t, rr)
		assert.Equal(t, models.StatusApproved, resp.Request.Status)

		complete := testutil.NewJSONRequest(t, http.MethodPost, "/requests/"+id+"/complete", nil)
		complete.Header.Set("Authorization", "Bearer "+staffToken)
		rr = testutil.DoRequest(env.router, complete)
		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	t.Run("invalid transition is unprocessable", func(t *testing.T) {
		env := newTestEnv(t)
		id := requestID(t, register(t, env))

		complete := testutil.NewJSONRequest(t, http.MethodPost, "/requests/"+id+"/complete", nil)
		complete.Header.Set("Authorization", "Bearer "+staffToken)
		rr := testutil.DoRequest(env.router, complete)
		testutil.AssertStatusAndError(t, rr, http.StatusUnprocessableEntity, "invariant_violation")
	})

	t.Run("unknown request id", func(t *testing.T) {
		env := newTestEnv(t)
		reject := testutil.NewJSONRequest(t, http.MethodPost, "/requests/7b8e1f52-6a3d-4f4e-9d1c-0a5b9c2e4d6f/reject", nil)
		reject.Header.Set("Authorization", "Bearer "+staffToken)
		rr := testutil.DoRequest(env.router, reject)
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
	})

	t.Run("malformed request id", func(t *testing.T) {
		env := newTestEnv(t)
		cancel := testutil.NewJSONRequest(t, http.MethodPost, "/requests/not-a-uuid/cancel", nil)
		cancel.Header.Set("Authorization", "Bearer "+staffToken)
		rr := testutil.DoRequest(env.router, cancel)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
	})

	t.Run("reschedule canonicalizes the time", func(t *testing.T) {
		env := newTestEnv(t)
		id := requestID(t, register(t, env))

		req := testutil.NewJSONRequest(t, http.MethodPatch, "/requests/"+id+"/schedule", updateSchedulePayload{Date: "2026-09-16", Time: "2:30 PM"})
		req.Header.Set("Authorization", "Bearer "+staffToken)
		rr := testutil.DoRequest(env.router, req)
		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[transitionResponse](t, rr)
		assert.Equal(t, "2026-09-16", resp.Request.Date)
		assert.Equal(t, "14:30:00", resp.Request.Time)
	})

	t.Run("contact update", func(t *testing.T) {
		env := newTestEnv(t)
		result := register(t, env)
		person, ok := result["person"].(map[string]any)
		require.True(t, ok)
		personID, ok := person["id"].(string)
		require.True(t, ok)

		req := testutil.NewJSONRequest(t, http.MethodPatch, "/persons/"+personID, contactUpdatePayload{Address: "12 Mabini St"})
		req.Header.Set("Authorization", "Bearer "+staffToken)
		rr := testutil.DoRequest(env.router, req)
		testutil.AssertStatus(t, rr, http.StatusOK)
		testutil.AssertJSONContains(t, rr, "address", "12 Mabini St")
	})
}
