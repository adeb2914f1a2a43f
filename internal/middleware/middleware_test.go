package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedback-hub/internal/auth"
	"feedback-hub/internal/metrics"
	"feedback-hub/internal/models"
	"feedback-hub/internal/policy"
	"feedback-hub/internal/repository/memory"
	"feedback-hub/internal/rolecache"
	"feedback-hub/internal/service"
	"feedback-hub/internal/utils"
)

type harness struct {
	pipe   *Pipeline
	signer *auth.HMACVerifier
	users  *memory.UserRepo
	cache  *rolecache.Memory
	clock  *rolecache.ManualClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	signer, err := auth.NewHMACVerifier("test-secret", "feedback-hub", "feedback-hub")
	require.NoError(t, err)
	users := memory.NewUserRepo()
	clock := rolecache.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	cache := rolecache.NewMemory(5*time.Minute, clock)
	m := metrics.New()
	dir := service.NewDirectory(users, m, zerolog.Nop())
	return &harness{
		pipe:   NewPipeline(signer, dir, cache, policy.MustDefault(), m),
		signer: signer,
		users:  users,
		cache:  cache,
		clock:  clock,
	}
}

func (h *harness) token(t *testing.T, sub string, groups ...string) string {
	t.Helper()
	tok, err := h.signer.Sign(auth.Claims{Subject: sub, Email: sub + "@example.com", Groups: groups}, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func do(h http.Handler, method, path, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "error", body["status"])
	msg, _ := body["message"].(string)
	return msg
}

func counting(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticateRejects(t *testing.T) {
	h := newHarness(t)
	calls := 0
	handler := h.pipe.Authenticate(counting(&calls))

	rec := do(handler, http.MethodGet, "/api/feedback", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "No token provided", message(t, rec))

	rec = do(handler, http.MethodGet, "/api/feedback", "Token abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid authorization header", message(t, rec))

	rec = do(handler, http.MethodGet, "/api/feedback", "Bearer not.a.jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token", message(t, rec))

	assert.Zero(t, calls)
}

func TestAuthenticatePopulatesIdentityAndCache(t *testing.T) {
	h := newHarness(t)
	var seen *utils.Identity
	handler := h.pipe.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = utils.IdentityFrom(r.Context())
	}))

	rec := do(handler, http.MethodGet, "/api/feedback", h.token(t, "lee", "Team Leaders"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, models.RoleLeader, seen.Role)
	assert.Equal(t, "lee@example.com", seen.User.Email)

	role, ok := h.cache.Get(context.Background(), seen.User.ID)
	require.True(t, ok)
	assert.Equal(t, models.RoleLeader, role)
}

func TestAuthenticateEmailTakenBySubject(t *testing.T) {
	h := newHarness(t)
	handler := h.pipe.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	sign := func(sub string) string {
		tok, err := h.signer.Sign(auth.Claims{Subject: sub, Email: "pat@example.com"}, time.Hour)
		require.NoError(t, err)
		return "Bearer " + tok
	}
	require.Equal(t, http.StatusOK, do(handler, http.MethodGet, "/api/feedback", sign("okta-old")).Code)

	rec := do(handler, http.MethodGet, "/api/feedback", sign("okta-new"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Email already registered to another account", message(t, rec))
}

func TestOptionalAuth(t *testing.T) {
	h := newHarness(t)
	var hasIdentity bool
	handler := h.pipe.OptionalAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasIdentity = utils.IdentityFrom(r.Context())
	}))

	rec := do(handler, http.MethodPost, "/api/feedback", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, hasIdentity)

	rec = do(handler, http.MethodPost, "/api/feedback", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(handler, http.MethodPost, "/api/feedback", h.token(t, "emp"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, hasIdentity)
}

func TestRequirePermission(t *testing.T) {
	h := newHarness(t)
	calls := 0
	handler := h.pipe.Authenticate(h.pipe.RequirePermission(policy.ManageFeedback)(counting(&calls)))

	rec := do(handler, http.MethodPatch, "/api/feedback/x/status", h.token(t, "emp"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Insufficient permissions", message(t, rec))
	assert.Zero(t, calls)

	rec = do(handler, http.MethodPatch, "/api/feedback/x/status", h.token(t, "lee", "Leaders"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, calls)
}

func TestRequireAnyPermissionAndRoute(t *testing.T) {
	h := newHarness(t)
	calls := 0
	anyPerm := h.pipe.Authenticate(h.pipe.RequireAnyPermission(policy.ViewFeedback, policy.ViewOwnFeedback)(counting(&calls)))
	assert.Equal(t, http.StatusOK, do(anyPerm, http.MethodGet, "/api/feedback/1", h.token(t, "emp")).Code)

	route := h.pipe.Authenticate(h.pipe.RequireRoute(counting(&calls)))
	assert.Equal(t, http.StatusForbidden, do(route, http.MethodGet, "/api/metrics/dashboard", h.token(t, "emp")).Code)
	assert.Equal(t, http.StatusOK, do(route, http.MethodGet, "/api/metrics/dashboard", h.token(t, "lee", "Leaders")).Code)
	assert.Equal(t, 2, calls)
}

func TestRequirePermissionWithoutIdentity(t *testing.T) {
	h := newHarness(t)
	calls := 0
	rec := do(h.pipe.RequirePermission(policy.ViewFeedback)(counting(&calls)), http.MethodGet, "/api/feedback", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, calls)
}

func TestCachedRoleIsStaleUntilTTL(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	calls := 0
	handler := h.pipe.Authenticate(h.pipe.RequirePermission(policy.ManageFeedback)(counting(&calls)))
	tok := h.token(t, "lee", "Leaders")

	require.Equal(t, http.StatusOK, do(handler, http.MethodGet, "/", tok).Code)
	u, err := h.users.GetByExternalID(ctx, "lee")
	require.NoError(t, err)
	_, err = h.users.UpdateRole(ctx, u.ID, models.RoleEmployee)
	require.NoError(t, err)

	authorize := h.pipe.RequirePermission(policy.ManageFeedback)(counting(&calls))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(utils.WithIdentity(ctx, &utils.Identity{User: u, Role: models.RoleLeader}))

	rec := httptest.NewRecorder()
	authorize.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, "cached leader role still honoured")

	h.clock.Advance(5 * time.Minute)
	rec = httptest.NewRecorder()
	authorize.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code, "role re-read from directory after expiry")
}

func TestRequireOwnership(t *testing.T) {
	h := newHarness(t)
	calls := 0
	owners := map[string]string{}
	lookup := func(_ context.Context, id string) (string, error) {
		owner, ok := owners[id]
		if !ok {
			return "", utils.NotFoundError("Feedback not found")
		}
		return owner, nil
	}

	r := chi.NewRouter()
	r.With(h.pipe.Authenticate, h.pipe.RequireOwnership(lookup, policy.DeleteAnyFeedback)).
		Delete("/api/feedback/{id}", counting(&calls).ServeHTTP)

	empTok := h.token(t, "emp")
	require.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/api/feedback/missing", empTok).Code)

	emp, err := h.users.GetByExternalID(context.Background(), "emp")
	require.NoError(t, err)
	owners["mine"] = emp.ID
	owners["theirs"] = "someone-else"
	owners["anon"] = ""

	assert.Equal(t, http.StatusOK, do(r, http.MethodDelete, "/api/feedback/mine", empTok).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodDelete, "/api/feedback/theirs", empTok).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodDelete, "/api/feedback/anon", empTok).Code)

	adminTok := h.token(t, "boss", "Admins")
	assert.Equal(t, http.StatusOK, do(r, http.MethodDelete, "/api/feedback/anon", adminTok).Code)
	assert.Equal(t, 2, calls)
}

func TestRecoverer(t *testing.T) {
	handler := Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))
	rec := do(handler, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", message(t, rec))
}

func TestRateLimit(t *testing.T) {
	calls := 0
	handler := RateLimit(2, 24*time.Hour)(counting(&calls))
	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, do(handler, http.MethodGet, "/", "").Code)
	}
	rec := do(handler, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 2, calls)
}

func TestFixedWindowCounterIgnoresPreviousWindow(t *testing.T) {
	c := newFixedWindowCounter(time.Minute)
	prev := time.Now().UTC().Truncate(time.Minute)
	curr := prev.Add(time.Minute)

	require.NoError(t, c.IncrementBy("ip", prev, 5))
	got, before, err := c.Get("ip", curr, prev)
	require.NoError(t, err)
	assert.Equal(t, 0, got)
	assert.Equal(t, 0, before)

	require.NoError(t, c.Increment("ip", curr))
	got, before, err = c.Get("ip", curr, prev)
	require.NoError(t, err)
	assert.Equal(t, 1, got)
	assert.Equal(t, 0, before)
}

func TestBodyLimit(t *testing.T) {
	handler := BodyLimit(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var v map[string]any
		if err := utils.DecodeJSON(r, &v); err != nil {
			utils.Fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"content":"way too long"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Request body too large", message(t, rec))
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := do(handler, http.MethodGet, "/", "")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}
