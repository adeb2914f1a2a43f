package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedback-hub/internal/auth"
	"feedback-hub/internal/config"
	"feedback-hub/internal/metrics"
	"feedback-hub/internal/middleware"
	"feedback-hub/internal/models"
	"feedback-hub/internal/policy"
	"feedback-hub/internal/repository/memory"
	"feedback-hub/internal/rolecache"
	"feedback-hub/internal/service"
)

type app struct {
	h       http.Handler
	signer  *auth.HMACVerifier
	metrics *metrics.Metrics
}

func newApp(t *testing.T) *app {
	t.Helper()
	return newAppWith(t, func(*config.Config) {})
}

func newAppWith(t *testing.T, tweak func(*config.Config)) *app {
	t.Helper()
	signer, err := auth.NewHMACVerifier("router-secret", "feedback-hub", "feedback-hub")
	require.NoError(t, err)

	users := memory.NewUserRepo()
	feedback := memory.NewFeedbackRepo()
	m := metrics.New()
	dir := service.NewDirectory(users, m, zerolog.Nop())
	cache := rolecache.NewMemory(5*time.Minute, rolecache.NewManualClock(time.Now()))

	cfg := config.Config{
		Env:             config.EnvTest,
		Origins:         []string{"http://localhost:3000"},
		RateLimitMax:    1000,
		RateLimitWindow: time.Minute,
		BodyLimitBytes:  10240,
		MetricsEnabled:  true,
	}
	tweak(&cfg)
	h := New(Deps{
		Log:      zerolog.Nop(),
		Config:   cfg,
		Auth:     middleware.NewPipeline(signer, dir, cache, policy.MustDefault(), m),
		Feedback: service.NewFeedbackService(feedback, users, zerolog.Nop()),
		Users:    dir,
		Metrics:  m,
	})
	return &app{h: h, signer: signer, metrics: m}
}

func (a *app) token(t *testing.T, sub string, groups ...string) string {
	t.Helper()
	tok, err := a.signer.Sign(auth.Claims{Subject: sub, Email: sub + "@example.com", Groups: groups}, time.Hour)
	require.NoError(t, err)
	return tok
}

func (a *app) call(t *testing.T, method, path, token, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.h.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func TestAnonymousSubmission(t *testing.T) {
	a := newApp(t)

	rec, body := a.call(t, http.MethodPost, "/api/feedback", "", `{"content":"The coffee machine is broken","tags":["Workplace"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["isAnonymous"])
	assert.Equal(t, string(models.StatusNew), body["status"])
	assert.Empty(t, body["submitter"])

	rec, body = a.call(t, http.MethodPost, "/api/feedback", "", `{"content":"x","isAnonymous":true}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, body["isAnonymous"])
	assert.NotContains(t, body, "submitter")

	// The flag wins over an authenticated caller.
	rec, body = a.call(t, http.MethodPost, "/api/feedback", a.token(t, "emp"), `{"content":"x","isAnonymous":true}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, body, "submitter")
}

func TestAuthenticatedSubmissionKeepsSubmitter(t *testing.T) {
	a := newApp(t)
	emp := a.token(t, "emp")

	rec, body := a.call(t, http.MethodPost, "/api/feedback", emp, `{"content":"More standups please"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, false, body["isAnonymous"])
	assert.NotEmpty(t, body["submitter"])

	rec, body = a.call(t, http.MethodGet, "/api/feedback/mine", emp, "")
	require.Equal(t, http.StatusOK, rec.Code)
	items := body["feedback"].([]any)
	assert.Len(t, items, 1)
	pg := body["pagination"].(map[string]any)
	assert.EqualValues(t, 1, pg["total"])
	assert.EqualValues(t, 1, pg["pages"])
}

func TestListRequiresAuthentication(t *testing.T) {
	a := newApp(t)

	rec, body := a.call(t, http.MethodGet, "/api/feedback", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "No token provided", body["message"])

	rec, _ = a.call(t, http.MethodGet, "/api/feedback", a.token(t, "emp"), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body = a.call(t, http.MethodGet, "/api/feedback?status=Bogus", a.token(t, "lead", "Feedback-Leader"), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid status value", body["message"])
}

func TestLeaderStatusValidation(t *testing.T) {
	a := newApp(t)
	lead := a.token(t, "lead", "Feedback-Leader")

	_, created := a.call(t, http.MethodPost, "/api/feedback", "", `{"content":"x"}`)
	id := created["id"].(string)

	rec, body := a.call(t, http.MethodPatch, "/api/feedback/"+id+"/status", lead, `{"status":"Bogus"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid status value", body["message"])

	rec, body = a.call(t, http.MethodPatch, "/api/feedback/"+id+"/status", lead, `{"status":"In Action"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "In Action", body["status"])

	rec, body = a.call(t, http.MethodPatch, "/api/feedback/not-an-id/status", lead, `{"status":"Hold"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid ID format", body["message"])
}

func TestDeleteOnlyWhileNew(t *testing.T) {
	a := newApp(t)
	emp := a.token(t, "emp")
	lead := a.token(t, "lead", "Feedback-Leader")

	_, created := a.call(t, http.MethodPost, "/api/feedback", emp, `{"content":"please delete me"}`)
	id := created["id"].(string)

	rec, _ := a.call(t, http.MethodPatch, "/api/feedback/"+id+"/status", lead, `{"status":"In Action"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := a.call(t, http.MethodDelete, "/api/feedback/"+id, emp, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Only feedback with status New can be deleted", body["message"])

	rec, body = a.call(t, http.MethodGet, "/api/feedback/"+id, emp, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "In Action", body["status"])

	_, other := a.call(t, http.MethodPost, "/api/feedback", emp, `{"content":"new one"}`)
	rec, body = a.call(t, http.MethodDelete, "/api/feedback/"+other["id"].(string), emp, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Feedback deleted successfully", body["message"])
}

func TestOwnershipOnRead(t *testing.T) {
	a := newApp(t)
	alice := a.token(t, "alice")
	bob := a.token(t, "bob")

	_, created := a.call(t, http.MethodPost, "/api/feedback", alice, `{"content":"mine"}`)
	id := created["id"].(string)

	rec, body := a.call(t, http.MethodGet, "/api/feedback/"+id, bob, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Not authorized to access this feedback", body["message"])

	rec, _ = a.call(t, http.MethodGet, "/api/feedback/"+id, a.token(t, "lead", "Feedback-Leader"), "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRepliesAndAssignment(t *testing.T) {
	a := newApp(t)
	lead := a.token(t, "lead", "Feedback-Leader")
	emp := a.token(t, "emp")

	rec, me := a.call(t, http.MethodGet, "/api/users/me", lead, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "leader", me["role"])
	leaderID := me["user"].(map[string]any)["id"].(string)

	_, created := a.call(t, http.MethodPost, "/api/feedback", "", `{"content":"anon"}`)
	id := created["id"].(string)

	rec, body := a.call(t, http.MethodPost, "/api/feedback/"+id+"/replies", lead, `{"content":"thanks"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	replies := body["replies"].([]any)
	require.Len(t, replies, 1)
	assert.Equal(t, leaderID, replies[0].(map[string]any)["author"])

	rec, _ = a.call(t, http.MethodPost, "/api/feedback/"+id+"/replies", emp, `{"content":"me too"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body = a.call(t, http.MethodPatch, "/api/feedback/"+id+"/assign", lead, `{"leaderId":"`+leaderID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, leaderID, body["assignedLeader"])

	rec, body = a.call(t, http.MethodPatch, "/api/feedback/"+id+"/tags", lead, `{"tags":["Nonsense"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid tag: Nonsense", body["message"])
}

func TestMetricsDashboards(t *testing.T) {
	a := newApp(t)
	_, _ = a.call(t, http.MethodPost, "/api/feedback", "", `{"content":"a","tags":["Culture"]}`)

	for _, path := range []string{"/api/feedback/metrics/dashboard", "/api/metrics/dashboard"} {
		rec, body := a.call(t, http.MethodGet, path, a.token(t, "lead", "Feedback-Leader"), "")
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.EqualValues(t, 1, body["total"])
		assert.EqualValues(t, 1, body["anonymousRatio"])

		rec, _ = a.call(t, http.MethodGet, path, a.token(t, "emp"), "")
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
	}

	rec, _ := a.call(t, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "feedback_http_requests_total")
}

func TestUsersAdmin(t *testing.T) {
	a := newApp(t)
	admin := a.token(t, "root", "Feedback-Admins")
	emp := a.token(t, "emp")

	_, me := a.call(t, http.MethodGet, "/api/users/me", emp, "")
	empID := me["user"].(map[string]any)["id"].(string)

	rec, _ := a.call(t, http.MethodGet, "/api/users", emp, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body := a.call(t, http.MethodGet, "/api/users?role=employee", admin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["users"].([]any), 1)

	rec, body = a.call(t, http.MethodPatch, "/api/users/"+empID+"/role", admin, `{"role":"wizard"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid role value", body["message"])

	rec, body = a.call(t, http.MethodPatch, "/api/users/"+empID+"/role", admin, `{"role":"leader"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "leader", body["role"])
}

func TestUnknownRouteAndHealth(t *testing.T) {
	a := newApp(t)

	rec, body := a.call(t, http.MethodGet, "/api/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Cannot find GET /api/nope on this server", body["message"])

	for _, path := range []string{"/health", "/api/feedback/health"} {
		rec, body = a.call(t, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", body["status"])
	}
	assert.NotEmpty(t, rec.Header().Get("X-Content-Type-Options"))
}

func TestRejectedRequestsAreCounted(t *testing.T) {
	a := newAppWith(t, func(c *config.Config) { c.RateLimitMax = 1; c.RateLimitWindow = 24 * time.Hour })

	rec, _ := a.call(t, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec, body := a.call(t, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "error", body["status"])

	families, err := a.metrics.Registry().Gather()
	require.NoError(t, err)
	var limited float64
	for _, mf := range families {
		if mf.GetName() != "feedback_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "status" && l.GetValue() == "429" {
					limited += m.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, 1.0, limited)
}
