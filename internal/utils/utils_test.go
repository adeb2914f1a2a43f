package utils

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestFailOperationalError(t *testing.T) {
	SetVerboseErrors(false)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/feedback", nil)

	Fail(rec, req, ValidationError("Invalid status value").WithDetails("status"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "Invalid status value", body["message"])
	assert.NotContains(t, body, "details")
}

func TestFailHidesInternalMessageUnlessVerbose(t *testing.T) {
	cause := errors.New("connection refused")
	req := httptest.NewRequest(http.MethodGet, "/api/feedback", nil)

	SetVerboseErrors(false)
	rec := httptest.NewRecorder()
	Fail(rec, req, cause)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Internal server error", body["message"])
	assert.NotContains(t, body, "stack")

	SetVerboseErrors(true)
	t.Cleanup(func() { SetVerboseErrors(false) })
	rec = httptest.NewRecorder()
	Fail(rec, req, cause)
	body = decodeBody(t, rec)
	assert.Contains(t, body["message"], "connection refused")
	assert.NotEmpty(t, body["stack"])
}

func TestAsAPIErrorUnwraps(t *testing.T) {
	wrapped := errors.Join(errors.New("ctx"), NotFoundError("Feedback not found"))
	apiErr := AsAPIError(wrapped)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.True(t, apiErr.Operational)

	internal := InternalError(errors.New("boom"))
	assert.False(t, internal.Operational)
	assert.ErrorContains(t, internal, "boom")
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Content string `json:"content"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"content":"hi"}`))
	require.NoError(t, DecodeJSON(req, &dst))
	assert.Equal(t, "hi", dst.Content)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"content":"hi","extra":1}`))
	err := DecodeJSON(req, &dst)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, AsAPIError(err).Status)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	assert.Equal(t, "Request body is required", AsAPIError(DecodeJSON(req, &dst)).Message)
}

func TestPageClamps(t *testing.T) {
	page, limit := Page(url.Values{"page": {"-2"}, "limit": {"500"}}, 10, 100)
	assert.Equal(t, 1, page)
	assert.Equal(t, 100, limit)

	page, limit = Page(url.Values{"page": {"3"}, "limit": {"x"}}, 10, 100)
	assert.Equal(t, 3, page)
	assert.Equal(t, 10, limit)
}

func TestQueryTime(t *testing.T) {
	ts, ok := QueryTime(url.Values{"startDate": {"2024-03-01"}}, "startDate")
	require.True(t, ok)
	require.NotNil(t, ts)
	assert.Equal(t, 2024, ts.Year())

	_, ok = QueryTime(url.Values{"startDate": {"yesterday"}}, "startDate")
	assert.False(t, ok)

	ts, ok = QueryTime(url.Values{}, "startDate")
	assert.True(t, ok)
	assert.Nil(t, ts)
}
