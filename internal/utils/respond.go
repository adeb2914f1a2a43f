package utils

import (
	"errors"
	"io"
	"net/http"
	"runtime/debug"
	"strings"
	"sync/atomic"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/hlog"
)

var verboseErrors atomic.Bool

// SetVerboseErrors controls whether error responses carry details, stacks and
// the messages of internal errors. It is off in production.
func SetVerboseErrors(v bool) { verboseErrors.Store(v) }

type errorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, errorBody{Status: "error", Message: msg})
}

// Fail logs err on the request logger and writes the matching error body.
func Fail(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := AsAPIError(err)
	log := hlog.FromRequest(r)

	if apiErr.Operational {
		log.Warn().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", apiErr.Status).
			Interface("details", apiErr.Details).
			Msg(apiErr.Message)
	} else {
		stack := apiErr.Stack
		if stack == "" {
			stack = string(debug.Stack())
		}
		apiErr.Stack = stack
		log.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("stack", stack).
			Msg("unhandled error")
	}

	body := errorBody{Status: "error", Message: apiErr.Message}
	if verboseErrors.Load() {
		body.Details = apiErr.Details
		body.Stack = apiErr.Stack
		if !apiErr.Operational && apiErr.cause != nil {
			body.Message = apiErr.Error()
		}
	}
	JSON(w, apiErr.Status, body)
}

// DecodeJSON reads a JSON body into dst. Unknown fields are rejected and
// oversized bodies surface as a validation error.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return ValidationError("Request body too large")
		case errors.Is(err, io.EOF):
			return ValidationError("Request body is required")
		case strings.Contains(err.Error(), "unknown field"):
			return ValidationError("Invalid request body").WithDetails(err.Error())
		default:
			return ValidationError("Invalid JSON body").WithDetails(err.Error())
		}
	}
	return nil
}
