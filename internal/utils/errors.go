package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is an error that knows the HTTP status it maps to. Operational
// errors are expected outcomes (bad input, missing auth) and their message is
// always safe to show to clients.
type APIError struct {
	Status      int
	Message     string
	Operational bool
	Details     any
	Stack       string
	cause       error
}

func (e *APIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *APIError) Unwrap() error { return e.cause }

func (e *APIError) WithDetails(d any) *APIError {
	e.Details = d
	return e
}

func newAPIError(status int, msg string) *APIError {
	return &APIError{Status: status, Message: msg, Operational: true}
}

func AuthError(msg string) *APIError {
	if msg == "" {
		msg = "Authentication required"
	}
	return newAPIError(http.StatusUnauthorized, msg)
}

func Forbidden(msg string) *APIError {
	if msg == "" {
		msg = "Access denied"
	}
	return newAPIError(http.StatusForbidden, msg)
}

func ValidationError(msg string) *APIError {
	return newAPIError(http.StatusBadRequest, msg)
}

func NotFoundError(msg string) *APIError {
	if msg == "" {
		msg = "Resource not found"
	}
	return newAPIError(http.StatusNotFound, msg)
}

func RateLimitError() *APIError {
	return newAPIError(http.StatusTooManyRequests, "Too many requests, please try again later")
}

// InternalError wraps an unexpected failure. Its message is replaced in
// production responses.
func InternalError(cause error) *APIError {
	return &APIError{Status: http.StatusInternalServerError, Message: "Internal server error", cause: cause}
}

// AsAPIError converts any error into an APIError, treating unknown errors as
// internal failures.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return InternalError(err)
}
