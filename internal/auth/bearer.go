package auth

import (
	"errors"
	"strings"
)

var (
	ErrMissingToken   = errors.New("no token provided")
	ErrMalformedToken = errors.New("malformed authorization header")
	ErrInvalidToken   = errors.New("invalid token")
)

// ParseBearer extracts the token from an Authorization header value.
func ParseBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMalformedToken
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", ErrMalformedToken
	}
	return token, nil
}
