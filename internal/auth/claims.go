package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the verified identity carried by an access token.
type Claims struct {
	Subject string   `json:"sub"`
	Email   string   `json:"email"`
	Name    string   `json:"name,omitempty"`
	Groups  []string `json:"groups,omitempty"`
}

type Verifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// tokenClaims is the JWT payload shape shared by both verifiers.
type tokenClaims struct {
	Email    string   `json:"email,omitempty"`
	Name     string   `json:"name,omitempty"`
	Groups   []string `json:"groups,omitempty"`
	ClientID string   `json:"cid,omitempty"`
	jwt.RegisteredClaims
}

func (tc *tokenClaims) toClaims() (*Claims, error) {
	if tc.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	email := strings.ToLower(strings.TrimSpace(tc.Email))
	if email == "" {
		if !strings.Contains(tc.Subject, "@") {
			return nil, fmt.Errorf("%w: missing email", ErrInvalidToken)
		}
		email = strings.ToLower(tc.Subject)
	}
	name := strings.TrimSpace(tc.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	return &Claims{
		Subject: tc.Subject,
		Email:   email,
		Name:    name,
		Groups:  tc.Groups,
	}, nil
}
