package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// HMACVerifier checks HS256 tokens signed with a shared secret. It is meant
// for local development and tests; production uses OIDCVerifier.
type HMACVerifier struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
}

func NewHMACVerifier(secret, issuer, audience string) (*HMACVerifier, error) {
	if secret == "" {
		return nil, errors.New("auth: hmac secret is empty")
	}
	return &HMACVerifier{secret: []byte(secret), issuer: issuer, audience: audience, now: time.Now}, nil
}

func (v *HMACVerifier) Verify(_ context.Context, token string) (*Claims, error) {
	var tc tokenClaims
	_, err := jwt.ParseWithClaims(token, &tc, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return tc.toClaims()
}

// Sign issues a token for c that expires after ttl.
func (v *HMACVerifier) Sign(c Claims, ttl time.Duration) (string, error) {
	now := v.now()
	tc := tokenClaims{
		Email:  c.Email,
		Name:   c.Name,
		Groups: c.Groups,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.Subject,
			Issuer:    v.issuer,
			Audience:  jwt.ClaimStrings{v.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, tc).SignedString(v.secret)
}
