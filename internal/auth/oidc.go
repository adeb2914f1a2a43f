package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
)

type OIDCConfig struct {
	Issuer   string
	Audience string
	// ClientID, when set, must match the token's cid claim.
	ClientID string
	JWKSTTL  time.Duration
	Client   *http.Client
}

// OIDCVerifier validates RS256 access tokens issued by an OpenID Connect
// provider.
type OIDCVerifier struct {
	cfg  OIDCConfig
	jwks *JWKSCache
	now  func() time.Time
}

// NewOIDCVerifier runs provider discovery and loads the signing keys.
func NewOIDCVerifier(ctx context.Context, cfg OIDCConfig) (*OIDCVerifier, error) {
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, errors.New("auth: oidc issuer and audience are required")
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 10 * time.Second}
	}
	cfg.Issuer = strings.TrimSuffix(cfg.Issuer, "/")

	jwksURI, err := discover(ctx, cfg.Client, cfg.Issuer)
	if err != nil {
		return nil, err
	}
	v := &OIDCVerifier{cfg: cfg, jwks: NewJWKSCache(jwksURI, cfg.Client, cfg.JWKSTTL), now: time.Now}
	if err := v.jwks.fetch(ctx); err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}
	return v, nil
}

func discover(ctx context.Context, client *http.Client, issuer string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, issuer+"/.well-known/openid-configuration", http.NoBody)
	if err != nil {
		return "", fmt.Errorf("auth: discovery request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth: oidc discovery: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("auth: oidc discovery returned status %d", resp.StatusCode)
	}

	var doc struct {
		Issuer  string `json:"issuer"`
		JWKSURI string `json:"jwks_uri"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", fmt.Errorf("auth: parse discovery document: %w", err)
	}
	if doc.JWKSURI == "" {
		return "", errors.New("auth: discovery document has no jwks_uri")
	}
	if doc.Issuer != "" && strings.TrimSuffix(doc.Issuer, "/") != issuer {
		return "", fmt.Errorf("auth: discovery issuer %q does not match %q", doc.Issuer, issuer)
	}
	return doc.JWKSURI, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, token string) (*Claims, error) {
	var tc tokenClaims
	_, err := jwt.ParseWithClaims(token, &tc, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token has no kid header")
		}
		return v.jwks.Key(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.cfg.Issuer),
		jwt.WithAudience(v.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if v.cfg.ClientID != "" && tc.ClientID != v.cfg.ClientID {
		return nil, fmt.Errorf("%w: unexpected client id", ErrInvalidToken)
	}
	return tc.toClaims()
}
