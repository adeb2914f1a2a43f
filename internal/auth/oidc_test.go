package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIdP struct {
	srv      *httptest.Server
	key      *rsa.PrivateKey
	kid      string
	jwksHits atomic.Int32
	delay    atomic.Int64
	fail     atomic.Bool
}

func newFakeIdP(t *testing.T) *fakeIdP {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	idp := &fakeIdP{key: key, kid: "k1"}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"issuer":   idp.srv.URL,
			"jwks_uri": idp.srv.URL + "/keys",
		})
	})
	mux.HandleFunc("/keys", func(w http.ResponseWriter, r *http.Request) {
		idp.jwksHits.Add(1)
		time.Sleep(time.Duration(idp.delay.Load()))
		if idp.fail.Load() {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		pub := idp.key.PublicKey
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": idp.kid,
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			}},
		})
	})
	idp.srv = httptest.NewServer(mux)
	t.Cleanup(idp.srv.Close)
	return idp
}

func (idp *fakeIdP) sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = idp.kid
	s, err := tok.SignedString(idp.key)
	require.NoError(t, err)
	return s
}

func (idp *fakeIdP) claims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss":    idp.srv.URL,
		"aud":    "api://default",
		"sub":    "00uabc",
		"email":  "lee@example.com",
		"name":   "Lee",
		"groups": []string{"Everyone", "Team Leaders"},
		"cid":    "client-1",
		"exp":    time.Now().Add(time.Hour).Unix(),
	}
}

func newVerifier(t *testing.T, idp *fakeIdP) *OIDCVerifier {
	t.Helper()
	v, err := NewOIDCVerifier(context.Background(), OIDCConfig{
		Issuer:   idp.srv.URL + "/",
		Audience: "api://default",
		ClientID: "client-1",
	})
	require.NoError(t, err)
	return v
}

func TestOIDCVerify(t *testing.T) {
	idp := newFakeIdP(t)
	v := newVerifier(t, idp)

	c, err := v.Verify(context.Background(), idp.sign(t, idp.claims()))
	require.NoError(t, err)
	assert.Equal(t, "00uabc", c.Subject)
	assert.Equal(t, "lee@example.com", c.Email)
	assert.Equal(t, "Lee", c.Name)
	assert.Equal(t, []string{"Everyone", "Team Leaders"}, c.Groups)
	assert.Equal(t, int32(1), idp.jwksHits.Load())
}

func TestOIDCRejects(t *testing.T) {
	idp := newFakeIdP(t)
	v := newVerifier(t, idp)
	ctx := context.Background()

	mutations := map[string]func(c jwt.MapClaims){
		"wrong issuer":    func(c jwt.MapClaims) { c["iss"] = "https://evil.example.com" },
		"wrong audience":  func(c jwt.MapClaims) { c["aud"] = "api://other" },
		"expired":         func(c jwt.MapClaims) { c["exp"] = time.Now().Add(-time.Minute).Unix() },
		"no expiry":       func(c jwt.MapClaims) { delete(c, "exp") },
		"wrong client id": func(c jwt.MapClaims) { c["cid"] = "client-2" },
		"no subject":      func(c jwt.MapClaims) { delete(c, "sub") },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			c := idp.claims()
			mutate(c)
			_, err := v.Verify(ctx, idp.sign(t, c))
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestOIDCRejectsForeignKeyAndHS256(t *testing.T) {
	idp := newFakeIdP(t)
	v := newVerifier(t, idp)
	ctx := context.Background()

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, idp.claims())
	tok.Header["kid"] = idp.kid
	forged, err := tok.SignedString(other)
	require.NoError(t, err)
	_, err = v.Verify(ctx, forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	hs, err := jwt.NewWithClaims(jwt.SigningMethodHS256, idp.claims()).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = v.Verify(ctx, hs)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestOIDCUnknownKidIsRateLimited(t *testing.T) {
	idp := newFakeIdP(t)
	v := newVerifier(t, idp)

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, idp.claims())
	tok.Header["kid"] = "rotated"
	s, err := tok.SignedString(idp.key)
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), s)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, int32(1), idp.jwksHits.Load())
}

func TestNewOIDCVerifierDiscoveryFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	_, err := NewOIDCVerifier(context.Background(), OIDCConfig{Issuer: srv.URL, Audience: "api://default"})
	assert.Error(t, err)
}
