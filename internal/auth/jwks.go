package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"
)

const minUnknownKidRefresh = 30 * time.Second

// JWKSCache holds the provider's RSA signing keys and refreshes them after
// the TTL or when a token names a key it has not seen.
type JWKSCache struct {
	uri    string
	client *http.Client
	ttl    time.Duration
	now    func() time.Time

	flight singleflight.Group

	mu       sync.RWMutex
	keys     map[string]*rsa.PublicKey
	fetched  time.Time
	failedAt time.Time
	lastErr  error
}

func NewJWKSCache(uri string, client *http.Client, ttl time.Duration) *JWKSCache {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &JWKSCache{uri: uri, client: client, ttl: ttl, now: time.Now, keys: map[string]*rsa.PublicKey{}}
}

func (c *JWKSCache) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	key, ok := c.keys[kid]
	seen := c.fetched
	age := c.now().Sub(seen)
	c.mu.RUnlock()

	switch {
	case ok && age < c.ttl:
		return key, nil
	case !ok && age < minUnknownKidRefresh:
		return nil, fmt.Errorf("signing key %q not found", kid)
	}

	if err := c.refresh(ctx, seen); err != nil {
		if ok {
			return key, nil
		}
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if key, ok = c.keys[kid]; !ok {
		return nil, fmt.Errorf("signing key %q not found", kid)
	}
	return key, nil
}

// refresh fetches the key set unless another caller already replaced the
// one fetched at seen. Concurrent callers share a single fetch, and a failed
// fetch is not retried for minUnknownKidRefresh.
func (c *JWKSCache) refresh(ctx context.Context, seen time.Time) error {
	_, err, _ := c.flight.Do("jwks", func() (any, error) {
		c.mu.RLock()
		fresh := c.fetched.After(seen)
		failedAt, lastErr := c.failedAt, c.lastErr
		c.mu.RUnlock()
		if fresh {
			return nil, nil
		}
		if lastErr != nil && c.now().Sub(failedAt) < minUnknownKidRefresh {
			return nil, lastErr
		}

		if err := c.fetch(ctx); err != nil {
			c.mu.Lock()
			c.failedAt, c.lastErr = c.now(), err
			c.mu.Unlock()
			return nil, err
		}
		return nil, nil
	})
	return err
}

func (c *JWKSCache) fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.uri, http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch jwks: status %d", resp.StatusCode)
	}

	var doc struct {
		Keys []struct {
			Kty string `json:"kty"`
			Kid string `json:"kid"`
			Use string `json:"use"`
			N   string `json:"n"`
			E   string `json:"e"`
		} `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		pub, err := rsaKey(k.N, k.E)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return errors.New("jwks contains no usable RSA keys")
	}

	c.mu.Lock()
	c.keys = keys
	c.fetched = c.now()
	c.lastErr = nil
	c.mu.Unlock()
	return nil
}

func rsaKey(n, e string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(n, "="))
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(e, "="))
	if err != nil {
		return nil, err
	}
	exp := 0
	for _, b := range eb {
		exp = exp<<8 | int(b)
	}
	if exp == 0 {
		return nil, errors.New("zero exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: exp}, nil
}
