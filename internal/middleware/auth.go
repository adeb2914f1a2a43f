package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"feedback-hub/internal/auth"
	"feedback-hub/internal/metrics"
	"feedback-hub/internal/models"
	"feedback-hub/internal/policy"
	"feedback-hub/internal/rolecache"
	"feedback-hub/internal/utils"
)

// Directory is the slice of the user directory the pipeline needs.
type Directory interface {
	Resolve(ctx context.Context, c *auth.Claims) (*models.User, error)
	RoleOf(ctx context.Context, userID string) (models.Role, error)
}

// Pipeline authenticates requests and enforces the access policy.
type Pipeline struct {
	verifier auth.Verifier
	dir      Directory
	cache    rolecache.Cache
	policy   *policy.Policy
	metrics  *metrics.Metrics
}

func NewPipeline(v auth.Verifier, dir Directory, cache rolecache.Cache, pol *policy.Policy, m *metrics.Metrics) *Pipeline {
	return &Pipeline{verifier: v, dir: dir, cache: cache, policy: pol, metrics: m}
}

func (p *Pipeline) Policy() *policy.Policy { return p.policy }

// Authenticate requires a valid bearer token. The caller's role is cached
// before the request moves on.
func (p *Pipeline) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := p.identify(r)
		if err != nil {
			utils.Fail(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(utils.WithIdentity(r.Context(), id)))
	})
}

// OptionalAuth lets requests without an Authorization header through
// anonymously. A header that is present must still be valid.
func (p *Pipeline) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}
		p.Authenticate(next).ServeHTTP(w, r)
	})
}

func (p *Pipeline) identify(r *http.Request) (*utils.Identity, error) {
	ctx := r.Context()
	token, err := auth.ParseBearer(r.Header.Get("Authorization"))
	if err != nil {
		if errors.Is(err, auth.ErrMissingToken) {
			return nil, utils.AuthError("No token provided")
		}
		return nil, utils.AuthError("Invalid authorization header")
	}

	claims, err := p.verifier.Verify(ctx, token)
	if err != nil {
		hlog.FromRequest(r).Debug().Err(err).Msg("token rejected")
		return nil, utils.AuthError("Invalid token")
	}

	user, err := p.dir.Resolve(ctx, claims)
	if err != nil {
		var apiErr *utils.APIError
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		return nil, utils.InternalError(err)
	}
	p.cache.Put(ctx, user.ID, user.Role)

	hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str("user_id", user.ID)
	})
	return &utils.Identity{Claims: claims, User: user, Role: user.Role}, nil
}
