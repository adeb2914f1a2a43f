package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"feedback-hub/internal/models"
	"feedback-hub/internal/repository"
	"feedback-hub/internal/utils"
)

// resolveRole consults the role cache and falls back to the directory on a
// miss, refilling the cache.
func (p *Pipeline) resolveRole(ctx context.Context, id *utils.Identity) (models.Role, error) {
	if role, ok := p.cache.Get(ctx, id.User.ID); ok {
		p.metrics.RoleLookup(true)
		return role, nil
	}
	p.metrics.RoleLookup(false)

	role, err := p.dir.RoleOf(ctx, id.User.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", utils.AuthError("User no longer exists")
		}
		return "", utils.InternalError(err)
	}
	p.cache.Put(ctx, id.User.ID, role)
	return role, nil
}

// authorize runs check against the caller's current role.
func (p *Pipeline) authorize(check func(r *http.Request, role models.Role) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := utils.IdentityFrom(r.Context())
			if !ok {
				utils.Fail(w, r, utils.AuthError("Authentication required"))
				return
			}
			role, err := p.resolveRole(r.Context(), id)
			if err != nil {
				utils.Fail(w, r, err)
				return
			}
			id.Role = role
			if !check(r, role) {
				utils.Fail(w, r, utils.Forbidden("Insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission allows the request only if the role holds every perm.
func (p *Pipeline) RequirePermission(perms ...string) func(http.Handler) http.Handler {
	return p.authorize(func(_ *http.Request, role models.Role) bool {
		for _, perm := range perms {
			if !p.policy.PermissionGranted(role, perm) {
				return false
			}
		}
		return true
	})
}

// RequireAnyPermission allows the request if the role holds at least one perm.
func (p *Pipeline) RequireAnyPermission(perms ...string) func(http.Handler) http.Handler {
	return p.authorize(func(_ *http.Request, role models.Role) bool {
		for _, perm := range perms {
			if p.policy.PermissionGranted(role, perm) {
				return true
			}
		}
		return false
	})
}

// RequireRoute checks the request path against the role's route prefixes.
func (p *Pipeline) RequireRoute(next http.Handler) http.Handler {
	return p.authorize(func(r *http.Request, role models.Role) bool {
		return p.policy.RouteAllowed(role, r.URL.Path)
	})(next)
}

// OwnerLookup returns the owning user id of the resource named id, "" if
// it has none.
type OwnerLookup func(ctx context.Context, id string) (string, error)

// RequireOwnership lets the owner of the {id} resource through, as well as
// any role holding override.
func (p *Pipeline) RequireOwnership(lookup OwnerLookup, override string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := utils.IdentityFrom(r.Context())
			if !ok {
				utils.Fail(w, r, utils.AuthError("Authentication required"))
				return
			}
			role, err := p.resolveRole(r.Context(), id)
			if err != nil {
				utils.Fail(w, r, err)
				return
			}
			id.Role = role
			if override != "" && p.policy.PermissionGranted(role, override) {
				next.ServeHTTP(w, r)
				return
			}

			owner, err := lookup(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				utils.Fail(w, r, err)
				return
			}
			if owner == "" || owner != id.User.ID {
				utils.Fail(w, r, utils.Forbidden("Not authorized to access this feedback"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
