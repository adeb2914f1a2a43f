package utils

import (
	"context"

	"feedback-hub/internal/auth"
	"feedback-hub/internal/models"
)

type ctxKey string

const identityKey ctxKey = "identity"

// Identity is what the auth pipeline knows about the caller.
type Identity struct {
	Claims *auth.Claims
	User   *models.User
	Role   models.Role
}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok && id != nil && id.User != nil
}

// UserID returns the authenticated user's id or "".
func UserID(ctx context.Context) string {
	if id, ok := IdentityFrom(ctx); ok {
		return id.User.ID
	}
	return ""
}
