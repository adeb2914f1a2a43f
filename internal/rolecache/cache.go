// Package rolecache keeps short-lived userID to role mappings so that
// authorization does not hit the user store on every request. Entries are
// never authoritative.
package rolecache

import (
	"context"
	"time"

	"feedback-hub/internal/models"
)

const DefaultTTL = 5 * time.Minute

type Cache interface {
	Put(ctx context.Context, userID string, role models.Role)
	Get(ctx context.Context, userID string) (models.Role, bool)
}
