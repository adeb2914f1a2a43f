package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"feedback-hub/internal/auth"
	"feedback-hub/internal/metrics"
	"feedback-hub/internal/models"
	"feedback-hub/internal/repository"
	"feedback-hub/internal/utils"
)

// Directory maps identity-provider subjects to local users.
type Directory struct {
	users   repository.UserRepository
	metrics *metrics.Metrics
	log     zerolog.Logger
}

func NewDirectory(users repository.UserRepository, m *metrics.Metrics, log zerolog.Logger) *Directory {
	return &Directory{users: users, metrics: m, log: log.With().Str("component", "directory").Logger()}
}

// RoleFromGroups picks the role for a new user: the first group containing
// "admin" wins, then "leader", otherwise employee. Matching ignores case.
func RoleFromGroups(groups []string) models.Role {
	for _, g := range groups {
		if strings.Contains(strings.ToLower(g), "admin") {
			return models.RoleAdmin
		}
	}
	for _, g := range groups {
		if strings.Contains(strings.ToLower(g), "leader") {
			return models.RoleLeader
		}
	}
	return models.RoleEmployee
}

// Resolve returns the user for the token subject, creating it on first
// sight. The role of an existing user is never re-derived from groups.
func (d *Directory) Resolve(ctx context.Context, c *auth.Claims) (*models.User, error) {
	u, err := d.users.GetByExternalID(ctx, c.Subject)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup user %s: %w", c.Subject, err)
	}

	u = &models.User{
		ExternalID: c.Subject,
		Email:      c.Email,
		Name:       c.Name,
		Role:       RoleFromGroups(c.Groups),
	}
	if err := d.users.Create(ctx, u); err != nil {
		if !errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("create user %s: %w", c.Subject, err)
		}
		// Lost a race with a concurrent first request for the same subject.
		existing, getErr := d.users.GetByExternalID(ctx, c.Subject)
		switch {
		case errors.Is(getErr, repository.ErrNotFound):
			// The email belongs to a different subject.
			d.log.Warn().Str("subject", c.Subject).Str("email", c.Email).Msg("email already linked to another account")
			return nil, utils.Forbidden("Email already registered to another account")
		case getErr != nil:
			return nil, fmt.Errorf("create user %s: %w", c.Subject, getErr)
		}
		return existing, nil
	}

	d.metrics.UserCreated()
	d.log.Info().
		Str("user_id", u.ID).
		Str("email", u.Email).
		Str("role", string(u.Role)).
		Msg("user created on first sign-in")
	return u, nil
}

// RoleOf returns the stored role for userID.
func (d *Directory) RoleOf(ctx context.Context, userID string) (models.Role, error) {
	u, err := d.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.Role, nil
}

func (d *Directory) Get(ctx context.Context, id string) (*models.User, error) {
	u, err := d.users.GetByID(ctx, id)
	return u, storeErr(err, "User")
}

func (d *Directory) List(ctx context.Context, f repository.UserFilter) ([]models.User, int, error) {
	users, total, err := d.users.List(ctx, f)
	if err != nil {
		return nil, 0, utils.InternalError(err)
	}
	return users, total, nil
}

// SetRole changes a user's role. Cached roles are left to expire.
func (d *Directory) SetRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, utils.ValidationError("Invalid role value")
	}
	u, err := d.users.UpdateRole(ctx, id, role)
	if err != nil {
		return nil, storeErr(err, "User")
	}
	d.log.Info().Str("user_id", u.ID).Str("role", string(role)).Msg("user role changed")
	return u, nil
}
