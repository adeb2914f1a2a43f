package repository

import (
	"context"
	"errors"

	"feedback-hub/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("conflict")
	ErrInvalidID = errors.New("invalid id")
)

type FeedbackRepository interface {
	Create(ctx context.Context, f *models.Feedback) error
	Get(ctx context.Context, id string) (*models.Feedback, error)
	List(ctx context.Context, f FeedbackFilter) ([]models.Feedback, int, error)
	ListAll(ctx context.Context) ([]models.Feedback, error)
	UpdateStatus(ctx context.Context, id string, status models.Status) (*models.Feedback, error)
	UpdateTags(ctx context.Context, id string, tags []string) (*models.Feedback, error)
	Assign(ctx context.Context, id, leaderID string) (*models.Feedback, error)
	AddReply(ctx context.Context, id string, reply models.Reply) (*models.Feedback, error)
	// DeleteNew removes the record only while it is still New. A record in
	// any other status yields ErrConflict.
	DeleteNew(ctx context.Context, id string) error
}

type UserRepository interface {
	// Create fails with ErrConflict when the external id or email is taken.
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)
	List(ctx context.Context, f UserFilter) ([]models.User, int, error)
	UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error)
}
