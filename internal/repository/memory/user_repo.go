package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"feedback-hub/internal/models"
	"feedback-hub/internal/repository"
)

type UserRepo struct {
	mu    sync.RWMutex
	byID  map[string]*models.User
	byExt map[string]string
	now   func() time.Time
}

func NewUserRepo() *UserRepo {
	return &UserRepo{byID: map[string]*models.User{}, byExt: map[string]string{}, now: time.Now}
}

func (r *UserRepo) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byExt[u.ExternalID]; ok {
		return repository.ErrConflict
	}
	email := strings.ToLower(u.Email)
	for _, existing := range r.byID {
		if existing.Email == email {
			return repository.ErrConflict
		}
	}
	now := r.now().UTC()
	u.ID = uuid.NewString()
	u.Email = email
	u.CreatedAt, u.UpdatedAt = now, now

	c := *u
	r.byID[u.ID] = &c
	r.byExt[u.ExternalID] = u.ID
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (r *UserRepo) GetByExternalID(_ context.Context, externalID string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byExt[externalID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *r.byID[id]
	return &c, nil
}

func (r *UserRepo) List(_ context.Context, f repository.UserFilter) ([]models.User, int, error) {
	f.Normalize()
	r.mu.RLock()
	var all []models.User
	for _, u := range r.byID {
		if f.Matches(u) {
			all = append(all, *u)
		}
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].UpdatedAt.After(all[j].UpdatedAt) })
	total := len(all)
	if f.Offset >= total {
		return []models.User{}, total, nil
	}
	end := f.Offset + f.Limit
	if end > total {
		end = total
	}
	return all[f.Offset:end], total, nil
}

func (r *UserRepo) UpdateRole(_ context.Context, id string, role models.Role) (*models.User, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u.Role = role
	u.UpdatedAt = r.now().UTC()
	c := *u
	return &c, nil
}
