// Package memory holds mutex-guarded map implementations of the
// repositories. They back DB_DRIVER=memory and the service and router tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"feedback-hub/internal/models"
	"feedback-hub/internal/repository"
)

type FeedbackRepo struct {
	mu    sync.RWMutex
	items map[string]*models.Feedback
	now   func() time.Time
}

func NewFeedbackRepo() *FeedbackRepo {
	return &FeedbackRepo{items: map[string]*models.Feedback{}, now: time.Now}
}

func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", repository.ErrInvalidID, id)
	}
	return nil
}

func cloneFeedback(f *models.Feedback) *models.Feedback {
	c := *f
	c.Tags = append([]string{}, f.Tags...)
	c.Replies = append([]models.Reply{}, f.Replies...)
	return &c
}

func (r *FeedbackRepo) Create(_ context.Context, f *models.Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	f.ID = uuid.NewString()
	f.CreatedAt, f.UpdatedAt = now, now
	if f.Tags == nil {
		f.Tags = []string{}
	}
	if f.Replies == nil {
		f.Replies = []models.Reply{}
	}
	r.items[f.ID] = cloneFeedback(f)
	return nil
}

func (r *FeedbackRepo) Get(_ context.Context, id string) (*models.Feedback, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneFeedback(f), nil
}

func (r *FeedbackRepo) sorted(match func(*models.Feedback) bool) []models.Feedback {
	out := make([]models.Feedback, 0, len(r.items))
	for _, f := range r.items {
		if match(f) {
			out = append(out, *cloneFeedback(f))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r *FeedbackRepo) List(_ context.Context, f repository.FeedbackFilter) ([]models.Feedback, int, error) {
	f.Normalize()
	r.mu.RLock()
	all := r.sorted(func(fb *models.Feedback) bool { return f.Matches(fb) })
	r.mu.RUnlock()

	total := len(all)
	if f.Offset >= total {
		return []models.Feedback{}, total, nil
	}
	end := f.Offset + f.Limit
	if end > total {
		end = total
	}
	return all[f.Offset:end], total, nil
}

func (r *FeedbackRepo) ListAll(_ context.Context) ([]models.Feedback, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sorted(func(*models.Feedback) bool { return true }), nil
}

func (r *FeedbackRepo) update(id string, mutate func(f *models.Feedback)) (*models.Feedback, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	mutate(f)
	f.UpdatedAt = r.now().UTC()
	return cloneFeedback(f), nil
}

func (r *FeedbackRepo) UpdateStatus(_ context.Context, id string, status models.Status) (*models.Feedback, error) {
	return r.update(id, func(f *models.Feedback) { f.Status = status })
}

func (r *FeedbackRepo) UpdateTags(_ context.Context, id string, tags []string) (*models.Feedback, error) {
	return r.update(id, func(f *models.Feedback) { f.Tags = append([]string{}, tags...) })
}

func (r *FeedbackRepo) Assign(_ context.Context, id, leaderID string) (*models.Feedback, error) {
	return r.update(id, func(f *models.Feedback) { f.AssignedLeader = leaderID })
}

func (r *FeedbackRepo) AddReply(_ context.Context, id string, reply models.Reply) (*models.Feedback, error) {
	return r.update(id, func(f *models.Feedback) {
		if reply.ID == "" {
			reply.ID = uuid.NewString()
		}
		f.Replies = append(f.Replies, reply)
	})
}

func (r *FeedbackRepo) DeleteNew(_ context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	if f.Status != models.StatusNew {
		return repository.ErrConflict
	}
	delete(r.items, id)
	return nil
}
