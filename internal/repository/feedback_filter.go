package repository

import (
	"strings"
	"time"

	"feedback-hub/internal/models"
)

type FeedbackFilter struct {
	Status         models.Status
	Tag            string
	AssignedLeader string
	Submitter      string
	IsAnonymous    *bool
	StartDate      *time.Time // inclusive
	EndDate        *time.Time // inclusive
	Limit          int
	Offset         int
}

// Normalize clamps paging to sane bounds.
func (f *FeedbackFilter) Normalize() {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 10
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// Matches evaluates the filter in memory. Paging is ignored.
func (f FeedbackFilter) Matches(fb *models.Feedback) bool {
	if f.Status != "" && fb.Status != f.Status {
		return false
	}
	if f.Tag != "" && !containsString(fb.Tags, f.Tag) {
		return false
	}
	if f.AssignedLeader != "" && fb.AssignedLeader != f.AssignedLeader {
		return false
	}
	if f.Submitter != "" && fb.Submitter != f.Submitter {
		return false
	}
	if f.IsAnonymous != nil && fb.IsAnonymous != *f.IsAnonymous {
		return false
	}
	if f.StartDate != nil && fb.CreatedAt.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && fb.CreatedAt.After(*f.EndDate) {
		return false
	}
	return true
}

type UserFilter struct {
	Q      string
	Role   models.Role
	Limit  int
	Offset int
}

func (f *UserFilter) Normalize() {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.Q = strings.TrimSpace(f.Q)
}

func (f UserFilter) Matches(u *models.User) bool {
	if f.Role != "" && u.Role != f.Role {
		return false
	}
	if q := strings.ToLower(f.Q); q != "" {
		return strings.Contains(strings.ToLower(u.Email), q) || strings.Contains(strings.ToLower(u.Name), q)
	}
	return true
}

func containsString(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
