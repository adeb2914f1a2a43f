package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"feedback-hub/internal/models"
	"feedback-hub/internal/repository"
	"feedback-hub/internal/utils"
	"feedback-hub/internal/validation"
)

const topSubmitters = 5

type CreateFeedbackInput struct {
	Content     string   `json:"content" validate:"required,max=5000"`
	IsAnonymous bool     `json:"isAnonymous"`
	Tags        []string `json:"tags" validate:"omitempty,dive,feedbacktag"`
}

type FeedbackService struct {
	repo  repository.FeedbackRepository
	users repository.UserRepository
	log   zerolog.Logger
	now   func() time.Time
}

func NewFeedbackService(repo repository.FeedbackRepository, users repository.UserRepository, log zerolog.Logger) *FeedbackService {
	return &FeedbackService{
		repo:  repo,
		users: users,
		log:   log.With().Str("component", "feedback").Logger(),
		now:   time.Now,
	}
}

// Create stores new feedback in status New. Anonymous feedback, and any
// feedback without a known submitter, is stored without one.
func (s *FeedbackService) Create(ctx context.Context, in CreateFeedbackInput, submitterID string) (*models.Feedback, error) {
	in.Content = strings.TrimSpace(in.Content)
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	f := &models.Feedback{
		Content:     in.Content,
		IsAnonymous: in.IsAnonymous || submitterID == "",
		Status:      models.StatusNew,
		Tags:        dedupe(in.Tags),
		Replies:     []models.Reply{},
	}
	if !f.IsAnonymous {
		f.Submitter = submitterID
	}
	if err := s.repo.Create(ctx, f); err != nil {
		return nil, utils.InternalError(err)
	}
	s.log.Info().Str("feedback_id", f.ID).Bool("anonymous", f.IsAnonymous).Msg("feedback created")
	return f, nil
}

func (s *FeedbackService) Get(ctx context.Context, id string) (*models.Feedback, error) {
	f, err := s.repo.Get(ctx, id)
	return f, storeErr(err, "Feedback")
}

// OwnerOf returns the submitter of id, or "" for anonymous feedback.
func (s *FeedbackService) OwnerOf(ctx context.Context, id string) (string, error) {
	f, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return f.Submitter, nil
}

func (s *FeedbackService) List(ctx context.Context, f repository.FeedbackFilter) ([]models.Feedback, int, error) {
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, 0, utils.InternalError(err)
	}
	return items, total, nil
}

func (s *FeedbackService) UpdateStatus(ctx context.Context, id, raw string) (*models.Feedback, error) {
	status, ok := models.ParseStatus(raw)
	if !ok {
		return nil, utils.ValidationError("Invalid status value").WithDetails(map[string]any{
			"allowed": models.Statuses,
		})
	}
	f, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, storeErr(err, "Feedback")
	}
	s.log.Info().Str("feedback_id", id).Str("status", string(status)).Msg("feedback status changed")
	return f, nil
}

func (s *FeedbackService) UpdateTags(ctx context.Context, id string, tags []string) (*models.Feedback, error) {
	for _, t := range tags {
		if !models.IsKnownTag(t) {
			return nil, utils.ValidationError("Invalid tag: " + t).WithDetails(map[string]any{
				"allowed": models.KnownTags,
			})
		}
	}
	f, err := s.repo.UpdateTags(ctx, id, dedupe(tags))
	return f, storeErr(err, "Feedback")
}

func (s *FeedbackService) Assign(ctx context.Context, id, leaderID string) (*models.Feedback, error) {
	leaderID = strings.TrimSpace(leaderID)
	if leaderID == "" {
		return nil, utils.ValidationError("leaderId is required")
	}
	leader, err := s.users.GetByID(ctx, leaderID)
	switch {
	case errors.Is(err, repository.ErrInvalidID), errors.Is(err, repository.ErrNotFound):
		return nil, utils.ValidationError("Assigned user must be an existing leader")
	case err != nil:
		return nil, utils.InternalError(err)
	case leader.Role != models.RoleLeader:
		return nil, utils.ValidationError("Assigned user must be an existing leader")
	}
	f, err := s.repo.Assign(ctx, id, leader.ID)
	return f, storeErr(err, "Feedback")
}

func (s *FeedbackService) AddReply(ctx context.Context, id, content, authorID string) (*models.Feedback, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, utils.ValidationError("content is required")
	}
	if utf8.RuneCountInString(content) > 5000 {
		return nil, utils.ValidationError("content must be at most 5000 characters")
	}
	f, err := s.repo.AddReply(ctx, id, models.Reply{
		Content:   content,
		Author:    authorID,
		CreatedAt: s.now().UTC(),
	})
	return f, storeErr(err, "Feedback")
}

// Delete removes feedback that is still New.
func (s *FeedbackService) Delete(ctx context.Context, id string) error {
	err := s.repo.DeleteNew(ctx, id)
	if errors.Is(err, repository.ErrConflict) {
		return utils.ValidationError("Only feedback with status New can be deleted")
	}
	if err != nil {
		return storeErr(err, "Feedback")
	}
	s.log.Info().Str("feedback_id", id).Msg("feedback deleted")
	return nil
}

// Metrics aggregates over the whole collection.
func (s *FeedbackService) Metrics(ctx context.Context) (*models.Metrics, error) {
	all, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, utils.InternalError(err)
	}
	return computeMetrics(all), nil
}

func computeMetrics(all []models.Feedback) *models.Metrics {
	m := &models.Metrics{
		Total:              len(all),
		StatusDistribution: make(map[models.Status]int, len(models.Statuses)),
		TagDistribution:    make(map[string]int, len(models.KnownTags)),
		TopSubmitters:      []models.SubmitterCount{},
	}
	for _, st := range models.Statuses {
		m.StatusDistribution[st] = 0
	}
	for _, t := range models.KnownTags {
		m.TagDistribution[t] = 0
	}

	bySubmitter := map[string]int{}
	for _, f := range all {
		m.StatusDistribution[f.Status]++
		for _, t := range f.Tags {
			m.TagDistribution[t]++
		}
		if f.IsAnonymous || f.Submitter == "" {
			m.AnonymousCount++
			continue
		}
		bySubmitter[f.Submitter]++
	}

	for id, n := range bySubmitter {
		m.TopSubmitters = append(m.TopSubmitters, models.SubmitterCount{UserID: id, Count: n})
	}
	sort.Slice(m.TopSubmitters, func(i, j int) bool {
		a, b := m.TopSubmitters[i], m.TopSubmitters[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.UserID < b.UserID
	})
	if len(m.TopSubmitters) > topSubmitters {
		m.TopSubmitters = m.TopSubmitters[:topSubmitters]
	}
	if m.Total > 0 {
		m.AnonymousRatio = float64(m.AnonymousCount) / float64(m.Total)
	}
	return m
}

func dedupe(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
