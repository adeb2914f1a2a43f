package postgres

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"feedback-hub/internal/models"
	"feedback-hub/internal/repository"
)

type FeedbackRepo struct{ db *pgxpool.Pool }

func NewFeedbackRepo(db *pgxpool.Pool) *FeedbackRepo { return &FeedbackRepo{db: db} }

const feedbackColumns = `
	f.id::text, f.content, f.is_anonymous, COALESCE(f.submitter::text, ''), f.status,
	f.tags, COALESCE(f.assigned_leader::text, ''), f.replies, f.created_at, f.updated_at`

func scanFeedback(row pgx.Row) (*models.Feedback, error) {
	var (
		f       models.Feedback
		status  string
		replies []byte
	)
	if err := row.Scan(
		&f.ID, &f.Content, &f.IsAnonymous, &f.Submitter, &status,
		&f.Tags, &f.AssignedLeader, &replies, &f.CreatedAt, &f.UpdatedAt,
	); err != nil {
		return nil, err
	}
	f.Status = models.Status(status)
	if f.Tags == nil {
		f.Tags = []string{}
	}
	f.Replies = []models.Reply{}
	if len(replies) > 0 {
		if err := json.Unmarshal(replies, &f.Replies); err != nil {
			return nil, fmt.Errorf("decode replies of %s: %w", f.ID, err)
		}
	}
	return &f, nil
}

// -----------------------------------------------------------------------------
// Create / read
// -----------------------------------------------------------------------------

func (r *FeedbackRepo) Create(ctx context.Context, f *models.Feedback) error {
	if f.Tags == nil {
		f.Tags = []string{}
	}
	if f.Replies == nil {
		f.Replies = []models.Reply{}
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO feedback (content, is_anonymous, submitter, status, tags, assigned_leader)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id::text, created_at, updated_at
	`,
		f.Content, f.IsAnonymous, nullIfEmpty(f.Submitter), string(f.Status), f.Tags, nullIfEmpty(f.AssignedLeader),
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	return mapErr(err)
}

func (r *FeedbackRepo) Get(ctx context.Context, id string) (*models.Feedback, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	f, err := scanFeedback(r.db.QueryRow(ctx, `SELECT `+feedbackColumns+` FROM feedback f WHERE f.id = $1`, id))
	return f, mapErr(err)
}

// List returns a page of feedback, newest first, plus the total for the
// same filter set.
func (r *FeedbackRepo) List(ctx context.Context, filter repository.FeedbackFilter) ([]models.Feedback, int, error) {
	filter.Normalize()
	whereSQL, args := buildFeedbackWhere(filter)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM feedback f `+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sql := fmt.Sprintf(`
		SELECT %s
		FROM feedback f
		%s
		ORDER BY f.created_at DESC, f.id DESC
		LIMIT $%d OFFSET $%d
	`, feedbackColumns, whereSQL, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	out, err := r.query(ctx, sql, args...)
	return out, total, err
}

func (r *FeedbackRepo) ListAll(ctx context.Context) ([]models.Feedback, error) {
	return r.query(ctx, `SELECT `+feedbackColumns+` FROM feedback f ORDER BY f.created_at DESC`)
}

func (r *FeedbackRepo) query(ctx context.Context, sql string, args ...any) ([]models.Feedback, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Feedback{}
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------
// Updates
// -----------------------------------------------------------------------------

func (r *FeedbackRepo) update(ctx context.Context, id, set string, args ...any) (*models.Feedback, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	args = append(args, id)
	sql := fmt.Sprintf(`
		UPDATE feedback f SET %s, updated_at = now()
		WHERE f.id = $%d
		RETURNING %s
	`, set, len(args), feedbackColumns)
	f, err := scanFeedback(r.db.QueryRow(ctx, sql, args...))
	return f, mapErr(err)
}

func (r *FeedbackRepo) UpdateStatus(ctx context.Context, id string, status models.Status) (*models.Feedback, error) {
	return r.update(ctx, id, "status = $1", string(status))
}

func (r *FeedbackRepo) UpdateTags(ctx context.Context, id string, tags []string) (*models.Feedback, error) {
	if tags == nil {
		tags = []string{}
	}
	return r.update(ctx, id, "tags = $1", tags)
}

func (r *FeedbackRepo) Assign(ctx context.Context, id, leaderID string) (*models.Feedback, error) {
	if err := checkID(leaderID); err != nil {
		return nil, err
	}
	return r.update(ctx, id, "assigned_leader = $1::uuid", leaderID)
}

func (r *FeedbackRepo) AddReply(ctx context.Context, id string, reply models.Reply) (*models.Feedback, error) {
	if reply.ID == "" {
		reply.ID = uuid.NewString()
	}
	b, err := json.Marshal(reply)
	if err != nil {
		return nil, err
	}
	return r.update(ctx, id, "replies = f.replies || jsonb_build_array($1::jsonb)", string(b))
}

// DeleteNew deletes in one statement so a concurrent status change cannot
// slip between the check and the delete.
func (r *FeedbackRepo) DeleteNew(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	ct, err := r.db.Exec(ctx, `DELETE FROM feedback WHERE id = $1 AND status = $2`, id, string(models.StatusNew))
	if err != nil {
		return err
	}
	if ct.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM feedback WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return repository.ErrConflict
	}
	return repository.ErrNotFound
}
