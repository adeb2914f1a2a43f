package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"feedback-hub/internal/models"
	"feedback-hub/internal/repository"
)

type UserRepo struct{ db *pgxpool.Pool }

func NewUserRepo(db *pgxpool.Pool) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id::text, external_id, email, name, role, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		u    models.User
		role string
	)
	if err := row.Scan(&u.ID, &u.ExternalID, &u.Email, &u.Name, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	return &u, nil
}

func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(u.Email)
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (external_id, email, name, role)
		VALUES ($1,$2,$3,$4)
		RETURNING id::text, created_at, updated_at`,
		u.ExternalID, u.Email, u.Name, string(u.Role)).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	return mapErr(err)
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
	return u, mapErr(err)
}

func (r *UserRepo) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE external_id=$1`, externalID))
	return u, mapErr(err)
}

// -----------------------------------------------------------------------------
// Admin/list/update operations
// -----------------------------------------------------------------------------

// List returns a filtered, paginated list of users and total count.
// Filters: q (matches email or name, ILIKE), role (exact).
func (r *UserRepo) List(ctx context.Context, f repository.UserFilter) ([]models.User, int, error) {
	f.Normalize()

	clauses := []string{"1=1"}
	args := []any{}

	if f.Q != "" {
		p := "%" + f.Q + "%"
		args = append(args, p, p)
		clauses = append(clauses, "(email ILIKE $"+itoa(len(args)-1)+" OR name ILIKE $"+itoa(len(args))+")")
	}
	if f.Role != "" {
		args = append(args, string(f.Role))
		clauses = append(clauses, "role = $"+itoa(len(args)))
	}

	countSQL := `SELECT COUNT(*) FROM users WHERE ` + strings.Join(clauses, " AND ")
	var total int
	if err := r.db.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, f.Offset)
	listSQL := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE %s
		ORDER BY updated_at DESC
		LIMIT $%d OFFSET $%d
	`, userColumns, strings.Join(clauses, " AND "), len(args)-1, len(args))
	rows, err := r.db.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *u)
	}
	return out, total, rows.Err()
}

func (r *UserRepo) UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	u, err := scanUser(r.db.QueryRow(ctx, `
		UPDATE users
		SET role=$1, updated_at=now()
		WHERE id=$2
		RETURNING `+userColumns, string(role), id))
	return u, mapErr(err)
}
