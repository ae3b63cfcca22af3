// internal/repositories/user_repository.go
package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/models"
	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/utils"
)

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListWithCookies(ctx context.Context) ([]*models.UserWithCookie, error)
	ListAutoEnabled(ctx context.Context) ([]*models.UserWithCookie, error)
	Rename(ctx context.Context, id uuid.UUID, newName string) error
	SetAuto(ctx context.Context, id uuid.UUID, isAuto bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type userRepo struct {
	db DB
}

func NewUserRepository(db DB) UserRepository {
	return &userRepo{db: db}
}

// baseSelectWithCookie joins every user to their newest cookie row, if any.
const baseSelectWithCookie = `
    SELECT
        u.id, u.name, u.is_auto, u.created_at,
        c.value AS latest_cookie, c.expires
    FROM users u
    LEFT JOIN LATERAL (
        SELECT value, expires
        FROM cookies
        WHERE cookies.user_id = u.id
        ORDER BY created_at DESC
        LIMIT 1
    ) c ON TRUE
`

func (r *userRepo) Create(ctx context.Context, u *models.User) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO users (id, name, is_auto, created_at)
        VALUES ($1, $2, $3, NOW())
    `, u.ID, u.Name, u.IsAuto)
	return err
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := r.db.QueryRow(ctx, `
        SELECT id, name, is_auto, created_at FROM users WHERE id=$1
    `, id)
	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.IsAuto, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, utils.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) ListWithCookies(ctx context.Context) ([]*models.UserWithCookie, error) {
	rows, err := r.db.Query(ctx, baseSelectWithCookie+" ORDER BY u.created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsersWithCookies(rows)
}

func (r *userRepo) ListAutoEnabled(ctx context.Context) ([]*models.UserWithCookie, error) {
	rows, err := r.db.Query(ctx, baseSelectWithCookie+" WHERE u.is_auto ORDER BY u.created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsersWithCookies(rows)
}

func scanUsersWithCookies(rows pgx.Rows) ([]*models.UserWithCookie, error) {
	var out []*models.UserWithCookie
	for rows.Next() {
		var u models.UserWithCookie
		if err := rows.Scan(
			&u.ID, &u.Name, &u.IsAuto, &u.CreatedAt,
			&u.LatestCookie, &u.CookieExpires,
		); err != nil {
			return nil, err
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}

func (r *userRepo) Rename(ctx context.Context, id uuid.UUID, newName string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET name=$2 WHERE id=$1`, id, newName)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return utils.ErrUserNotFound
	}
	return nil
}

func (r *userRepo) SetAuto(ctx context.Context, id uuid.UUID, isAuto bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET is_auto=$2 WHERE id=$1`, id, isAuto)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return utils.ErrUserNotFound
	}
	return nil
}

func (r *userRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return utils.ErrUserNotFound
	}
	return nil
}
