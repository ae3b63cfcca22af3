// internal/repositories/cookie_repository.go
package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/models"
)

type CookieRepository interface {
	Create(ctx context.Context, c *models.Cookie) error
	LatestForUser(ctx context.Context, userID uuid.UUID) (*models.Cookie, error)

	// ListExpiring returns, per user, the newest cookie whose expiry falls
	// before the cutoff (or that has already expired).
	ListExpiring(ctx context.Context, cutoff time.Time) ([]*models.Cookie, error)
}

type cookieRepo struct {
	db DB
}

func NewCookieRepository(db DB) CookieRepository {
	return &cookieRepo{db: db}
}

func (r *cookieRepo) Create(ctx context.Context, c *models.Cookie) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO cookies (id, user_id, value, expires, created_at)
        VALUES ($1, $2, $3, $4, NOW())
    `, c.ID, c.UserID, c.Value, c.Expires)
	return err
}

func (r *cookieRepo) LatestForUser(ctx context.Context, userID uuid.UUID) (*models.Cookie, error) {
	row := r.db.QueryRow(ctx, `
        SELECT id, user_id, value, expires, created_at
        FROM cookies
        WHERE user_id=$1
        ORDER BY created_at DESC
        LIMIT 1
    `, userID)
	var c models.Cookie
	if err := row.Scan(&c.ID, &c.UserID, &c.Value, &c.Expires, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *cookieRepo) ListExpiring(ctx context.Context, cutoff time.Time) ([]*models.Cookie, error) {
	rows, err := r.db.Query(ctx, `
        SELECT DISTINCT ON (user_id)
            id, user_id, value, expires, created_at
        FROM cookies
        WHERE expires IS NOT NULL AND expires < $1
        ORDER BY user_id, created_at DESC
    `, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Cookie
	for rows.Next() {
		var c models.Cookie
		if err := rows.Scan(&c.ID, &c.UserID, &c.Value, &c.Expires, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}
