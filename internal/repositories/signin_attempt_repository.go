// internal/repositories/signin_attempt_repository.go
package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/models"
)

type SigninAttemptRepository interface {
	Create(ctx context.Context, a *models.SigninAttempt) error
	List(ctx context.Context, count, index int, userID *uuid.UUID) ([]*models.SigninAttempt, error)
}

type signinAttemptRepo struct {
	db DB
}

func NewSigninAttemptRepository(db DB) SigninAttemptRepository {
	return &signinAttemptRepo{db: db}
}

func (r *signinAttemptRepo) Create(ctx context.Context, a *models.SigninAttempt) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO signin_attempts (
            id, user_id, cookie, scan_record_id,
            request_data, response_code, response_data, outcome, error, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
    `,
		a.ID, a.UserID, a.Cookie, a.ScanRecordID,
		a.RequestPayload, a.ResponseStatus, a.ResponseBody, a.Outcome, a.Error,
	)
	return err
}

func (r *signinAttemptRepo) List(ctx context.Context, count, index int, userID *uuid.UUID) ([]*models.SigninAttempt, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, user_id, cookie, scan_record_id,
               request_data, response_code, response_data, outcome, error, created_at
        FROM signin_attempts
        WHERE ($3::uuid IS NULL OR user_id=$3)
        ORDER BY created_at DESC
        OFFSET $2 LIMIT $1
    `, count, index*count, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.SigninAttempt
	for rows.Next() {
		var a models.SigninAttempt
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.Cookie, &a.ScanRecordID,
			&a.RequestPayload, &a.ResponseStatus, &a.ResponseBody, &a.Outcome, &a.Error, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
