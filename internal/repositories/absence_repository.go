// internal/repositories/absence_repository.go
package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/models"
	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/utils"
)

type AbsenceRepository interface {
	Create(ctx context.Context, a *models.Absence) error
	Delete(ctx context.Context, id uuid.UUID) error
	IsAbsent(ctx context.Context, userID uuid.UUID, at time.Time) (bool, error)
}

type absenceRepo struct {
	db DB
}

func NewAbsenceRepository(db DB) AbsenceRepository {
	return &absenceRepo{db: db}
}

func (r *absenceRepo) Create(ctx context.Context, a *models.Absence) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO absences (id, user_id, class_begin_at, starts_at, ends_at, created_at)
        VALUES ($1, $2, $3, $4, $5, NOW())
    `, a.ID, a.UserID, a.ClassBeginAt, a.StartsAt, a.EndsAt)
	return err
}

func (r *absenceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM absences WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return utils.ErrUserNotFound
	}
	return nil
}

func (r *absenceRepo) IsAbsent(ctx context.Context, userID uuid.UUID, at time.Time) (bool, error) {
	row := r.db.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM absences
            WHERE user_id=$1 AND starts_at <= $2 AND ends_at >= $2
        )
    `, userID, at)
	var absent bool
	if err := row.Scan(&absent); err != nil {
		return false, err
	}
	return absent, nil
}
