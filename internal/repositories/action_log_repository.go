// internal/repositories/action_log_repository.go
package repositories

import (
	"context"

	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/models"
)

type ActionLogRepository interface {
	Create(ctx context.Context, entry *models.ActionLog) error
}

type actionLogRepo struct {
	db DB
}

func NewActionLogRepository(db DB) ActionLogRepository {
	return &actionLogRepo{db: db}
}

func (r *actionLogRepo) Create(ctx context.Context, entry *models.ActionLog) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO action_logs (id, action, data, created_at)
        VALUES ($1, $2, $3, NOW())
    `, entry.ID, entry.Action, entry.Data)
	return err
}
