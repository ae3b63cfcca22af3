// internal/repositories/scan_record_repository.go
package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/models"
)

type ScanRecordRepository interface {
	Create(ctx context.Context, rec *models.ScanRecord) error
	List(ctx context.Context, count, index int, userID *uuid.UUID) ([]*models.ScanRecord, error)
}

type scanRecordRepo struct {
	db DB
}

func NewScanRecordRepository(db DB) ScanRecordRepository {
	return &scanRecordRepo{db: db}
}

func (r *scanRecordRepo) Create(ctx context.Context, rec *models.ScanRecord) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO scan_records (id, result, user_id, created_at)
        VALUES ($1, $2, $3, NOW())
    `, rec.ID, rec.Result, rec.UserID)
	return err
}

func (r *scanRecordRepo) List(ctx context.Context, count, index int, userID *uuid.UUID) ([]*models.ScanRecord, error) {
	q := `
        SELECT id, result, user_id, created_at FROM scan_records
        WHERE ($3::uuid IS NULL OR user_id=$3)
        ORDER BY created_at DESC
        OFFSET $2 LIMIT $1
    `
	rows, err := r.db.Query(ctx, q, count, index*count, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanScanRecords(rows)
}

func scanScanRecords(rows pgx.Rows) ([]*models.ScanRecord, error) {
	var out []*models.ScanRecord
	for rows.Next() {
		var rec models.ScanRecord
		if err := rows.Scan(&rec.ID, &rec.Result, &rec.UserID, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
