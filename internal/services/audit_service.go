// internal/services/audit_service.go
package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/models"
	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/repositories"
	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/utils"
)

// AuditService appends one action-log row per mutating API call. Writes are
// best-effort: a failed log never fails the request it describes.
type AuditService interface {
	Record(ctx context.Context, action models.LogAction, uaInfo string, query, body, response any)
}

type auditService struct {
	logs repositories.ActionLogRepository
}

func NewAuditService(logs repositories.ActionLogRepository) AuditService {
	return &auditService{logs: logs}
}

func (s *auditService) Record(ctx context.Context, action models.LogAction, uaInfo string, query, body, response any) {
	data, err := json.Marshal(map[string]any{
		"ua_info":   uaInfo,
		"query":     orEmpty(query),
		"body":      orEmpty(body),
		"response":  orEmpty(response),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		utils.Logger.WithError(err).Warnf("failed to marshal action log for %s", action)
		return
	}

	entry := &models.ActionLog{
		ID:        uuid.New(),
		Action:    action,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		utils.Logger.WithError(err).Warnf("failed to persist action log for %s", action)
	}
}

func orEmpty(v any) any {
	if v == nil {
		return map[string]any{}
	}
	return v
}
