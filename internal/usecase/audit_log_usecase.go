package usecase

import (
	"context"

	"shopapi/internal/domain/model"
	repo "shopapi/internal/repository"
)

const (
	defaultAuditLogLimit = 50
	maxAuditLogLimit     = 200
)

type AuditLogUsecase struct {
	logs repo.AuditLogRepository
}

func NewAuditLogUsecase(logs repo.AuditLogRepository) *AuditLogUsecase {
	return &AuditLogUsecase{logs: logs}
}

// List returns audit rows newest first. Limit defaults to 50 and is capped at 200.
func (u *AuditLogUsecase) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	if f.Action != nil && !f.Action.Valid() {
		return nil, badRequest("invalid action")
	}
	if f.ResourceType != nil && !f.ResourceType.Valid() {
		return nil, badRequest("invalid resource type")
	}
	if f.CreatedFrom != nil && f.CreatedTo != nil && f.CreatedFrom.After(*f.CreatedTo) {
		return nil, badRequest("start date must not be after end date")
	}
	if f.Limit < 0 || f.Offset < 0 {
		return nil, badRequest("limit and offset must not be negative")
	}
	if f.Limit == 0 {
		f.Limit = defaultAuditLogLimit
	}
	if f.Limit > maxAuditLogLimit {
		f.Limit = maxAuditLogLimit
	}

	logs, err := u.logs.List(ctx, f)
	if err != nil {
		return nil, fail(ctx, "list audit logs", err)
	}
	return logs, nil
}
