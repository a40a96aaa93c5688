package repository

import (
	"context"
	"time"

	"shopapi/internal/domain/model"

	"github.com/google/uuid"
)

type AuditLogFilter struct {
	ActorUserID  *uuid.UUID
	Action       *model.AuditAction
	ResourceType *model.AuditResourceType
	ResourceID   *uuid.UUID
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

type AuditLogRepository interface {
	Create(ctx context.Context, log model.AuditLog) error
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, error)
}
