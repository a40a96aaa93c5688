package handler

import (
	"context"
	"net/http"

	"shopapi/internal/domain/model"
	repo "shopapi/internal/repository"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type AuditLogService interface {
	List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error)
}

type AuditLogHandler struct {
	svc AuditLogService
}

func NewAuditLogHandler(svc AuditLogService) *AuditLogHandler {
	return &AuditLogHandler{svc: svc}
}

func (h *AuditLogHandler) RegisterRoutes(e *echo.Echo, g Guards) {
	e.GET("/audit-logs", h.list, append(g.authenticated(), g.Admin)...)
}

func (h *AuditLogHandler) list(c echo.Context) error {
	f, err := auditLogFilterFromQuery(c)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func auditLogFilterFromQuery(c echo.Context) (repo.AuditLogFilter, error) {
	var (
		f   repo.AuditLogFilter
		err error
	)
	if f.ActorUserID, err = uuidQuery(c, "actorId"); err != nil {
		return f, err
	}
	if f.ResourceID, err = uuidQuery(c, "resourceId"); err != nil {
		return f, err
	}

	if v := query(c, "action"); v != "" {
		a := model.AuditAction(v)
		f.Action = &a
	}
	if v := query(c, "resourceType"); v != "" {
		t := model.AuditResourceType(v)
		f.ResourceType = &t
	}

	if v := query(c, "startDate"); v != "" {
		t, ok := parseDate(v, false)
		if !ok {
			return f, badQuery("startDate")
		}
		f.CreatedFrom = &t
	}
	if v := query(c, "endDate"); v != "" {
		t, ok := parseDate(v, true)
		if !ok {
			return f, badQuery("endDate")
		}
		f.CreatedTo = &t
	}

	if f.Limit, err = intQuery(c, "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = intQuery(c, "offset"); err != nil {
		return f, err
	}
	return f, nil
}

func uuidQuery(c echo.Context, name string) (*uuid.UUID, error) {
	v := query(c, name)
	if v == "" {
		return nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, badQuery(name)
	}
	return &id, nil
}
