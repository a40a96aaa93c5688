package repository

import (
	"context"
	"time"

	"shopapi/internal/domain/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderFilter narrows order listings. Zero values are ignored.
type OrderFilter struct {
	UserID *uuid.UUID
	Status *model.OrderStatus
	From   *time.Time
	To     *time.Time
	Limit  int
}

type OrderRepository interface {
	Create(ctx context.Context, o *model.Order) error
	// FindByID loads the order with its user and items.
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	// FindByIDForUpdate locks the order row until the surrounding transaction ends.
	// Items and user are not loaded.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error)
	List(ctx context.Context, f OrderFilter) ([]model.Order, error)
	UpdateUser(ctx context.Context, id uuid.UUID, userID uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error
	UpdateTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByStatus(ctx context.Context) (map[model.OrderStatus]int64, error)
	SumTotalByStatus(ctx context.Context, status model.OrderStatus) (decimal.Decimal, error)
}
