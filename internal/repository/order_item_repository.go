package repository

import (
	"context"

	"shopapi/internal/domain/model"

	"github.com/google/uuid"
)

type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID uuid.UUID, items []model.OrderItem) error
	Create(ctx context.Context, item *model.OrderItem) error
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error)
	// FindByID only matches items belonging to orderID.
	FindByID(ctx context.Context, orderID uuid.UUID, itemID uuid.UUID) (*model.OrderItem, error)
	// FindByProduct reports found=false without error when the order has no line for productID.
	FindByProduct(ctx context.Context, orderID uuid.UUID, productID uuid.UUID) (*model.OrderItem, bool, error)
	UpdateQuantity(ctx context.Context, itemID uuid.UUID, quantity int64) error
	Delete(ctx context.Context, itemID uuid.UUID) error
}
