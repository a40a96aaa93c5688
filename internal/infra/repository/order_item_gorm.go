package repository

import (
	"context"

	"shopapi/internal/domain/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderItemGormRepository struct {
	db *gorm.DB
}

func NewOrderItemGormRepository(db *gorm.DB) *OrderItemGormRepository {
	return &OrderItemGormRepository{db: db}
}

func (r *OrderItemGormRepository) CreateBulk(ctx context.Context, orderID uuid.UUID, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].OrderID = orderID
	}
	return mapError(r.db.WithContext(ctx).Create(&items).Error)
}

func (r *OrderItemGormRepository) Create(ctx context.Context, item *model.OrderItem) error {
	return mapError(r.db.WithContext(ctx).Create(item).Error)
}

func (r *OrderItemGormRepository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error) {
	var items []model.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at asc").Order("id asc").
		Find(&items).Error
	if err != nil {
		return []model.OrderItem{}, err
	}
	return items, nil
}

func (r *OrderItemGormRepository) FindByID(ctx context.Context, orderID uuid.UUID, itemID uuid.UUID) (*model.OrderItem, error) {
	var it model.OrderItem
	err := r.db.WithContext(ctx).
		Where("id = ? AND order_id = ?", itemID, orderID).
		First(&it).Error
	if err != nil {
		return nil, mapError(err)
	}
	return &it, nil
}

func (r *OrderItemGormRepository) FindByProduct(ctx context.Context, orderID uuid.UUID, productID uuid.UUID) (*model.OrderItem, bool, error) {
	var items []model.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND product_id = ?", orderID, productID).
		Limit(1).
		Find(&items).Error
	if err != nil {
		return nil, false, err
	}
	if len(items) == 0 {
		return nil, false, nil
	}
	return &items[0], true, nil
}

func (r *OrderItemGormRepository) UpdateQuantity(ctx context.Context, itemID uuid.UUID, quantity int64) error {
	res := r.db.WithContext(ctx).Model(&model.OrderItem{}).
		Where("id = ?", itemID).
		Update("quantity", quantity)
	return rowsOrNotFound(res)
}

func (r *OrderItemGormRepository) Delete(ctx context.Context, itemID uuid.UUID) error {
	return rowsOrNotFound(r.db.WithContext(ctx).Delete(&model.OrderItem{}, "id = ?", itemID))
}
