package repository

import (
	"context"

	"shopapi/internal/domain/model"
	repo "shopapi/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

// items come in insertion order
func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Order("order_items.created_at asc").Order("order_items.id asc")
}

func (r *OrderGormRepository) hydrated(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("User").Preload("Items", preloadItems)
}

func (r *OrderGormRepository) Create(ctx context.Context, o *model.Order) error {
	// items are written separately through OrderItemRepository
	return mapError(r.db.WithContext(ctx).Omit(clause.Associations).Create(o).Error)
}

func (r *OrderGormRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var o model.Order
	if err := r.hydrated(ctx).Where("id = ?", id).First(&o).Error; err != nil {
		return nil, mapError(err)
	}
	return &o, nil
}

func (r *OrderGormRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&o).Error
	if err != nil {
		return nil, mapError(err)
	}
	return &o, nil
}

func (r *OrderGormRepository) List(ctx context.Context, f repo.OrderFilter) ([]model.Order, error) {
	q := r.hydrated(ctx).Model(&model.Order{})

	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", *f.To)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var orders []model.Order
	if err := q.Order("created_at desc").Find(&orders).Error; err != nil {
		return []model.Order{}, err
	}
	return orders, nil
}

func (r *OrderGormRepository) UpdateUser(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", id).
		Update("user_id", userID)
	return rowsOrNotFound(res)
}

func (r *OrderGormRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", id).
		Update("status", status)
	return rowsOrNotFound(res)
}

func (r *OrderGormRepository) UpdateTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", id).
		Update("total", total)
	return rowsOrNotFound(res)
}

func (r *OrderGormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return rowsOrNotFound(r.db.WithContext(ctx).Delete(&model.Order{}, "id = ?", id))
}

func (r *OrderGormRepository) CountByStatus(ctx context.Context) (map[model.OrderStatus]int64, error) {
	var rows []struct {
		Status model.OrderStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[model.OrderStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

func (r *OrderGormRepository) SumTotalByStatus(ctx context.Context, status model.OrderStatus) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Select("COALESCE(SUM(total), 0)").
		Where("status = ?", status).
		Row().Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}
