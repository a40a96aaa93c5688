package repository

import (
	"context"
	"strings"

	"shopapi/internal/domain/model"
	repo "shopapi/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultProductLimit = 50
	maxProductLimit     = 100
)

type ProductGormRepository struct {
	db *gorm.DB
}

func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

func (r *ProductGormRepository) Create(ctx context.Context, p *model.Product) error {
	return mapError(r.db.WithContext(ctx).Create(p).Error)
}

func (r *ProductGormRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}

func (r *ProductGormRepository) FindBySlug(ctx context.Context, slug string) (*model.Product, error) {
	var p model.Product
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&p).Error; err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}

func (r *ProductGormRepository) List(ctx context.Context, f repo.ProductFilter) ([]model.Product, error) {
	q := applyProductFilter(r.db.WithContext(ctx).Model(&model.Product{}), f)

	dir := "asc"
	if f.Desc {
		dir = "desc"
	}
	q = q.Order(productSortColumn(f.Sort) + " " + dir).Order("id " + dir)

	limit := f.Limit
	if limit <= 0 {
		limit = defaultProductLimit
	}
	if limit > maxProductLimit {
		limit = maxProductLimit
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var products []model.Product
	if err := q.Limit(limit).Offset(offset).Find(&products).Error; err != nil {
		return []model.Product{}, err
	}
	return products, nil
}

func (r *ProductGormRepository) Count(ctx context.Context, f repo.ProductFilter) (int64, error) {
	var n int64
	err := applyProductFilter(r.db.WithContext(ctx).Model(&model.Product{}), f).Count(&n).Error
	return n, err
}

func (r *ProductGormRepository) SearchByName(ctx context.Context, q string) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Where("name ILIKE ?", "%"+strings.TrimSpace(q)+"%").
		Order("name asc").
		Find(&products).Error
	if err != nil {
		return []model.Product{}, err
	}
	return products, nil
}

func (r *ProductGormRepository) ListLowStock(ctx context.Context, threshold int64) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Where("stock <= ?", threshold).
		Order("stock asc").Order("name asc").
		Find(&products).Error
	if err != nil {
		return []model.Product{}, err
	}
	return products, nil
}

func (r *ProductGormRepository) Update(ctx context.Context, p *model.Product) error {
	res := r.db.WithContext(ctx).Model(p).Select("*").Omit("id", "created_at").Updates(p)
	return rowsOrNotFound(res)
}

func (r *ProductGormRepository) UpdateStock(ctx context.Context, id uuid.UUID, stock int64) error {
	res := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", id).
		Update("stock", stock)
	return rowsOrNotFound(res)
}

func (r *ProductGormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return rowsOrNotFound(r.db.WithContext(ctx).Delete(&model.Product{}, "id = ?", id))
}

func applyProductFilter(q *gorm.DB, f repo.ProductFilter) *gorm.DB {
	if s := strings.TrimSpace(f.Name); s != "" {
		q = q.Where("name ILIKE ?", "%"+s+"%")
	}
	if s := strings.TrimSpace(f.Description); s != "" {
		q = q.Where("description ILIKE ?", "%"+s+"%")
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}
	if f.MinStock != nil {
		q = q.Where("stock >= ?", *f.MinStock)
	}
	if f.MaxStock != nil {
		q = q.Where("stock <= ?", *f.MaxStock)
	}
	if f.Available != nil {
		if *f.Available {
			q = q.Where("stock > 0")
		} else {
			q = q.Where("stock = 0")
		}
	}
	if f.CreatedFrom != nil {
		q = q.Where("created_at >= ?", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		q = q.Where("created_at <= ?", *f.CreatedTo)
	}
	return q
}

// only whitelisted columns reach ORDER BY
func productSortColumn(s repo.ProductSort) string {
	switch s {
	case repo.ProductSortName, repo.ProductSortPrice, repo.ProductSortStock:
		return string(s)
	default:
		return string(repo.ProductSortCreatedAt)
	}
}
