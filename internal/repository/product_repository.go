package repository

import (
	"context"
	"time"

	"shopapi/internal/domain/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProductSort string

const (
	ProductSortCreatedAt ProductSort = "created_at"
	ProductSortName      ProductSort = "name"
	ProductSortPrice     ProductSort = "price"
	ProductSortStock     ProductSort = "stock"
)

// ProductFilter narrows product listings. Nil fields are ignored.
type ProductFilter struct {
	Name        string
	Description string
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	MinStock    *int64
	MaxStock    *int64
	Available   *bool
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Sort        ProductSort
	Desc        bool
	Limit       int
	Offset      int
}

type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindBySlug(ctx context.Context, slug string) (*model.Product, error)
	List(ctx context.Context, f ProductFilter) ([]model.Product, error)
	Count(ctx context.Context, f ProductFilter) (int64, error)
	SearchByName(ctx context.Context, q string) ([]model.Product, error)
	ListLowStock(ctx context.Context, threshold int64) ([]model.Product, error)
	Update(ctx context.Context, p *model.Product) error
	UpdateStock(ctx context.Context, id uuid.UUID, stock int64) error
	Delete(ctx context.Context, id uuid.UUID) error
}
