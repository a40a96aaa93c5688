package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"shopapi/internal/domain/model"
	repo "shopapi/internal/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
)

const DefaultLowStockThreshold int64 = 10

type ProductUsecase struct {
	tx       repo.TransactionManager
	products repo.ProductRepository
}

func NewProductUsecase(tx repo.TransactionManager, products repo.ProductRepository) *ProductUsecase {
	return &ProductUsecase{tx: tx, products: products}
}

type CreateProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int64
	ImageURL    string
}

// UpdateProductInput is a partial update, nil fields are left unchanged.
type UpdateProductInput struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int64
	ImageURL    *string
}

func (u *ProductUsecase) Create(ctx context.Context, in CreateProductInput) (*model.Product, error) {
	p := &model.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Stock:       in.Stock,
		ImageURL:    strings.TrimSpace(in.ImageURL),
	}
	if err := prepareProduct(p); err != nil {
		return nil, err
	}
	if err := u.ensureSlugFree(ctx, p); err != nil {
		return nil, fail(ctx, "create product", err)
	}

	if err := u.products.Create(ctx, p); err != nil {
		return nil, fail(ctx, "create product", duplicate(err, "product name already exists"))
	}
	return p, nil
}

// prepareProduct validates the editable fields and derives the slug.
func prepareProduct(p *model.Product) error {
	if p.Name == "" {
		return badRequest("name is required")
	}
	if p.Price.IsNegative() {
		return badRequest("price must not be negative")
	}
	if p.Stock < 0 {
		return badRequest("stock must not be negative")
	}
	p.Slug = slug.Make(p.Name)
	if p.Slug == "" {
		return badRequest("name must contain letters or digits")
	}
	return nil
}

// ensureSlugFree rejects names that differ from an existing product's name
// but reduce to the same slug ("Foo Bar" and "foo-bar").
func (u *ProductUsecase) ensureSlugFree(ctx context.Context, p *model.Product) error {
	other, err := u.products.FindBySlug(ctx, p.Slug)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return nil
	case err != nil:
		return err
	case other.ID != p.ID:
		return conflict("product slug " + p.Slug + " is already used by " + other.Name)
	}
	return nil
}

func (u *ProductUsecase) FindAll(ctx context.Context, f repo.ProductFilter) ([]model.Product, error) {
	if err := validateProductFilter(f); err != nil {
		return nil, err
	}
	products, err := u.products.List(ctx, f)
	if err != nil {
		return nil, fail(ctx, "list products", err)
	}
	return products, nil
}

func (u *ProductUsecase) Count(ctx context.Context, f repo.ProductFilter) (int64, error) {
	if err := validateProductFilter(f); err != nil {
		return 0, err
	}
	n, err := u.products.Count(ctx, f)
	if err != nil {
		return 0, fail(ctx, "count products", err)
	}
	return n, nil
}

func validateProductFilter(f repo.ProductFilter) error {
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return badRequest("min price must not exceed max price")
	}
	if f.MinStock != nil && f.MaxStock != nil && *f.MinStock > *f.MaxStock {
		return badRequest("min stock must not exceed max stock")
	}
	if f.CreatedFrom != nil && f.CreatedTo != nil && f.CreatedFrom.After(*f.CreatedTo) {
		return badRequest("start date must not be after end date")
	}
	if f.Limit < 0 || f.Offset < 0 {
		return badRequest("limit and offset must not be negative")
	}
	return nil
}

func (u *ProductUsecase) FindOne(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p, err := u.products.FindByID(ctx, id)
	if err != nil {
		return nil, fail(ctx, "find product", lookup(err, "product"))
	}
	return p, nil
}

func (u *ProductUsecase) FindBySlug(ctx context.Context, s string) (*model.Product, error) {
	p, err := u.products.FindBySlug(ctx, s)
	if err != nil {
		return nil, fail(ctx, "find product", lookup(err, "product"))
	}
	return p, nil
}

func (u *ProductUsecase) SearchByName(ctx context.Context, q string) ([]model.Product, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, badRequest("search term is required")
	}
	products, err := u.products.SearchByName(ctx, q)
	if err != nil {
		return nil, fail(ctx, "search products", err)
	}
	return products, nil
}

// FindLowStock lists products whose stock is at or below threshold, lowest first.
func (u *ProductUsecase) FindLowStock(ctx context.Context, threshold int64) ([]model.Product, error) {
	if threshold < 0 {
		return nil, badRequest("threshold must not be negative")
	}
	products, err := u.products.ListLowStock(ctx, threshold)
	if err != nil {
		return nil, fail(ctx, "list low stock products", err)
	}
	return products, nil
}

func (u *ProductUsecase) Update(ctx context.Context, id uuid.UUID, in UpdateProductInput) (*model.Product, error) {
	p, err := u.products.FindByID(ctx, id)
	if err != nil {
		return nil, fail(ctx, "update product", lookup(err, "product"))
	}

	oldSlug := p.Slug
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.ImageURL != nil {
		p.ImageURL = strings.TrimSpace(*in.ImageURL)
	}
	if err := prepareProduct(p); err != nil {
		return nil, err
	}
	if p.Slug != oldSlug {
		if err := u.ensureSlugFree(ctx, p); err != nil {
			return nil, fail(ctx, "update product", err)
		}
	}

	if err := u.products.Update(ctx, p); err != nil {
		err = duplicate(lookup(err, "product"), "product name already exists")
		return nil, fail(ctx, "update product", err)
	}
	return p, nil
}

// UpdateStock sets the absolute stock level and writes an audit entry.
func (u *ProductUsecase) UpdateStock(ctx context.Context, actorID, id uuid.UUID, stock int64) (*model.Product, error) {
	if stock < 0 {
		return nil, badRequest("stock must not be negative")
	}

	var out *model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Products().FindByID(ctx, id)
		if err != nil {
			return lookup(err, "product")
		}
		if err := r.Products().UpdateStock(ctx, id, stock); err != nil {
			return lookup(err, "product")
		}

		before, _ := json.Marshal(map[string]int64{"stock": p.Stock})
		after, _ := json.Marshal(map[string]int64{"stock": stock})
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorID,
			Action:       model.AuditActionUpdateStock,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   id,
			BeforeJSON:   string(before),
			AfterJSON:    string(after),
			CreatedAt:    time.Now(),
		}); err != nil {
			return err
		}

		p.Stock = stock
		out = p
		return nil
	})
	if err != nil {
		return nil, fail(ctx, "update stock", err)
	}
	return out, nil
}

func (u *ProductUsecase) Remove(ctx context.Context, id uuid.UUID) error {
	if err := u.products.Delete(ctx, id); err != nil {
		return fail(ctx, "delete product", lookup(err, "product"))
	}
	return nil
}
