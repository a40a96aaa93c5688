package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"shopapi/internal/domain/model"
	"shopapi/internal/middleware"
	repo "shopapi/internal/repository"
	"shopapi/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type ProductService interface {
	Create(ctx context.Context, in usecase.CreateProductInput) (*model.Product, error)
	FindAll(ctx context.Context, f repo.ProductFilter) ([]model.Product, error)
	Count(ctx context.Context, f repo.ProductFilter) (int64, error)
	FindOne(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindBySlug(ctx context.Context, slug string) (*model.Product, error)
	SearchByName(ctx context.Context, q string) ([]model.Product, error)
	FindLowStock(ctx context.Context, threshold int64) ([]model.Product, error)
	Update(ctx context.Context, id uuid.UUID, in usecase.UpdateProductInput) (*model.Product, error)
	UpdateStock(ctx context.Context, actorID, id uuid.UUID, stock int64) (*model.Product, error)
	Remove(ctx context.Context, id uuid.UUID) error
}

type ProductHandler struct {
	svc ProductService
}

func NewProductHandler(svc ProductService) *ProductHandler {
	return &ProductHandler{svc: svc}
}

type createProductRequest struct {
	Name        string          `json:"name" validate:"required,max=255"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int64           `json:"stock" validate:"gte=0"`
	ImageURL    string          `json:"image_url" validate:"omitempty,url"`
}

type updateProductRequest struct {
	Name        *string          `json:"name" validate:"omitempty,max=255"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int64           `json:"stock" validate:"omitempty,gte=0"`
	ImageURL    *string          `json:"image_url" validate:"omitempty,url"`
}

type updateStockRequest struct {
	Stock *int64 `json:"stock" validate:"required,gte=0"`
}

type countResponse struct {
	Total int64 `json:"total"`
}

func (h *ProductHandler) RegisterRoutes(e *echo.Echo, g Guards) {
	p := e.Group("/producto")

	p.GET("", h.list)
	p.GET("/count/total", h.count)
	p.GET("/search/name", h.search)
	p.GET("/stock/low", h.lowStock)
	p.GET("/slug/:slug", h.bySlug)
	p.GET("/:id", h.get)

	admin := append(g.authenticated(), g.Admin)
	p.POST("", h.create, admin...)
	p.PUT("/:id", h.update, admin...)
	p.PATCH("/:id/stock", h.updateStock, admin...)
	p.DELETE("/:id", h.remove, admin...)
}

func (h *ProductHandler) create(c echo.Context) error {
	var req createProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.svc.Create(c.Request().Context(), usecase.CreateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *ProductHandler) list(c echo.Context) error {
	f, err := productFilterFromQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.svc.FindAll(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) count(c echo.Context) error {
	f, err := productFilterFromQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	n, err := h.svc.Count(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, countResponse{Total: n})
}

func (h *ProductHandler) search(c echo.Context) error {
	q := query(c, "nombre", "name")
	out, err := h.svc.SearchByName(c.Request().Context(), q)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) lowStock(c echo.Context) error {
	threshold := usecase.DefaultLowStockThreshold
	if v := query(c, "limite", "threshold"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid threshold"})
		}
		threshold = n
	}

	out, err := h.svc.FindLowStock(c.Request().Context(), threshold)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) bySlug(c echo.Context) error {
	out, err := h.svc.FindBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) get(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.svc.FindOne(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) update(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req updateProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.svc.Update(c.Request().Context(), id, usecase.UpdateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) updateStock(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req updateStockRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	actorID, _ := middleware.UserID(c)
	out, err := h.svc.UpdateStock(c.Request().Context(), actorID, id, *req.Stock)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) remove(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := h.svc.Remove(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "product deleted"})
}

// query returns the first non-empty value among the given parameter names.
func query(c echo.Context, names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(c.QueryParam(n)); v != "" {
			return v
		}
	}
	return ""
}

func productFilterFromQuery(c echo.Context) (repo.ProductFilter, error) {
	f := repo.ProductFilter{
		Name:        query(c, "nombre", "name"),
		Description: query(c, "descripcion", "description"),
		Sort:        repo.ProductSort(query(c, "sort")),
	}

	switch strings.ToLower(query(c, "order")) {
	case "", "asc":
	case "desc":
		f.Desc = true
	default:
		return f, badQuery("order")
	}

	for _, d := range []struct {
		names []string
		dst   **decimal.Decimal
	}{
		{[]string{"minPrice", "precioMin"}, &f.MinPrice},
		{[]string{"maxPrice", "precioMax"}, &f.MaxPrice},
	} {
		if v := query(c, d.names...); v != "" {
			n, err := decimal.NewFromString(v)
			if err != nil {
				return f, badQuery(d.names[0])
			}
			*d.dst = &n
		}
	}

	for _, d := range []struct {
		names []string
		dst   **int64
	}{
		{[]string{"minStock", "stockMin"}, &f.MinStock},
		{[]string{"maxStock", "stockMax"}, &f.MaxStock},
	} {
		if v := query(c, d.names...); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return f, badQuery(d.names[0])
			}
			*d.dst = &n
		}
	}

	if v := query(c, "disponible", "available"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, badQuery("available")
		}
		f.Available = &b
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

	var err error
	if f.Limit, err = intQuery(c, "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = intQuery(c, "offset"); err != nil {
		return f, err
	}
	return f, nil
}

func intQuery(c echo.Context, name string) (int, error) {
	v := query(c, name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, badQuery(name)
	}
	return n, nil
}

func badQuery(name string) error {
	return usecase.NewHTTPError(http.StatusBadRequest, "invalid "+name)
}
