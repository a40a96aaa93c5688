package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"shopapi/internal/domain/model"
	"shopapi/internal/middleware"
	"shopapi/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type OrderService interface {
	Create(ctx context.Context, in usecase.CreateOrderInput) (*model.Order, error)
	FindOne(ctx context.Context, id uuid.UUID) (*model.Order, error)
	FindAll(ctx context.Context) ([]model.Order, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error)
	FindByStatus(ctx context.Context, status string) ([]model.Order, error)
	FindRecent(ctx context.Context, limit int) ([]model.Order, error)
	FindByDateRange(ctx context.Context, from, to time.Time) ([]model.Order, error)
	Update(ctx context.Context, actorID, id uuid.UUID, in usecase.UpdateOrderInput) (*model.Order, error)
	UpdateStatus(ctx context.Context, actorID, id uuid.UUID, status string) (*model.Order, error)
	Cancel(ctx context.Context, actorID, id uuid.UUID) (*model.Order, error)
	Remove(ctx context.Context, id uuid.UUID) error
	GetStats(ctx context.Context) (model.OrderStats, error)
	AddItem(ctx context.Context, orderID uuid.UUID, in usecase.AddOrderItemInput) (*model.Order, error)
	RemoveItem(ctx context.Context, orderID, itemID uuid.UUID) (*model.Order, error)
	UpdateItemQuantity(ctx context.Context, orderID, itemID uuid.UUID, quantity int64) (*model.Order, error)
	CalculateOrderTotal(ctx context.Context, id uuid.UUID) (decimal.Decimal, error)
}

type OrderHandler struct {
	svc OrderService
}

func NewOrderHandler(svc OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

type createOrderItemRequest struct {
	ProductID string           `json:"product_id" validate:"required,uuid"`
	Quantity  int64            `json:"quantity" validate:"gte=1"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	Name      string           `json:"name,omitempty"`
}

type createOrderRequest struct {
	UserID string                   `json:"user_id" validate:"omitempty,uuid"`
	Items  []createOrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type updateOrderRequest struct {
	UserID *string `json:"user_id" validate:"omitempty,uuid"`
	Status *string `json:"status" validate:"omitempty,oneof=pending paid cancelled shipped"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending paid cancelled shipped"`
}

type addOrderItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int64  `json:"quantity" validate:"gte=1"`
}

type updateItemQuantityRequest struct {
	Quantity int64 `json:"quantity" validate:"gte=1"`
}

type orderTotalResponse struct {
	OrderID uuid.UUID       `json:"order_id"`
	Total   decimal.Decimal `json:"total"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, g Guards) {
	o := e.Group("/ordenes", g.authenticated()...)

	o.POST("", h.create)
	o.GET("", h.list, g.Admin)
	o.GET("/analytics/stats", h.stats, g.Admin)
	o.GET("/recent/list", h.recent, g.Admin)
	o.GET("/search/daterange", h.dateRange, g.Admin)
	o.GET("/status/:status", h.byStatus, g.Admin)
	o.GET("/user/:userId", h.byUser)

	o.GET("/:id", h.get)
	o.GET("/:id/total", h.total)
	o.PUT("/:id", h.update, g.Admin)
	o.PATCH("/:id/status", h.updateStatus, g.Admin)
	o.PATCH("/:id/cancel", h.cancel)
	o.DELETE("/:id", h.remove, g.Admin)

	o.POST("/:id/items", h.addItem)
	o.DELETE("/:id/items/:itemId", h.removeItem)
	o.PATCH("/:id/items/:itemId/quantity", h.updateItemQuantity)
}

func (h *OrderHandler) create(c echo.Context) error {
	var req createOrderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	callerID, _ := middleware.UserID(c)
	userID := callerID
	if req.UserID != "" {
		userID = uuid.MustParse(req.UserID)
	}
	// customers order for themselves only
	if userID != callerID && !middleware.IsAdmin(c) {
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: "cannot create orders for another user"})
	}

	in := usecase.CreateOrderInput{UserID: userID}
	for _, it := range req.Items {
		in.Items = append(in.Items, usecase.CreateOrderItemInput{
			ProductID: uuid.MustParse(it.ProductID),
			Quantity:  it.Quantity,
			Price:     it.Price,
			Name:      it.Name,
		})
	}

	out, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) list(c echo.Context) error {
	out, err := h.svc.FindAll(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) stats(c echo.Context) error {
	out, err := h.svc.GetStats(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) recent(c echo.Context) error {
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		}
		limit = n
	}

	out, err := h.svc.FindRecent(c.Request().Context(), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) dateRange(c echo.Context) error {
	from, ok := parseDate(c.QueryParam("startDate"), false)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid startDate"})
	}
	to, ok := parseDate(c.QueryParam("endDate"), true)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid endDate"})
	}

	out, err := h.svc.FindByDateRange(c.Request().Context(), from, to)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) byStatus(c echo.Context) error {
	out, err := h.svc.FindByStatus(c.Request().Context(), c.Param("status"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) byUser(c echo.Context) error {
	userID, err := uuidParam(c, "userId")
	if err != nil {
		return writeError(c, err)
	}
	if callerID, _ := middleware.UserID(c); callerID != userID && !middleware.IsAdmin(c) {
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
	}

	out, err := h.svc.FindByUser(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) get(c echo.Context) error {
	o, err := h.ownedOrder(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) total(c echo.Context) error {
	o, err := h.ownedOrder(c)
	if err != nil {
		return writeError(c, err)
	}

	total, err := h.svc.CalculateOrderTotal(c.Request().Context(), o.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, orderTotalResponse{OrderID: o.ID, Total: total})
}

func (h *OrderHandler) update(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req updateOrderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	var in usecase.UpdateOrderInput
	if req.UserID != nil {
		uid := uuid.MustParse(*req.UserID)
		in.UserID = &uid
	}
	if req.Status != nil {
		st := model.OrderStatus(*req.Status)
		in.Status = &st
	}

	actorID, _ := middleware.UserID(c)
	out, err := h.svc.Update(c.Request().Context(), actorID, id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) updateStatus(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req updateOrderStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	actorID, _ := middleware.UserID(c)
	out, err := h.svc.UpdateStatus(c.Request().Context(), actorID, id, req.Status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) cancel(c echo.Context) error {
	o, err := h.ownedOrder(c)
	if err != nil {
		return writeError(c, err)
	}

	actorID, _ := middleware.UserID(c)
	out, err := h.svc.Cancel(c.Request().Context(), actorID, o.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) remove(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := h.svc.Remove(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "order deleted"})
}

func (h *OrderHandler) addItem(c echo.Context) error {
	o, err := h.ownedOrder(c)
	if err != nil {
		return writeError(c, err)
	}
	var req addOrderItemRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.svc.AddItem(c.Request().Context(), o.ID, usecase.AddOrderItemInput{
		ProductID: uuid.MustParse(req.ProductID),
		Quantity:  req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) removeItem(c echo.Context) error {
	o, err := h.ownedOrder(c)
	if err != nil {
		return writeError(c, err)
	}
	itemID, err := uuidParam(c, "itemId")
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.svc.RemoveItem(c.Request().Context(), o.ID, itemID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) updateItemQuantity(c echo.Context) error {
	o, err := h.ownedOrder(c)
	if err != nil {
		return writeError(c, err)
	}
	itemID, err := uuidParam(c, "itemId")
	if err != nil {
		return writeError(c, err)
	}
	var req updateItemQuantityRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.svc.UpdateItemQuantity(c.Request().Context(), o.ID, itemID, req.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ownedOrder loads the :id order. Customers see other users' orders as missing.
func (h *OrderHandler) ownedOrder(c echo.Context) (*model.Order, error) {
	id, err := uuidParam(c, "id")
	if err != nil {
		return nil, err
	}
	o, err := h.svc.FindOne(c.Request().Context(), id)
	if err != nil {
		return nil, err
	}
	if callerID, _ := middleware.UserID(c); o.UserID != callerID && !middleware.IsAdmin(c) {
		return nil, usecase.NewHTTPError(http.StatusNotFound, "order not found")
	}
	return o, nil
}
