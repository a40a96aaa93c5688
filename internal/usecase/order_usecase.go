package usecase

import (
	"context"
	"encoding/json"
	"time"

	"shopapi/internal/domain/model"
	repo "shopapi/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultRecentOrders = 10
	maxRecentOrders     = 100
)

type OrderUsecase struct {
	tx     repo.TransactionManager
	orders repo.OrderRepository
	users  repo.UserRepository
}

func NewOrderUsecase(tx repo.TransactionManager, orders repo.OrderRepository, users repo.UserRepository) *OrderUsecase {
	return &OrderUsecase{tx: tx, orders: orders, users: users}
}

// CreateOrderItemInput describes one requested line. Price and Name are
// accepted from clients but ignored: the product row is the only price source.
type CreateOrderItemInput struct {
	ProductID uuid.UUID
	Quantity  int64
	Price     *decimal.Decimal
	Name      string
}

type CreateOrderInput struct {
	UserID uuid.UUID
	Items  []CreateOrderItemInput
}

// UpdateOrderInput is a partial update. Status changes follow the same
// rules as UpdateStatus.
type UpdateOrderInput struct {
	UserID *uuid.UUID
	Status *model.OrderStatus
}

type AddOrderItemInput struct {
	ProductID uuid.UUID
	Quantity  int64
}

func (u *OrderUsecase) Create(ctx context.Context, in CreateOrderInput) (*model.Order, error) {
	if in.UserID == uuid.Nil {
		return nil, badRequest("user_id is required")
	}
	if len(in.Items) == 0 {
		return nil, badRequest("order must contain at least one item")
	}
	for _, it := range in.Items {
		if it.ProductID == uuid.Nil {
			return nil, badRequest("product_id is required")
		}
		if it.Quantity < 1 {
			return nil, badRequest("quantity must be at least 1")
		}
	}

	var out *model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		user, err := r.Users().FindByID(ctx, in.UserID)
		if err != nil {
			return lookup(err, "user")
		}
		if !user.IsActive {
			return forbidden("user is inactive")
		}

		items, err := buildOrderItems(ctx, r, in.Items)
		if err != nil {
			return err
		}

		order := &model.Order{
			UserID: user.ID,
			Status: model.OrderStatusPending,
			Total:  model.SumItems(items),
		}
		if err := r.Orders().Create(ctx, order); err != nil {
			return err
		}
		if err := r.OrderItems().CreateBulk(ctx, order.ID, items); err != nil {
			return err
		}

		out, err = r.Orders().FindByID(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, fail(ctx, "create order", err)
	}
	return out, nil
}

// buildOrderItems prices each line from the product row. Repeated products
// are merged into one line.
func buildOrderItems(ctx context.Context, r repo.TxRepos, lines []CreateOrderItemInput) ([]model.OrderItem, error) {
	items := make([]model.OrderItem, 0, len(lines))
	index := make(map[uuid.UUID]int, len(lines))

	for _, line := range lines {
		if i, ok := index[line.ProductID]; ok {
			items[i].Quantity += line.Quantity
			continue
		}

		p, err := r.Products().FindByID(ctx, line.ProductID)
		if err != nil {
			return nil, lookup(err, "product")
		}

		index[p.ID] = len(items)
		items = append(items, model.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  line.Quantity,
		})
	}
	return items, nil
}

func (u *OrderUsecase) FindOne(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	o, err := u.orders.FindByID(ctx, id)
	if err != nil {
		return nil, fail(ctx, "find order", lookup(err, "order"))
	}
	return o, nil
}

func (u *OrderUsecase) FindAll(ctx context.Context) ([]model.Order, error) {
	return u.list(ctx, "list orders", repo.OrderFilter{})
}

// FindByUser fails with 404 when the user does not exist.
func (u *OrderUsecase) FindByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	if _, err := u.users.FindByID(ctx, userID); err != nil {
		return nil, fail(ctx, "list orders by user", lookup(err, "user"))
	}
	return u.list(ctx, "list orders by user", repo.OrderFilter{UserID: &userID})
}

func (u *OrderUsecase) FindByStatus(ctx context.Context, status string) ([]model.Order, error) {
	st, ok := model.ParseOrderStatus(status)
	if !ok {
		return nil, badRequest("invalid status")
	}
	return u.list(ctx, "list orders by status", repo.OrderFilter{Status: &st})
}

// FindRecent returns the newest orders, 10 by default and never more than 100.
func (u *OrderUsecase) FindRecent(ctx context.Context, limit int) ([]model.Order, error) {
	if limit <= 0 {
		limit = defaultRecentOrders
	}
	if limit > maxRecentOrders {
		limit = maxRecentOrders
	}
	return u.list(ctx, "list recent orders", repo.OrderFilter{Limit: limit})
}

func (u *OrderUsecase) FindByDateRange(ctx context.Context, from, to time.Time) ([]model.Order, error) {
	if from.After(to) {
		return nil, badRequest("start date must not be after end date")
	}
	return u.list(ctx, "list orders by date range", repo.OrderFilter{From: &from, To: &to})
}

func (u *OrderUsecase) list(ctx context.Context, op string, f repo.OrderFilter) ([]model.Order, error) {
	orders, err := u.orders.List(ctx, f)
	if err != nil {
		return nil, fail(ctx, op, err)
	}
	return orders, nil
}

func (u *OrderUsecase) Update(ctx context.Context, actorID, id uuid.UUID, in UpdateOrderInput) (*model.Order, error) {
	var out *model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, id)
		if err != nil {
			return lookup(err, "order")
		}
		if o.Status == model.OrderStatusCancelled {
			return badRequest("cannot update a cancelled order")
		}

		if in.UserID != nil && *in.UserID != o.UserID {
			user, err := r.Users().FindByID(ctx, *in.UserID)
			if err != nil {
				return lookup(err, "user")
			}
			if !user.IsActive {
				return forbidden("user is inactive")
			}
			if err := r.Orders().UpdateUser(ctx, id, user.ID); err != nil {
				return err
			}
		}

		if in.Status != nil {
			if err := changeStatus(ctx, r, actorID, o, *in.Status, model.AuditActionUpdateOrderStatus); err != nil {
				return err
			}
		}

		out, err = r.Orders().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, fail(ctx, "update order", err)
	}
	return out, nil
}

func (u *OrderUsecase) UpdateStatus(ctx context.Context, actorID, id uuid.UUID, status string) (*model.Order, error) {
	next, ok := model.ParseOrderStatus(status)
	if !ok {
		return nil, badRequest("invalid status")
	}

	var out *model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, id)
		if err != nil {
			return lookup(err, "order")
		}
		if err := changeStatus(ctx, r, actorID, o, next, model.AuditActionUpdateOrderStatus); err != nil {
			return err
		}
		out, err = r.Orders().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, fail(ctx, "update order status", err)
	}
	return out, nil
}

func (u *OrderUsecase) Cancel(ctx context.Context, actorID, id uuid.UUID) (*model.Order, error) {
	var out *model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, id)
		if err != nil {
			return lookup(err, "order")
		}
		switch o.Status {
		case model.OrderStatusShipped:
			return badRequest("cannot cancel a shipped order")
		case model.OrderStatusCancelled:
			return badRequest("order is already cancelled")
		}
		if err := changeStatus(ctx, r, actorID, o, model.OrderStatusCancelled, model.AuditActionCancelOrder); err != nil {
			return err
		}
		out, err = r.Orders().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, fail(ctx, "cancel order", err)
	}
	return out, nil
}

// changeStatus applies the transition rules, persists the new status and
// records it in the audit log. Same-status requests are a no-op.
func changeStatus(ctx context.Context, r repo.TxRepos, actorID uuid.UUID, o *model.Order, next model.OrderStatus, action model.AuditAction) error {
	if !o.Status.CanTransitionTo(next) {
		return badRequest("cannot change order status from " + string(o.Status) + " to " + string(next))
	}
	if o.Status == next {
		return nil
	}
	if err := r.Orders().UpdateStatus(ctx, o.ID, next); err != nil {
		return err
	}

	before, _ := json.Marshal(map[string]model.OrderStatus{"status": o.Status})
	after, _ := json.Marshal(map[string]model.OrderStatus{"status": next})
	return r.AuditLogs().Create(ctx, model.AuditLog{
		ActorUserID:  actorID,
		Action:       action,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   o.ID,
		BeforeJSON:   string(before),
		AfterJSON:    string(after),
		CreatedAt:    time.Now(),
	})
}

// Remove hard-deletes pending or cancelled orders together with their items.
func (u *OrderUsecase) Remove(ctx context.Context, id uuid.UUID) error {
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, id)
		if err != nil {
			return lookup(err, "order")
		}
		if o.Status == model.OrderStatusPaid || o.Status == model.OrderStatusShipped {
			return badRequest("only pending or cancelled orders can be deleted")
		}
		return lookup(r.Orders().Delete(ctx, id), "order")
	})
	return fail(ctx, "delete order", err)
}

func (u *OrderUsecase) GetStats(ctx context.Context) (model.OrderStats, error) {
	counts, err := u.orders.CountByStatus(ctx)
	if err != nil {
		return model.OrderStats{}, fail(ctx, "order stats", err)
	}
	sales, err := u.orders.SumTotalByStatus(ctx, model.OrderStatusPaid)
	if err != nil {
		return model.OrderStats{}, fail(ctx, "order stats", err)
	}

	stats := model.OrderStats{
		PendingOrders:   counts[model.OrderStatusPending],
		PaidOrders:      counts[model.OrderStatusPaid],
		CancelledOrders: counts[model.OrderStatusCancelled],
		ShippedOrders:   counts[model.OrderStatusShipped],
		TotalSales:      sales,
	}
	for _, n := range counts {
		stats.TotalOrders += n
	}
	return stats, nil
}

// AddItem adds quantity of a product to a pending order. A product already
// on the order has its line quantity increased instead of a second line.
func (u *OrderUsecase) AddItem(ctx context.Context, orderID uuid.UUID, in AddOrderItemInput) (*model.Order, error) {
	return u.mutateItems(ctx, "add order item", orderID, func(r repo.TxRepos) error {
		if in.ProductID == uuid.Nil {
			return badRequest("product_id is required")
		}
		if in.Quantity < 1 {
			return badRequest("quantity must be at least 1")
		}

		p, err := r.Products().FindByID(ctx, in.ProductID)
		if err != nil {
			return lookup(err, "product")
		}

		existing, found, err := r.OrderItems().FindByProduct(ctx, orderID, p.ID)
		if err != nil {
			return err
		}
		if found {
			return r.OrderItems().UpdateQuantity(ctx, existing.ID, existing.Quantity+in.Quantity)
		}
		return r.OrderItems().Create(ctx, &model.OrderItem{
			OrderID:   orderID,
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  in.Quantity,
		})
	})
}

func (u *OrderUsecase) RemoveItem(ctx context.Context, orderID, itemID uuid.UUID) (*model.Order, error) {
	return u.mutateItems(ctx, "remove order item", orderID, func(r repo.TxRepos) error {
		it, err := r.OrderItems().FindByID(ctx, orderID, itemID)
		if err != nil {
			return lookup(err, "order item")
		}
		return lookup(r.OrderItems().Delete(ctx, it.ID), "order item")
	})
}

func (u *OrderUsecase) UpdateItemQuantity(ctx context.Context, orderID, itemID uuid.UUID, quantity int64) (*model.Order, error) {
	return u.mutateItems(ctx, "update order item", orderID, func(r repo.TxRepos) error {
		if quantity < 1 {
			return badRequest("quantity must be at least 1")
		}
		it, err := r.OrderItems().FindByID(ctx, orderID, itemID)
		if err != nil {
			return lookup(err, "order item")
		}
		return lookup(r.OrderItems().UpdateQuantity(ctx, it.ID, quantity), "order item")
	})
}

// mutateItems locks the order, requires it to be pending, runs fn and then
// rewrites the total from the persisted items.
func (u *OrderUsecase) mutateItems(ctx context.Context, op string, orderID uuid.UUID, fn func(r repo.TxRepos) error) (*model.Order, error) {
	var out *model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return lookup(err, "order")
		}
		if o.Status != model.OrderStatusPending {
			return badRequest("items can only be changed while the order is pending")
		}

		if err := fn(r); err != nil {
			return err
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := r.Orders().UpdateTotal(ctx, orderID, model.SumItems(items)); err != nil {
			return err
		}

		out, err = r.Orders().FindByID(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, fail(ctx, op, err)
	}
	return out, nil
}

// CalculateOrderTotal recomputes the total from the persisted items without
// writing it.
func (u *OrderUsecase) CalculateOrderTotal(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	o, err := u.orders.FindByID(ctx, id)
	if err != nil {
		return decimal.Zero, fail(ctx, "calculate order total", lookup(err, "order"))
	}
	return model.SumItems(o.Items), nil
}
