package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusShipped   OrderStatus = "shipped"
)

// OrderStatuses lists every status in display order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusCancelled,
	OrderStatusShipped,
}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	for _, st := range OrderStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// CanTransitionTo reports whether an order in status s may move to next.
// Cancelled orders are frozen and shipped orders never return to pending.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch {
	case s == OrderStatusCancelled:
		return false
	case s == OrderStatusShipped && next == OrderStatusPending:
		return false
	}
	return true
}

type Order struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Items     []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Total     decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"total"`
	Status    OrderStatus     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CreatedAt time.Time       `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderStats aggregates order counts per status and paid revenue.
type OrderStats struct {
	TotalOrders     int64           `json:"total_orders"`
	PendingOrders   int64           `json:"pending_orders"`
	PaidOrders      int64           `json:"paid_orders"`
	CancelledOrders int64           `json:"cancelled_orders"`
	ShippedOrders   int64           `json:"shipped_orders"`
	TotalSales      decimal.Decimal `json:"total_sales"`
}
