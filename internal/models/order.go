// internal/models/order.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Order struct {
	BaseModel
	UserID          uuid.UUID       `json:"user_id" gorm:"type:uuid;not null;index"`
	OrderNumber     string          `json:"order_number" gorm:"size:32;uniqueIndex;not null"`
	Status          OrderStatus     `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	Subtotal        decimal.Decimal `json:"subtotal" gorm:"type:numeric(12,2);not null"`
	Tax             decimal.Decimal `json:"tax" gorm:"type:numeric(12,2);not null"`
	Shipping        decimal.Decimal `json:"shipping" gorm:"type:numeric(12,2);not null"`
	Total           decimal.Decimal `json:"total" gorm:"type:numeric(12,2);not null"`
	Currency        string          `json:"currency" gorm:"size:3;not null"`
	ExchangeRate    decimal.Decimal `json:"exchange_rate" gorm:"type:numeric(18,8);not null"`
	DisplayTotal    decimal.Decimal `json:"display_total" gorm:"type:numeric(14,2);not null"`
	ShippingAddress JSONB           `json:"shipping_address" gorm:"type:jsonb"`
	PaymentIntentID string          `json:"payment_intent_id,omitempty" gorm:"size:255"`
	PaymentStatus   PaymentStatus   `json:"payment_status" gorm:"type:varchar(20);default:'unpaid'"`
	Notes           string          `json:"notes,omitempty" gorm:"type:text"`
	CancelledAt     *time.Time      `json:"cancelled_at,omitempty"`
	CancelReason    string          `json:"cancel_reason,omitempty" gorm:"type:text"`
	CancelledBy     *uuid.UUID      `json:"cancelled_by,omitempty" gorm:"type:uuid"`

	// Relationships
	User    *User                `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Items   []OrderItem          `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	History []OrderStatusHistory `json:"history,omitempty" gorm:"foreignKey:OrderID"`
}

type OrderItem struct {
	BaseModel
	OrderID      uuid.UUID       `json:"order_id" gorm:"type:uuid;not null;index"`
	GemstoneID   uuid.UUID       `json:"gemstone_id" gorm:"type:uuid;not null;index"`
	GemstoneName string          `json:"gemstone_name" gorm:"size:255;not null"`
	Quantity     int             `json:"quantity" gorm:"not null;check:quantity > 0"`
	UnitPrice    decimal.Decimal `json:"unit_price" gorm:"type:numeric(12,2);not null"`
	LineTotal    decimal.Decimal `json:"line_total" gorm:"type:numeric(12,2);not null"`

	Gemstone *Gemstone `json:"gemstone,omitempty" gorm:"foreignKey:GemstoneID"`
}

type OrderStatusHistory struct {
	BaseModel
	OrderID    uuid.UUID   `json:"order_id" gorm:"type:uuid;not null;index"`
	FromStatus OrderStatus `json:"from_status" gorm:"type:varchar(20)"`
	ToStatus   OrderStatus `json:"to_status" gorm:"type:varchar(20);not null"`
	ActorID    *uuid.UUID  `json:"actor_id,omitempty" gorm:"type:uuid"`
	Note       string      `json:"note,omitempty" gorm:"type:text"`
}
