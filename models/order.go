package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is shared by orders and their items; items move through the same
// vocabulary independently of the order they belong to.
type OrderStatus string

const (
	StatusPending     OrderStatus = "PENDING"
	StatusPreparing   OrderStatus = "PREPARING"
	StatusReadyToPick OrderStatus = "READYTOPICK"
	StatusServed      OrderStatus = "SERVED"
	StatusCompleted   OrderStatus = "COMPLETED"
	StatusCancelled   OrderStatus = "CANCELLED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPreparing, StatusReadyToPick, StatusServed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type OrderType string

const (
	OrderTypeDineIn       OrderType = "DINE_IN"
	OrderTypeTakeAway     OrderType = "TAKE_AWAY"
	OrderTypePickup       OrderType = "PICKUP"
	OrderTypeDelivery     OrderType = "DELIVERY"
	OrderTypeReservation  OrderType = "RESERVATION"
	OrderTypeQuickBilling OrderType = "QUICK_BILLING"
)

func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeDineIn, OrderTypeTakeAway, OrderTypePickup, OrderTypeDelivery, OrderTypeReservation, OrderTypeQuickBilling:
		return true
	}
	return false
}

// TableBound reports whether orders of this type occupy a table. Every other
// type is a direct order and carries no table.
func (t OrderType) TableBound() bool {
	return t == OrderTypeDineIn
}

type Order struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderType   OrderType       `gorm:"type:varchar(20);not null" json:"order_type"`
	TableID     *uint           `gorm:"index" json:"table_id"`
	Table       *Table          `gorm:"foreignKey:TableID" json:"table,omitempty"`
	CustomerID  *uint           `gorm:"index" json:"customer_id"`
	Customer    *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Status      OrderStatus     `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0" json:"total_amount"`

	// Filled in by checkout.
	Subtotal       decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0" json:"subtotal"`
	DiscountTotal  decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0" json:"discount_total"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0" json:"tax_amount"`
	ServiceCharge  decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0" json:"service_charge"`
	CustomTaxTotal decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0" json:"custom_tax_total"`
	GrandTotal     decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0" json:"grand_total"`
	PaymentMethod  string          `gorm:"type:varchar(20)" json:"payment_method,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`

	Items     []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt time.Time   `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time   `gorm:"not null" json:"updated_at"`
}

// RecomputeTotal sets TotalAmount to the sum of the loaded item totals.
func (o *Order) RecomputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.TotalPrice)
	}
	o.TotalAmount = total
	return total
}
