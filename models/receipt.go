package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/yeremiapane/restaurant-pos/billing"
)

// Receipt is written once per order at checkout and doubles as the record that
// makes a repeated checkout return the original result.
type Receipt struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	OrderID       uint            `gorm:"not null;uniqueIndex" json:"order_id"`
	ReceiptNumber string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"receipt_number"`
	PaymentMethod string          `gorm:"type:varchar(20);not null" json:"payment_method"`
	GrandTotal    decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"grand_total"`
	Bill          billing.Bill    `gorm:"serializer:json;type:text;not null" json:"bill"`
	CreatedAt     time.Time       `gorm:"not null" json:"created_at"`

	// Replayed is set on the value returned by a repeated checkout.
	Replayed bool `gorm:"-" json:"replayed"`
}
