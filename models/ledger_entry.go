package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type LedgerKind string

const (
	LedgerCreditSale      LedgerKind = "CREDIT_SALE"
	LedgerLoyaltyDiscount LedgerKind = "LOYALTY_DISCOUNT"
)

// LedgerEntry is one line on a customer's account. An order produces at most one
// entry of each kind.
type LedgerEntry struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	CustomerID uint            `gorm:"not null;index" json:"customer_id"`
	OrderID    uint            `gorm:"not null;uniqueIndex:idx_ledger_order_kind" json:"order_id"`
	Kind       LedgerKind      `gorm:"type:varchar(20);not null;uniqueIndex:idx_ledger_order_kind" json:"kind"`
	Amount     decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"amount"`
	CreatedAt  time.Time       `gorm:"not null" json:"created_at"`
}
