package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Station string

const (
	StationKitchen Station = "KITCHEN"
	StationBar     Station = "BAR"
)

// Stations lists every preparation station in ticket order.
var Stations = []Station{StationKitchen, StationBar}

func (s Station) Valid() bool {
	return s == StationKitchen || s == StationBar
}

// OrderItem stores a snapshot of the catalog entry it was ordered from. Exactly one
// of DishID and ComboID is set.
type OrderItem struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	OrderID uint `gorm:"not null;index" json:"order_id"`
	// Omitting Order field from JSON to avoid recursive nesting
	Order      *Order           `gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	DishID     *uint            `json:"dish_id,omitempty"`
	ComboID    *uint            `json:"combo_id,omitempty"`
	Name       string           `gorm:"type:varchar(255);not null" json:"name"`
	Station    Station          `gorm:"type:varchar(10);not null;default:'KITCHEN';index" json:"station"`
	Quantity   int              `gorm:"not null" json:"quantity"`
	UnitPrice  decimal.Decimal  `gorm:"type:decimal(14,4);not null" json:"unit_price"`
	TotalPrice decimal.Decimal  `gorm:"type:decimal(14,4);not null" json:"total_price"`
	Remark     string           `gorm:"type:text" json:"remark"`
	Status     OrderStatus      `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	AddOns     []OrderItemAddOn `gorm:"foreignKey:OrderItemID" json:"add_ons"`
	CreatedAt  time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time        `gorm:"not null" json:"updated_at"`
}

type OrderItemAddOn struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderItemID uint            `gorm:"not null;index" json:"order_item_id"`
	AddOnID     uint            `gorm:"not null" json:"add_on_id"`
	Name        string          `gorm:"type:varchar(100);not null" json:"name"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"unit_price"`
	CreatedAt   time.Time       `gorm:"not null" json:"created_at"`
}

// EffectiveUnitPrice is the item's own unit price plus every selected add-on.
func (i *OrderItem) EffectiveUnitPrice() decimal.Decimal {
	price := i.UnitPrice
	for _, a := range i.AddOns {
		price = price.Add(a.UnitPrice)
	}
	return price
}

// RecomputeTotal refreshes TotalPrice from the snapshotted prices and quantity.
func (i *OrderItem) RecomputeTotal() {
	i.TotalPrice = i.EffectiveUnitPrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}
