// Package billing turns an order snapshot and a set of checkout modifiers into a
// final Bill. Everything in this package is a pure function of its inputs: there is
// no database access, no clock and no shared state, so a bill can be previewed as
// many times as the cashier likes before payment is taken.
package billing

import "github.com/shopspring/decimal"

type DiscountType string

const (
	DiscountPercent DiscountType = "PERCENT"
	DiscountAmount  DiscountType = "AMOUNT"
)

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "CASH"
	PaymentQR     PaymentMethod = "QR"
	PaymentCard   PaymentMethod = "CARD"
	PaymentCredit PaymentMethod = "CREDIT"
)

// Valid reports whether m is one of the accepted settlement methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentQR, PaymentCard, PaymentCredit:
		return true
	}
	return false
}

// Flat rates applied when the matching toggle is on, in percent.
var (
	TaxRate           = decimal.NewFromInt(13)
	ServiceChargeRate = decimal.NewFromInt(10)
)

var hundred = decimal.NewFromInt(100)

// Line is one billable order item. UnitPrice is the per-unit charge including any
// add-ons, as snapshotted on the order item.
type Line struct {
	ItemID    uint            `json:"item_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Order is the read-only snapshot the engine bills.
type Order struct {
	ID         uint   `json:"id"`
	CustomerID *uint  `json:"customer_id,omitempty"`
	Lines      []Line `json:"lines"`
}

// FreeItem is an item handed out at zero charge on top of the order. CatalogPrice
// only feeds reporting; it never reaches the subtotal. DishID/ComboID are set when
// the item came from the catalog and left nil for ad-hoc named items.
type FreeItem struct {
	Name         string          `json:"name"`
	Quantity     int             `json:"quantity"`
	CatalogPrice decimal.Decimal `json:"catalog_price"`
	DishID       *uint           `json:"dish_id,omitempty"`
	ComboID      *uint           `json:"combo_id,omitempty"`
}

type Discount struct {
	Type  DiscountType    `json:"type"`
	Value decimal.Decimal `json:"value"`
}

type CustomTax struct {
	Name       string          `json:"name"`
	Percentage decimal.Decimal `json:"percentage"`
}

// Modifiers are the discretionary checkout inputs chosen by staff.
type Modifiers struct {
	// Complimentary maps an order item id to the number of its units waived.
	Complimentary      map[uint]int    `json:"complimentary,omitempty"`
	ExtraFree          []FreeItem      `json:"extra_free,omitempty"`
	ManualDiscount     Discount        `json:"manual_discount"`
	LoyaltyPercent     decimal.Decimal `json:"loyalty_percent"`
	ApplyTax           bool            `json:"apply_tax"`
	ApplyServiceCharge bool            `json:"apply_service_charge"`
	CustomTaxes        []CustomTax     `json:"custom_taxes,omitempty"`
}

type BillLine struct {
	ItemID             uint            `json:"item_id"`
	Name               string          `json:"name"`
	Quantity           int             `json:"quantity"`
	ComplimentaryQty   int             `json:"complimentary_qty"`
	ChargedQty         int             `json:"charged_qty"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	Amount             decimal.Decimal `json:"amount"`
	DiscountAllocation decimal.Decimal `json:"discount_allocation"`
}

type FreeLine struct {
	Name          string          `json:"name"`
	Quantity      int             `json:"quantity"`
	CatalogPrice  decimal.Decimal `json:"catalog_price"`
	ReportedValue decimal.Decimal `json:"reported_value"`
	DishID        *uint           `json:"dish_id,omitempty"`
	ComboID       *uint           `json:"combo_id,omitempty"`
}

type TaxLine struct {
	Name       string          `json:"name"`
	Percentage decimal.Decimal `json:"percentage"`
	Amount     decimal.Decimal `json:"amount"`
}

// Bill is the immutable result of ComputeBill.
type Bill struct {
	OrderID          uint            `json:"order_id"`
	Lines            []BillLine      `json:"lines"`
	FreeLines        []FreeLine      `json:"free_lines"`
	FreeItemsValue   decimal.Decimal `json:"free_items_value"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	LoyaltyPercent   decimal.Decimal `json:"loyalty_percent"`
	LoyaltyDiscount  decimal.Decimal `json:"loyalty_discount"`
	ManualDiscount   decimal.Decimal `json:"manual_discount"`
	CombinedDiscount decimal.Decimal `json:"combined_discount"`
	TaxableBase      decimal.Decimal `json:"taxable_base"`
	Tax              decimal.Decimal `json:"tax"`
	ServiceCharge    decimal.Decimal `json:"service_charge"`
	CustomTaxes      []TaxLine       `json:"custom_taxes"`
	CustomTaxTotal   decimal.Decimal `json:"custom_tax_total"`
	GrandTotal       decimal.Decimal `json:"grand_total"`
}
