package billing

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrCreditRequiresCustomer is returned when a CREDIT settlement is attempted on an
// order with no customer to charge it to.
var ErrCreditRequiresCustomer = errors.New("credit payment requires a customer on the order")

// ValidationError names the offending input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Validate checks modifiers against the order they will be applied to and returns
// the first problem found.
func Validate(order Order, mods Modifiers) error {
	quantities := make(map[uint]int, len(order.Lines))
	for _, line := range order.Lines {
		quantities[line.ItemID] = line.Quantity
	}

	ids := make([]uint, 0, len(mods.Complimentary))
	for id := range mods.Complimentary {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		qty := mods.Complimentary[id]
		have, ok := quantities[id]
		field := fmt.Sprintf("complimentary[%d]", id)
		switch {
		case !ok:
			return invalid(field, "item %d is not on order %d", id, order.ID)
		case qty < 0:
			return invalid(field, "quantity cannot be negative")
		case qty > have:
			return invalid(field, "complimentary quantity %d exceeds ordered quantity %d", qty, have)
		}
	}

	for i, free := range mods.ExtraFree {
		field := fmt.Sprintf("extra_free[%d]", i)
		if strings.TrimSpace(free.Name) == "" {
			return invalid(field+".name", "name is required")
		}
		if free.Quantity < 1 {
			return invalid(field+".quantity", "quantity must be at least 1")
		}
		if free.CatalogPrice.IsNegative() {
			return invalid(field+".catalog_price", "price cannot be negative")
		}
	}

	switch mods.ManualDiscount.Type {
	case DiscountPercent:
		if err := checkPercent("manual_discount.value", mods.ManualDiscount.Value); err != nil {
			return err
		}
	case DiscountAmount, "":
		if mods.ManualDiscount.Value.IsNegative() {
			return invalid("manual_discount.value", "amount cannot be negative")
		}
		if mods.ManualDiscount.Type == "" && !mods.ManualDiscount.Value.IsZero() {
			return invalid("manual_discount.type", "type is required when a value is given")
		}
	default:
		return invalid("manual_discount.type", "unknown discount type %q", mods.ManualDiscount.Type)
	}

	if err := checkPercent("loyalty_percent", mods.LoyaltyPercent); err != nil {
		return err
	}
	if mods.LoyaltyPercent.IsPositive() && order.CustomerID == nil {
		return invalid("loyalty_percent", "loyalty discount needs a customer on the order")
	}

	for i, ct := range mods.CustomTaxes {
		field := fmt.Sprintf("custom_taxes[%d]", i)
		if strings.TrimSpace(ct.Name) == "" {
			return invalid(field+".name", "name is required")
		}
		if err := checkPercent(field+".percentage", ct.Percentage); err != nil {
			return err
		}
	}
	return nil
}

// CheckSettlement rejects unknown payment methods and CREDIT without a customer.
func CheckSettlement(method PaymentMethod, customerID *uint) error {
	if !method.Valid() {
		return invalid("payment_method", "unknown payment method %q", method)
	}
	if method == PaymentCredit && customerID == nil {
		return ErrCreditRequiresCustomer
	}
	return nil
}

func checkPercent(field string, v decimal.Decimal) error {
	if v.IsNegative() || v.GreaterThan(hundred) {
		return invalid(field, "percentage must be between 0 and 100")
	}
	return nil
}
