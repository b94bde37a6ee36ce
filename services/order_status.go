package services

import "github.com/yeremiapane/restaurant-pos/models"

// Order status moves are staff decisions: any non-terminal order may be set to any
// other working status or cancelled. COMPLETED is only reached through checkout,
// which is what records the bill.
func checkOrderTransition(order *models.Order, to models.OrderStatus) error {
	if !to.Valid() {
		return invalidInput("status", "unknown order status %q", to)
	}
	if order.Status.Terminal() {
		return orderFinalized(order)
	}
	if to == models.StatusCompleted {
		return invalidInput("status", "orders are completed by checkout")
	}
	return nil
}

// Item statuses share the order vocabulary but move freely and never touch the
// order's own status.
func checkItemStatus(status models.OrderStatus) error {
	if !status.Valid() {
		return invalidInput("status", "unknown item status %q", status)
	}
	return nil
}
