// Package receipts renders stored receipts for printing.
package receipts

import (
	"github.com/yeremiapane/restaurant-pos/config"
	"github.com/yeremiapane/restaurant-pos/models"
)

// Renderer turns a completed order's receipt into printable bytes.
type Renderer interface {
	Render(receipt *models.Receipt, order *models.Order) ([]byte, error)
	ContentType() string
}

// header is the restaurant block printed above every receipt.
func header(profile config.Restaurant) []string {
	lines := []string{profile.Name}
	if profile.Address != "" {
		lines = append(lines, profile.Address)
	}
	if profile.Phone != "" {
		lines = append(lines, "Tel: "+profile.Phone)
	}
	return lines
}

func tableLabel(order *models.Order) string {
	if order.Table != nil {
		return "Table " + order.Table.Name
	}
	return string(order.OrderType)
}
