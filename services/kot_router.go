package services

import (
	"context"
	"fmt"
	"time"

	"github.com/yeremiapane/restaurant-pos/models"
	"gorm.io/gorm"
)

// Ticket is a station's slice of an order. It is a projection; building one never
// changes item or order state, so reprinting is free.
type Ticket struct {
	OrderID   uint               `json:"order_id"`
	Station   models.Station     `json:"station"`
	OrderType models.OrderType   `json:"order_type"`
	TableID   *uint              `json:"table_id,omitempty"`
	TableName string             `json:"table_name,omitempty"`
	Items     []models.OrderItem `json:"items"`
	PrintedAt time.Time          `json:"printed_at"`
}

// Ready reports whether every item on the ticket is at least ready to pick.
func (t Ticket) Ready() bool {
	for _, item := range t.Items {
		switch item.Status {
		case models.StatusReadyToPick, models.StatusServed, models.StatusCompleted, models.StatusCancelled:
		default:
			return false
		}
	}
	return true
}

type PendingSummary struct {
	Total     int64                    `json:"total"`
	ByStation map[models.Station]int64 `json:"by_station"`
}

// KOTRouter splits orders into kitchen and bar tickets and takes station-scoped
// item status updates.
type KOTRouter struct {
	db      *gorm.DB
	orders  *OrderService
	metrics *Metrics
}

func NewKOTRouter(db *gorm.DB, orders *OrderService, metrics *Metrics) *KOTRouter {
	return &KOTRouter{db: db, orders: orders, metrics: metrics}
}

// Tickets returns one ticket per station, kitchen first. A station with nothing
// to make gets an empty ticket.
func (k *KOTRouter) Tickets(ctx context.Context, orderID uint) ([]Ticket, error) {
	order, err := loadOrder(k.db.WithContext(ctx), orderID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	tickets := make([]Ticket, 0, len(models.Stations))
	for _, st := range models.Stations {
		tickets = append(tickets, buildTicket(order, st, now))
	}
	return tickets, nil
}

// Ticket reissues a single station's ticket.
func (k *KOTRouter) Ticket(ctx context.Context, orderID uint, station models.Station) (*Ticket, error) {
	if !station.Valid() {
		return nil, invalidInput("station", "unknown station %q", station)
	}
	order, err := loadOrder(k.db.WithContext(ctx), orderID)
	if err != nil {
		return nil, err
	}
	ticket := buildTicket(order, station, time.Now())
	return &ticket, nil
}

// UpdateTicketItemStatus writes an item status from a station screen. Items
// routed to the other station are rejected.
func (k *KOTRouter) UpdateTicketItemStatus(ctx context.Context, station models.Station, itemID uint, status models.OrderStatus) (*models.OrderItem, error) {
	if !station.Valid() {
		return nil, invalidInput("station", "unknown station %q", station)
	}
	return k.orders.updateItemStatus(ctx, itemID, station, status)
}

// PendingWork counts items on live orders that have not yet been served or
// completed, overall and per station.
func (k *KOTRouter) PendingWork(ctx context.Context) (PendingSummary, error) {
	type row struct {
		Station models.Station
		Count   int64
	}
	var rows []row
	err := k.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Select("order_items.station AS station, COUNT(*) AS count").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status NOT IN ?", terminalStatuses).
		Where("order_items.status NOT IN ?", []models.OrderStatus{models.StatusServed, models.StatusCompleted}).
		Group("order_items.station").
		Scan(&rows).Error
	if err != nil {
		return PendingSummary{}, fmt.Errorf("failed to count pending work: %w", err)
	}

	summary := PendingSummary{ByStation: make(map[models.Station]int64, len(models.Stations))}
	for _, st := range models.Stations {
		summary.ByStation[st] = 0
	}
	for _, r := range rows {
		summary.ByStation[r.Station] += r.Count
		summary.Total += r.Count
	}
	k.metrics.pendingWork(summary)
	return summary, nil
}

func buildTicket(order *models.Order, station models.Station, printedAt time.Time) Ticket {
	ticket := Ticket{
		OrderID:   order.ID,
		Station:   station,
		OrderType: order.OrderType,
		TableID:   order.TableID,
		Items:     make([]models.OrderItem, 0),
		PrintedAt: printedAt,
	}
	if order.Table != nil {
		ticket.TableName = order.Table.Name
	}
	for _, item := range order.Items {
		if item.Station == station {
			ticket.Items = append(ticket.Items, item)
		}
	}
	return ticket
}
