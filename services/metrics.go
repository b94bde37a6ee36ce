package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/yeremiapane/restaurant-pos/models"
)

// Metrics holds the POS collectors. A nil *Metrics is valid and records nothing,
// so services built in tests need not register anything.
type Metrics struct {
	ordersCreated    *prometheus.CounterVec
	orderTransitions *prometheus.CounterVec
	checkouts        *prometheus.CounterVec
	checkoutDuration prometheus.Histogram
	grandTotal       *prometheus.CounterVec
	occupiedTables   prometheus.Gauge
	pendingItems     *prometheus.GaugeVec
}

// NewMetrics builds the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ordersCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pos_orders_created_total",
				Help: "Orders created, by order type",
			},
			[]string{"order_type"},
		),
		orderTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pos_order_status_changes_total",
				Help: "Order status changes, by target status",
			},
			[]string{"status"},
		),
		checkouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pos_checkouts_total",
				Help: "Checkout attempts, by payment method and outcome",
			},
			[]string{"method", "outcome"},
		),
		checkoutDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pos_checkout_duration_seconds",
				Help:    "Time spent finalizing a checkout",
				Buckets: prometheus.DefBuckets,
			},
		),
		grandTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pos_sales_amount_total",
				Help: "Sum of grand totals of completed checkouts, by payment method",
			},
			[]string{"method"},
		),
		occupiedTables: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pos_tables_occupied",
				Help: "Tables with an open session",
			},
		),
		pendingItems: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pos_kot_pending_items",
				Help: "Items still waiting to be served, by station",
			},
			[]string{"station"},
		),
	}

	reg.MustRegister(
		m.ordersCreated,
		m.orderTransitions,
		m.checkouts,
		m.checkoutDuration,
		m.grandTotal,
		m.occupiedTables,
		m.pendingItems,
	)
	return m
}

func (m *Metrics) orderCreated(t models.OrderType) {
	if m == nil {
		return
	}
	m.ordersCreated.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) orderStatusChanged(s models.OrderStatus) {
	if m == nil {
		return
	}
	m.orderTransitions.WithLabelValues(string(s)).Inc()
}

func (m *Metrics) checkoutDone(method, outcome string, started time.Time, total float64) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(method, outcome).Inc()
	if outcome == "completed" {
		m.checkoutDuration.Observe(time.Since(started).Seconds())
		m.grandTotal.WithLabelValues(method).Add(total)
	}
}

func (m *Metrics) tableOpened() {
	if m == nil {
		return
	}
	m.occupiedTables.Inc()
}

func (m *Metrics) tableClosed() {
	if m == nil {
		return
	}
	m.occupiedTables.Dec()
}

// SetOccupiedTables overwrites the occupancy gauge.
func (m *Metrics) SetOccupiedTables(n int) {
	if m == nil {
		return
	}
	m.occupiedTables.Set(float64(n))
}

func (m *Metrics) pendingWork(summary PendingSummary) {
	if m == nil {
		return
	}
	for _, st := range models.Stations {
		m.pendingItems.WithLabelValues(string(st)).Set(float64(summary.ByStation[st]))
	}
}
