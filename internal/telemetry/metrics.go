// Package telemetry holds the Prometheus instrumentation for the matching
// engine and its surrounding services.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the set of counters and histograms the HTTP API updates as it
// pushes actions through a Book. It is constructed
// against an explicit Registerer rather than the package-global default so
// that tests (and multiple apiserver instances in one process) don't race
// to register the same collector twice.
type Metrics struct {
	OrdersAcceptedTotal  *prometheus.CounterVec
	OrdersRejectedTotal  *prometheus.CounterVec
	OrdersCancelledTotal prometheus.Counter
	TradesTotal          prometheus.Counter
	TradeQuantity        prometheus.Histogram
	MatchLatency         prometheus.Histogram
	ResidentOrders       prometheus.Gauge
	GoodForDaySwept      prometheus.Counter
}

// New registers and returns a Metrics bound to reg. Pass
// prometheus.NewRegistry() in tests; pass prometheus.DefaultRegisterer in
// production. With a nil reg the collectors are created but not registered
// anywhere.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		OrdersAcceptedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orderbook_orders_accepted_total",
				Help: "Orders admitted to the book, by order type and side.",
			},
			[]string{"order_type", "side"},
		),
		OrdersRejectedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orderbook_orders_rejected_total",
				Help: "Orders rejected at admission, by order type and reason.",
			},
			[]string{"order_type", "reason"},
		),
		OrdersCancelledTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "orderbook_orders_cancelled_total",
				Help: "Orders removed from the book by explicit cancellation.",
			},
		),
		TradesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "orderbook_trades_total",
				Help: "Trades produced by the matching loop.",
			},
		),
		TradeQuantity: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "orderbook_trade_quantity",
				Help:    "Distribution of matched quantity per trade.",
				Buckets: prometheus.ExponentialBuckets(1, 2, 16),
			},
		),
		MatchLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "orderbook_match_latency_seconds",
				Help:    "Wall-clock time spent inside AddOrder/ModifyOrder, lock held.",
				Buckets: prometheus.ExponentialBuckets(0.000001, 4, 12),
			},
		),
		ResidentOrders: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "orderbook_resident_orders",
				Help: "Current number of orders resting on the book.",
			},
		),
		GoodForDaySwept: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "orderbook_good_for_day_swept_total",
				Help: "GoodForDay orders force-cancelled by the daily pruner.",
			},
		),
	}
}

// ObserveAdd records the outcome of a single AddOrder call: the trades it
// produced, and the number of orders resident in the book afterward.
func (m *Metrics) ObserveAdd(orderType, side string, tradeQuantities []float64, resident int) {
	m.OrdersAcceptedTotal.WithLabelValues(orderType, side).Inc()
	for _, q := range tradeQuantities {
		m.TradesTotal.Inc()
		m.TradeQuantity.Observe(q)
	}
	m.ResidentOrders.Set(float64(resident))
}

// ObserveRejection records an order that never entered the book.
func (m *Metrics) ObserveRejection(orderType, reason string) {
	m.OrdersRejectedTotal.WithLabelValues(orderType, reason).Inc()
}

// ObserveCancel records an explicit cancellation and the new resident count.
func (m *Metrics) ObserveCancel(resident int) {
	m.OrdersCancelledTotal.Inc()
	m.ResidentOrders.Set(float64(resident))
}

// ObserveSweep records the daily pruner force-cancelling n GoodForDay orders.
func (m *Metrics) ObserveSweep(n int, resident int) {
	if n <= 0 {
		return
	}
	m.GoodForDaySwept.Add(float64(n))
	m.ResidentOrders.Set(float64(resident))
}
