package infra

import (
	"errors"
	"net/http"

	"stx_nexus/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Metrics holds the Prometheus collectors of the service.
// Collectors live on a private registry so tests can build independent instances.
type Metrics struct {
	registry *prometheus.Registry

	// Counters
	ordersCreated    prometheus.Counter
	ordersCompleted  prometheus.Counter
	createFailures   *prometheus.CounterVec
	priceFetchErrors prometheus.Counter

	// Gauges
	currentPrice    prometheus.Gauge
	pendingOrders   prometheus.Gauge
	streamConnected prometheus.Gauge
}

// NewMetrics creates and registers all collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stx", Name: "orders_created_total", Help: "Orders created.",
		}),
		ordersCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stx", Name: "orders_completed_total", Help: "Orders moved to history.",
		}),
		createFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stx", Name: "order_create_failures_total", Help: "Rejected order creations by reason.",
		}, []string{"reason"}),
		priceFetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stx", Name: "price_fetch_errors_total", Help: "Failed price refreshes.",
		}),
		currentPrice: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stx", Name: "btc_price_usdt", Help: "Latest BTCUSDT price.",
		}),
		pendingOrders: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stx", Name: "pending_orders", Help: "Orders awaiting payment.",
		}),
		streamConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stx", Name: "price_stream_connected", Help: "1 when the price websocket is connected.",
		}),
	}

	m.registry.MustRegister(
		m.ordersCreated,
		m.ordersCompleted,
		m.createFailures,
		m.priceFetchErrors,
		m.currentPrice,
		m.pendingOrders,
		m.streamConnected,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordOrderCreated records a created order.
func (m *Metrics) RecordOrderCreated() {
	m.ordersCreated.Inc()
	m.pendingOrders.Inc()
}

// RecordOrderCompleted records a completed order.
func (m *Metrics) RecordOrderCompleted() {
	m.ordersCompleted.Inc()
	m.pendingOrders.Dec()
}

// RecordCreateFailure records a rejected creation, labelled by error kind.
func (m *Metrics) RecordCreateFailure(err error) {
	m.createFailures.WithLabelValues(FailureReason(err)).Inc()
}

// RecordPriceError records a failed price refresh.
func (m *Metrics) RecordPriceError() {
	m.priceFetchErrors.Inc()
}

// SetPrice publishes the latest price.
func (m *Metrics) SetPrice(price decimal.Decimal) {
	m.currentPrice.Set(price.InexactFloat64())
}

// SetStreamConnected sets the websocket connection state.
func (m *Metrics) SetStreamConnected(connected bool) {
	if connected {
		m.streamConnected.Set(1)
	} else {
		m.streamConnected.Set(0)
	}
}

// FailureReason maps an order error to a metric label.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidAddress):
		return "invalid_address"
	case errors.Is(err, domain.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, domain.ErrPriceUnavailable):
		return "price_unavailable"
	case errors.Is(err, domain.ErrDuplicateID):
		return "duplicate_id"
	default:
		return "other"
	}
}
