// internal/pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records ordering activity. A nil *Metrics is valid and records nothing.
type Metrics struct {
	cartMutations   *prometheus.CounterVec
	cartRejections  *prometheus.CounterVec
	ordersSubmitted *prometheus.CounterVec
	ordersFailed    *prometheus.CounterVec
	storageFallback *prometheus.CounterVec
	menuFallback    prometheus.Counter
}

// New registers the ordering metrics on the provided registerer
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	m := &Metrics{
		cartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bella_notte_cart_mutations_total",
			Help: "Cart mutations applied, by operation.",
		}, []string{"op"}),
		cartRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bella_notte_cart_rejections_total",
			Help: "Cart mutations rejected, by reason.",
		}, []string{"reason"}),
		ordersSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bella_notte_orders_submitted_total",
			Help: "Orders persisted, by payment method.",
		}, []string{"payment_method"}),
		ordersFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bella_notte_orders_failed_total",
			Help: "Order submissions that ended in the failed state, by stage.",
		}, []string{"stage"}),
		storageFallback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bella_notte_storage_fallback_total",
			Help: "Writes diverted from the remote store to the local queue.",
		}, []string{"collection"}),
		menuFallback: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bella_notte_menu_fallback_total",
			Help: "Menu loads served from the built-in catalog.",
		}),
	}
	reg.MustRegister(m.cartMutations, m.cartRejections, m.ordersSubmitted, m.ordersFailed, m.storageFallback, m.menuFallback)
	return m
}

// CartMutation counts an applied cart operation
func (m *Metrics) CartMutation(op string) {
	if m == nil {
		return
	}
	m.cartMutations.WithLabelValues(normalizeLabel(op)).Inc()
}

// CartRejection counts a refused cart operation
func (m *Metrics) CartRejection(reason string) {
	if m == nil {
		return
	}
	m.cartRejections.WithLabelValues(normalizeLabel(reason)).Inc()
}

// OrderSubmitted counts a persisted order
func (m *Metrics) OrderSubmitted(paymentMethod string) {
	if m == nil {
		return
	}
	m.ordersSubmitted.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

// OrderFailed counts a failed submission
func (m *Metrics) OrderFailed(stage string) {
	if m == nil {
		return
	}
	m.ordersFailed.WithLabelValues(normalizeLabel(stage)).Inc()
}

// StorageFallback counts a write that went to the local queue
func (m *Metrics) StorageFallback(collection string) {
	if m == nil {
		return
	}
	m.storageFallback.WithLabelValues(normalizeLabel(collection)).Inc()
}

// MenuFallback counts a load served by the built-in catalog
func (m *Metrics) MenuFallback() {
	if m == nil {
		return
	}
	m.menuFallback.Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
