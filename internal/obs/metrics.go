package obs

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the domain collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	Actions             *prometheus.CounterVec
	Invoices            prometheus.Counter
	BilledAmount        prometheus.Counter
	PersistenceFailures *prometheus.CounterVec
	CartRejections      *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg, reusing any that are already
// registered under the same name.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		Actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_actions_total",
			Help:      "State transitions applied, by action.",
		}, []string{"action"}),
		Invoices: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoices_created_total",
			Help:      "Invoices created at checkout.",
		}),
		BilledAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_grand_total",
			Help:      "Sum of invoice grand totals in the configured currency.",
		}),
		PersistenceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Failed document loads and saves.",
		}, []string{"op"}),
		CartRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_rejections_total",
			Help:      "Cart mutations rejected, by reason.",
		}, []string{"reason"}),
	}

	register(reg, m.Actions, func(c prometheus.Collector) { m.Actions = c.(*prometheus.CounterVec) })
	register(reg, m.Invoices, func(c prometheus.Collector) { m.Invoices = c.(prometheus.Counter) })
	register(reg, m.BilledAmount, func(c prometheus.Collector) { m.BilledAmount = c.(prometheus.Counter) })
	register(reg, m.PersistenceFailures, func(c prometheus.Collector) { m.PersistenceFailures = c.(*prometheus.CounterVec) })
	register(reg, m.CartRejections, func(c prometheus.Collector) { m.CartRejections = c.(*prometheus.CounterVec) })
	return m
}

func (m *Metrics) ObserveAction(name string) {
	if m == nil {
		return
	}
	m.Actions.WithLabelValues(name).Inc()
}

func (m *Metrics) ObserveInvoice(grandTotal float64) {
	if m == nil {
		return
	}
	m.Invoices.Inc()
	if grandTotal > 0 {
		m.BilledAmount.Add(grandTotal)
	}
}

func (m *Metrics) ObservePersistenceFailure(op string) {
	if m == nil {
		return
	}
	m.PersistenceFailures.WithLabelValues(op).Inc()
}

func (m *Metrics) ObserveCartRejection(reason string) {
	if m == nil {
		return
	}
	m.CartRejections.WithLabelValues(reason).Inc()
}

func register(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			reuse(are.ExistingCollector)
			return
		}
		panic(fmt.Errorf("register metric: %w", err))
	}
}
