package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Observer is the process wide metrics collector.
var Observer = &Metrics{
	prometheus: NewPrometheusMetrics(),
}

func init() {
	prometheus.MustRegister(Observer.prometheus.collectors()...)
}

// Metrics wraps the prometheus collectors behind domain specific calls.
type Metrics struct {
	prometheus Prometheus
}

// Status counts an order status transition.
func (m *Metrics) Status(status string) {
	m.prometheus.Orders.WithLabelValues(status).Inc()
}

// Reject counts a rejected order.
func (m *Metrics) Reject(reason string) {
	m.prometheus.Rejections.WithLabelValues(reason).Inc()
}

// Fill counts an applied fill.
func (m *Metrics) Fill(algo string) {
	m.prometheus.Fills.WithLabelValues(algo).Inc()
}

// Discard counts a discarded fill.
func (m *Metrics) Discard(algo string) {
	m.prometheus.Discards.WithLabelValues(algo).Inc()
}

// Fusion observes a fusion pass.
func (m *Metrics) Fusion(direction string, conflict bool, d time.Duration) {
	m.prometheus.Fusions.WithLabelValues(direction).Inc()
	if conflict {
		m.prometheus.Conflicts.Inc()
	}
	m.prometheus.FusionTime.Observe(d.Seconds())
}

// StrategyError counts a strategy failure.
func (m *Metrics) StrategyError(strategy string) {
	m.prometheus.StrategyErrors.WithLabelValues(strategy).Inc()
}

// Execution observes the duration of an execution task.
func (m *Metrics) Execution(d time.Duration) {
	m.prometheus.ExecutionTime.Observe(d.Seconds())
}

// Evict counts a market data eviction.
func (m *Metrics) Evict() {
	m.prometheus.Evictions.Inc()
}
