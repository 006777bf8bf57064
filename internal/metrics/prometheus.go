package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "smart_exec"

// Prometheus holds the prometheus collectors of the engine.
type Prometheus struct {
	Orders         *prometheus.CounterVec
	Rejections     *prometheus.CounterVec
	Fills          *prometheus.CounterVec
	Discards       *prometheus.CounterVec
	Fusions        *prometheus.CounterVec
	Conflicts      prometheus.Counter
	Evictions      prometheus.Counter
	FusionTime     prometheus.Histogram
	ExecutionTime  prometheus.Histogram
	StrategyErrors *prometheus.CounterVec
}

// NewPrometheusMetrics creates the collectors.
func NewPrometheusMetrics() Prometheus {
	return Prometheus{
		Orders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_total",
				Help:      "order status transitions",
			}, []string{"status"}),
		Rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rejections_total",
				Help:      "rejected orders by reason",
			}, []string{"reason"}),
		Fills: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fills_total",
				Help:      "applied fills by execution algorithm",
			}, []string{"algo"}),
		Discards: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fill_discards_total",
				Help:      "fills discarded for exceeding the slippage tolerance or the limit",
			}, []string{"algo"}),
		Fusions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fusion_total",
				Help:      "fused signals by direction",
			}, []string{"direction"}),
		Conflicts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fusion_conflicts_total",
				Help:      "fusion passes with conflicting directions",
			}),
		Evictions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "market_evictions_total",
				Help:      "stale market data snapshots evicted",
			}),
		FusionTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fusion_seconds",
				Help:      "duration of a fusion pass",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
			}),
		ExecutionTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "execution_seconds",
				Help:      "duration of an order execution task",
				Buckets:   prometheus.DefBuckets,
			}),
		StrategyErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "strategy_errors_total",
				Help:      "strategy failures isolated during fusion",
			}, []string{"strategy"}),
	}
}

func (p Prometheus) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		p.Orders,
		p.Rejections,
		p.Fills,
		p.Discards,
		p.Fusions,
		p.Conflicts,
		p.Evictions,
		p.FusionTime,
		p.ExecutionTime,
		p.StrategyErrors,
	}
}
