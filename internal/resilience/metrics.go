package resilience

import "github.com/prometheus/client_golang/prometheus"

// Outbound call collectors live on the default registry; every breaker and
// client in the process shares them, split by the target label.
var (
	// BreakerState is 0 closed, 1 open, 2 half-open.
	BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "upstream",
		Name:      "breaker_state",
		Help:      "Breaker state per target: 0 closed, 1 open, 2 half-open.",
	}, []string{"target"})
	BreakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "upstream",
		Name:      "breaker_transitions_total",
		Help:      "Breaker state changes per target.",
	}, []string{"target", "from", "to"})
	BreakerOpenedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "upstream",
		Name:      "breaker_opened_total",
		Help:      "Times a target's breaker opened.",
	}, []string{"target"})

	// UpstreamRequests counts attempts, so one call retried twice adds three.
	UpstreamRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "upstream",
		Name:      "requests_total",
		Help:      "Outbound request attempts by target and HTTP status.",
	}, []string{"target", "status"})
	UpstreamDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "upstream",
		Name:      "request_duration_seconds",
		Help:      "Latency of outbound request attempts.",
		Buckets:   []float64{.025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"target"})
)

func init() {
	prometheus.MustRegister(
		BreakerState,
		BreakerTransitions,
		BreakerOpenedTotal,
		UpstreamRequests,
		UpstreamDuration,
	)
}
