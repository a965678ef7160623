// Package metrics defines the Prometheus collectors for the request path.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the collectors incremented by the orchestrator and the
// breaker group. Exposed on /metrics by the HTTP server.
type Metrics struct {
	// Attempts counts candidate attempts by provider and outcome. Outcome is
	// "success", "denied", "circuit_open" or the classified error kind.
	Attempts *prometheus.CounterVec

	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// BreakerTransitions counts state changes by provider and target state.
	BreakerTransitions *prometheus.CounterVec

	// FallbackExhausted counts runs where every candidate failed.
	FallbackExhausted prometheus.Counter
}

// New creates and registers the collectors on the given registerer. Tests
// pass a fresh prometheus.NewRegistry to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "infergate",
			Name:      "attempts_total",
			Help:      "Candidate attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "infergate",
			Name:      "cache_hits_total",
			Help:      "Response cache hits.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "infergate",
			Name:      "cache_misses_total",
			Help:      "Response cache misses.",
		}),
		BreakerTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "infergate",
			Name:      "breaker_transitions_total",
			Help:      "Circuit breaker state transitions by provider and target state.",
		}, []string{"provider", "to"}),
		FallbackExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "infergate",
			Name:      "fallback_exhausted_total",
			Help:      "Requests for which every candidate failed.",
		}),
	}

	reg.MustRegister(
		m.Attempts,
		m.CacheHits,
		m.CacheMisses,
		m.BreakerTransitions,
		m.FallbackExhausted,
	)
	return m
}

// NewDefault registers the collectors on the default Prometheus registry.
func NewDefault() *Metrics {
	return New(prometheus.DefaultRegisterer)
}
