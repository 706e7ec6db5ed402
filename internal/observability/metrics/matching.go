// Package metrics exposes prometheus instruments for the booking
// engine. All observe methods are nil-safe so wiring stays optional in
// tests.
package metrics

import "github.com/prometheus/client_golang/prometheus"

type MatchingMetrics struct {
	outcomes      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	reschedules   *prometheus.CounterVec
	confirmations *prometheus.CounterVec
}

func NewMatchingMetrics(reg prometheus.Registerer) *MatchingMetrics {
	m := &MatchingMetrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "matching",
			Name:      "outcomes_total",
			Help:      "Terminal matching outcomes by flow",
		}, []string{"flow", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "booking",
			Subsystem: "matching",
			Name:      "duration_seconds",
			Help:      "Elapsed simulated matching duration",
			Buckets:   []float64{5, 15, 30, 40, 60, 90, 120},
		}, []string{"flow"}),
		reschedules: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "reschedule",
			Name:      "total",
			Help:      "Reschedule attempts by outcome",
		}, []string{"outcome"}),
		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "confirmation",
			Name:      "resolved_total",
			Help:      "Doctor-side confirmation sweeps by resolution",
		}, []string{"resolution"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.outcomes, m.duration, m.reschedules, m.confirmations)
	return m
}

func (m *MatchingMetrics) ObserveOutcome(flow, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(flow, outcome).Inc()
	m.duration.WithLabelValues(flow).Observe(seconds)
}

func (m *MatchingMetrics) ObserveReschedule(outcome string) {
	if m == nil {
		return
	}
	m.reschedules.WithLabelValues(outcome).Inc()
}

func (m *MatchingMetrics) ObserveConfirmation(resolution string) {
	if m == nil {
		return
	}
	m.confirmations.WithLabelValues(resolution).Inc()
}
