package metrics

import "github.com/prometheus/client_golang/prometheus"

// DialogueMetrics exposes counters/histograms for voice dialogue flows.
type DialogueMetrics struct {
	turnsTotal          *prometheus.CounterVec
	callDuration        prometheus.Histogram
	storageFailures     *prometheus.CounterVec
	generationFallbacks prometheus.Counter
	turnLatency         prometheus.Histogram
}

func NewDialogueMetrics(reg prometheus.Registerer) *DialogueMetrics {
	m := &DialogueMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smartappt",
			Subsystem: "voice",
			Name:      "turns_total",
			Help:      "Total dialogue turns processed",
		}, []string{"step", "outcome"}),
		callDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "smartappt",
			Subsystem: "voice",
			Name:      "call_duration_seconds",
			Help:      "Duration of completed calls",
			Buckets:   []float64{15, 30, 60, 120, 300, 600},
		}),
		storageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smartappt",
			Subsystem: "voice",
			Name:      "storage_failures_total",
			Help:      "Repository writes that failed after retries",
		}, []string{"kind"}),
		generationFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "smartappt",
			Subsystem: "voice",
			Name:      "generation_fallbacks_total",
			Help:      "Turns answered with the fixed fallback utterance",
		}),
		turnLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "smartappt",
			Subsystem: "voice",
			Name:      "turn_latency_seconds",
			Help:      "Latency of one webhook turn end to end",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.callDuration, m.storageFailures, m.generationFallbacks, m.turnLatency)
	return m
}

func (m *DialogueMetrics) ObserveTurn(step, outcome string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(step, outcome).Inc()
}

func (m *DialogueMetrics) ObserveCallDuration(seconds float64) {
	if m == nil {
		return
	}
	m.callDuration.Observe(seconds)
}

func (m *DialogueMetrics) ObserveStorageFailure(kind string) {
	if m == nil {
		return
	}
	m.storageFailures.WithLabelValues(kind).Inc()
}

func (m *DialogueMetrics) ObserveGenerationFallback() {
	if m == nil {
		return
	}
	m.generationFallbacks.Inc()
}

func (m *DialogueMetrics) ObserveTurnLatency(seconds float64) {
	if m == nil {
		return
	}
	m.turnLatency.Observe(seconds)
}
