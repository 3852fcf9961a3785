package metrics

import "github.com/prometheus/client_golang/prometheus"

// CallMetrics exposes counters/histograms for IVR call turns.
type CallMetrics struct {
	turnsTotal       *prometheus.CounterVec
	reportsSubmitted prometheus.Counter
	retrieveResults  prometheus.Histogram
	turnLatency      *prometheus.HistogramVec
}

func NewCallMetrics(reg prometheus.Registerer) *CallMetrics {
	m := &CallMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ivr",
			Subsystem: "calls",
			Name:      "turns_total",
			Help:      "Total voice turns served",
		}, []string{"kind", "method", "status"}),
		reportsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ivr",
			Subsystem: "reports",
			Name:      "submitted_total",
			Help:      "Total confirmed report submissions",
		}),
		retrieveResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ivr",
			Subsystem: "reports",
			Name:      "retrieved_results",
			Help:      "User reports returned per retrieval turn",
			Buckets:   []float64{0, 1, 2, 3, 5, 9},
		}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ivr",
			Subsystem: "calls",
			Name:      "turn_latency_seconds",
			Help:      "Latency of voice turn processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.reportsSubmitted, m.retrieveResults, m.turnLatency)
	return m
}

func (m *CallMetrics) ObserveTurn(kind, method, status string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(kind, method, status).Inc()
}

func (m *CallMetrics) ObserveReportSubmitted() {
	if m == nil {
		return
	}
	m.reportsSubmitted.Inc()
}

func (m *CallMetrics) ObserveRetrieveResults(n int) {
	if m == nil {
		return
	}
	m.retrieveResults.Observe(float64(n))
}

func (m *CallMetrics) ObserveTurnLatency(kind string, seconds float64) {
	if m == nil {
		return
	}
	m.turnLatency.WithLabelValues(kind).Observe(seconds)
}
