// Package metrics counts extraction outcomes with Prometheus collectors.
//
// The command line tool is short lived, so metrics are not served over HTTP.
// They are written once per run to a node_exporter textfile.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"golang-statement-extractor/internal/extractor"
)

const namespace = "statement_extractor"

// Metrics holds the collectors of one run on a private registry
type Metrics struct {
	registry *prometheus.Registry

	documents    *prometheus.CounterVec
	transactions *prometheus.CounterVec
	fallbacks    *prometheus.CounterVec
	failures     *prometheus.CounterVec
	observations *prometheus.CounterVec
	duration     prometheus.Histogram
}

// New creates and registers the collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents processed, by winning extraction method, institution and outcome.",
		}, []string{"method", "institution", "status"}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Transactions emitted, by institution.",
		}, []string{"institution"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Parser fallbacks taken, by kind.",
		}, []string{"kind"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_failures_total",
			Help:      "Failed extraction strategy runs, by strategy.",
		}, []string{"strategy"}),
		observations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_total",
			Help:      "Consistency observations attached to transactions, by kind.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "document_duration_seconds",
			Help:      "Time spent extracting one document.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
	}

	m.registry.MustRegister(m.documents, m.transactions, m.fallbacks, m.failures, m.observations, m.duration)
	return m
}

// Registry returns the registry holding the collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveDocument records a finished document. It satisfies
// extractor.Recorder and is safe for concurrent use.
func (m *Metrics) ObserveDocument(doc *extractor.DocumentContext) {
	status := "failed"
	if doc.Succeeded() {
		status = "succeeded"
	}
	institution := doc.Institution
	if institution == "" {
		institution = "unknown"
	}

	m.documents.WithLabelValues(string(doc.Method), institution, status).Inc()
	m.transactions.WithLabelValues(institution).Add(float64(len(doc.Transactions)))
	m.duration.Observe(doc.Duration.Seconds())

	for _, f := range doc.Fallbacks {
		m.fallbacks.WithLabelValues(f).Inc()
	}
	for _, a := range doc.Attempts {
		if a.Error != "" {
			m.failures.WithLabelValues(string(a.Strategy)).Inc()
		}
	}
	for kind, n := range doc.Report.Counts {
		m.observations.WithLabelValues(string(kind)).Add(float64(n))
	}
}

// WriteTextfile writes the metrics in the text exposition format, replacing
// the file atomically
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
