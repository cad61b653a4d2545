package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for scoring and the pipeline.
// It satisfies both scoring.Recorder and pipeline.Recorder.
type Metrics struct {
	CriterionResultsTotal     *prometheus.CounterVec
	LLMRequestSeconds         *prometheus.HistogramVec
	TranscriptsProcessedTotal *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the collectors on reg and serves from gatherer
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CriterionResultsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meeting_intel_criterion_results_total",
				Help: "Rubric pass outcomes by track and criterion",
			},
			[]string{"track", "criterion", "outcome"},
		),
		LLMRequestSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "meeting_intel_llm_request_seconds",
				Help:    "Chat-completions request latency",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 90, 120, 180},
			},
			[]string{"model", "status"},
		),
		TranscriptsProcessedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meeting_intel_transcripts_processed_total",
				Help: "Transcripts through the pipeline by outcome",
			},
			[]string{"status"},
		),
		gatherer: gatherer,
	}
}

// ObserveCriterion counts one rubric pass outcome
func (m *Metrics) ObserveCriterion(track, criterion, outcome string) {
	m.CriterionResultsTotal.WithLabelValues(track, criterion, outcome).Inc()
}

// ObserveRequest records one model request
func (m *Metrics) ObserveRequest(model, status string, elapsed time.Duration) {
	m.LLMRequestSeconds.WithLabelValues(model, status).Observe(elapsed.Seconds())
}

// ObserveTranscript counts one transcript outcome
func (m *Metrics) ObserveTranscript(status string) {
	m.TranscriptsProcessedTotal.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
