package metrics

import (
	"github.com/Layr-Labs/eigensdk-go/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsGenerator is what a run reports into. It satisfies preset.StageRecorder.
type MetricsGenerator interface {
	metrics.Metrics

	IncStage(stage string, status string)
	ObserveSubmission(seconds float64)
	IncFunding(kind string)
}

// RelayMetrics holds the relay counters next to the eigen sdk metrics server.
type RelayMetrics struct {
	metrics.Metrics

	numStageProcessed *prometheus.CounterVec
	numFunding        *prometheus.CounterVec
	submissionSeconds prometheus.Histogram
}

const apNamespace = "ap"

func NewRelayMetrics(eigenMetrics metrics.Metrics, reg prometheus.Registerer) *RelayMetrics {
	return &RelayMetrics{
		Metrics: eigenMetrics,

		numStageProcessed: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: apNamespace,
				Subsystem: "userop",
				Name:      "num_stage_processed_total",
				Help:      "The number of pipeline stages finished, by stage and outcome.",
			}, []string{"stage", "status"}),

		numFunding: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: apNamespace,
				Subsystem: "userop",
				Name:      "num_funding_tx_total",
				Help:      "The number of funding transactions sent (mint, deposit).",
			}, []string{"kind"}),

		submissionSeconds: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Namespace: apNamespace,
				Subsystem: "userop",
				Name:      "submission_duration_seconds",
				Help:      "Time from sending handleOps until its receipt is mined.",
				Buckets:   []float64{0.5, 1, 2, 4, 8, 15, 30, 60, 120},
			}),
	}
}

func (m *RelayMetrics) IncStage(stage, status string) {
	m.numStageProcessed.WithLabelValues(stage, status).Inc()
}

func (m *RelayMetrics) ObserveSubmission(seconds float64) {
	m.submissionSeconds.Observe(seconds)
}

func (m *RelayMetrics) IncFunding(kind string) {
	m.numFunding.WithLabelValues(kind).Inc()
}
