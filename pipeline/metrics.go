package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/draftforge/draftforge/artifact"
)

// Metrics is the pipeline's Prometheus instrumentation. A nil *Metrics
// records nothing, so instrumentation stays optional.
type Metrics struct {
	stageDuration *prometheus.HistogramVec
	stageRuns     *prometheus.CounterVec
	runs          *prometheus.CounterVec
	score         prometheus.Histogram
}

// NewMetrics registers the pipeline collectors with reg. A nil registerer
// gets a private registry, which keeps tests independent of global state.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "draftforge",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Wall time per pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"stage", "status"}),
		stageRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "draftforge",
			Subsystem: "pipeline",
			Name:      "stage_runs_total",
			Help:      "Stage outcomes by status.",
		}, []string{"stage", "status"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "draftforge",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Pipeline runs by terminal state.",
		}, []string{"state"}),
		score: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "draftforge",
			Subsystem: "pipeline",
			Name:      "composite_score",
			Help:      "Final composite score per completed run.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
	}
}

func (m *Metrics) observeStage(kind artifact.Kind, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(string(kind), status).Observe(d.Seconds())
	m.stageRuns.WithLabelValues(string(kind), status).Inc()
}

func (m *Metrics) observeRun(state string, score int) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(state).Inc()
	if state == string(StateDone) {
		m.score.Observe(float64(score))
	}
}
