package pipeline

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for pipeline runs.
type Metrics struct {
	RunsTotal             *prometheus.CounterVec
	StageDuration         *prometheus.HistogramVec
	StageFailuresTotal    *prometheus.CounterVec
	ImprovementsGenerated prometheus.Counter
	ImprovementsApplied   prometheus.Counter
	CleanupFailuresTotal  prometheus.Counter
}

// NewMetrics registers the pipeline metrics with the default registry.
//
// Registration happens once per process; later calls return the same set.
//
// Metrics:
//   - reposmith_runs_total{outcome}
//   - reposmith_stage_duration_seconds{stage}
//   - reposmith_stage_failures_total{stage}
//   - reposmith_improvements_generated_total
//   - reposmith_improvements_applied_total
//   - reposmith_cleanup_failures_total
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = newMetrics(promauto.With(prometheus.DefaultRegisterer))
	})
	return globalMetrics
}

// NewMetricsWithRegistry registers the pipeline metrics with reg.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	return newMetrics(promauto.With(reg))
}

func newMetrics(f promauto.Factory) *Metrics {
	return &Metrics{
		RunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reposmith_runs_total",
				Help: "Total number of pipeline runs by outcome",
			},
			[]string{"outcome"},
		),
		StageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reposmith_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"stage"},
		),
		StageFailuresTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reposmith_stage_failures_total",
				Help: "Total number of failed pipeline stages",
			},
			[]string{"stage"},
		),
		ImprovementsGenerated: f.NewCounter(prometheus.CounterOpts{
			Name: "reposmith_improvements_generated_total",
			Help: "Total number of improvements proposed by the generator",
		}),
		ImprovementsApplied: f.NewCounter(prometheus.CounterOpts{
			Name: "reposmith_improvements_applied_total",
			Help: "Total number of improvements committed to a branch",
		}),
		CleanupFailuresTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "reposmith_cleanup_failures_total",
			Help: "Total number of cleanup calls that returned an error",
		}),
	}
}

func (m *Metrics) observeStage(stage Stage, d time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(string(stage)).Observe(d.Seconds())
	if failed {
		m.StageFailuresTotal.WithLabelValues(string(stage)).Inc()
	}
}

func (m *Metrics) observeRun(res Result) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(string(res.Outcome)).Inc()
	m.ImprovementsGenerated.Add(float64(res.ImprovementsGenerated))
	m.ImprovementsApplied.Add(float64(res.ImprovementsApplied))
}

func (m *Metrics) cleanupFailed() {
	if m == nil {
		return
	}
	m.CleanupFailuresTotal.Inc()
}
