// Package telemetry exposes Prometheus instrumentation for the
// optimization pipeline: per-stage latency, degraded-stage counts, and
// run-level gauges.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the registry of pipeline instruments.
type Metrics struct {
	StageDuration *prometheus.HistogramVec
	StageDegraded *prometheus.CounterVec
	StageErrors   *prometheus.CounterVec
	ActiveRuns    prometheus.Gauge
	RunsTotal     *prometheus.CounterVec
	StoreFallback prometheus.Counter
}

// NewMetrics builds and registers the instrument set. Passing a nil
// registerer yields unregistered instruments, which tests rely on.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "schedopt_stage_duration_seconds",
				Help:    "Wall-clock duration of each pipeline stage",
				Buckets: []float64{0.1, 0.5, 1, 2, 3, 5, 8, 16, 30, 60},
			},
			[]string{"stage"},
		),
		StageDegraded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schedopt_stage_degraded_total",
				Help: "Stages that exceeded their budget and returned partial results",
			},
			[]string{"stage"},
		),
		StageErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schedopt_stage_errors_total",
				Help: "Stage failures by stage and kind",
			},
			[]string{"stage", "kind"},
		),
		ActiveRuns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "schedopt_active_runs",
				Help: "Optimization runs currently in flight",
			},
		),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schedopt_runs_total",
				Help: "Completed optimization runs by status",
			},
			[]string{"status"},
		),
		StoreFallback: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "schedopt_store_fallback_total",
				Help: "Stages that fell back to built-in data after store failures",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.StageDuration, m.StageDegraded, m.StageErrors, m.ActiveRuns, m.RunsTotal, m.StoreFallback)
	}
	return m
}

// StageTimer times one stage execution.
type StageTimer struct {
	metrics *Metrics
	stage   string
	start   time.Time
}

// StartStage begins timing a stage. Safe on a nil receiver.
func (m *Metrics) StartStage(stage string) *StageTimer {
	if m == nil {
		return nil
	}
	return &StageTimer{metrics: m, stage: stage, start: time.Now()}
}

// Stop records the stage duration and degradation flag.
func (t *StageTimer) Stop(degraded bool) time.Duration {
	if t == nil {
		return 0
	}
	elapsed := time.Since(t.start)
	t.metrics.StageDuration.WithLabelValues(t.stage).Observe(elapsed.Seconds())
	if degraded {
		t.metrics.StageDegraded.WithLabelValues(t.stage).Inc()
	}
	return elapsed
}
