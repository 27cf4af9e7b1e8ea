// Package metrics holds the Prometheus instruments for the fetch, screen and backtest stages.
// All methods are nil-safe so components can run without metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/limitup/internal/contracts"
)

// Registry holds all pipeline metrics
type Registry struct {
	reg *prometheus.Registry

	StepDuration  *prometheus.HistogramVec
	FetchOutcomes *prometheus.CounterVec
	ScoreOutcomes *prometheus.CounterVec
	BacktestDays  *prometheus.CounterVec
	CacheFiles    prometheus.Gauge
	CacheBytes    prometheus.Gauge
}

// New creates a registry with its own Prometheus registerer
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "limitup_step_duration_seconds",
				Help:    "Duration of each pipeline step in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
			},
			[]string{"step", "result"},
		),

		FetchOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "limitup_fetch_outcomes_total",
				Help: "Per-symbol fetch outcomes by kind",
			},
			[]string{"kind"},
		),

		ScoreOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "limitup_score_outcomes_total",
				Help: "Per-symbol score outcomes by strategy and kind",
			},
			[]string{"strategy", "kind"},
		),

		BacktestDays: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "limitup_backtest_days_total",
				Help: "Simulated filter dates by result",
			},
			[]string{"result"},
		),

		CacheFiles: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "limitup_cache_files",
				Help: "Number of cached series files",
			},
		),

		CacheBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "limitup_cache_bytes",
				Help: "Total size of cached series files in bytes",
			},
		),
	}

	r.reg.MustRegister(
		r.StepDuration,
		r.FetchOutcomes,
		r.ScoreOutcomes,
		r.BacktestDays,
		r.CacheFiles,
		r.CacheBytes,
	)

	return r
}

// Handler serves the registry in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry (tests)
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// StepTimer tracks execution time for a pipeline step
type StepTimer struct {
	metrics *Registry
	step    string
	start   time.Time
}

// StartStepTimer begins timing a pipeline step
func (r *Registry) StartStepTimer(step string) *StepTimer {
	return &StepTimer{metrics: r, step: step, start: time.Now()}
}

// Stop records the step duration under result
func (st *StepTimer) Stop(result string) {
	if st == nil || st.metrics == nil {
		return
	}
	st.metrics.StepDuration.WithLabelValues(st.step, result).Observe(time.Since(st.start).Seconds())
}

// RecordFetch counts one fetch outcome
func (r *Registry) RecordFetch(kind contracts.OutcomeKind) {
	if r == nil {
		return
	}
	r.FetchOutcomes.WithLabelValues(string(kind)).Inc()
}

// RecordScore counts one score outcome
func (r *Registry) RecordScore(strategy string, kind contracts.OutcomeKind) {
	if r == nil {
		return
	}
	r.ScoreOutcomes.WithLabelValues(strategy, string(kind)).Inc()
}

// RecordBacktestDay counts one simulated filter date
func (r *Registry) RecordBacktestDay(result string) {
	if r == nil {
		return
	}
	r.BacktestDays.WithLabelValues(result).Inc()
}

// SetCacheUsage updates the cache gauges
func (r *Registry) SetCacheUsage(files int, bytes int64) {
	if r == nil {
		return
	}
	r.CacheFiles.Set(float64(files))
	r.CacheBytes.Set(float64(bytes))
}
