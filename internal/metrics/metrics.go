package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg           *prometheus.Registry
	RowsLoaded    *prometheus.CounterVec
	RowsRejected  *prometheus.CounterVec
	RowsPersisted *prometheus.CounterVec
	Orphans       prometheus.Counter
	Runs          *prometheus.CounterVec
	RunDuration   prometheus.Histogram
	LastRate      prometheus.Gauge
	LastRunUnix   prometheus.Gauge
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	loaded := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "etl_rows_loaded_total"}, []string{"dataset"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "etl_rows_rejected_total"}, []string{"dataset"})
	persisted := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "etl_rows_persisted_total"}, []string{"table"})
	orphans := prometheus.NewCounter(prometheus.CounterOpts{Name: "etl_orphan_orders_total"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "etl_runs_total"}, []string{"status"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "etl_run_duration_seconds",
		Buckets: prometheus.DefBuckets,
	})
	rate := prometheus.NewGauge(prometheus.GaugeOpts{Name: "etl_last_conversion_rate"})
	lastRun := prometheus.NewGauge(prometheus.GaugeOpts{Name: "etl_last_run_timestamp_seconds"})

	r.MustRegister(loaded, rejected, persisted, orphans, runs, duration, rate, lastRun)
	return &Registry{
		reg:           r,
		RowsLoaded:    loaded,
		RowsRejected:  rejected,
		RowsPersisted: persisted,
		Orphans:       orphans,
		Runs:          runs,
		RunDuration:   duration,
		LastRate:      rate,
		LastRunUnix:   lastRun,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
