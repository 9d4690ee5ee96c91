package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder exposes run outcomes as Prometheus metrics in serve mode.
type Recorder struct {
	runsTotal       *prometheus.CounterVec
	lastRunSuccess  *prometheus.GaugeVec
	lastRunDuration *prometheus.GaugeVec
	archiveBytes    *prometheus.GaugeVec
	databasesDumped *prometheus.GaugeVec
}

func NewRecorder() *Recorder {
	return &Recorder{
		runsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pgvault_backup_runs_total",
			Help: "Total backup runs by kind and result.",
		}, []string{"kind", "result"}),
		lastRunSuccess: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pgvault_backup_last_run_success",
			Help: "Whether the last run of this kind succeeded (1) or failed (0).",
		}, []string{"kind"}),
		lastRunDuration: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pgvault_backup_last_run_duration_seconds",
			Help: "Duration of the last run of this kind.",
		}, []string{"kind"}),
		archiveBytes: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pgvault_backup_last_archive_bytes",
			Help: "Size of the last successful archive of this kind.",
		}, []string{"kind"}),
		databasesDumped: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pgvault_backup_last_run_databases",
			Help: "Databases dumped in the last run of this kind.",
		}, []string{"kind"}),
	}
}

func (r *Recorder) RecordRun(kind string, success bool, duration time.Duration, archiveBytes int64, databases int) {
	result := "success"
	successValue := 1.0
	if !success {
		result = "failure"
		successValue = 0
	}

	r.runsTotal.WithLabelValues(kind, result).Inc()
	r.lastRunSuccess.WithLabelValues(kind).Set(successValue)
	r.lastRunDuration.WithLabelValues(kind).Set(duration.Seconds())
	r.databasesDumped.WithLabelValues(kind).Set(float64(databases))
	if success {
		r.archiveBytes.WithLabelValues(kind).Set(float64(archiveBytes))
	}
}

// Serve blocks on a plain /metrics HTTP listener.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
