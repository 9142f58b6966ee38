// Package metrics exposes batch processing counters to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Recorder counts processed files and finished runs. It satisfies
// batch.Recorder.
type Recorder struct {
	files     *prometheus.CounterVec
	failures  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	runs      prometheus.Counter
	lastRun   prometheus.Gauge
	lastFiles *prometheus.GaugeVec
}

// New registers the collectors on reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &Recorder{
		files: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsift_files_total",
				Help: "Total number of files processed",
			},
			[]string{"format", "outcome"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsift_file_failures_total",
				Help: "Failed files by error kind",
			},
			[]string{"kind"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docsift_file_duration_seconds",
				Help:    "Per-file processing duration distribution",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format"},
		),
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docsift_batch_runs_total",
			Help: "Total number of batch runs finished",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "docsift_batch_last_duration_seconds",
			Help: "Wall time of the most recent batch run",
		}),
		lastFiles: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "docsift_batch_last_files",
				Help: "Files in the most recent batch run by outcome",
			},
			[]string{"outcome"},
		),
	}
	for _, c := range []prometheus.Collector{r.files, r.failures, r.duration, r.runs, r.lastRun, r.lastFiles} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// FileProcessed records one file outcome.
func (r *Recorder) FileProcessed(format, kind string, ok bool, d time.Duration) {
	if format == "" {
		format = "unknown"
	}
	outcome := OutcomeOK
	if !ok {
		outcome = OutcomeFailed
		r.failures.WithLabelValues(kind).Inc()
	}
	r.files.WithLabelValues(format, outcome).Inc()
	r.duration.WithLabelValues(format).Observe(d.Seconds())
}

// RunFinished records a completed batch.
func (r *Recorder) RunFinished(total, failed int, d time.Duration) {
	r.runs.Inc()
	r.lastRun.Set(d.Seconds())
	r.lastFiles.WithLabelValues(OutcomeOK).Set(float64(total - failed))
	r.lastFiles.WithLabelValues(OutcomeFailed).Set(float64(failed))
}
