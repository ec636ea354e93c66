package proofs

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/whalevault/relayd/metrics"
)

// Metrics holds all pipeline-level metrics
type Metrics struct {
	registry *metrics.ComponentRegistry

	JobsSubmitted *prometheus.CounterVec
	JobsFinished  *prometheus.CounterVec
	JobsRejected  *prometheus.CounterVec
	QueueDepth    prometheus.Gauge
	ProofDuration prometheus.Histogram
}

// NewMetrics creates pipeline metrics
func NewMetrics() *Metrics {
	reg := metrics.NewComponentRegistry("proofs", "")

	return &Metrics{
		registry: reg,

		JobsSubmitted: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "jobs_submitted_total",
			Help: "Total number of proof jobs accepted into the queue",
		}, []string{"type"}),

		JobsFinished: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "jobs_finished_total",
			Help: "Total number of proof jobs reaching a terminal state",
		}, []string{"type", "status"}),

		JobsRejected: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "jobs_rejected_total",
			Help: "Total number of submissions rejected before job creation",
		}, []string{"reason"}),

		QueueDepth: reg.NewGauge(prometheus.GaugeOpts{
			Name: "queue_depth",
			Help: "Number of jobs waiting for a worker",
		}),

		ProofDuration: reg.NewHistogram(prometheus.HistogramOpts{
			Name:    "proof_duration_seconds",
			Help:    "Wall-clock duration of proof generation",
			Buckets: metrics.DurationBuckets,
		}),
	}
}
