package job

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveJobs tracks jobs that have not reached a terminal state.
	ActiveJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "repoprint",
			Subsystem: "jobs",
			Name:      "active",
			Help:      "Number of jobs currently pending or processing",
		},
	)

	// JobsFinished counts terminal transitions.
	// Labels: status (completed, failed)
	JobsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "repoprint",
			Subsystem: "jobs",
			Name:      "finished_total",
			Help:      "Total number of jobs that reached a terminal state",
		},
		[]string{"status"},
	)

	// JobDuration tracks wall time from creation to terminal state.
	JobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "repoprint",
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Time from job creation to completion or failure in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
)
