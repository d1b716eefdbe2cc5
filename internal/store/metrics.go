package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReportsTotal tracks how many reports are currently on disk.
	ReportsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "repoprint",
			Subsystem: "reports",
			Name:      "stored",
			Help:      "Number of reports currently in the output directory",
		},
	)

	// ReportsBytes tracks the disk space reports occupy.
	ReportsBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "repoprint",
			Subsystem: "reports",
			Name:      "stored_bytes",
			Help:      "Total size in bytes of reports in the output directory",
		},
	)
)
