// Package janitor removes stale scratch directories and expired
// reports on a fixed schedule.
package janitor

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// RemovedTotal counts filesystem entries the janitor deleted.
var RemovedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "repoprint",
		Subsystem: "janitor",
		Name:      "removed_total",
		Help:      "Total number of stale entries removed by the janitor",
	},
)

// Janitor deletes top-level entries under its roots once they have
// not been touched for maxAge.
type Janitor struct {
	interval time.Duration
	maxAge   time.Duration
	roots    []string
	logger   *zap.Logger
}

// New creates a janitor over the given root directories.
func New(interval, maxAge time.Duration, logger *zap.Logger, roots ...string) (*Janitor, error) {
	if interval <= 0 {
		return nil, errors.New("sweep interval must be positive")
	}
	if maxAge <= 0 {
		return nil, errors.New("max age must be positive")
	}
	if len(roots) == 0 {
		return nil, errors.New("at least one root directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Janitor{
		interval: interval,
		maxAge:   maxAge,
		roots:    roots,
		logger:   logger,
	}, nil
}

// Run sweeps once immediately, then on every tick until the context
// is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	j.sweep(time.Now())

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(time.Now())
		}
	}
}

func (j *Janitor) sweep(now time.Time) {
	for _, root := range j.roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			// A root that does not exist yet has nothing to sweep.
			if !errors.Is(err, fs.ErrNotExist) {
				j.logger.Warn("janitor sweep failed",
					zap.String("root", root),
					zap.Error(err))
			}
			continue
		}

		for _, entry := range entries {
			info, err := entry.Info()
			if err != nil {
				continue
			}
			age := now.Sub(info.ModTime())
			if age <= j.maxAge {
				continue
			}

			path := filepath.Join(root, entry.Name())
			if err := os.RemoveAll(path); err != nil {
				j.logger.Warn("failed to remove stale entry",
					zap.String("path", path),
					zap.Error(err))
				continue
			}

			RemovedTotal.Inc()
			j.logger.Info("removed stale entry",
				zap.String("path", path),
				zap.Duration("age", age))
		}
	}
}
