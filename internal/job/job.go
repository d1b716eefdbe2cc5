// Package job tracks conversion jobs in memory: creation, progress
// updates, terminal transitions, and retention-based expiry.
package job

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Status is a job's lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is a snapshot of one conversion job. Result holds the report
// file name once the job completes; Error holds a human-readable
// cause once it fails.
type Job struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	Percent   int       `json:"percent"`
	Message   string    `json:"message,omitempty"`
	Result    string    `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// sweepInterval is how often expired jobs are collected.
const sweepInterval = time.Minute

// Store is an in-memory job registry. Snapshots go out by value, so
// callers never share memory with the live record. Thread-safe.
type Store struct {
	mu        sync.RWMutex
	jobs      map[string]*Job
	retention time.Duration
	logger    *zap.Logger
}

// NewStore creates a job store. Terminal jobs are dropped once they
// have been idle for the retention period.
func NewStore(retention time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		jobs:      make(map[string]*Job),
		retention: retention,
		logger:    logger,
	}
}

// Create registers a new pending job with a server-assigned id and
// returns its snapshot.
func (s *Store) Create() Job {
	now := time.Now()
	j := &Job{
		ID:        uuid.NewString(),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.jobs[j.ID] = j
	s.mu.Unlock()

	ActiveJobs.Inc()
	return *j
}

// Get returns a snapshot of the job, if it exists.
func (s *Store) Get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// SetProgress moves the job to processing and records percent and
// message. It has no effect once the job is terminal.
func (s *Store) SetProgress(id string, percent int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok || j.Status.Terminal() {
		return
	}
	j.Status = StatusProcessing
	j.Percent = percent
	j.Message = message
	j.UpdatedAt = time.Now()
}

// Complete marks the job completed at 100 percent with the report
// file name as its result.
func (s *Store) Complete(id, result string) {
	s.finish(id, StatusCompleted, func(j *Job) {
		j.Percent = 100
		j.Message = ""
		j.Result = result
	})
}

// Fail marks the job failed with a human-readable cause. The last
// reported percent is kept.
func (s *Store) Fail(id, cause string) {
	s.finish(id, StatusFailed, func(j *Job) {
		j.Error = cause
	})
}

func (s *Store) finish(id string, status Status, apply func(*Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok || j.Status.Terminal() {
		return
	}
	j.Status = status
	apply(j)
	j.UpdatedAt = time.Now()

	ActiveJobs.Dec()
	JobsFinished.WithLabelValues(string(status)).Inc()
	JobDuration.Observe(j.UpdatedAt.Sub(j.CreatedAt).Seconds())
}

// Counts returns the number of jobs per status.
func (s *Store) Counts() map[Status]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[Status]int, 4)
	for _, j := range s.jobs {
		counts[j.Status]++
	}
	return counts
}

// Run sweeps expired jobs until the context is cancelled. Only
// terminal jobs expire; a job still running is never collected.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(time.Now())
		}
	}
}

func (s *Store) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, j := range s.jobs {
		if j.Status.Terminal() && now.Sub(j.UpdatedAt) > s.retention {
			delete(s.jobs, id)
			s.logger.Debug("expired job removed",
				zap.String("job_id", id),
				zap.String("status", string(j.Status)))
		}
	}
}
