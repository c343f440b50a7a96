// Package service provides business logic for veridata analysis operations.
package service

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/raphaelgruber/veridata-go/internal/models"
)

const (
	// logBufferSize bounds the per-job log ring. Older entries are dropped
	// silently; pollers detect gaps through the monotonic index.
	logBufferSize = 100

	// DefaultJobTTL is how long an idle job record survives before the
	// sweeper evicts it. Callers must persist results before it elapses.
	DefaultJobTTL = 10 * time.Minute

	// DefaultSweepInterval is how often the sweeper scans for idle jobs.
	DefaultSweepInterval = 10 * time.Minute
)

// jobRecord is the registry's mutable state for one job.
type jobRecord struct {
	id              string
	kind            string
	status          models.JobStatus
	err             string
	cancelRequested bool
	started         time.Time
	completed       *time.Time

	logs      []models.JobLogEntry // ring, oldest first
	nextIndex int
	lastLog   time.Time
}

// JobRegistry is the process-wide record of background jobs: status, bounded
// log and cooperative cancellation flag. One writer per job, many pollers;
// reads copy so they never block the writer.
type JobRegistry struct {
	mu   sync.RWMutex
	jobs map[string]*jobRecord

	ttl           time.Duration
	sweepInterval time.Duration
	now           func() time.Time
	logger        *slog.Logger
}

// NewJobRegistry creates a registry with the production TTL and sweep
// interval.
func NewJobRegistry(logger *slog.Logger) *JobRegistry {
	return &JobRegistry{
		jobs:          make(map[string]*jobRecord),
		ttl:           DefaultJobTTL,
		sweepInterval: DefaultSweepInterval,
		now:           time.Now,
		logger:        logger,
	}
}

// SetRetention overrides how long finished jobs stay pollable and how often
// the sweeper runs. Call before RunSweeper.
func (r *JobRegistry) SetRetention(ttl, sweep time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ttl > 0 {
		r.ttl = ttl
	}
	if sweep > 0 {
		r.sweepInterval = sweep
	}
}

// Start records a job as running. Any prior record for the id is overwritten.
func (r *JobRegistry) Start(jobID, kind string) {
	now := r.now()
	r.mu.Lock()
	r.jobs[jobID] = &jobRecord{
		id:      jobID,
		kind:    kind,
		status:  models.JobRunning,
		started: now,
		lastLog: now,
	}
	r.mu.Unlock()

	r.logger.Info("job started", "job_id", jobID, "kind", kind)
}

// Log appends a log entry with the job's next monotonic index. Once the ring
// is full the oldest entry is dropped; indexes are never reused. Unknown job
// ids are ignored (the job may already be evicted).
func (r *JobRegistry) Log(jobID string, level models.LogLevel, message string) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return
	}

	entry := models.JobLogEntry{
		Index:   job.nextIndex,
		Time:    now,
		Level:   level,
		Message: message,
	}
	job.nextIndex++
	job.lastLog = now

	if len(job.logs) == logBufferSize {
		job.logs = append(job.logs[1:], entry)
	} else {
		job.logs = append(job.logs, entry)
	}
}

// Complete moves a job to a terminal status and stamps the completion time.
func (r *JobRegistry) Complete(jobID string, status models.JobStatus, err error) {
	now := r.now()

	r.mu.Lock()
	job, ok := r.jobs[jobID]
	if ok {
		job.status = status
		job.completed = &now
		job.lastLog = now
		if err != nil {
			job.err = err.Error()
		}
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	if err != nil {
		r.logger.Error("job finished", "job_id", jobID, "status", status, "error", err)
	} else {
		r.logger.Info("job finished", "job_id", jobID, "status", status)
	}
}

// RequestCancel flags a running job for cancellation. Returns false for
// unknown or already finished jobs. The flag does not stop anything by
// itself; running code observes it at its loop checkpoints.
func (r *JobRegistry) RequestCancel(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok || job.status != models.JobRunning {
		return false
	}
	job.cancelRequested = true
	return true
}

// CancelRequested reports whether cancellation has been flagged for the job.
func (r *JobRegistry) CancelRequested(jobID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[jobID]
	return ok && job.cancelRequested
}

// Info returns a snapshot of the job with the retained log entries whose
// index is greater than sinceIndex. Pass a negative sinceIndex for all
// retained entries.
func (r *JobRegistry) Info(jobID string, sinceIndex int) (models.JobInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return models.JobInfo{}, false
	}
	return job.snapshot(sinceIndex), true
}

// List returns snapshots of all known jobs, most recently started first.
// Logs are omitted.
func (r *JobRegistry) List() []models.JobInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]models.JobInfo, 0, len(r.jobs))
	for _, job := range r.jobs {
		info := job.snapshot(job.nextIndex)
		infos = append(infos, info)
	}

	slices.SortFunc(infos, func(a, b models.JobInfo) int {
		return b.Started.Compare(a.Started)
	})
	return infos
}

// snapshot copies the record into a poller-facing JobInfo. Caller holds at
// least a read lock.
func (j *jobRecord) snapshot(sinceIndex int) models.JobInfo {
	var logs []models.JobLogEntry
	for _, entry := range j.logs {
		if entry.Index > sinceIndex {
			logs = append(logs, entry)
		}
	}

	return models.JobInfo{
		ID:              j.id,
		Kind:            j.kind,
		Status:          j.status,
		IsComplete:      j.status.Terminal(),
		Error:           j.err,
		Logs:            logs,
		NextIndex:       j.nextIndex,
		CancelRequested: j.cancelRequested,
		Started:         j.started,
		Completed:       j.completed,
	}
}

// Sweep evicts every job whose most recent activity is older than the TTL,
// finished or not. Returns the number of evicted jobs.
func (r *JobRegistry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, job := range r.jobs {
		if job.lastLog.Before(cutoff) {
			delete(r.jobs, id)
			evicted++
		}
	}
	if evicted > 0 {
		r.logger.Info("evicted idle jobs", "count", evicted)
	}
	return evicted
}

// RunSweeper periodically evicts idle jobs until stop is closed.
func (r *JobRegistry) RunSweeper(stop <-chan struct{}) {
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
