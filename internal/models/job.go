package models

import "time"

// JobStatus is the lifecycle state of a background analysis job.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Terminal reports whether the status is an end state.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// LogLevel classifies a job log entry.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// JobLogEntry is one progress line emitted by a running job. Index is
// monotonically increasing per job and survives ring buffer eviction, so
// pollers can detect dropped entries.
type JobLogEntry struct {
	Index   int       `json:"index"`
	Time    time.Time `json:"time"`
	Level   LogLevel  `json:"level"`
	Message string    `json:"message"`
}

// JobInfo is a point-in-time snapshot of a job handed to pollers. Logs holds
// the retained entries newer than the requested index; NextIndex is the value
// to pass on the next poll.
type JobInfo struct {
	ID              string        `json:"id"`
	Kind            string        `json:"kind"`
	Status          JobStatus     `json:"status"`
	IsComplete      bool          `json:"is_complete"`
	Error           string        `json:"error,omitempty"`
	Logs            []JobLogEntry `json:"logs"`
	NextIndex       int           `json:"next_index"`
	CancelRequested bool          `json:"cancel_requested"`
	Started         time.Time     `json:"started"`
	Completed       *time.Time    `json:"completed,omitempty"`
}
