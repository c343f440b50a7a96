// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"sync"
	"time"
)

// Operation names for the collector.
const (
	OpStructure     = "structure"
	OpVerify        = "verify"
	OpResourceFetch = "resource_fetch"
	OpUpload        = "upload"
	OpStorePoll     = "store_poll"
)

// OperationMetrics holds aggregated metrics for a single operation type.
type OperationMetrics struct {
	Count     int64
	Failures  int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64   `json:"count"`
	Failures    int64   `json:"failures"`
	TotalTimeMs int64   `json:"total_time_ms"`
	AvgTimeMs   float64 `json:"avg_time_ms"`
	MinTimeMs   int64   `json:"min_time_ms"`
	MaxTimeMs   int64   `json:"max_time_ms"`
}

// Snapshot represents the full pipeline statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64            `json:"uptime_seconds"`
	Structure     *OperationSnapshot `json:"structure,omitempty"`
	Verify        *OperationSnapshot `json:"verify,omitempty"`
	ResourceFetch *OperationSnapshot `json:"resource_fetch,omitempty"`
	Upload        *OperationSnapshot `json:"upload,omitempty"`
	StorePoll     *OperationSnapshot `json:"store_poll,omitempty"`
}

// Collector aggregates in-memory runtime statistics. All methods are
// thread-safe and safe on a nil receiver, so callers can skip wiring a
// collector entirely.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
}

// Record adds one timed observation for an operation. failed marks the
// observation as a failure; it still counts toward timings.
func (c *Collector) Record(op string, duration time.Duration, failed bool) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{MinTime: time.Duration(math.MaxInt64)}
		c.ops[op] = m
	}

	m.Count++
	if failed {
		m.Failures++
	}
	m.TotalTime += duration
	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(m *OperationMetrics) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}
	return &OperationSnapshot{
		Count:       m.Count,
		Failures:    m.Failures,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		Structure:     snapshotOp(c.ops[OpStructure]),
		Verify:        snapshotOp(c.ops[OpVerify]),
		ResourceFetch: snapshotOp(c.ops[OpResourceFetch]),
		Upload:        snapshotOp(c.ops[OpUpload]),
		StorePoll:     snapshotOp(c.ops[OpStorePoll]),
	}
}
