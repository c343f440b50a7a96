package service

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/raphaelgruber/veridata-go/internal/models"
)

func testRegistry() *JobRegistry {
	return NewJobRegistry(slog.New(slog.DiscardHandler))
}

func TestJobLifecycle(t *testing.T) {
	r := testRegistry()

	r.Start("job1", "analysis")
	info, ok := r.Info("job1", -1)
	if !ok {
		t.Fatal("Expected job to exist after Start")
	}
	if info.Status != models.JobRunning || info.IsComplete {
		t.Errorf("Expected running incomplete job, got %+v", info)
	}

	r.Log("job1", models.LogInfo, "working")
	r.Complete("job1", models.JobCompleted, nil)

	info, _ = r.Info("job1", -1)
	if info.Status != models.JobCompleted || !info.IsComplete {
		t.Errorf("Expected completed job, got %+v", info)
	}
	if info.Completed == nil {
		t.Error("Expected completion timestamp")
	}
	if len(info.Logs) != 1 || info.Logs[0].Message != "working" {
		t.Errorf("Expected one log entry, got %+v", info.Logs)
	}
}

func TestJobStartOverwrites(t *testing.T) {
	r := testRegistry()

	r.Start("job1", "analysis")
	r.Log("job1", models.LogInfo, "old run")
	r.Complete("job1", models.JobFailed, errors.New("boom"))

	r.Start("job1", "analysis")
	info, _ := r.Info("job1", -1)
	if info.Status != models.JobRunning || info.Error != "" || len(info.Logs) != 0 {
		t.Errorf("Start should overwrite the prior record, got %+v", info)
	}
	if info.NextIndex != 0 {
		t.Errorf("Expected fresh index sequence, got %d", info.NextIndex)
	}
}

func TestLogRingBuffer(t *testing.T) {
	r := testRegistry()
	r.Start("job1", "analysis")

	for i := 0; i < logBufferSize+50; i++ {
		r.Log("job1", models.LogInfo, fmt.Sprintf("entry %d", i))
	}

	info, _ := r.Info("job1", -1)
	if len(info.Logs) != logBufferSize {
		t.Fatalf("Expected %d retained entries, got %d", logBufferSize, len(info.Logs))
	}
	// Oldest dropped first, indexes never reused
	if info.Logs[0].Index != 50 {
		t.Errorf("Expected oldest retained index 50, got %d", info.Logs[0].Index)
	}
	if info.Logs[len(info.Logs)-1].Index != logBufferSize+49 {
		t.Errorf("Expected newest index %d, got %d", logBufferSize+49, info.Logs[len(info.Logs)-1].Index)
	}
	if info.NextIndex != logBufferSize+50 {
		t.Errorf("Expected next index %d, got %d", logBufferSize+50, info.NextIndex)
	}
}

func TestInfoSinceIndex(t *testing.T) {
	r := testRegistry()
	r.Start("job1", "analysis")
	for i := 0; i < 5; i++ {
		r.Log("job1", models.LogInfo, fmt.Sprintf("entry %d", i))
	}

	info, _ := r.Info("job1", 2)
	if len(info.Logs) != 2 {
		t.Fatalf("Expected 2 entries after index 2, got %d", len(info.Logs))
	}
	if info.Logs[0].Index != 3 || info.Logs[1].Index != 4 {
		t.Errorf("Expected indexes 3 and 4, got %+v", info.Logs)
	}

	// Polling from the reported next index returns nothing new
	info, _ = r.Info("job1", info.NextIndex)
	if len(info.Logs) != 0 {
		t.Errorf("Expected no entries past next index, got %d", len(info.Logs))
	}

	if _, ok := r.Info("missing", -1); ok {
		t.Error("Info for unknown job should report not found")
	}
}

func TestRequestCancel(t *testing.T) {
	r := testRegistry()

	if r.RequestCancel("missing") {
		t.Error("Cancel of unknown job should return false")
	}

	r.Start("job1", "analysis")
	if r.CancelRequested("job1") {
		t.Error("Fresh job should not be flagged")
	}
	if !r.RequestCancel("job1") {
		t.Error("Cancel of running job should return true")
	}
	if !r.CancelRequested("job1") {
		t.Error("Flag should be visible after RequestCancel")
	}

	r.Complete("job1", models.JobCancelled, nil)
	if r.RequestCancel("job1") {
		t.Error("Cancel of finished job should return false")
	}
}

func TestSweepEvictsIdleJobs(t *testing.T) {
	r := testRegistry()
	now := time.Unix(1000, 0)
	r.now = func() time.Time { return now }

	r.Start("idle", "analysis")
	now = now.Add(5 * time.Minute)
	r.Start("recent", "analysis")
	r.Log("recent", models.LogInfo, "still alive")

	now = now.Add(6 * time.Minute)
	if evicted := r.Sweep(); evicted != 1 {
		t.Fatalf("Expected 1 evicted job, got %d", evicted)
	}
	if _, ok := r.Info("idle", -1); ok {
		t.Error("Idle job should be evicted regardless of status")
	}
	if _, ok := r.Info("recent", -1); !ok {
		t.Error("Recently active job should survive the sweep")
	}
}

func TestListOrdersByStart(t *testing.T) {
	r := testRegistry()
	now := time.Unix(1000, 0)
	r.now = func() time.Time { return now }

	r.Start("old", "analysis")
	now = now.Add(time.Minute)
	r.Start("new", "analysis")

	jobs := r.List()
	if len(jobs) != 2 {
		t.Fatalf("Expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].ID != "new" || jobs[1].ID != "old" {
		t.Errorf("Expected most recent first, got %s then %s", jobs[0].ID, jobs[1].ID)
	}
}
