package metrics

import (
	"testing"
	"time"
)

func TestRecordAndSnapshot(t *testing.T) {
	c := NewCollector()

	c.Record(OpVerify, 100*time.Millisecond, false)
	c.Record(OpVerify, 300*time.Millisecond, true)

	snap := c.Snapshot()
	if snap.Verify == nil {
		t.Fatal("Expected verify snapshot")
	}
	if snap.Verify.Count != 2 || snap.Verify.Failures != 1 {
		t.Errorf("Expected count 2 failures 1, got %d/%d", snap.Verify.Count, snap.Verify.Failures)
	}
	if snap.Verify.MinTimeMs != 100 || snap.Verify.MaxTimeMs != 300 {
		t.Errorf("Expected min 100 max 300, got %d/%d", snap.Verify.MinTimeMs, snap.Verify.MaxTimeMs)
	}
	if snap.Verify.AvgTimeMs != 200 {
		t.Errorf("Expected avg 200, got %v", snap.Verify.AvgTimeMs)
	}

	if snap.Structure != nil {
		t.Error("Operations with no data must snapshot as nil")
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.Record(OpStructure, time.Second, false)

	snap := c.Snapshot()
	if snap.Structure != nil {
		t.Error("Nil collector must snapshot empty")
	}
}
