package pipeline

import (
	"testing"
	"time"
)

func TestSplitStatsSnapshotPercentiles(t *testing.T) {
	stats := NewSplitStats(time.Hour)
	for i := 1; i <= 5; i++ {
		stats.Record(time.Duration(i*100)*time.Millisecond, 1, i)
	}

	snap := stats.Snapshot()
	if snap.Count != 5 {
		t.Fatalf("expected count=5, got %d", snap.Count)
	}
	if snap.MinMs != 100 || snap.MaxMs != 500 {
		t.Fatalf("expected min=100 max=500, got %d %d", snap.MinMs, snap.MaxMs)
	}
	if snap.AvgMs != 300 {
		t.Fatalf("expected avg=300, got %f", snap.AvgMs)
	}
	if snap.P50Ms != 300 {
		t.Fatalf("expected p50=300, got %f", snap.P50Ms)
	}
	if snap.P95Ms != 480 {
		t.Fatalf("expected p95=480, got %f", snap.P95Ms)
	}
	if snap.P99Ms != 496 {
		t.Fatalf("expected p99=496, got %f", snap.P99Ms)
	}
	if snap.TotalParents != 5 || snap.TotalChildren != 15 {
		t.Fatalf("expected totals 5/15, got %d/%d", snap.TotalParents, snap.TotalChildren)
	}
}

func TestSplitStatsPrunesExpiredSamples(t *testing.T) {
	stats := NewSplitStats(10 * time.Millisecond)
	stats.Record(100*time.Millisecond, 1, 1)
	time.Sleep(25 * time.Millisecond)

	if snap := stats.Snapshot(); snap.Count != 0 {
		t.Fatalf("expected count=0 after prune, got %d", snap.Count)
	}

	stats.Record(200*time.Millisecond, 1, 1)
	snap := stats.Snapshot()
	if snap.Count != 1 || snap.MinMs != 200 || snap.MaxMs != 200 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestSplitStatsClampsNegativeDuration(t *testing.T) {
	stats := NewSplitStats(time.Hour)
	stats.Record(-time.Second, 0, 0)
	if snap := stats.Snapshot(); snap.MinMs != 0 {
		t.Fatalf("expected clamped duration 0, got %d", snap.MinMs)
	}
}

func TestBackoff(t *testing.T) {
	for attempt, base := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second} {
		d := Backoff(attempt)
		if d < base || d >= base+base/2 {
			t.Errorf("attempt %d: backoff %v outside [%v, %v)", attempt, d, base, base+base/2)
		}
	}
	if d := Backoff(10); d > 45*time.Second {
		t.Errorf("backoff should be capped, got %v", d)
	}
}
