package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tickerwire-hq/tickerwire-ingest/internal/metrics"
)

func newTwoSourceTracker() *CollisionTracker {
	return NewCollisionTracker([]string{"tiingo", "finnhub"})
}

func recordCollisions(t *CollisionTracker, n int) {
	for i := 0; i < n; i++ {
		t.RecordCollision()
	}
}

func TestCollisionRateBoundariesAreExclusive(t *testing.T) {
	cases := []struct {
		name       string
		collisions int
		anomalous  bool
		kind       string
	}{
		{name: "exactly low bound", collisions: 10, anomalous: false},
		{name: "exactly high bound", collisions: 80, anomalous: false},
		{name: "just above high bound", collisions: 81, anomalous: true, kind: AnomalyHighCollisionRate},
		{name: "just below low bound", collisions: 9, anomalous: true, kind: AnomalyLowCollisionRate},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := newTwoSourceTracker()
			tr.RecordFetch("tiingo", 100)
			tr.RecordFetch("finnhub", 100)
			recordCollisions(tr, tc.collisions)

			if got := tr.IsAnomalous(); got != tc.anomalous {
				t.Fatalf("IsAnomalous = %v, want %v (rate %.4f)", got, tc.anomalous, tr.CollisionRate())
			}
			kind, msg := tr.AnomalyType()
			if kind != tc.kind {
				t.Fatalf("AnomalyType = %q, want %q", kind, tc.kind)
			}
			if tc.anomalous && msg == "" {
				t.Fatalf("anomalous run must carry a message")
			}
		})
	}
}

func TestSingleSourceRunIsNeverAnomalous(t *testing.T) {
	tr := newTwoSourceTracker()
	tr.RecordFetch("tiingo", 5000)
	// finnhub fetched nothing, zero collisions: never anomalous.

	if tr.IsAnomalous() {
		t.Fatalf("single-source run must not be flagged anomalous")
	}
}

func TestCollisionRateZeroWhenNothingFetched(t *testing.T) {
	tr := newTwoSourceTracker()
	if got := tr.CollisionRate(); got != 0.0 {
		t.Fatalf("CollisionRate = %v, want 0.0", got)
	}
	if tr.IsAnomalous() {
		t.Fatalf("empty run must not be anomalous")
	}
}

func TestResetRestoresZeroValues(t *testing.T) {
	tr := newTwoSourceTracker()
	tr.StartTiming()
	tr.RecordFetch("tiingo", 10)
	tr.RecordFetch("finnhub", 10)
	tr.RecordStored()
	tr.RecordCollision()
	tr.StopTiming()

	tr.Reset()

	if tr.TotalFetched() != 0 || tr.CollisionRate() != 0.0 || tr.IsAnomalous() {
		t.Fatalf("tracker not zeroed after Reset: %v", tr.Snapshot())
	}
	snap := tr.Snapshot()
	if snap["stored"].(int64) != 0 || snap["collisions"].(int64) != 0 || snap["duration_ms"].(int64) != 0 {
		t.Fatalf("snapshot not zeroed after Reset: %v", snap)
	}

	// Recordings after Reset behave as if newly constructed.
	tr.RecordFetch("tiingo", 100)
	tr.RecordFetch("finnhub", 100)
	recordCollisions(tr, 40)
	if tr.IsAnomalous() {
		t.Fatalf("rate 0.20 must be normal after Reset")
	}
}

func TestTimingMeasuresRunDuration(t *testing.T) {
	tr := newTwoSourceTracker()
	base := time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return base }

	tr.StartTiming()
	base = base.Add(1500 * time.Millisecond)
	tr.StopTiming()

	if got := tr.Snapshot()["duration_ms"].(int64); got != 1500 {
		t.Fatalf("duration_ms = %d, want 1500", got)
	}
}

type captureSink struct {
	mu  sync.Mutex
	dps []metrics.Datapoint
}

func (s *captureSink) Emit(_ context.Context, dp metrics.Datapoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dps = append(s.dps, dp)
}

func (s *captureSink) byName(name string) (metrics.Datapoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, dp := range s.dps {
		if dp.Name == name {
			return dp, true
		}
	}
	return metrics.Datapoint{}, false
}

func TestPublishEmitsRunDatapoints(t *testing.T) {
	tr := newTwoSourceTracker()
	tr.RecordFetch("tiingo", 100)
	tr.RecordFetch("finnhub", 100)
	recordCollisions(tr, 50)
	tr.RecordStored()

	sink := &captureSink{}
	tr.Publish(context.Background(), sink)

	rate, ok := sink.byName("collision_rate")
	if !ok || rate.Value != 0.25 {
		t.Fatalf("collision_rate datapoint = %+v ok=%v, want 0.25", rate, ok)
	}
	anomaly, ok := sink.byName("collision_anomaly")
	if !ok || anomaly.Value != 0 {
		t.Fatalf("collision_anomaly = %+v, want 0", anomaly)
	}
	fetchedDp, ok := sink.byName("fetched_count")
	if !ok || fetchedDp.Dimensions["source"] == "" {
		t.Fatalf("fetched_count must be dimensioned by source, got %+v", fetchedDp)
	}
}
