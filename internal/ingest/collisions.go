package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tickerwire-hq/tickerwire-ingest/internal/metrics"
)

const (
	// Collision-rate bounds, both exclusive: a rate exactly on a bound is normal.
	lowCollisionRate  = 0.05
	highCollisionRate = 0.40

	AnomalyHighCollisionRate = "high_collision_rate"
	AnomalyLowCollisionRate  = "low_collision_rate"

	metricsNamespace = "tickerwire/ingest"
)

// CollisionTracker accumulates per-run dedup counters and classifies runs
// whose cross-source duplication rate is implausible. It is scoped to one
// ingestion run and reset explicitly between runs.
type CollisionTracker struct {
	mu         sync.Mutex
	sources    []string
	fetched    map[string]int64
	stored     int64
	collisions int64
	startedAt  time.Time
	duration   time.Duration

	now func() time.Time
}

// NewCollisionTracker builds a tracker for the configured source names.
func NewCollisionTracker(sources []string) *CollisionTracker {
	return &CollisionTracker{
		sources: append([]string(nil), sources...),
		fetched: make(map[string]int64),
		now:     time.Now,
	}
}

// RecordFetch adds count fetched articles for the source.
func (t *CollisionTracker) RecordFetch(source string, count int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fetched[source] += int64(count)
}

// RecordStored counts one unique article persisted.
func (t *CollisionTracker) RecordStored() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stored++
}

// RecordCollision counts one article recognized as a duplicate of an
// already-seen key.
func (t *CollisionTracker) RecordCollision() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.collisions++
}

// StartTiming marks the beginning of the run.
func (t *CollisionTracker) StartTiming() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startedAt = t.now()
	t.duration = 0
}

// StopTiming records the wall-clock duration since StartTiming.
func (t *CollisionTracker) StopTiming() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.startedAt.IsZero() {
		t.duration = t.now().Sub(t.startedAt)
	}
}

// TotalFetched returns the sum of fetched counts across sources.
func (t *CollisionTracker) TotalFetched() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalFetchedLocked()
}

func (t *CollisionTracker) totalFetchedLocked() int64 {
	var total int64
	for _, n := range t.fetched {
		total += n
	}
	return total
}

// CollisionRate returns collisions/totalFetched, 0.0 when nothing was fetched.
func (t *CollisionTracker) CollisionRate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.collisionRateLocked()
}

func (t *CollisionTracker) collisionRateLocked() float64 {
	total := t.totalFetchedLocked()
	if total == 0 {
		return 0.0
	}
	return float64(t.collisions) / float64(total)
}

// IsAnomalous reports whether the run's collision rate is implausible. It is
// only evaluated when every configured source fetched at least one article; a
// single-source run naturally has zero collisions and must not be flagged.
func (t *CollisionTracker) IsAnomalous() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.isAnomalousLocked()
}

func (t *CollisionTracker) isAnomalousLocked() bool {
	if len(t.sources) == 0 {
		return false
	}
	for _, source := range t.sources {
		if t.fetched[source] <= 0 {
			return false
		}
	}
	rate := t.collisionRateLocked()
	return rate < lowCollisionRate || rate > highCollisionRate
}

// AnomalyType resolves the anomaly kind and a human-readable message, or
// empty strings when the run is normal.
func (t *CollisionTracker) AnomalyType() (kind, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.isAnomalousLocked() {
		return "", ""
	}

	rate := t.collisionRateLocked()
	if rate > highCollisionRate {
		return AnomalyHighCollisionRate,
			fmt.Sprintf("collision rate %.4f exceeds threshold %.2f", rate, highCollisionRate)
	}
	return AnomalyLowCollisionRate,
		fmt.Sprintf("collision rate %.4f is below threshold %.2f", rate, lowCollisionRate)
}

// Reset atomically zeroes all counters and timing state.
func (t *CollisionTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fetched = make(map[string]int64)
	t.stored = 0
	t.collisions = 0
	t.startedAt = time.Time{}
	t.duration = 0
}

// Snapshot exports a flat view of the run counters.
func (t *CollisionTracker) Snapshot() map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()

	anomalous := t.isAnomalousLocked()
	out := map[string]any{
		"total_fetched":  t.totalFetchedLocked(),
		"stored":         t.stored,
		"collisions":     t.collisions,
		"collision_rate": t.collisionRateLocked(),
		"anomalous":      anomalous,
		"duration_ms":    t.duration.Milliseconds(),
	}
	for source, n := range t.fetched {
		out["fetched_"+source] = n
	}
	return out
}

// Publish emits the run counters to the metrics sink.
func (t *CollisionTracker) Publish(ctx context.Context, sink metrics.Sink) {
	if sink == nil {
		return
	}

	t.mu.Lock()
	fetched := make(map[string]int64, len(t.fetched))
	for source, n := range t.fetched {
		fetched[source] = n
	}
	stored := t.stored
	collisions := t.collisions
	rate := t.collisionRateLocked()
	anomalyFlag := 0.0
	if t.isAnomalousLocked() {
		anomalyFlag = 1.0
	}
	durationMs := t.duration.Milliseconds()
	t.mu.Unlock()

	for source, n := range fetched {
		sink.Emit(ctx, metrics.Datapoint{
			Namespace:  metricsNamespace,
			Name:       "fetched_count",
			Value:      float64(n),
			Dimensions: map[string]string{"source": source},
		})
	}
	sink.Emit(ctx, metrics.Datapoint{Namespace: metricsNamespace, Name: "stored_count", Value: float64(stored)})
	sink.Emit(ctx, metrics.Datapoint{Namespace: metricsNamespace, Name: "collision_count", Value: float64(collisions)})
	sink.Emit(ctx, metrics.Datapoint{Namespace: metricsNamespace, Name: "collision_rate", Value: rate})
	sink.Emit(ctx, metrics.Datapoint{Namespace: metricsNamespace, Name: "collision_anomaly", Value: anomalyFlag})
	sink.Emit(ctx, metrics.Datapoint{Namespace: metricsNamespace, Name: "run_duration_ms", Value: float64(durationMs)})
}
