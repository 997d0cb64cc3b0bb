package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tickerwire-hq/tickerwire-ingest/internal/logger"
)

// Notifier delivers a failure-alert message. Implementations may be a no-op,
// a log entry, or a real alert publisher.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, message string) error

func (f NotifierFunc) Notify(ctx context.Context, message string) error { return f(ctx, message) }

// FailureTracker counts ingest failures inside a sliding trailing window and
// fires the notifier once per contiguous failure episode. Pruning is lazy: it
// happens only when a new failure arrives, relative to that failure's
// timestamp.
type FailureTracker struct {
	mu          sync.Mutex
	threshold   int
	window      time.Duration
	timestamps  []time.Time
	alertActive bool

	notifier Notifier
	log      logger.Logger
	now      func() time.Time
}

// NewFailureTracker builds a tracker that alerts after threshold failures
// inside window.
func NewFailureTracker(threshold int, window time.Duration, notifier Notifier, log logger.Logger) *FailureTracker {
	if threshold <= 0 {
		threshold = 3
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &FailureTracker{
		threshold: threshold,
		window:    window,
		notifier:  notifier,
		log:       logger.Ensure(log),
		now:       time.Now,
	}
}

// RecordFailure registers a failure, prunes entries that fell out of the
// window, and returns the in-window count plus whether a new alert fired.
// Only the first threshold crossing of an episode alerts; later failures are
// counted silently until RecordSuccess resets the episode.
func (t *FailureTracker) RecordFailure(ctx context.Context, message string) (count int, alerted bool) {
	t.mu.Lock()
	now := t.now()

	// Only entries strictly older than the window fall out; a failure aged
	// exactly one window still counts.
	kept := t.timestamps[:0]
	for _, ts := range t.timestamps {
		if now.Sub(ts) <= t.window {
			kept = append(kept, ts)
		}
	}
	t.timestamps = append(kept, now)
	count = len(t.timestamps)

	shouldAlert := count >= t.threshold && !t.alertActive
	if shouldAlert {
		t.alertActive = true
	}
	notifier := t.notifier
	t.mu.Unlock()

	if !shouldAlert {
		return count, false
	}

	alertMsg := fmt.Sprintf("%d ingest failures within %s; latest: %s", count, t.window, message)
	if notifier != nil {
		// A broken notification channel must not break failure tracking.
		if err := notifier.Notify(ctx, alertMsg); err != nil {
			t.log.ErrorObj("failure alert notify failed", "notify_error", map[string]any{
				"error":   err.Error(),
				"message": alertMsg,
			})
		}
	}
	return count, true
}

// RecordSuccess clears the window and ends the alert episode. This is the
// only way out of the alert-active state.
func (t *FailureTracker) RecordSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timestamps = nil
	t.alertActive = false
}

// Count returns the number of failures currently retained in the window.
func (t *FailureTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.timestamps)
}
