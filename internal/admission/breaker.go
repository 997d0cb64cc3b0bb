package admission

import (
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Package admission holds the gates consulted before a source fetch is
// dispatched: a circuit breaker and a call-quota tracker. The orchestrator
// depends only on the narrow interfaces; the concrete implementations here
// exist so the binary runs without external wiring.

// Breaker is the narrow circuit-breaker contract the orchestrator consumes.
type Breaker interface {
	CanExecute() bool
	RecordSuccess()
	RecordFailure()
}

// BreakerSettings tunes a source circuit breaker.
type BreakerSettings struct {
	Name string
	// MaxFailures trips the breaker once this many consecutive failures occur.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

// CircuitBreaker adapts gobreaker's two-step breaker to the split
// CanExecute/RecordSuccess/RecordFailure contract. CanExecute reserves an
// admission slot; the matching RecordSuccess or RecordFailure settles it.
// At most one fetch per source is in flight at a time, so a single pending
// slot suffices.
type CircuitBreaker struct {
	mu      sync.Mutex
	cb      *gobreaker.TwoStepCircuitBreaker[any]
	pending func(success bool)
}

// NewCircuitBreaker builds a breaker for one source.
func NewCircuitBreaker(settings BreakerSettings) *CircuitBreaker {
	maxFailures := settings.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	openTimeout := settings.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = 60 * time.Second
	}

	st := gobreaker.Settings{
		Name:    settings.Name,
		Timeout: openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
	}
	return &CircuitBreaker{cb: gobreaker.NewTwoStepCircuitBreaker[any](st)}
}

// CanExecute reports whether a call to the source is currently admitted.
func (b *CircuitBreaker) CanExecute() bool {
	if b == nil || b.cb == nil {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pending != nil {
		return true
	}

	done, err := b.cb.Allow()
	if err != nil {
		return false
	}
	b.pending = done
	return true
}

// RecordSuccess settles the pending admission as successful.
func (b *CircuitBreaker) RecordSuccess() { b.settle(true) }

// RecordFailure settles the pending admission as failed.
func (b *CircuitBreaker) RecordFailure() { b.settle(false) }

func (b *CircuitBreaker) settle(success bool) {
	if b == nil {
		return
	}

	b.mu.Lock()
	done := b.pending
	b.pending = nil
	b.mu.Unlock()

	if done != nil {
		done(success)
	}
}

// State exposes the underlying breaker state for logging.
func (b *CircuitBreaker) State() string {
	if b == nil || b.cb == nil {
		return "unknown"
	}
	return b.cb.State().String()
}
