package admission

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// QuotaTracker is the narrow rate-quota contract the orchestrator consumes.
type QuotaTracker interface {
	CanCall(source string) bool
	RecordCall(source string, count int)
}

// RateQuota enforces a per-source hourly call budget using token buckets.
type RateQuota struct {
	mu           sync.Mutex
	limiters     map[string]*rate.Limiter
	callsPerHour int
}

// NewRateQuota builds a tracker allowing callsPerHour calls per source.
func NewRateQuota(callsPerHour int) *RateQuota {
	if callsPerHour <= 0 {
		callsPerHour = 60
	}
	return &RateQuota{
		limiters:     make(map[string]*rate.Limiter),
		callsPerHour: callsPerHour,
	}
}

// CanCall reports whether the source has quota left without consuming any.
func (q *RateQuota) CanCall(source string) bool {
	if q == nil {
		return false
	}
	return q.limiterFor(source).Tokens() >= 1
}

// RecordCall consumes count tokens from the source budget.
func (q *RateQuota) RecordCall(source string, count int) {
	if q == nil || count <= 0 {
		return
	}
	// AllowN both checks and consumes; the orchestrator gates on CanCall first,
	// so a false return here just means the budget dipped mid-run.
	q.limiterFor(source).AllowN(time.Now(), count)
}

func (q *RateQuota) limiterFor(source string) *rate.Limiter {
	q.mu.Lock()
	defer q.mu.Unlock()

	limiter, ok := q.limiters[source]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(time.Hour/time.Duration(q.callsPerHour)), q.callsPerHour)
		q.limiters[source] = limiter
	}
	return limiter
}
