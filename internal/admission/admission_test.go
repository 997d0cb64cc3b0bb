package admission

import (
	"testing"
	"time"
)

func TestCircuitBreakerAllowsThenTrips(t *testing.T) {
	b := NewCircuitBreaker(BreakerSettings{
		Name:        "tiingo",
		MaxFailures: 2,
		OpenTimeout: time.Minute,
	})

	for i := 0; i < 2; i++ {
		if !b.CanExecute() {
			t.Fatalf("breaker should admit call %d while closed", i)
		}
		b.RecordFailure()
	}

	if b.CanExecute() {
		t.Fatalf("breaker should be open after consecutive failures")
	}
}

func TestCircuitBreakerSuccessKeepsClosed(t *testing.T) {
	b := NewCircuitBreaker(BreakerSettings{Name: "finnhub", MaxFailures: 2})

	for i := 0; i < 10; i++ {
		if !b.CanExecute() {
			t.Fatalf("breaker should stay closed under successes (call %d)", i)
		}
		b.RecordSuccess()
	}
}

func TestCircuitBreakerPendingAdmissionIsReused(t *testing.T) {
	b := NewCircuitBreaker(BreakerSettings{Name: "tiingo", MaxFailures: 3})

	if !b.CanExecute() {
		t.Fatalf("first CanExecute should admit")
	}
	// A second probe before the call settles must not reserve another slot.
	if !b.CanExecute() {
		t.Fatalf("CanExecute with a pending admission should remain true")
	}
	b.RecordSuccess()
	// Settling twice must be harmless.
	b.RecordSuccess()
}

func TestRateQuotaExhausts(t *testing.T) {
	q := NewRateQuota(3)

	for i := 0; i < 3; i++ {
		if !q.CanCall("tiingo") {
			t.Fatalf("call %d should be within quota", i)
		}
		q.RecordCall("tiingo", 1)
	}

	if q.CanCall("tiingo") {
		t.Fatalf("quota should be exhausted after 3 calls")
	}
	// Budgets are tracked per source.
	if !q.CanCall("finnhub") {
		t.Fatalf("an untouched source must still have quota")
	}
}
