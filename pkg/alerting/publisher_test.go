package alerting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type captureSink struct {
	mu     sync.Mutex
	alerts []Alert
	err    error
}

func (s *captureSink) ID() string   { return "capture" }
func (s *captureSink) Type() string { return "capture" }

func (s *captureSink) Send(_ context.Context, alert Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, alert)
	return s.err
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}

func publisherAt(sink Sink, base time.Time) (*Publisher, *time.Time) {
	p := NewPublisher(sink, "ingest-alerts", 5*time.Minute, nil)
	now := base
	p.now = func() time.Time { return now }
	return p, &now
}

func TestShouldAlert(t *testing.T) {
	p := NewPublisher(nil, "t", 0, nil)

	cases := []struct {
		count, window int
		want          bool
	}{
		{3, 15, true},
		{4, 10, true},
		{2, 15, false},
		{3, 16, false}, // smeared past the window does not qualify
	}
	for _, tc := range cases {
		if got := p.ShouldAlert(tc.count, tc.window); got != tc.want {
			t.Fatalf("ShouldAlert(%d, %d) = %v, want %v", tc.count, tc.window, got, tc.want)
		}
	}
}

func TestShouldAlertLatencyBoundaryIsSilent(t *testing.T) {
	p := NewPublisher(nil, "t", 0, nil)

	if p.ShouldAlertLatency(30000, 30000) {
		t.Fatalf("latency equal to the threshold must not alert")
	}
	if !p.ShouldAlertLatency(30001, 30000) {
		t.Fatalf("latency above the threshold must alert")
	}
}

func TestFailureAlertCooldownSuppresses(t *testing.T) {
	sink := &captureSink{}
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	p, now := publisherAt(sink, base)
	ctx := context.Background()

	if !p.PublishFailureAlert(ctx, 3, 15, "tiingo timeout") {
		t.Fatalf("first failure alert should dispatch")
	}
	*now = base.Add(1 * time.Minute)
	if p.PublishFailureAlert(ctx, 4, 15, "tiingo timeout") {
		t.Fatalf("second failure alert within cooldown should be suppressed")
	}
	if sink.count() != 1 {
		t.Fatalf("sink invocations = %d, want 1", sink.count())
	}

	// The cooldown passes and alerts flow again.
	*now = base.Add(6 * time.Minute)
	if !p.PublishFailureAlert(ctx, 3, 15, "tiingo timeout") {
		t.Fatalf("alert after cooldown should dispatch")
	}
	if sink.count() != 2 {
		t.Fatalf("sink invocations = %d, want 2", sink.count())
	}
}

func TestLatencyCooldownIsPerSource(t *testing.T) {
	sink := &captureSink{}
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	p, _ := publisherAt(sink, base)
	ctx := context.Background()

	if !p.PublishLatencyAlert(ctx, "tiingo", 45000, 30000) {
		t.Fatalf("tiingo latency alert should dispatch")
	}
	if !p.PublishLatencyAlert(ctx, "finnhub", 52000, 30000) {
		t.Fatalf("finnhub latency alert should dispatch independently")
	}
	if sink.count() != 2 {
		t.Fatalf("sink invocations = %d, want 2 (cooldown keys differ per source)", sink.count())
	}

	if p.PublishLatencyAlert(ctx, "tiingo", 46000, 30000) {
		t.Fatalf("repeat tiingo alert within cooldown should be suppressed")
	}
}

func TestFailureAlertPayloadShape(t *testing.T) {
	sink := &captureSink{}
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	p, _ := publisherAt(sink, base)

	p.PublishFailureAlert(context.Background(), 3, 15, "connection refused")

	alert := sink.alerts[0]
	if alert.Topic != "ingest-alerts" {
		t.Fatalf("Topic = %q", alert.Topic)
	}
	if alert.Subject == "" || alert.Body == "" {
		t.Fatalf("alert must have subject and body: %+v", alert)
	}
	if alert.Attributes["alert_type"] != AlertTypeConsecutiveFailures {
		t.Fatalf("alert_type = %q", alert.Attributes["alert_type"])
	}
	if alert.Attributes["failure_count"] != "3" {
		t.Fatalf("failure_count = %q", alert.Attributes["failure_count"])
	}
}

func TestSinkErrorIsSwallowed(t *testing.T) {
	sink := &captureSink{err: errors.New("sns down")}
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	p, _ := publisherAt(sink, base)

	// Must not panic or propagate; the alert still counts as dispatched.
	if !p.PublishFailureAlert(context.Background(), 3, 15, "boom") {
		t.Fatalf("dispatch attempt should be reported even when the sink fails")
	}
}
