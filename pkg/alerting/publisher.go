package alerting

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/tickerwire-hq/tickerwire-ingest/internal/logger"
)

const (
	defaultCooldown = 5 * time.Minute

	// A failure alert only qualifies when the count reached 3 inside a
	// 15-minute window; a slow smear of failures does not page anyone.
	failureAlertMinCount      = 3
	failureAlertWindowMinutes = 15

	AlertTypeConsecutiveFailures = "consecutive_failures"
	AlertTypeHighLatency         = "high_latency"
)

// Publisher dispatches failure and latency alerts through a sink, enforcing
// cooldowns so a flapping source cannot cause a notification storm. Failure
// alerts share one global cooldown; latency alerts cool down per source.
type Publisher struct {
	mu               sync.Mutex
	sink             Sink
	topic            string
	cooldown         time.Duration
	lastFailureAlert time.Time
	lastLatencyAlert map[string]time.Time

	log logger.Logger
	now func() time.Time
}

// NewPublisher builds an alert publisher over the sink.
func NewPublisher(sink Sink, topic string, cooldown time.Duration, log logger.Logger) *Publisher {
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	return &Publisher{
		sink:             sink,
		topic:            topic,
		cooldown:         cooldown,
		lastLatencyAlert: make(map[string]time.Time),
		log:              logger.Ensure(log),
		now:              time.Now,
	}
}

// ShouldAlert reports whether a failure episode qualifies for an alert:
// the count reached the minimum and the window is tight enough.
func (p *Publisher) ShouldAlert(failureCount, windowMinutes int) bool {
	return failureCount >= failureAlertMinCount && windowMinutes <= failureAlertWindowMinutes
}

// ShouldAlertLatency reports whether a collection latency qualifies for an
// alert. The threshold itself does not alert.
func (p *Publisher) ShouldAlertLatency(latencyMs, thresholdMs int64) bool {
	return latencyMs > thresholdMs
}

// PublishFailureAlert sends a consecutive-failure alert unless one was sent
// within the global cooldown. Returns whether the alert was dispatched.
func (p *Publisher) PublishFailureAlert(ctx context.Context, failureCount, windowMinutes int, detail string) bool {
	if p == nil {
		return false
	}

	p.mu.Lock()
	now := p.now()
	if !p.lastFailureAlert.IsZero() && now.Sub(p.lastFailureAlert) < p.cooldown {
		p.mu.Unlock()
		p.log.DebugObj("failure alert suppressed by cooldown", "alert_suppressed", map[string]any{
			"failure_count": failureCount,
		})
		return false
	}
	p.lastFailureAlert = now
	p.mu.Unlock()

	alert := Alert{
		Topic:   p.topic,
		Subject: fmt.Sprintf("news ingest degraded: %d consecutive failures", failureCount),
		Body: fmt.Sprintf(
			"Article collection recorded %d failures within the last %d minutes.\n\nLatest error: %s",
			failureCount, windowMinutes, detail,
		),
		Attributes: map[string]string{
			"alert_type":     AlertTypeConsecutiveFailures,
			"failure_count":  strconv.Itoa(failureCount),
			"window_minutes": strconv.Itoa(windowMinutes),
		},
	}
	p.send(ctx, alert)
	return true
}

// PublishLatencyAlert sends a high-latency alert for the source unless that
// source alerted within the cooldown. Sources cool down independently: a slow
// tiingo collection never masks a slow finnhub one.
func (p *Publisher) PublishLatencyAlert(ctx context.Context, source string, latencyMs, thresholdMs int64) bool {
	if p == nil {
		return false
	}

	p.mu.Lock()
	now := p.now()
	if last, ok := p.lastLatencyAlert[source]; ok && now.Sub(last) < p.cooldown {
		p.mu.Unlock()
		p.log.DebugObj("latency alert suppressed by cooldown", "alert_suppressed", map[string]any{
			"source": source,
		})
		return false
	}
	p.lastLatencyAlert[source] = now
	p.mu.Unlock()

	alert := Alert{
		Topic:   p.topic,
		Subject: fmt.Sprintf("slow news collection from %s", source),
		Body: fmt.Sprintf(
			"Collecting from %s took %d ms, above the %d ms threshold.",
			source, latencyMs, thresholdMs,
		),
		Attributes: map[string]string{
			"alert_type":   AlertTypeHighLatency,
			"source":       source,
			"latency_ms":   strconv.FormatInt(latencyMs, 10),
			"threshold_ms": strconv.FormatInt(thresholdMs, 10),
		},
	}
	p.send(ctx, alert)
	return true
}

// send delivers the alert, swallowing sink errors. Alerting must never crash
// the caller.
func (p *Publisher) send(ctx context.Context, alert Alert) {
	if p.sink == nil {
		return
	}
	if err := p.sink.Send(ctx, alert); err != nil {
		p.log.ErrorObj("alert delivery failed", "alert_error", map[string]any{
			"sink":    p.sink.ID(),
			"subject": alert.Subject,
			"error":   err.Error(),
		})
	}
}
