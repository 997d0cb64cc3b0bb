package metrics

import (
	"context"

	"github.com/tickerwire-hq/tickerwire-ingest/internal/logger"
)

// Package metrics defines the sink the ingest pipeline emits run datapoints
// to. Each emit is independent and delivery failures are swallowed by the
// implementations; metrics must never affect ingestion.

// Datapoint is one namespaced, dimensioned numeric measurement.
type Datapoint struct {
	Namespace  string            `json:"namespace"`
	Name       string            `json:"name"`
	Value      float64           `json:"value"`
	Dimensions map[string]string `json:"dimensions,omitempty"`
}

// Sink accepts datapoints. Implementations swallow delivery failures.
type Sink interface {
	Emit(ctx context.Context, dp Datapoint)
}

// NopSink discards every datapoint.
type NopSink struct{}

func (NopSink) Emit(context.Context, Datapoint) {}

// LogSink writes datapoints to the structured log. Useful in development and
// as a fallback when no metrics transport is configured.
type LogSink struct {
	log logger.Logger
}

// NewLogSink builds a sink that logs datapoints.
func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{log: logger.Ensure(log)}
}

func (s *LogSink) Emit(_ context.Context, dp Datapoint) {
	if s == nil {
		return
	}
	s.log.InfoObj("metric datapoint", "datapoint", dp)
}
