package alerting

import (
	"context"

	"github.com/tickerwire-hq/tickerwire-ingest/internal/logger"
)

// logSink writes alerts to the structured log. Useful in development and as
// a last-resort channel when no external sink is configured.
type logSink struct {
	id  string
	log logger.Logger
}

func newLogSink(cfg SinkConfig, log logger.Logger) Sink {
	return &logSink{id: cfg.ID, log: logger.Ensure(log)}
}

func (s *logSink) ID() string   { return s.id }
func (s *logSink) Type() string { return TypeLog }

func (s *logSink) Send(_ context.Context, alert Alert) error {
	s.log.WarnObj("operator alert", "alert", alert)
	return nil
}
