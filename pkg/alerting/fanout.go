package alerting

import (
	"context"
	"errors"
	"fmt"
)

// Fanout forwards each alert to every registered sink.
type Fanout struct {
	sinks []Sink
}

// NewFanout builds a sink that fans alerts out across sinks.
func NewFanout(sinks []Sink) *Fanout {
	cp := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s == nil {
			continue
		}
		cp = append(cp, s)
	}
	return &Fanout{sinks: cp}
}

func (f *Fanout) ID() string   { return "fanout" }
func (f *Fanout) Type() string { return "fanout" }

// Send forwards the alert to every sink, aggregating errors.
func (f *Fanout) Send(ctx context.Context, alert Alert) error {
	if f == nil || len(f.sinks) == 0 {
		return nil
	}

	var errs []error
	for _, s := range f.sinks {
		if err := s.Send(ctx, alert); err != nil {
			errs = append(errs, fmt.Errorf("%s sink[%s]: %w", s.Type(), s.ID(), err))
		}
	}
	return errors.Join(errs...)
}

// Size returns the number of active sinks.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.sinks)
}
