package publishers

import (
	"context"
	"errors"
	"fmt"

	"github.com/tickerwire-hq/tickerwire-ingest/internal/logger"
)

// Fanout dispatches events to all configured publishers. Delivery is
// best-effort per publisher: one failing sink never stops the others.
type Fanout struct {
	publishers []Publisher
	log        logger.Logger
}

// NewFanout builds a dispatcher that fans out events across publishers.
func NewFanout(pubs []Publisher, log logger.Logger) *Fanout {
	cp := make([]Publisher, 0, len(pubs))
	for _, p := range pubs {
		if p == nil {
			continue
		}
		cp = append(cp, p)
	}
	return &Fanout{publishers: cp, log: logger.Ensure(log)}
}

// Publish forwards the event to every registered publisher.
// It returns the number of publishers that successfully handled the event.
func (f *Fanout) Publish(ctx context.Context, evt Event) (int, error) {
	if f == nil || len(f.publishers) == 0 {
		return 0, nil
	}

	var errs []error
	delivered := 0
	for _, p := range f.publishers {
		err := p.Publish(ctx, evt)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s publisher[%s]: %w", p.Type(), p.ID(), err))
			f.log.ErrorObj("publisher delivery failed", "fanout_error", map[string]any{
				"publisher_id":   p.ID(),
				"publisher_type": p.Type(),
				"source":         evt.Source,
				"dedup_key":      evt.DedupKey,
				"error":          err.Error(),
			})
			continue
		}
		delivered++
	}

	if len(errs) > 0 {
		f.log.WarnObj("event delivered to a subset of publishers", "fanout_meta", map[string]any{
			"delivered": delivered,
			"failed":    len(errs),
			"source":    evt.Source,
		})
	}
	return delivered, errors.Join(errs...)
}

// Size returns the number of active publishers.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.publishers)
}
