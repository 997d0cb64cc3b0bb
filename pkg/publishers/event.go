package publishers

import (
	"time"

	"github.com/tickerwire-hq/tickerwire-ingest/internal/domain"
)

// Event is the payload pushed downstream for every newly stored article.
type Event struct {
	Source      string         `json:"source"`
	DedupKey    string         `json:"dedup_key"`
	Article     domain.Article `json:"article"`
	CollectedAt time.Time      `json:"collected_at"`
}

// NewEvent constructs an Event for an article collected from a source.
func NewEvent(source, dedupKey string, article domain.Article) Event {
	return Event{
		Source:      source,
		DedupKey:    dedupKey,
		Article:     article,
		CollectedAt: time.Now().UTC(),
	}
}
