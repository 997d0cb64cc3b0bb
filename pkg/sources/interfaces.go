package sources

import (
	"context"
	"time"

	"github.com/tickerwire-hq/tickerwire-ingest/internal/domain"
	"github.com/tickerwire-hq/tickerwire-ingest/pkg/httpclient"
)

// Adapter retrieves raw articles for one provider. Concrete implementations
// live in provider-specific files (tiingo.go, finnhub.go).
type Adapter interface {
	ID() string
	GetNews(ctx context.Context, tickers []string, start, end time.Time, limit int) ([]domain.Article, error)
}

// AdapterRegistry resolves the adapter implementation for a given source config.
type AdapterRegistry interface {
	AdapterFor(cfg SourceConfig) (Adapter, error)
}

// HTTPClient aliases the shared httpclient.Client interface for clarity within sources.
type HTTPClient = httpclient.Client
