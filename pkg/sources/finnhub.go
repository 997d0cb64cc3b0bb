package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tickerwire-hq/tickerwire-ingest/internal/domain"
)

// finnhubAdapter implements Adapter for the Finnhub company-news API. Finnhub
// takes one symbol per request, so the adapter fans the ticker list into
// sequential calls and truncates the combined list to the caller's limit.
type finnhubAdapter struct {
	client HTTPClient
	cfg    SourceConfig
}

// NewFinnhubAdapter builds the finnhub news adapter.
func NewFinnhubAdapter(client HTTPClient, cfg SourceConfig) Adapter {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &finnhubAdapter{client: client, cfg: cfg}
}

func (a *finnhubAdapter) ID() string { return a.cfg.ID }

// finnhubArticle is the wire shape of one Finnhub company-news record.
type finnhubArticle struct {
	ID       int64  `json:"id"`
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
	Datetime int64  `json:"datetime"`
	Source   string `json:"source"`
	Related  string `json:"related"`
	Category string `json:"category"`
}

// GetNews fetches articles for the tickers within [start, end], capped at limit.
func (a *finnhubAdapter) GetNews(ctx context.Context, tickers []string, start, end time.Time, limit int) ([]domain.Article, error) {
	token := a.cfg.Token()
	if token == "" {
		return nil, fmt.Errorf("finnhub token missing (env %q)", a.cfg.TokenEnv)
	}

	articles := make([]domain.Article, 0, limit)
	for i, symbol := range normalizeTickers(tickers) {
		if limit > 0 && len(articles) >= limit {
			break
		}
		if i > 0 {
			// Per-request throttle; Finnhub rate limits aggressively.
			select {
			case <-ctx.Done():
				return articles, ctx.Err()
			case <-time.After(a.cfg.RequestDelay()):
			}
		}

		batch, err := a.fetchSymbol(ctx, symbol, start, end, token)
		if err != nil {
			return nil, err
		}
		articles = append(articles, batch...)
	}

	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}
	return articles, nil
}

func (a *finnhubAdapter) fetchSymbol(ctx context.Context, symbol string, start, end time.Time, token string) ([]domain.Article, error) {
	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("from", start.Format("2006-01-02"))
	query.Set("to", end.Format("2006-01-02"))
	query.Set("token", token)

	resp, err := a.client.Get(ctx, a.cfg.BaseURL+"/api/v1/company-news", query, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch finnhub news for %s: %w", symbol, err)
	}

	body := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("finnhub news for %s returned status %d body: %s", symbol, resp.StatusCode(), responseSnippet(body))
	}

	var raw []finnhubArticle
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode finnhub news for %s: %w", symbol, err)
	}

	articles := make([]domain.Article, 0, len(raw))
	for _, item := range raw {
		if item.Headline == "" {
			continue
		}
		tags := []string{}
		if item.Category != "" {
			tags = append(tags, item.Category)
		}
		// A record without an id decodes to 0. Leave the ID empty so
		// dedup falls back to the headline-based key instead of
		// collapsing every id-less article onto "0".
		id := ""
		if item.ID != 0 {
			id = strconv.FormatInt(item.ID, 10)
		}
		articles = append(articles, domain.Article{
			ID:          id,
			Title:       item.Headline,
			Description: flattenHTML(item.Summary),
			URL:         item.URL,
			PublishedAt: time.Unix(item.Datetime, 0).UTC(),
			SourceName:  item.Source,
			Tickers:     []string{symbol},
			Tags:        tags,
		})
	}
	return articles, nil
}
