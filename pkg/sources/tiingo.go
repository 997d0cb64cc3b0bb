package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tickerwire-hq/tickerwire-ingest/internal/domain"
)

// tiingoAdapter implements Adapter for the Tiingo news API.
type tiingoAdapter struct {
	client HTTPClient
	cfg    SourceConfig
}

// NewTiingoAdapter builds the tiingo news adapter.
func NewTiingoAdapter(client HTTPClient, cfg SourceConfig) Adapter {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &tiingoAdapter{client: client, cfg: cfg}
}

func (a *tiingoAdapter) ID() string { return a.cfg.ID }

// tiingoArticle is the wire shape of one Tiingo news record.
type tiingoArticle struct {
	ID            json.Number `json:"id"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	URL           string      `json:"url"`
	PublishedDate time.Time   `json:"publishedDate"`
	Source        string      `json:"source"`
	Tickers       []string    `json:"tickers"`
	Tags          []string    `json:"tags"`
}

// GetNews fetches articles for the tickers within [start, end], capped at limit.
func (a *tiingoAdapter) GetNews(ctx context.Context, tickers []string, start, end time.Time, limit int) ([]domain.Article, error) {
	token := a.cfg.Token()
	if token == "" {
		return nil, fmt.Errorf("tiingo token missing (env %q)", a.cfg.TokenEnv)
	}

	query := url.Values{}
	query.Set("tickers", strings.Join(normalizeTickers(tickers), ","))
	query.Set("startDate", start.Format("2006-01-02"))
	query.Set("endDate", end.Format("2006-01-02"))
	query.Set("limit", fmt.Sprintf("%d", limit))
	query.Set("token", token)

	resp, err := a.client.Get(ctx, a.cfg.BaseURL+"/tiingo/news", query, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch tiingo news: %w", err)
	}

	body := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("tiingo news returned status %d body: %s", resp.StatusCode(), responseSnippet(body))
	}

	var raw []tiingoArticle
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode tiingo news: %w", err)
	}

	articles := make([]domain.Article, 0, len(raw))
	for _, item := range raw {
		if item.Title == "" {
			continue
		}
		articles = append(articles, domain.Article{
			ID:          item.ID.String(),
			Title:       item.Title,
			Description: flattenHTML(item.Description),
			URL:         item.URL,
			PublishedAt: item.PublishedDate,
			SourceName:  item.Source,
			Tickers:     normalizeTickers(item.Tickers),
			Tags:        item.Tags,
		})
		if limit > 0 && len(articles) >= limit {
			break
		}
	}
	return articles, nil
}
