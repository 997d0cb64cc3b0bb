package domain

import "time"

// Domain contains core models shared across the ingest pipeline.

// Article is a single news item as returned by a provider adapter.
type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
	SourceName  string    `json:"source_name"`
	Tickers     []string  `json:"tickers"`
	Tags        []string  `json:"tags"`
}

// FetchTask describes one provider fetch within an ingestion run.
// Tasks are created per run, consumed once, and never mutated.
type FetchTask struct {
	Source    string
	Tickers   []string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}

// FetchResult is the outcome of a single provider fetch. It is owned by the
// orchestrator until the run completes.
type FetchResult struct {
	Source   string
	Articles []Article
	Success  bool
	Latency  time.Duration
	Err      error
}

// SourceError records a contained per-source fetch failure.
type SourceError struct {
	Source    string    `json:"source"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
