package app

import (
	"testing"
	"time"

	"github.com/tickerwire-hq/tickerwire-ingest/internal/dedup"
	"github.com/tickerwire-hq/tickerwire-ingest/internal/domain"
)

func TestDedupKeyPrefersProviderID(t *testing.T) {
	article := domain.Article{
		ID:          "42",
		Title:       "Apple beats estimates",
		PublishedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	if got, want := dedupKey(article, "finnhub"), dedup.KeyFromID("42", "finnhub"); got != want {
		t.Fatalf("dedupKey = %s, want id-based %s", got, want)
	}
}

func TestDedupKeyFallsBackToHeadline(t *testing.T) {
	published := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	article := domain.Article{
		Title:       "Apple beats estimates",
		PublishedAt: published,
	}

	if got, want := dedupKey(article, "finnhub"), dedup.Key("Apple beats estimates", "finnhub", published); got != want {
		t.Fatalf("dedupKey = %s, want headline-based %s", got, want)
	}
}

func TestDedupKeyDistinguishesIDLessArticles(t *testing.T) {
	published := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	first := domain.Article{Title: "first story", PublishedAt: published}
	second := domain.Article{Title: "second story", PublishedAt: published}

	if dedupKey(first, "finnhub") == dedupKey(second, "finnhub") {
		t.Fatalf("distinct articles without provider ids must not share a dedup key")
	}
}
