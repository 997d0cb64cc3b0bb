package sources

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSourcesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write sources file: %v", err)
	}
	return path
}

func TestLoadRegistryYAML(t *testing.T) {
	path := writeSourcesFile(t, `
sources:
  - id: tiingo
    name: Tiingo News
    type: tiingo
    base_url: https://api.tiingo.com/
    token_env: TIINGO_API_TOKEN
  - id: finnhub
    name: Finnhub Company News
    type: finnhub
    base_url: https://finnhub.io
    token_env: FINNHUB_API_TOKEN
    request_delay_ms: 250
`)

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}

	all := reg.All()
	if len(all) != 2 {
		t.Fatalf("sources = %d, want 2", len(all))
	}
	// Trailing slash is trimmed during sanitization.
	if all[0].BaseURL != "https://api.tiingo.com" {
		t.Fatalf("BaseURL = %q", all[0].BaseURL)
	}
	if all[0].RequestDelayMs != defaultRequestDelayMs {
		t.Fatalf("RequestDelayMs should default, got %d", all[0].RequestDelayMs)
	}

	cfg, ok := reg.ByID("finnhub")
	if !ok || cfg.RequestDelayMs != 250 {
		t.Fatalf("ByID(finnhub) = %+v ok=%v", cfg, ok)
	}
}

func TestLoadRegistryRejectsInvalid(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"empty", "sources: []\n"},
		{"missing id", "sources:\n  - name: x\n    type: tiingo\n    base_url: https://x\n"},
		{"missing type", "sources:\n  - id: a\n    name: x\n    base_url: https://x\n"},
		{"missing base_url", "sources:\n  - id: a\n    name: x\n    type: tiingo\n"},
		{"duplicate ids", "sources:\n  - {id: a, name: x, type: tiingo, base_url: 'https://x'}\n  - {id: a, name: y, type: finnhub, base_url: 'https://y'}\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeSourcesFile(t, tc.content)
			if _, err := LoadRegistry(path); err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
		})
	}
}

func TestDefaultAdapterRegistryResolvesByType(t *testing.T) {
	cfgs := []SourceConfig{
		{ID: "tiingo", Name: "Tiingo", Type: TypeTiingo, BaseURL: "https://api.tiingo.com"},
		{ID: "finnhub", Name: "Finnhub", Type: TypeFinnhub, BaseURL: "https://finnhub.io"},
	}
	reg := DefaultAdapterRegistry(&fakeHTTPClient{}, cfgs)

	for _, cfg := range cfgs {
		adapter, err := reg.AdapterFor(cfg)
		if err != nil {
			t.Fatalf("AdapterFor(%s): %v", cfg.ID, err)
		}
		if adapter.ID() != cfg.ID {
			t.Fatalf("adapter ID = %q, want %q", adapter.ID(), cfg.ID)
		}
	}

	if _, err := reg.AdapterFor(SourceConfig{ID: "rss", Type: "rss"}); err == nil {
		t.Fatalf("expected error for unregistered type")
	}
}

func TestFlattenHTML(t *testing.T) {
	got := flattenHTML("<p>Apple <b>beats</b> estimates.</p>")
	if got != "Apple beats estimates." {
		t.Fatalf("flattenHTML = %q", got)
	}
	if got := flattenHTML("plain text"); got != "plain text" {
		t.Fatalf("plain text should pass through, got %q", got)
	}
}
