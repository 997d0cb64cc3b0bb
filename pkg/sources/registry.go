package sources

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tickerwire-hq/tickerwire-ingest/pkg/httpclient"
)

// adapterRegistry implements AdapterRegistry with type-keyed adapters.
type adapterRegistry struct {
	mu             sync.RWMutex
	adaptersByType map[string]Adapter
}

// NewAdapterRegistry builds a registry from type-keyed adapter implementations.
func NewAdapterRegistry(adapters map[string]Adapter) AdapterRegistry {
	reg := &adapterRegistry{adaptersByType: make(map[string]Adapter)}
	for typ, a := range adapters {
		reg.register(typ, a)
	}
	return reg
}

func (r *adapterRegistry) register(typ string, a Adapter) {
	if a == nil {
		return
	}
	key := strings.ToLower(strings.TrimSpace(typ))
	if key == "" {
		return
	}

	r.mu.Lock()
	r.adaptersByType[key] = a
	r.mu.Unlock()
}

// AdapterFor selects the adapter for the given source based on its type.
func (r *adapterRegistry) AdapterFor(cfg SourceConfig) (Adapter, error) {
	if r == nil {
		return nil, fmt.Errorf("adapter registry is nil")
	}
	if strings.TrimSpace(cfg.ID) == "" {
		return nil, fmt.Errorf("source id is empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	typeKey := strings.ToLower(strings.TrimSpace(cfg.Type))
	if a, ok := r.adaptersByType[typeKey]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("no adapter registered for source %q (type %q)", cfg.ID, cfg.Type)
}

// DefaultHTTPClient returns a tuned http.Client for source adapters.
func DefaultHTTPClient() HTTPClient { return httpclient.NewRestyClient(15 * time.Second) }

const (
	TypeTiingo  = "tiingo"
	TypeFinnhub = "finnhub"
)

// DefaultAdapterRegistry wires up the known provider adapters for the given
// source configs.
func DefaultAdapterRegistry(client HTTPClient, cfgs []SourceConfig) AdapterRegistry {
	if client == nil {
		client = DefaultHTTPClient()
	}

	adapters := make(map[string]Adapter, len(cfgs))
	for _, cfg := range cfgs {
		switch strings.ToLower(cfg.Type) {
		case TypeTiingo:
			adapters[TypeTiingo] = NewTiingoAdapter(client, cfg)
		case TypeFinnhub:
			adapters[TypeFinnhub] = NewFinnhubAdapter(client, cfg)
		}
	}
	return NewAdapterRegistry(adapters)
}
