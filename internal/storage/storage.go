package storage

import (
	"fmt"
	"strings"
	"time"
)

// Package storage provides the durable seen-key store the ingest pipeline
// deduplicates against.

// Store tracks dedup keys of articles that have already been persisted.
type Store interface {
	Close() error
	Seen(key string) (bool, error)
	Mark(key string) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	KeyTTL          time.Duration
	CleanupInterval time.Duration
}

const (
	defaultKeyTTL          = 5 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.KeyTTL <= 0 {
		opts.KeyTTL = defaultKeyTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

// noopStore never remembers anything; every article looks new.
type noopStore struct{}

func (noopStore) Close() error              { return nil }
func (noopStore) Seen(string) (bool, error) { return false, nil }
func (noopStore) Mark(string) error         { return nil }
