package sources

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Package sources contains the provider configuration registry and the
// concrete news adapters (tiingo, finnhub).

// SourceConfig describes one configured news provider.
type SourceConfig struct {
	ID             string         `json:"id" yaml:"id"`
	Name           string         `json:"name" yaml:"name"`
	Type           string         `json:"type" yaml:"type"`
	BaseURL        string         `json:"base_url" yaml:"base_url"`
	TokenEnv       string         `json:"token_env" yaml:"token_env"`
	RequestDelayMs int            `json:"request_delay_ms" yaml:"request_delay_ms"`
	Config         map[string]any `json:"config" yaml:"config"`
}

type registryFile struct {
	Sources []SourceConfig `json:"sources" yaml:"sources"`
}

// Registry holds the loaded source configurations.
type Registry struct {
	sources []SourceConfig
	idx     map[string]SourceConfig
}

// LoadRegistry loads the source registry from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sources file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sources file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	parsed, err := parseRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(parsed.Sources) == 0 {
		return nil, errors.New("sources file contains no sources entries")
	}

	reg := &Registry{
		sources: make([]SourceConfig, len(parsed.Sources)),
		idx:     make(map[string]SourceConfig, len(parsed.Sources)),
	}
	for i := range parsed.Sources {
		cfg := sanitizeSource(parsed.Sources[i])
		if err := validateSource(cfg); err != nil {
			return nil, fmt.Errorf("sources[%d]: %w", i, err)
		}
		if _, exists := reg.idx[cfg.ID]; exists {
			return nil, fmt.Errorf("duplicate source id %q", cfg.ID)
		}
		reg.sources[i] = cfg
		reg.idx[cfg.ID] = cfg
	}
	return reg, nil
}

// All returns a copy of the configured sources.
func (r *Registry) All() []SourceConfig {
	if r == nil {
		return nil
	}
	out := make([]SourceConfig, len(r.sources))
	copy(out, r.sources)
	return out
}

// ByID returns the source entry for the given id, if loaded.
func (r *Registry) ByID(id string) (SourceConfig, bool) {
	if r == nil {
		return SourceConfig{}, false
	}
	cfg, ok := r.idx[strings.TrimSpace(id)]
	return cfg, ok
}

func parseRegistry(data []byte, ext string) (registryFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var parsed registryFile
		if err := d.fn(data, &parsed); err == nil {
			return parsed, nil
		}
	}

	return registryFile{}, errors.New("sources file format not recognized (expected YAML or JSON)")
}

const defaultRequestDelayMs = 500

func sanitizeSource(cfg SourceConfig) SourceConfig {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.TokenEnv = strings.TrimSpace(cfg.TokenEnv)

	if cfg.Config == nil {
		cfg.Config = map[string]any{}
	}
	if cfg.RequestDelayMs <= 0 {
		cfg.RequestDelayMs = defaultRequestDelayMs
	}
	return cfg
}

func validateSource(cfg SourceConfig) error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}
	if cfg.Name == "" {
		return fmt.Errorf("name is required for source %q", cfg.ID)
	}
	if cfg.Type == "" {
		return fmt.Errorf("type is required for source %q", cfg.ID)
	}
	if cfg.BaseURL == "" {
		return fmt.Errorf("base_url is required for source %q", cfg.ID)
	}
	return nil
}

// RequestDelay returns the per-request throttle duration for the source.
func (cfg SourceConfig) RequestDelay() time.Duration {
	if cfg.RequestDelayMs <= 0 {
		return time.Duration(defaultRequestDelayMs) * time.Millisecond
	}
	return time.Duration(cfg.RequestDelayMs) * time.Millisecond
}

// Token resolves the provider API token from the configured env var.
func (cfg SourceConfig) Token() string {
	if cfg.TokenEnv == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(cfg.TokenEnv))
}
