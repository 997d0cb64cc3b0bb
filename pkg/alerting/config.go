package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tickerwire-hq/tickerwire-ingest/internal/logger"
)

const (
	// Supported alert sink types.
	TypeSNS = "sns"
	TypeLog = "log"
)

// configFile represents the structure of the alert sinks configuration file.
type configFile struct {
	Sinks []SinkConfig `json:"sinks" yaml:"sinks"`
}

// SinkConfig represents a single alert sink entry declared in config files.
type SinkConfig struct {
	ID      string         `json:"id" yaml:"id"`
	Type    string         `json:"type" yaml:"type"`
	Enabled *bool          `json:"enabled" yaml:"enabled"`
	SNS     *SNSSinkConfig `json:"sns" yaml:"sns"`
}

// SNSSinkConfig holds AWS SNS specific settings. Credentials fall back to the
// default AWS chain when the env key names are left empty.
type SNSSinkConfig struct {
	TopicARN     string `json:"topic_arn" yaml:"topic_arn"`
	Region       string `json:"region" yaml:"region"`
	AccessKeyEnv string `json:"access_key_env" yaml:"access_key_env"`
	SecretKeyEnv string `json:"secret_key_env" yaml:"secret_key_env"`
}

// EnabledValue returns the enabled flag defaulting to true.
func (cfg SinkConfig) EnabledValue() bool {
	if cfg.Enabled == nil {
		return true
	}
	return *cfg.Enabled
}

// LoadSinkConfigs loads the enabled alert sink entries from a YAML/JSON file.
func LoadSinkConfigs(path string) ([]SinkConfig, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("alerts file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open alerts file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read alerts file: %w", err)
	}

	parsed, err := parseSinkConfigs(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(parsed.Sinks) == 0 {
		return nil, errors.New("alerts file contains no sinks entries")
	}

	seen := make(map[string]struct{}, len(parsed.Sinks))
	out := make([]SinkConfig, 0, len(parsed.Sinks))
	for i := range parsed.Sinks {
		cfg := sanitizeSinkConfig(parsed.Sinks[i])
		if err := validateSinkConfig(cfg); err != nil {
			return nil, fmt.Errorf("sinks[%d]: %w", i, err)
		}
		if _, exists := seen[cfg.ID]; exists {
			return nil, fmt.Errorf("duplicate alert sink id %q", cfg.ID)
		}
		seen[cfg.ID] = struct{}{}
		if cfg.EnabledValue() {
			out = append(out, cfg)
		}
	}
	return out, nil
}

// parseSinkConfigs attempts to decode the alerts file content.
func parseSinkConfigs(data []byte, ext string) (configFile, error) {
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
		var parsed configFile
		if err := d.fn(data, &parsed); err == nil {
			return parsed, nil
		}
	}

	return configFile{}, errors.New("alerts file format not recognized (expected YAML or JSON)")
}

func sanitizeSinkConfig(cfg SinkConfig) SinkConfig {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))

	if cfg.SNS != nil {
		c := *cfg.SNS
		c.TopicARN = strings.TrimSpace(c.TopicARN)
		c.Region = strings.TrimSpace(c.Region)
		c.AccessKeyEnv = strings.TrimSpace(c.AccessKeyEnv)
		c.SecretKeyEnv = strings.TrimSpace(c.SecretKeyEnv)
		cfg.SNS = &c
	}
	return cfg
}

func validateSinkConfig(cfg SinkConfig) error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}
	switch cfg.Type {
	case TypeLog:
		return nil
	case TypeSNS:
		if cfg.SNS == nil {
			return fmt.Errorf("sns config required for alert sink %q", cfg.ID)
		}
		if cfg.SNS.TopicARN == "" {
			return fmt.Errorf("sns.topic_arn is required for alert sink %q", cfg.ID)
		}
		if cfg.SNS.Region == "" {
			return fmt.Errorf("sns.region is required for alert sink %q", cfg.ID)
		}
		return nil
	case "":
		return fmt.Errorf("type is required for alert sink %q", cfg.ID)
	default:
		return fmt.Errorf("unsupported alert sink type %q", cfg.Type)
	}
}

// BuildSinks instantiates the configured sinks.
func BuildSinks(ctx context.Context, cfgs []SinkConfig, log logger.Logger) ([]Sink, error) {
	sinks := make([]Sink, 0, len(cfgs))
	for _, cfg := range cfgs {
		switch cfg.Type {
		case TypeSNS:
			sink, err := newSNSSink(ctx, cfg, log)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, sink)
		case TypeLog:
			sinks = append(sinks, newLogSink(cfg, log))
		default:
			return nil, fmt.Errorf("no alert sink registered for type %q", cfg.Type)
		}
	}
	return sinks, nil
}
