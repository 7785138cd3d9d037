// Package config loads shelfscan settings from an optional YAML file with
// environment variable overrides on top.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const defaultHistoryLimit = 50

// Config holds every runtime setting for the scanner.
type Config struct {
	Catalog CatalogConfig `yaml:"catalog"`
	Camera  CameraConfig  `yaml:"camera"`
	Decode  DecodeConfig  `yaml:"decode"`
	Rescue  RescueConfig  `yaml:"rescue"`
	History HistoryConfig `yaml:"history"`
}

// CatalogConfig points at the catalog backend that answers lookups.
type CatalogConfig struct {
	BaseURL string `yaml:"base_url"`
}

// CameraConfig names the MJPEG stream to scan from.
type CameraConfig struct {
	StreamURL string `yaml:"stream_url"`
}

// DecodeConfig selects decode backends. Native decoding is on unless
// explicitly disabled; the sidecar is only used when a URL is set.
type DecodeConfig struct {
	Native     *bool  `yaml:"native"`
	SidecarURL string `yaml:"sidecar_url"`
}

// RescueConfig selects an optional OCR provider for frames where no barcode
// decodes. An empty provider disables rescue.
type RescueConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// HistoryConfig bounds the in-memory resolution history.
type HistoryConfig struct {
	Limit int `yaml:"limit"`
}

// NativeEnabled reports whether the in-process decoder should run.
func (d DecodeConfig) NativeEnabled() bool {
	return d.Native == nil || *d.Native
}

// Load reads the YAML file at path when it exists, then applies environment
// overrides. An empty path skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := &Config{
		History: HistoryConfig{Limit: defaultHistoryLimit},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if cfg.History.Limit <= 0 {
		cfg.History.Limit = defaultHistoryLimit
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SHELFSCAN_CATALOG_URL"); v != "" {
		c.Catalog.BaseURL = v
	}
	if v := os.Getenv("SHELFSCAN_CAMERA_URL"); v != "" {
		c.Camera.StreamURL = v
	}
	if v := os.Getenv("SHELFSCAN_SIDECAR_URL"); v != "" {
		c.Decode.SidecarURL = v
	}
	if v := os.Getenv("SHELFSCAN_NATIVE_DECODE"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SHELFSCAN_NATIVE_DECODE value %q: %w", v, err)
		}
		c.Decode.Native = &enabled
	}
	if v := os.Getenv("SHELFSCAN_RESCUE_PROVIDER"); v != "" {
		c.Rescue.Provider = v
	}
	if v := os.Getenv("SHELFSCAN_RESCUE_MODEL"); v != "" {
		c.Rescue.Model = v
	}
	if v := os.Getenv("SHELFSCAN_HISTORY_LIMIT"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SHELFSCAN_HISTORY_LIMIT value %q: %w", v, err)
		}
		c.History.Limit = limit
	}
	return nil
}
