// Copyright 2025 Planet Labs PBC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads project settings from YAML with built-in defaults.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Config holds project settings.  A missing or partial file falls back to
// the embedded defaults key by key.
type Config struct {
	Paths struct {
		DataRoot  string `yaml:"data_root"`
		Raw       string `yaml:"raw"`
		Processed string `yaml:"processed"`
	} `yaml:"paths"`
	Fields struct {
		Count        int      `yaml:"count"`
		Regions      []string `yaml:"regions"`
		Crops        []string `yaml:"crops"`
		OutputFormat string   `yaml:"output_format"`
	} `yaml:"fields"`
	Source struct {
		URL        string  `yaml:"url"`
		Oversample float64 `yaml:"oversample"`
	} `yaml:"source"`

	raw map[string]any
}

// Default returns the embedded default configuration.
func Default() *Config {
	config := &Config{}
	// The embedded defaults are checked by tests and must parse.
	if err := unmarshal(defaultYAML, config); err != nil {
		panic(fmt.Sprintf("invalid embedded defaults: %v", err))
	}
	return config
}

// Load reads the configuration at path, overlaying the embedded defaults.
// An empty path returns the defaults; a missing file is an error.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %q: %w", path, err)
	}
	config := Default()
	if err := unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %q: %w", path, err)
	}
	return config, nil
}

func unmarshal(data []byte, config *Config) error {
	if err := yaml.Unmarshal(data, config); err != nil {
		return err
	}
	overlay := map[string]any{}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return err
	}
	if config.raw == nil {
		config.raw = map[string]any{}
	}
	mergeMaps(config.raw, overlay)
	return nil
}

func mergeMaps(base map[string]any, overlay map[string]any) {
	for key, value := range overlay {
		if nested, ok := value.(map[string]any); ok {
			existing, ok := base[key].(map[string]any)
			if !ok {
				existing = map[string]any{}
				base[key] = existing
			}
			mergeMaps(existing, nested)
			continue
		}
		base[key] = value
	}
}

// Get looks up a dotted key such as "fields.count", returning fallback when
// the key is absent.
func (c *Config) Get(key string, fallback any) any {
	value := any(c.raw)
	for _, part := range strings.Split(key, ".") {
		section, ok := value.(map[string]any)
		if !ok {
			return fallback
		}
		value, ok = section[part]
		if !ok {
			return fallback
		}
	}
	return value
}

// DataRoot is the root directory for all project data.
func (c *Config) DataRoot() string {
	return c.Paths.DataRoot
}

// RawDataPath is the directory for data as acquired from sources.
func (c *Config) RawDataPath() string {
	return c.Paths.Raw
}

// ProcessedDataPath is the directory for derived data products.
func (c *Config) ProcessedDataPath() string {
	return c.Paths.Processed
}

// EnsureDirectories creates the configured data directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.DataRoot(), c.RawDataPath(), c.ProcessedDataPath()} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %q: %w", dir, err)
		}
	}
	return nil
}

// FieldBoundariesDir is the directory where field boundary extracts land.
func (c *Config) FieldBoundariesDir() string {
	return filepath.Join(c.RawDataPath(), "field_boundaries")
}
