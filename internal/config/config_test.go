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

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/planetlabs/cropfields/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := config.Default()
	assert.Equal(t, "data", c.DataRoot())
	assert.Equal(t, filepath.Join("data", "raw"), filepath.FromSlash(c.RawDataPath()))
	assert.Equal(t, 200, c.Fields.Count)
	assert.Equal(t, []string{"corn_belt"}, c.Fields.Regions)
	assert.Equal(t, []string{"corn", "soybeans"}, c.Fields.Crops)
	assert.Equal(t, "geojson", c.Fields.OutputFormat)
	assert.Equal(t, 2.0, c.Source.Oversample)
	assert.Contains(t, c.Source.URL, "us_usda_cropland.parquet")
}

func TestLoadEmptyPath(t *testing.T) {
	c, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 200, c.Fields.Count)
}

func TestLoadOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
fields:
  count: 25
  regions:
    - southeast
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	c, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25, c.Fields.Count)
	assert.Equal(t, []string{"southeast"}, c.Fields.Regions)
	// untouched keys keep their defaults
	assert.Equal(t, "geojson", c.Fields.OutputFormat)
	assert.Equal(t, "data", c.DataRoot())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fields: [not: a: mapping"), 0644))
	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestGet(t *testing.T) {
	c := config.Default()
	assert.Equal(t, 200, c.Get("fields.count", 0))
	assert.Equal(t, "geojson", c.Get("fields.output_format", ""))
	assert.Equal(t, "fallback", c.Get("fields.nope", "fallback"))
	assert.Equal(t, "fallback", c.Get("nope.nope", "fallback"))
	assert.Equal(t, "fallback", c.Get("fields.count.nope", "fallback"))
}

func TestEnsureDirectories(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "config.yaml")
	content := `
paths:
  data_root: ` + filepath.ToSlash(filepath.Join(root, "data")) + `
  raw: ` + filepath.ToSlash(filepath.Join(root, "data/raw")) + `
  processed: ` + filepath.ToSlash(filepath.Join(root, "data/processed")) + `
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	c, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, c.EnsureDirectories())
	assert.DirExists(t, filepath.Join(root, "data", "raw"))
	assert.DirExists(t, filepath.Join(root, "data", "processed"))
}
