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

package download_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/paulmach/orb"
	"github.com/planetlabs/cropfields/internal/config"
	"github.com/planetlabs/cropfields/internal/download"
	"github.com/planetlabs/cropfields/internal/extract"
	"github.com/planetlabs/cropfields/internal/fields"
	"github.com/planetlabs/cropfields/internal/filter"
	"github.com/planetlabs/cropfields/internal/geo"
	"github.com/planetlabs/cropfields/internal/geoparquet"
	"github.com/planetlabs/cropfields/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func requireSpatial(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping DuckDB integration test in short mode")
	}
	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Skipf("DuckDB not available: %v", err)
	}
	defer func() { _ = db.Close() }()
	if _, err := db.Exec("INSTALL spatial"); err != nil {
		t.Skipf("spatial extension not available: %v", err)
	}
}

func testDownloader(t *testing.T) (*download.FieldBoundaries, *config.Config) {
	t.Helper()

	source := filepath.Join(t.TempDir(), "fields.parquet")
	require.NoError(t, geoparquet.WriteFile(source, geoparquet.SampleFields(40, 1)))

	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataRoot = root
	cfg.Paths.Raw = filepath.Join(root, "raw")
	cfg.Paths.Processed = filepath.Join(root, "processed")

	mapping := extract.FiboaMapping()
	mapping.SourceEPSG = geo.GeographicEPSG
	engine := extract.NewEngine(source,
		extract.WithMapping(mapping),
		extract.WithLogger(discard))

	downloader := download.NewFieldBoundaries(cfg,
		download.WithEngine(engine),
		download.WithLogger(discard))
	t.Cleanup(func() { _ = downloader.Close() })
	return downloader, cfg
}

func TestDownloadGeoJSON(t *testing.T) {
	requireSpatial(t)

	downloader, cfg := testDownloader(t)

	collection, err := downloader.Download(context.Background(), &download.Request{
		Criteria: filter.Criteria{Count: 5, Regions: []string{"corn_belt"}, Crops: []string{"corn", "soybeans"}},
	})
	require.NoError(t, err)
	require.Equal(t, 5, collection.Len())

	path := filepath.Join(cfg.FieldBoundariesDir(), "fields.geojson")
	require.FileExists(t, path)

	loaded, err := vector.LoadGeoJSON(path)
	require.NoError(t, err)
	assert.Equal(t, 5, loaded.Len())
	assert.True(t, loaded.Validate(discard))
}

func TestDownloadShapefile(t *testing.T) {
	requireSpatial(t)

	downloader, cfg := testDownloader(t)

	collection, err := downloader.Download(context.Background(), &download.Request{
		Criteria:     filter.Criteria{Count: 3, Regions: []string{"corn_belt"}},
		OutputFormat: "shapefile",
	})
	require.NoError(t, err)
	require.Equal(t, 3, collection.Len())

	dir := cfg.FieldBoundariesDir()
	assert.FileExists(t, filepath.Join(dir, "fields.shp"))
	assert.FileExists(t, filepath.Join(dir, "fields.dbf"))
	assert.FileExists(t, filepath.Join(dir, "fields.prj"))
}

func TestDownloadInvalidFormat(t *testing.T) {
	requireSpatial(t)

	downloader, cfg := testDownloader(t)

	_, err := downloader.Download(context.Background(), &download.Request{
		Criteria:     filter.Criteria{Count: 3},
		OutputFormat: "gpkg",
	})
	assert.ErrorIs(t, err, vector.ErrUnsupportedFormat)
	assert.NoDirExists(t, cfg.FieldBoundariesDir())
}

func TestDownloadInvalidFilter(t *testing.T) {
	requireSpatial(t)

	downloader, _ := testDownloader(t)

	_, err := downloader.Download(context.Background(), &download.Request{
		Criteria: filter.Criteria{Count: 3, Regions: []string{"atlantis"}},
	})
	assert.ErrorIs(t, err, filter.ErrInvalidRegion)
}

func TestDownloadNoMatchingData(t *testing.T) {
	requireSpatial(t)

	downloader, cfg := testDownloader(t)

	min := 50000.0
	_, err := downloader.Download(context.Background(), &download.Request{
		Criteria: filter.Criteria{Count: 3, Regions: []string{"corn_belt"}, MinAcres: &min},
	})
	assert.ErrorIs(t, err, extract.ErrNoMatchingData)
	assert.NoDirExists(t, cfg.FieldBoundariesDir())
}

func TestValidate(t *testing.T) {
	downloader := download.NewFieldBoundaries(config.Default(), download.WithLogger(discard))
	t.Cleanup(func() { _ = downloader.Close() })

	valid := fields.NewCollection([]*fields.Record{{
		ID:     "171234567",
		Region: "corn_belt",
		Geometry: orb.Polygon{{
			{-89.2, 40.0}, {-89.19, 40.0}, {-89.19, 40.01}, {-89.2, 40.01}, {-89.2, 40.0},
		}},
	}})
	assert.True(t, downloader.Validate(valid))
	assert.False(t, downloader.Validate(fields.NewCollection(nil)))
}
