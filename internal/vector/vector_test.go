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

package vector_test

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/planetlabs/cropfields/internal/fields"
	"github.com/planetlabs/cropfields/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCollection() *fields.Collection {
	return fields.NewCollection([]*fields.Record{
		{
			ID:          "171234567",
			Region:      "corn_belt",
			StateFIPS:   "17",
			AreaAcres:   120.5,
			CropCode:    "1",
			CropName:    "Corn",
			CropHistory: "1,5,1,5",
			Geometry: orb.Polygon{{
				{-89.2, 40.0}, {-89.19, 40.0}, {-89.19, 40.01}, {-89.2, 40.01}, {-89.2, 40.0},
			}},
		},
		{
			ID:        "191234567",
			Region:    "corn_belt",
			StateFIPS: "19",
			AreaAcres: 80.0,
			CropCode:  "5",
			CropName:  "Soybeans",
			Geometry: orb.MultiPolygon{
				{{{-93.5, 42.0}, {-93.49, 42.0}, {-93.49, 42.01}, {-93.5, 42.01}, {-93.5, 42.0}}},
			},
		},
	})
}

func TestParseFormat(t *testing.T) {
	cases := []struct {
		name     string
		expected vector.Format
		err      bool
	}{
		{"geojson", vector.FormatGeoJSON, false},
		{"GeoJSON", vector.FormatGeoJSON, false},
		{"", vector.FormatGeoJSON, false},
		{"shapefile", vector.FormatShapefile, false},
		{"gpkg", "", true},
	}
	for _, c := range cases {
		format, err := vector.ParseFormat(c.name)
		if c.err {
			assert.ErrorIs(t, err, vector.ErrUnsupportedFormat, c.name)
			continue
		}
		require.NoError(t, err, c.name)
		assert.Equal(t, c.expected, format, c.name)
	}
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "fields.geojson", vector.FormatGeoJSON.Filename())
	assert.Equal(t, "fields.shp", vector.FormatShapefile.Filename())
}

func TestWriteGeoJSON(t *testing.T) {
	buffer := &bytes.Buffer{}
	require.NoError(t, vector.WriteGeoJSON(buffer, testCollection()))

	parsed := map[string]any{}
	require.NoError(t, json.Unmarshal(buffer.Bytes(), &parsed))
	assert.Equal(t, "FeatureCollection", parsed["type"])

	features, ok := parsed["features"].([]any)
	require.True(t, ok)
	require.Len(t, features, 2)

	first, ok := features[0].(map[string]any)
	require.True(t, ok)
	properties, ok := first["properties"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "171234567", properties["field_id"])
	assert.Equal(t, "corn_belt", properties["region"])
	assert.Equal(t, "17", properties["state_fips"])
	assert.Equal(t, 120.5, properties["area_acres"])
	assert.Equal(t, "1,5,1,5", properties["crop_code_list"])
	assert.NotContains(t, properties, "geometry")

	geometry, ok := first["geometry"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Polygon", geometry["type"])
}

func TestWriteGeoJSONEmpty(t *testing.T) {
	buffer := &bytes.Buffer{}
	require.NoError(t, vector.WriteGeoJSON(buffer, fields.NewCollection(nil)))
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, buffer.String())
}

func TestGeoJSONRoundTrip(t *testing.T) {
	collection := testCollection()
	path := filepath.Join(t.TempDir(), "fields.geojson")
	require.NoError(t, vector.Save(collection, vector.FormatGeoJSON, path))

	loaded, err := vector.LoadGeoJSON(path)
	require.NoError(t, err)
	require.Equal(t, collection.Len(), loaded.Len())
	assert.Equal(t, fields.CRS84, loaded.CRS)
	for _, column := range fields.RequiredColumns {
		assert.True(t, loaded.HasColumn(column), column)
	}

	for i, record := range loaded.Records {
		original := collection.Records[i]
		assert.Equal(t, original.ID, record.ID)
		assert.Equal(t, original.Region, record.Region)
		assert.Equal(t, original.StateFIPS, record.StateFIPS)
		assert.InDelta(t, original.AreaAcres, record.AreaAcres, 1e-9)
		assert.Equal(t, original.Geometry.GeoJSONType(), record.Geometry.GeoJSONType())
	}
}

func TestSaveShapefile(t *testing.T) {
	collection := testCollection()
	path := filepath.Join(t.TempDir(), "fields.shp")
	require.NoError(t, vector.Save(collection, vector.FormatShapefile, path))

	assert.FileExists(t, filepath.Join(filepath.Dir(path), "fields.prj"))

	reader, err := shp.Open(path)
	require.NoError(t, err)
	defer reader.Close()

	dbfFields := reader.Fields()
	names := make([]string, len(dbfFields))
	for i, field := range dbfFields {
		names[i] = field.String()
	}
	assert.Contains(t, names, "FIELD_ID")
	assert.Contains(t, names, "AREA_AC")
	assert.Contains(t, names, "CROP_HIST")

	count := 0
	for reader.Next() {
		row, shape := reader.Shape()
		polygon, ok := shape.(*shp.Polygon)
		require.True(t, ok)
		assert.NotEmpty(t, polygon.Points)
		assert.Equal(t, collection.Records[row].ID, reader.ReadAttribute(row, 0))
		count++
	}
	require.NoError(t, reader.Err())
	assert.Equal(t, collection.Len(), count)
}

func TestSaveUnsupportedFormat(t *testing.T) {
	err := vector.Save(testCollection(), vector.Format("gpkg"), filepath.Join(t.TempDir(), "fields.gpkg"))
	assert.ErrorIs(t, err, vector.ErrUnsupportedFormat)
}
