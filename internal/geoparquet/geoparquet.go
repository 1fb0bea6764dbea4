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

// Package geoparquet writes small GeoParquet files shaped like the fiboa
// revision of the remote dataset.  These serve as local fixtures for tests
// and offline development, so the extraction engine can be exercised without
// hitting the live endpoint.
package geoparquet

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow/go/v16/arrow"
	"github.com/apache/arrow/go/v16/arrow/array"
	"github.com/apache/arrow/go/v16/arrow/memory"
	"github.com/apache/arrow/go/v16/parquet"
	"github.com/apache/arrow/go/v16/parquet/compress"
	"github.com/apache/arrow/go/v16/parquet/pqarrow"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
)

// MetadataKey is the file metadata key used for GeoParquet metadata.
const MetadataKey = "geo"

// Version is the GeoParquet specification version written to fixtures.
const Version = "1.1.0"

// Metadata is the GeoParquet file metadata.
type Metadata struct {
	Version       string                     `json:"version"`
	PrimaryColumn string                     `json:"primary_column"`
	Columns       map[string]*GeometryColumn `json:"columns"`
}

// GeometryColumn describes a geometry column.  A nil CRS means OGC:CRS84.
type GeometryColumn struct {
	Encoding      string    `json:"encoding"`
	GeometryTypes []string  `json:"geometry_types"`
	Bounds        []float64 `json:"bbox,omitempty"`
}

// Field is one fixture row in the fiboa column layout.
type Field struct {
	ID          string
	CropCode    string
	CropName    string
	CropHistory string
	County      string
	Geometry    orb.Geometry
}

var schema = arrow.NewSchema([]arrow.Field{
	{Name: "id", Type: arrow.BinaryTypes.String},
	{Name: "crop:code", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "crop:name", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "crop:code_list", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "administrative_area_level_2", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "geometry", Type: arrow.BinaryTypes.Binary},
}, nil)

func appendString(builder array.Builder, value string) {
	stringBuilder := builder.(*array.StringBuilder)
	if value == "" {
		stringBuilder.AppendNull()
		return
	}
	stringBuilder.Append(value)
}

// Write encodes rows as a GeoParquet file with WKB geometries in geographic
// coordinates and the geo file metadata set.
func Write(output io.Writer, rows []Field) error {
	builder := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer builder.Release()

	var bounds *orb.Bound
	geometryTypes := map[string]bool{}

	for _, row := range rows {
		if row.Geometry == nil {
			return fmt.Errorf("missing geometry for %q", row.ID)
		}
		data, err := wkb.Marshal(row.Geometry)
		if err != nil {
			return fmt.Errorf("failed to encode geometry for %q: %w", row.ID, err)
		}
		builder.Field(0).(*array.StringBuilder).Append(row.ID)
		appendString(builder.Field(1), row.CropCode)
		appendString(builder.Field(2), row.CropName)
		appendString(builder.Field(3), row.CropHistory)
		appendString(builder.Field(4), row.County)
		builder.Field(5).(*array.BinaryBuilder).Append(data)

		b := row.Geometry.Bound()
		if bounds == nil {
			bounds = &b
		} else {
			union := bounds.Union(b)
			bounds = &union
		}
		geometryTypes[row.Geometry.GeoJSONType()] = true
	}

	record := builder.NewRecord()
	defer record.Release()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Zstd))
	fileWriter, err := pqarrow.NewFileWriter(schema, output, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return err
	}
	if err := fileWriter.WriteBuffered(record); err != nil {
		return err
	}

	geometryColumn := &GeometryColumn{
		Encoding:      "WKB",
		GeometryTypes: []string{},
	}
	for geometryType := range geometryTypes {
		geometryColumn.GeometryTypes = append(geometryColumn.GeometryTypes, geometryType)
	}
	if bounds != nil {
		geometryColumn.Bounds = []float64{bounds.Left(), bounds.Bottom(), bounds.Right(), bounds.Top()}
	}
	metadata := &Metadata{
		Version:       Version,
		PrimaryColumn: "geometry",
		Columns:       map[string]*GeometryColumn{"geometry": geometryColumn},
	}
	encoded, jsonErr := json.Marshal(metadata)
	if jsonErr != nil {
		return fmt.Errorf("failed to serialize geo metadata: %w", jsonErr)
	}
	if err := fileWriter.AppendKeyValueMetadata(MetadataKey, string(encoded)); err != nil {
		return fmt.Errorf("failed to append geo metadata: %w", err)
	}
	return fileWriter.Close()
}

// WriteFile writes rows to a GeoParquet file at path.
func WriteFile(path string, rows []Field) error {
	output, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(output, rows); err != nil {
		_ = output.Close()
		return err
	}
	return output.Close()
}
