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

package vector

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	orbjson "github.com/paulmach/orb/geojson"
	"github.com/planetlabs/cropfields/internal/fields"
	"github.com/planetlabs/cropfields/internal/geo"
)

var (
	featureCollectionPrefix = []byte(`{"type":"FeatureCollection","features":[`)
	arraySeparator          = []byte(",")
	featureCollectionSuffix = []byte("]}")
)

// FeatureWriter streams records to a GeoJSON FeatureCollection without
// buffering the whole collection.  Call Close to terminate the collection.
type FeatureWriter struct {
	writer  io.Writer
	columns []string
	writing bool
}

// NewFeatureWriter returns a writer producing features with the given
// property columns.  The geometry column is never written as a property.
func NewFeatureWriter(writer io.Writer, columns []string) *FeatureWriter {
	return &FeatureWriter{writer: writer, columns: columns}
}

func (w *FeatureWriter) Write(record *fields.Record) error {
	if !w.writing {
		if _, err := w.writer.Write(featureCollectionPrefix); err != nil {
			return err
		}
		w.writing = true
	} else {
		if _, err := w.writer.Write(arraySeparator); err != nil {
			return err
		}
	}

	properties := map[string]any{}
	for _, column := range w.columns {
		switch column {
		case fields.ColumnFieldID:
			properties[column] = record.ID
		case fields.ColumnRegion:
			properties[column] = record.Region
		case fields.ColumnStateFIPS:
			properties[column] = record.StateFIPS
		case fields.ColumnAreaAcres:
			properties[column] = record.AreaAcres
		case fields.ColumnCropCode:
			properties[column] = record.CropCode
		case fields.ColumnCropName:
			properties[column] = record.CropName
		case fields.ColumnCropCodeList:
			properties[column] = record.CropHistory
		case fields.ColumnGeometry:
			// written as the feature geometry, not a property
		}
	}

	feature := map[string]any{
		"type":       "Feature",
		"properties": properties,
		"geometry":   geo.NewJSONGeometry(record.Geometry),
	}
	data, err := json.Marshal(feature)
	if err != nil {
		return fmt.Errorf("failed to encode feature %q: %w", record.ID, err)
	}
	_, err = w.writer.Write(data)
	return err
}

// Close terminates the feature collection.  A collection with no features is
// still written out complete.
func (w *FeatureWriter) Close() error {
	if !w.writing {
		if _, err := w.writer.Write(featureCollectionPrefix); err != nil {
			return err
		}
		w.writing = true
	}
	_, err := w.writer.Write(featureCollectionSuffix)
	return err
}

// WriteGeoJSON streams the collection to output as a FeatureCollection.
func WriteGeoJSON(output io.Writer, collection *fields.Collection) error {
	writer := NewFeatureWriter(output, collection.Columns)
	for _, record := range collection.Records {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return writer.Close()
}

// LoadGeoJSON reads a FeatureCollection written by Save back into a
// collection.  Only the harmonized property columns found in the data are
// reported in the collection schema.
func LoadGeoJSON(path string) (*fields.Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	featureCollection, err := orbjson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", path, err)
	}

	present := map[string]bool{}
	records := make([]*fields.Record, 0, len(featureCollection.Features))
	for _, feature := range featureCollection.Features {
		properties := feature.Properties
		for key := range properties {
			present[key] = true
		}
		record := &fields.Record{
			ID:          stringProperty(properties, fields.ColumnFieldID),
			Region:      stringProperty(properties, fields.ColumnRegion),
			StateFIPS:   stringProperty(properties, fields.ColumnStateFIPS),
			CropCode:    stringProperty(properties, fields.ColumnCropCode),
			CropName:    stringProperty(properties, fields.ColumnCropName),
			CropHistory: stringProperty(properties, fields.ColumnCropCodeList),
		}
		if area, ok := properties[fields.ColumnAreaAcres].(float64); ok {
			record.AreaAcres = area
		}
		if feature.Geometry != nil {
			record.Geometry = feature.Geometry
			present[fields.ColumnGeometry] = true
		}
		records = append(records, record)
	}

	columns := make([]string, 0, len(fields.Columns))
	for _, column := range fields.Columns {
		if present[column] {
			columns = append(columns, column)
		}
	}

	return &fields.Collection{Records: records, Columns: columns, CRS: fields.CRS84}, nil
}

func stringProperty(properties map[string]any, key string) string {
	value, _ := properties[key].(string)
	return value
}
