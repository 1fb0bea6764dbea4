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
	"fmt"
	"os"
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/planetlabs/cropfields/internal/fields"
)

// wgs84WKT is the .prj sidecar content identifying geographic WGS 84
// coordinates, as consumed by desktop GIS tools.
const wgs84WKT = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

// attributeFields maps harmonized columns to DBF fields.  DBF limits names
// to ten characters, so the longer column names are abbreviated.
var attributeFields = []struct {
	column string
	field  shp.Field
}{
	{fields.ColumnFieldID, shp.StringField("FIELD_ID", 32)},
	{fields.ColumnRegion, shp.StringField("REGION", 16)},
	{fields.ColumnStateFIPS, shp.StringField("STATE_FIPS", 2)},
	{fields.ColumnAreaAcres, shp.FloatField("AREA_AC", 19, 5)},
	{fields.ColumnCropCode, shp.StringField("CROP_CODE", 8)},
	{fields.ColumnCropName, shp.StringField("CROP_NAME", 32)},
	{fields.ColumnCropCodeList, shp.StringField("CROP_HIST", 64)},
}

func attributeValue(record *fields.Record, column string) any {
	switch column {
	case fields.ColumnFieldID:
		return record.ID
	case fields.ColumnRegion:
		return record.Region
	case fields.ColumnStateFIPS:
		return record.StateFIPS
	case fields.ColumnAreaAcres:
		return record.AreaAcres
	case fields.ColumnCropCode:
		return record.CropCode
	case fields.ColumnCropName:
		return record.CropName
	case fields.ColumnCropCodeList:
		return record.CropHistory
	}
	return nil
}

// writeShapefile writes the collection to path as an ESRI shapefile with its
// .dbf attribute table and a .prj sidecar.
func writeShapefile(path string, collection *fields.Collection) error {
	writer, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return fmt.Errorf("failed to create shapefile %q: %w", path, err)
	}

	dbfFields := make([]shp.Field, len(attributeFields))
	for i, attribute := range attributeFields {
		dbfFields[i] = attribute.field
	}
	if err := writer.SetFields(dbfFields); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write attribute schema: %w", err)
	}

	for row, record := range collection.Records {
		shape, shapeErr := polygonShape(record.Geometry)
		if shapeErr != nil {
			writer.Close()
			return fmt.Errorf("failed to convert geometry for %q: %w", record.ID, shapeErr)
		}
		writer.Write(shape)
		for column, attribute := range attributeFields {
			if attrErr := writer.WriteAttribute(row, column, attributeValue(record, attribute.column)); attrErr != nil {
				writer.Close()
				return fmt.Errorf("failed to write attributes for %q: %w", record.ID, attrErr)
			}
		}
	}
	writer.Close()

	prjPath := strings.TrimSuffix(path, ".shp") + ".prj"
	if err := os.WriteFile(prjPath, []byte(wgs84WKT), 0644); err != nil {
		return fmt.Errorf("failed to write projection sidecar: %w", err)
	}
	return nil
}

// polygonShape converts a polygonal geometry to a shapefile polygon.  Outer
// rings are written clockwise and holes counterclockwise, per the shapefile
// ring convention.
func polygonShape(geometry orb.Geometry) (*shp.Polygon, error) {
	var polygons []orb.Polygon
	switch g := geometry.(type) {
	case orb.Polygon:
		polygons = []orb.Polygon{g}
	case orb.MultiPolygon:
		polygons = g
	default:
		return nil, fmt.Errorf("unsupported geometry type %q", geometry.GeoJSONType())
	}

	var parts [][]shp.Point
	for _, polygon := range polygons {
		for i, ring := range polygon {
			outer := i == 0
			if (outer && ring.Orientation() == orb.CCW) || (!outer && ring.Orientation() == orb.CW) {
				ring = ring.Clone()
				ring.Reverse()
			}
			points := make([]shp.Point, len(ring))
			for j, point := range ring {
				points[j] = shp.Point{X: point[0], Y: point[1]}
			}
			parts = append(parts, points)
		}
	}

	polygon := shp.Polygon(*shp.NewPolyLine(parts))
	return &polygon, nil
}
