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

// Package fields holds the harmonized field boundary records produced by an
// extraction and the boundary validation applied before persistence.
package fields

import (
	"log/slog"
	"strings"

	"github.com/paulmach/orb"
	"github.com/planetlabs/cropfields/internal/geo"
)

// Column names of the harmonized output schema, in output order.
const (
	ColumnFieldID      = "field_id"
	ColumnRegion       = "region"
	ColumnStateFIPS    = "state_fips"
	ColumnAreaAcres    = "area_acres"
	ColumnCropCode     = "crop_code"
	ColumnCropName     = "crop_name"
	ColumnCropCodeList = "crop_code_list"
	ColumnGeometry     = "geometry"
)

// Columns is the fixed column order of the harmonized schema.
var Columns = []string{
	ColumnFieldID,
	ColumnRegion,
	ColumnStateFIPS,
	ColumnAreaAcres,
	ColumnCropCode,
	ColumnCropName,
	ColumnCropCodeList,
	ColumnGeometry,
}

// RequiredColumns must be present for a collection to pass validation.
var RequiredColumns = []string{ColumnFieldID, ColumnRegion, ColumnGeometry}

// CRS84 is the coordinate reference system of every collection handed to
// persistence: geographic longitude/latitude on WGS 84.
const CRS84 = "EPSG:4326"

// Record is a single field boundary with its harmonized attributes.  The
// geometry is a polygon or multipolygon in geographic coordinates.
type Record struct {
	ID          string
	Region      string
	StateFIPS   string
	AreaAcres   float64
	CropCode    string
	CropName    string
	CropHistory string
	Geometry    orb.Geometry
}

// Collection is an ordered set of records sharing a column schema and a
// coordinate reference system.
type Collection struct {
	Records []*Record
	Columns []string
	CRS     string
}

// NewCollection wraps records with the harmonized schema and output CRS.
func NewCollection(records []*Record) *Collection {
	return &Collection{
		Records: records,
		Columns: Columns,
		CRS:     CRS84,
	}
}

// Len returns the number of records.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Records)
}

// HasColumn reports whether the collection schema includes the named column.
func (c *Collection) HasColumn(name string) bool {
	for _, column := range c.Columns {
		if column == name {
			return true
		}
	}
	return false
}

// Validate is the boundary check applied before persistence.  It never
// fails hard: it returns false after logging the first reason found when
// the collection is empty, a required column is missing, any geometry fails
// the validity predicate, or no coordinate reference system is attached.
func (c *Collection) Validate(logger *slog.Logger) bool {
	if logger == nil {
		logger = slog.Default()
	}

	if c.Len() == 0 {
		logger.Error("no fields in dataset")
		return false
	}

	var missing []string
	for _, required := range RequiredColumns {
		if !c.HasColumn(required) {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		logger.Error("missing required columns", "columns", strings.Join(missing, ", "))
		return false
	}

	invalid := 0
	for _, record := range c.Records {
		if err := geo.Validate(record.Geometry); err != nil {
			invalid++
			logger.Error("invalid geometry", "field_id", record.ID, "reason", err)
		}
	}
	if invalid > 0 {
		logger.Error("found invalid geometries", "count", invalid)
		return false
	}

	if c.CRS == "" {
		logger.Error("collection has no coordinate reference system")
		return false
	}

	logger.Info("field boundaries validation passed", "count", c.Len())
	return true
}
