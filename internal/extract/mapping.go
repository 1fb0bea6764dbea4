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

package extract

import (
	"fmt"
	"strings"

	"github.com/planetlabs/cropfields/internal/geo"
)

// SchemaMapping describes how one revision of the remote dataset lays out
// its columns.  The upstream schema has changed across dataset revisions, so
// the mapping is supplied at engine construction instead of being hard-coded
// into the query: reconciling a new revision is a mapping change, not a
// rewrite.
type SchemaMapping struct {
	// IDColumn holds the unique field identifier.
	IDColumn string

	// StateColumn holds the state FIPS code.  When empty, the code is
	// derived as a fixed-length prefix of the identifier.
	StateColumn string

	// StatePrefixLen is the length of the FIPS prefix of the identifier,
	// used when StateColumn is empty.
	StatePrefixLen int

	// CropCodeColumn holds the current-year CDL crop code.
	CropCodeColumn string

	// CropNameColumn holds the human-readable crop name, if any.
	CropNameColumn string

	// CropHistoryColumn holds the delimited multi-year crop code history,
	// if any.
	CropHistoryColumn string

	// HistoryFilter selects substring matching against CropHistoryColumn
	// for the crop predicate instead of equality on CropCodeColumn.  Used
	// for revisions that only store the delimited history.
	HistoryFilter bool

	// AreaColumn holds precomputed acreage, if any.  When empty, acreage
	// is computed from the geometry in the equal-area projection.
	AreaColumn string

	// GeometryColumn holds the field boundary geometry.
	GeometryColumn string

	// GeometryIsWKB marks revisions stored as plain parquet where the
	// geometry column is a WKB blob that must be decoded before spatial
	// functions apply.  GeoParquet revisions are read as geometries
	// directly.
	GeometryIsWKB bool

	// SourceEPSG is the EPSG code of the stored geometries.
	SourceEPSG int
}

// FiboaMapping returns the mapping for the current fiboa-column revision of
// the USDA Crop Sequence Boundaries dataset.  Identifiers start with the two
// digit state FIPS code and geometries are stored in the Conus Albers
// equal-area projection.
func FiboaMapping() SchemaMapping {
	return SchemaMapping{
		IDColumn:          "id",
		StatePrefixLen:    2,
		CropCodeColumn:    "crop:code",
		CropNameColumn:    "crop:name",
		CropHistoryColumn: "crop:code_list",
		GeometryColumn:    "geometry",
		SourceEPSG:        geo.EqualAreaEPSG,
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// stateExpr is the SQL expression yielding the state FIPS code.
func (m SchemaMapping) stateExpr() string {
	if m.StateColumn != "" {
		return quoteIdent(m.StateColumn)
	}
	length := m.StatePrefixLen
	if length <= 0 {
		length = 2
	}
	return fmt.Sprintf("substr(%s, 1, %d)", quoteIdent(m.IDColumn), length)
}

// geometryExpr is the SQL expression yielding the geometry in its source
// reference system.
func (m SchemaMapping) geometryExpr() string {
	expr := quoteIdent(m.GeometryColumn)
	if m.GeometryIsWKB {
		expr = fmt.Sprintf("ST_GeomFromWKB(%s)", expr)
	}
	return expr
}

// equalAreaExpr is the geometry reprojected to the equal-area system used
// for acreage.  Reprojection is delegated to the query engine.
func (m SchemaMapping) equalAreaExpr() string {
	expr := m.geometryExpr()
	if m.SourceEPSG == geo.EqualAreaEPSG {
		return expr
	}
	return fmt.Sprintf("ST_Transform(%s, 'EPSG:%d', 'EPSG:%d', always_xy := true)",
		expr, m.SourceEPSG, geo.EqualAreaEPSG)
}

// outputExpr is the geometry reprojected to geographic coordinates for
// output.
func (m SchemaMapping) outputExpr() string {
	expr := m.geometryExpr()
	if m.SourceEPSG == geo.GeographicEPSG {
		return expr
	}
	return fmt.Sprintf("ST_Transform(%s, 'EPSG:%d', 'EPSG:%d', always_xy := true)",
		expr, m.SourceEPSG, geo.GeographicEPSG)
}

// acresExpr is the SQL expression yielding acreage, either from the
// precomputed column or from the equal-area geometry.
func (m SchemaMapping) acresExpr() string {
	if m.AreaColumn != "" {
		return quoteIdent(m.AreaColumn)
	}
	return fmt.Sprintf("ST_Area(%s) / %v", m.equalAreaExpr(), geo.SquareMetersPerAcre)
}

func optionalColumn(name string, alias string) string {
	if name == "" {
		return fmt.Sprintf("CAST(NULL AS VARCHAR) AS %s", alias)
	}
	return fmt.Sprintf("CAST(%s AS VARCHAR) AS %s", quoteIdent(name), alias)
}
