package geo

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/encoding/wkt"
	orbjson "github.com/paulmach/orb/geojson"
)

const (
	EncodingWKB = "WKB"
	EncodingWKT = "WKT"
)

// EPSG codes for the two reference systems the pipeline cares about: the
// equal-area projection used for acreage and the geographic output system.
const (
	EqualAreaEPSG  = 5070 // NAD83 / Conus Albers
	GeographicEPSG = 4326 // WGS 84
)

// SquareMetersPerAcre converts projected areas to acres.
const SquareMetersPerAcre = 4046.8564224

// AcresFromSquareMeters converts an equal-area projected area to acres.
func AcresFromSquareMeters(area float64) float64 {
	return area / SquareMetersPerAcre
}

// DecodeGeometry decodes a WKB or WKT encoded geometry.  When the encoding
// is not provided, it is inferred from the value type.
func DecodeGeometry(value any, encoding string) (orb.Geometry, error) {
	if value == nil {
		return nil, nil
	}
	if encoding == "" {
		if _, ok := value.([]byte); ok {
			encoding = EncodingWKB
		} else if _, ok := value.(string); ok {
			encoding = EncodingWKT
		}
	}
	if encoding == EncodingWKB {
		data, ok := value.([]byte)
		if !ok {
			return nil, fmt.Errorf("expected bytes for wkb geometry, got %T", value)
		}
		if len(data) == 0 {
			return nil, nil
		}
		return wkb.Unmarshal(data)
	}
	if encoding == EncodingWKT {
		str, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected string for wkt geometry, got %T", value)
		}
		return wkt.Unmarshal(str)
	}
	return nil, fmt.Errorf("unsupported encoding: %s", encoding)
}

// Polygonal reports whether the geometry is a polygon or multipolygon.
func Polygonal(geometry orb.Geometry) bool {
	switch geometry.(type) {
	case orb.Polygon, orb.MultiPolygon:
		return true
	default:
		return false
	}
}

// Validate checks structural validity of a geometry: rings are closed and
// have enough points, and multi geometries are not empty.  This is the
// validity predicate applied to every extracted field boundary.
func Validate(geometry orb.Geometry) error {
	switch g := geometry.(type) {
	case nil:
		return fmt.Errorf("geometry is nil")

	case orb.Point:
		return nil

	case orb.MultiPoint:
		if len(g) == 0 {
			return fmt.Errorf("multipoint is empty")
		}
		return nil

	case orb.LineString:
		if len(g) < 2 {
			return fmt.Errorf("linestring must have at least 2 points, has %d", len(g))
		}
		return nil

	case orb.MultiLineString:
		for i, ls := range g {
			if len(ls) < 2 {
				return fmt.Errorf("multilinestring[%d] must have at least 2 points, has %d", i, len(ls))
			}
		}
		return nil

	case orb.Polygon:
		if len(g) == 0 {
			return fmt.Errorf("polygon has no rings")
		}
		for i, ring := range g {
			if len(ring) < 4 {
				return fmt.Errorf("polygon ring %d must have at least 4 points, has %d", i, len(ring))
			}
			if !ring.Closed() {
				return fmt.Errorf("polygon ring %d is not closed", i)
			}
		}
		return nil

	case orb.MultiPolygon:
		if len(g) == 0 {
			return fmt.Errorf("multipolygon is empty")
		}
		for i, polygon := range g {
			if err := Validate(polygon); err != nil {
				return fmt.Errorf("multipolygon[%d]: %w", i, err)
			}
		}
		return nil

	case orb.Collection:
		for i, member := range g {
			if err := Validate(member); err != nil {
				return fmt.Errorf("collection[%d]: %w", i, err)
			}
		}
		return nil

	default:
		return fmt.Errorf("unsupported geometry type: %T", geometry)
	}
}

// NewJSONGeometry wraps a geometry for GeoJSON encoding.
func NewJSONGeometry(geometry orb.Geometry) *orbjson.Geometry {
	return orbjson.NewGeometry(geometry)
}
