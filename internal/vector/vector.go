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

// Package vector persists field boundary collections as vector files.
package vector

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/planetlabs/cropfields/internal/fields"
)

// ErrUnsupportedFormat indicates an output format other than geojson or
// shapefile.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// Format is a supported vector output format.
type Format string

const (
	FormatGeoJSON   Format = "geojson"
	FormatShapefile Format = "shapefile"
)

// ParseFormat parses a format name.  The empty string selects GeoJSON.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "", string(FormatGeoJSON):
		return FormatGeoJSON, nil
	case string(FormatShapefile):
		return FormatShapefile, nil
	default:
		return "", fmt.Errorf("%w: %q (use geojson or shapefile)", ErrUnsupportedFormat, name)
	}
}

// Filename returns the output file name for the format.
func (f Format) Filename() string {
	if f == FormatShapefile {
		return "fields.shp"
	}
	return "fields.geojson"
}

// Save writes the collection to path in the given format.
func Save(collection *fields.Collection, format Format, path string) error {
	switch format {
	case FormatGeoJSON:
		output, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to open %q for writing: %w", path, err)
		}
		if err := WriteGeoJSON(output, collection); err != nil {
			_ = output.Close()
			return err
		}
		return output.Close()
	case FormatShapefile:
		return writeShapefile(path, collection)
	default:
		return fmt.Errorf("%w: %q (use geojson or shapefile)", ErrUnsupportedFormat, format)
	}
}
