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

// Package filter translates user-level filter criteria for field boundary
// queries into the state FIPS codes and CDL crop classification codes used
// by the remote dataset.
package filter

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrInvalidCount  = errors.New("invalid count")
	ErrEmptyRegions  = errors.New("regions cannot be empty")
	ErrInvalidRegion = errors.New("invalid region")
	ErrInvalidCrop   = errors.New("invalid crop")
	ErrInvalidBounds = errors.New("invalid acreage bounds")
)

// RegionStateFIPS maps region names to state FIPS codes.  Field identifiers
// in the dataset start with the two digit state FIPS code.
var RegionStateFIPS = map[string][]string{
	"corn_belt":    {"17", "19", "18", "39", "27"}, // IL, IA, IN, OH, MN
	"great_plains": {"20", "31", "46", "38", "48"}, // KS, NE, SD, ND, TX
	"southeast":    {"05", "28", "22", "13"},       // AR, MS, LA, GA
}

// CropCodes maps crop names to CDL (Cropland Data Layer) classification
// codes.  A single crop may cover several historical sub-codes.
var CropCodes = map[string][]string{
	"corn":     {"1"},
	"soybeans": {"5"},
	"wheat":    {"23", "24", "25", "26", "27"}, // spring, winter, durum, and double-crop variants
	"cotton":   {"2"},
}

var (
	DefaultRegions = []string{"corn_belt"}
	DefaultCrops   = []string{"corn", "soybeans"}
)

// Criteria holds the caller-supplied filter parameters for a download.  A
// nil Regions or Crops slice selects the defaults; an empty Regions slice is
// an error.
type Criteria struct {
	Count    int
	Regions  []string
	Crops    []string
	MinAcres *float64
	MaxAcres *float64
}

// Resolved is the result of validating and resolving Criteria.  StateFIPS
// and CropCodes are the unions of the codes for the named regions and crops.
type Resolved struct {
	Count     int
	Regions   []string
	StateFIPS []string
	CropCodes []string
	MinAcres  *float64
	MaxAcres  *float64
}

// Resolve validates criteria against the static lookup tables and returns
// the concrete code sets for query construction.  Unknown region or crop
// names fail with an error that enumerates the offending names and the
// valid options.
func Resolve(criteria *Criteria) (*Resolved, error) {
	if criteria.Count < 1 {
		return nil, fmt.Errorf("%w: count must be at least 1, got %d", ErrInvalidCount, criteria.Count)
	}

	regions := criteria.Regions
	if regions == nil {
		regions = DefaultRegions
	}
	if len(regions) == 0 {
		return nil, ErrEmptyRegions
	}
	if bad := unknownKeys(regions, RegionStateFIPS); len(bad) > 0 {
		return nil, fmt.Errorf("%w: %s (valid options: %s)", ErrInvalidRegion,
			strings.Join(bad, ", "), strings.Join(RegionNames(), ", "))
	}

	crops := criteria.Crops
	if crops == nil {
		crops = DefaultCrops
	}
	if bad := unknownKeys(crops, CropCodes); len(bad) > 0 {
		return nil, fmt.Errorf("%w: %s (valid options: %s)", ErrInvalidCrop,
			strings.Join(bad, ", "), strings.Join(CropNames(), ", "))
	}

	if err := checkBounds(criteria.MinAcres, criteria.MaxAcres); err != nil {
		return nil, err
	}

	resolved := &Resolved{
		Count:    criteria.Count,
		Regions:  regions,
		MinAcres: criteria.MinAcres,
		MaxAcres: criteria.MaxAcres,
	}
	for _, region := range regions {
		resolved.StateFIPS = append(resolved.StateFIPS, RegionStateFIPS[region]...)
	}
	for _, crop := range crops {
		resolved.CropCodes = append(resolved.CropCodes, CropCodes[crop]...)
	}
	return resolved, nil
}

func checkBounds(min *float64, max *float64) error {
	if min != nil && *min < 0 {
		return fmt.Errorf("%w: min acres must not be negative, got %g", ErrInvalidBounds, *min)
	}
	if max != nil && *max < 0 {
		return fmt.Errorf("%w: max acres must not be negative, got %g", ErrInvalidBounds, *max)
	}
	if min != nil && max != nil && *min > *max {
		return fmt.Errorf("%w: min acres %g exceeds max acres %g", ErrInvalidBounds, *min, *max)
	}
	return nil
}

func unknownKeys(names []string, lookup map[string][]string) []string {
	var bad []string
	for _, name := range names {
		if _, ok := lookup[name]; !ok {
			bad = append(bad, name)
		}
	}
	return bad
}

// RegionForFIPS reverse-maps a state FIPS code to its region name.
func RegionForFIPS(code string) (string, bool) {
	for region, codes := range RegionStateFIPS {
		for _, c := range codes {
			if c == code {
				return region, true
			}
		}
	}
	return "", false
}

// RegionNames returns the valid region names in sorted order.
func RegionNames() []string {
	return sortedKeys(RegionStateFIPS)
}

// CropNames returns the valid crop names in sorted order.
func CropNames() []string {
	return sortedKeys(CropCodes)
}

func sortedKeys(lookup map[string][]string) []string {
	names := make([]string, 0, len(lookup))
	for name := range lookup {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
