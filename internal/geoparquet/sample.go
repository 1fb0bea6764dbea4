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

package geoparquet

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/paulmach/orb"
	"github.com/planetlabs/cropfields/internal/geo"
)

// anchors are plausible in-state points for each supported FIPS code,
// keeping generated fields inside the state their identifier claims.
var anchors = map[string]orb.Point{
	"17": {-89.2, 40.0}, // IL
	"19": {-93.5, 42.0}, // IA
	"18": {-86.3, 40.0}, // IN
	"39": {-83.0, 40.3}, // OH
	"27": {-94.3, 45.0}, // MN
	"20": {-98.3, 38.5}, // KS
	"31": {-99.5, 41.3}, // NE
	"46": {-100.3, 44.4}, // SD
	"38": {-100.5, 47.4}, // ND
	"48": {-99.3, 31.5}, // TX
	"05": {-92.4, 34.8}, // AR
	"28": {-89.7, 32.7}, // MS
	"22": {-92.0, 30.9}, // LA
	"13": {-83.4, 32.6}, // GA
}

var anchorOrder = []string{"17", "19", "18", "39", "27", "20", "31", "46", "38", "05", "28", "22", "13", "48"}

var sampleCrops = []struct {
	code    string
	name    string
	history string
}{
	{"1", "Corn", "1,5,1,5,1,5,1,5"},
	{"5", "Soybeans", "5,1,5,1,5,1,5,1"},
	{"24", "Winter Wheat", "24,24,1,24,24,5,24,24"},
	{"2", "Cotton", "2,2,2,1,2,2,2,2"},
}

const metersPerDegree = 111320.0

// Square returns a closed square polygon in geographic coordinates with the
// given side length in meters, anchored at the southwest corner.
func Square(southwest orb.Point, side float64) orb.Polygon {
	lon, lat := southwest[0], southwest[1]
	dLat := side / metersPerDegree
	dLon := side / (metersPerDegree * math.Cos(lat*math.Pi/180))
	return orb.Polygon{{
		{lon, lat},
		{lon + dLon, lat},
		{lon + dLon, lat + dLat},
		{lon, lat + dLat},
		{lon, lat},
	}}
}

// SampleFields generates synthetic field boundaries cycling through the
// supported states and crops, with acreages between 20 and 200 acres.  The
// same seed yields the same fields.
func SampleFields(count int, seed int64) []Field {
	rng := rand.New(rand.NewSource(seed))
	rows := make([]Field, 0, count)
	for i := 0; i < count; i++ {
		fips := anchorOrder[i%len(anchorOrder)]
		crop := sampleCrops[i%len(sampleCrops)]
		anchor := anchors[fips]

		acres := 20 + rng.Float64()*180
		side := math.Sqrt(acres * geo.SquareMetersPerAcre)
		southwest := orb.Point{
			anchor[0] + rng.Float64() - 0.5,
			anchor[1] + rng.Float64() - 0.5,
		}

		rows = append(rows, Field{
			ID:          fmt.Sprintf("%s%07d", fips, 1000000+i),
			CropCode:    crop.code,
			CropName:    crop.name,
			CropHistory: crop.history,
			County:      "Sample County",
			Geometry:    Square(southwest, side),
		})
	}
	return rows
}
