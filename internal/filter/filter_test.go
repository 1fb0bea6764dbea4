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

package filter_test

import (
	"testing"

	"github.com/planetlabs/cropfields/internal/filter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 {
	return &v
}

func TestResolve(t *testing.T) {
	resolved, err := filter.Resolve(&filter.Criteria{
		Count:   10,
		Regions: []string{"corn_belt", "southeast"},
		Crops:   []string{"corn", "wheat"},
	})
	require.NoError(t, err)

	assert.Equal(t, 10, resolved.Count)
	assert.Equal(t, []string{"corn_belt", "southeast"}, resolved.Regions)
	assert.Equal(t, []string{"17", "19", "18", "39", "27", "05", "28", "22", "13"}, resolved.StateFIPS)
	assert.Equal(t, []string{"1", "23", "24", "25", "26", "27"}, resolved.CropCodes)
}

func TestResolveDefaults(t *testing.T) {
	resolved, err := filter.Resolve(&filter.Criteria{Count: 5})
	require.NoError(t, err)

	assert.Equal(t, []string{"corn_belt"}, resolved.Regions)
	assert.Equal(t, []string{"17", "19", "18", "39", "27"}, resolved.StateFIPS)
	assert.Equal(t, []string{"1", "5"}, resolved.CropCodes, "default crops are corn and soybeans")
}

func TestResolveInvalidCount(t *testing.T) {
	for _, count := range []int{0, -1} {
		_, err := filter.Resolve(&filter.Criteria{Count: count})
		assert.ErrorIs(t, err, filter.ErrInvalidCount)
	}
}

func TestResolveEmptyRegions(t *testing.T) {
	_, err := filter.Resolve(&filter.Criteria{Count: 2, Regions: []string{}})
	assert.ErrorIs(t, err, filter.ErrEmptyRegions)
}

func TestResolveInvalidRegion(t *testing.T) {
	_, err := filter.Resolve(&filter.Criteria{Count: 2, Regions: []string{"not_a_region"}})
	require.ErrorIs(t, err, filter.ErrInvalidRegion)
	assert.ErrorContains(t, err, "not_a_region")
	assert.ErrorContains(t, err, "corn_belt, great_plains, southeast")
}

func TestResolveInvalidCrop(t *testing.T) {
	_, err := filter.Resolve(&filter.Criteria{Count: 2, Crops: []string{"kale", "corn"}})
	require.ErrorIs(t, err, filter.ErrInvalidCrop)
	assert.ErrorContains(t, err, "kale")
	assert.ErrorContains(t, err, "corn, cotton, soybeans, wheat")
}

func TestResolveBounds(t *testing.T) {
	resolved, err := filter.Resolve(&filter.Criteria{Count: 2, MinAcres: ptr(10), MaxAcres: ptr(100)})
	require.NoError(t, err)
	assert.Equal(t, 10.0, *resolved.MinAcres)
	assert.Equal(t, 100.0, *resolved.MaxAcres)

	cases := []filter.Criteria{
		{Count: 2, MinAcres: ptr(-1)},
		{Count: 2, MaxAcres: ptr(-5)},
		{Count: 2, MinAcres: ptr(50), MaxAcres: ptr(10)},
	}
	for _, criteria := range cases {
		_, err := filter.Resolve(&criteria)
		assert.ErrorIs(t, err, filter.ErrInvalidBounds)
	}
}

func TestRegionForFIPS(t *testing.T) {
	region, ok := filter.RegionForFIPS("19")
	require.True(t, ok)
	assert.Equal(t, "corn_belt", region)

	region, ok = filter.RegionForFIPS("05")
	require.True(t, ok)
	assert.Equal(t, "southeast", region)

	_, ok = filter.RegionForFIPS("99")
	assert.False(t, ok)
}
