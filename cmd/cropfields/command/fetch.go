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

package command

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/planetlabs/cropfields/internal/config"
	"github.com/planetlabs/cropfields/internal/download"
	"github.com/planetlabs/cropfields/internal/filter"
	"github.com/planetlabs/cropfields/internal/vector"
)

type FetchCmd struct {
	Config   string   `help:"Path to a YAML configuration file.  Defaults are built in." type:"existingfile"`
	Count    int      `help:"Number of fields to fetch.  Defaults to the configured count."`
	Regions  []string `help:"Regions to sample from.  Possible values: corn_belt, great_plains, southeast."`
	Crops    []string `help:"Crop types to include.  Possible values: corn, soybeans, wheat, cotton."`
	MinAcres *float64 `help:"Minimum field size in acres."`
	MaxAcres *float64 `help:"Maximum field size in acres."`
	Format   string   `help:"Output format.  Possible values: geojson, shapefile.  Defaults to the configured format."`
	URL      string   `help:"Override the source dataset URL."`
	Verbose  bool     `help:"Log at debug level."`
}

func (c *FetchCmd) Run() error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return NewCommandError("%w", err)
	}
	if c.URL != "" {
		cfg.Source.URL = c.URL
	}

	request := &download.Request{
		Criteria: filter.Criteria{
			Count:    cfg.Fields.Count,
			Regions:  cfg.Fields.Regions,
			Crops:    cfg.Fields.Crops,
			MinAcres: c.MinAcres,
			MaxAcres: c.MaxAcres,
		},
		OutputFormat: cfg.Fields.OutputFormat,
	}
	if c.Count > 0 {
		request.Count = c.Count
	}
	if c.Regions != nil {
		request.Regions = c.Regions
	}
	if c.Crops != nil {
		request.Crops = c.Crops
	}
	if c.Format != "" {
		request.OutputFormat = c.Format
	}

	logger := newLogger(c.Verbose)
	downloader := download.NewFieldBoundaries(cfg, download.WithLogger(logger))
	defer func() { _ = downloader.Close() }()

	collection, err := downloader.Download(context.Background(), request)
	if err != nil {
		return NewCommandError("%w", err)
	}

	format, _ := vector.ParseFormat(request.OutputFormat)
	path := filepath.Join(cfg.FieldBoundariesDir(), format.Filename())
	fmt.Printf("Saved %d fields to %s\n", collection.Len(), path)
	return nil
}
