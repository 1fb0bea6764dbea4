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

// Package download orchestrates field boundary acquisition: filter
// resolution, remote extraction, validation, and persistence.
package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/planetlabs/cropfields/internal/config"
	"github.com/planetlabs/cropfields/internal/extract"
	"github.com/planetlabs/cropfields/internal/fields"
	"github.com/planetlabs/cropfields/internal/filter"
	"github.com/planetlabs/cropfields/internal/vector"
)

// ErrValidationFailed indicates that downloaded data did not pass the
// boundary validation gate and was not persisted.
var ErrValidationFailed = errors.New("downloaded field data failed validation")

// Request describes one acquisition: the filter criteria plus the output
// format name ("geojson" or "shapefile", empty for geojson).
type Request struct {
	filter.Criteria
	OutputFormat string
}

// Downloader acquires validated field boundary collections.
type Downloader interface {
	Download(ctx context.Context, request *Request) (*fields.Collection, error)
	Validate(collection *fields.Collection) bool
}

// FieldBoundaries downloads agricultural field boundaries from a remote
// columnar dataset and persists validated extracts under the configured raw
// data directory.
type FieldBoundaries struct {
	config *config.Config
	engine *extract.Engine
	logger *slog.Logger
}

var _ Downloader = (*FieldBoundaries)(nil)

// Option configures a FieldBoundaries downloader.
type Option func(*FieldBoundaries)

// WithEngine overrides the extraction engine, mainly for tests.
func WithEngine(engine *extract.Engine) Option {
	return func(d *FieldBoundaries) {
		d.engine = engine
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *FieldBoundaries) {
		d.logger = logger
	}
}

// NewFieldBoundaries returns a downloader using cfg for the source URL,
// oversampling factor, and output paths.
func NewFieldBoundaries(cfg *config.Config, options ...Option) *FieldBoundaries {
	downloader := &FieldBoundaries{
		config: cfg,
		logger: slog.Default(),
	}
	for _, option := range options {
		option(downloader)
	}
	if downloader.engine == nil {
		downloader.engine = extract.NewEngine(cfg.Source.URL,
			extract.WithOversample(cfg.Source.Oversample),
			extract.WithLogger(downloader.logger))
	}
	return downloader
}

// Close releases the extraction engine.
func (d *FieldBoundaries) Close() error {
	return d.engine.Close()
}

// Download resolves the request, extracts matching fields, validates the
// collection, and writes it to the raw data directory.  Nothing is persisted
// unless validation passes.
func (d *FieldBoundaries) Download(ctx context.Context, request *Request) (*fields.Collection, error) {
	format, err := vector.ParseFormat(request.OutputFormat)
	if err != nil {
		return nil, err
	}

	resolved, err := filter.Resolve(&request.Criteria)
	if err != nil {
		return nil, err
	}
	d.logger.Info("downloading field boundaries",
		"count", resolved.Count,
		"regions", resolved.Regions,
		"states", len(resolved.StateFIPS),
		"crops", len(resolved.CropCodes))

	records, err := d.engine.Extract(ctx, resolved)
	if err != nil {
		return nil, err
	}

	collection := fields.NewCollection(records)
	if !d.Validate(collection) {
		return nil, ErrValidationFailed
	}

	directory := d.config.FieldBoundariesDir()
	if err := os.MkdirAll(directory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %q: %w", directory, err)
	}
	path := filepath.Join(directory, format.Filename())
	if err := vector.Save(collection, format, path); err != nil {
		return nil, err
	}
	d.logger.Info("saved field boundaries", "path", path, "count", collection.Len())
	return collection, nil
}

// Validate applies the boundary validation gate.
func (d *FieldBoundaries) Validate(collection *fields.Collection) bool {
	return collection.Validate(d.logger)
}
