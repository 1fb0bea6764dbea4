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

// Package extract queries field boundaries from a remote columnar dataset
// with server-side predicate pushdown.  Filtering, random sampling, area
// computation, and reprojection all happen in the query engine, so only the
// requested subset of a multi-million row dataset crosses the network.
package extract

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/planetlabs/cropfields/internal/fields"
	"github.com/planetlabs/cropfields/internal/filter"
	"github.com/planetlabs/cropfields/internal/geo"
)

// DefaultSourceURL addresses the USDA Crop Sequence Boundaries dataset in
// fiboa GeoParquet form on Source Cooperative.
const DefaultSourceURL = "https://data.source.coop/fiboa/us-usda-cropland/us_usda_cropland.parquet"

// ErrNoMatchingData indicates that the remote query produced no usable rows
// for the resolved filter.
var ErrNoMatchingData = errors.New("no fields found matching criteria")

// DefaultOversample is the multiplier applied to the requested count when
// querying, leaving headroom for rows dropped as degenerate.
const DefaultOversample = 2.0

// Engine executes predicate-pushdown queries against a remote columnar
// geospatial dataset.  The connection handle is created lazily on first use
// and reused until Close.  An Engine is not safe for concurrent use: callers
// needing concurrency must use one Engine per goroutine.
type Engine struct {
	url        string
	mapping    SchemaMapping
	oversample float64
	logger     *slog.Logger
	db         *sql.DB
}

// Option configures an Engine.
type Option func(*Engine)

// WithMapping overrides the default fiboa schema mapping.
func WithMapping(mapping SchemaMapping) Option {
	return func(e *Engine) {
		e.mapping = mapping
	}
}

// WithOversample sets the oversampling multiplier.  Values below 1 are
// ignored.
func WithOversample(factor float64) Option {
	return func(e *Engine) {
		if factor >= 1 {
			e.oversample = factor
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine returns an engine for the dataset at url.  An empty url selects
// the default Source Cooperative dataset.
func NewEngine(url string, options ...Option) *Engine {
	if url == "" {
		url = DefaultSourceURL
	}
	engine := &Engine{
		url:        url,
		mapping:    FiboaMapping(),
		oversample: DefaultOversample,
		logger:     slog.Default(),
	}
	for _, option := range options {
		option(engine)
	}
	return engine
}

// conn returns the shared connection handle, creating it on first use with
// the spatial and httpfs extensions loaded.
func (e *Engine) conn(ctx context.Context) (*sql.DB, error) {
	if e.db != nil {
		return e.db, nil
	}
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}
	for _, stmt := range []string{
		"INSTALL spatial", "LOAD spatial",
		"INSTALL httpfs", "LOAD httpfs",
	} {
		if _, execErr := db.ExecContext(ctx, stmt); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to run %q: %w", stmt, execErr)
		}
	}
	e.logger.Debug("connection initialized with spatial extensions")
	e.db = db
	return db, nil
}

// Close releases the connection handle.  The engine may not be reused after
// Close.
func (e *Engine) Close() error {
	if e.db == nil {
		return nil
	}
	db := e.db
	e.db = nil
	return db.Close()
}

// Extract runs one pushdown query for the resolved filter and returns
// exactly resolved.Count harmonized records, or ErrNoMatchingData when the
// source has too few usable rows.  Rows with non-positive area are dropped
// without requerying; the oversampled limit compensates.
func (e *Engine) Extract(ctx context.Context, resolved *filter.Resolved) ([]*fields.Record, error) {
	db, err := e.conn(ctx)
	if err != nil {
		return nil, err
	}

	limit := oversampledLimit(resolved.Count, e.oversample)
	query, args := buildQuery(e.url, e.mapping, resolved, limit)
	e.logger.Debug("executing query", "sql", query, "args", args)
	e.logger.Info("querying remote dataset", "url", e.url, "limit", limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("data download failed: %w", err)
	}
	defer rows.Close()

	var records []*fields.Record
	dropped := 0
	for rows.Next() {
		var (
			id       string
			fips     sql.NullString
			cropCode sql.NullString
			cropName sql.NullString
			history  sql.NullString
			acres    sql.NullFloat64
			wkbData  []byte
		)
		if scanErr := rows.Scan(&id, &fips, &cropCode, &cropName, &history, &acres, &wkbData); scanErr != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", scanErr)
		}
		geometry, decodeErr := geo.DecodeGeometry(wkbData, geo.EncodingWKB)
		if decodeErr != nil {
			return nil, fmt.Errorf("failed to decode geometry for %q: %w", id, decodeErr)
		}
		if !acres.Valid || acres.Float64 <= 0 {
			dropped++
			continue
		}
		records = append(records, &fields.Record{
			ID:          id,
			Region:      regionLabel(resolved.Regions, fips.String),
			StateFIPS:   fips.String,
			AreaAcres:   acres.Float64,
			CropCode:    cropCode.String,
			CropName:    cropName.String,
			CropHistory: history.String,
			Geometry:    geometry,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("data download failed: %w", err)
	}

	if dropped > 0 {
		e.logger.Warn("filtered out fields with zero or negative area", "count", dropped)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: try different regions/crops or adjust filters", ErrNoMatchingData)
	}
	if len(records) > resolved.Count {
		records = records[:resolved.Count]
	} else if len(records) < resolved.Count {
		e.logger.Warn("fewer fields than requested survived filtering",
			"requested", resolved.Count, "returned", len(records))
	}
	e.logger.Info("retrieved fields from remote dataset", "count", len(records))
	return records, nil
}

// Count returns the number of remote rows matching the state and crop code
// sets, without transferring any of them.
func (e *Engine) Count(ctx context.Context, stateFIPS []string, cropCodes []string) (int64, error) {
	db, err := e.conn(ctx)
	if err != nil {
		return 0, err
	}
	where, args := buildWhere(e.mapping, &filter.Resolved{StateFIPS: stateFIPS, CropCodes: cropCodes})
	query := fmt.Sprintf("SELECT count(*) FROM read_parquet(%s)%s", quoteLiteral(e.url), where)
	e.logger.Debug("executing query", "sql", query, "args", args)

	var count int64
	if err := db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count query failed: %w", err)
	}
	return count, nil
}

// oversampledLimit is at least factor times count, and never less than
// count plus ten.
func oversampledLimit(count int, factor float64) int {
	limit := int(float64(count) * factor)
	if limit < count+10 {
		limit = count + 10
	}
	return limit
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// buildWhere assembles the pushdown predicates for the resolved filter.
// Code lists are bound as query parameters.
func buildWhere(mapping SchemaMapping, resolved *filter.Resolved) (string, []any) {
	var predicates []string
	var args []any

	if len(resolved.StateFIPS) > 0 {
		predicates = append(predicates,
			fmt.Sprintf("CAST(%s AS VARCHAR) IN (%s)", mapping.stateExpr(), placeholders(len(resolved.StateFIPS))))
		for _, code := range resolved.StateFIPS {
			args = append(args, code)
		}
	}

	if len(resolved.CropCodes) > 0 {
		if mapping.HistoryFilter && mapping.CropHistoryColumn != "" {
			// The history column stores a delimited multi-year code list,
			// so the crop predicate uses substring matching.
			contains := make([]string, len(resolved.CropCodes))
			for i, code := range resolved.CropCodes {
				contains[i] = fmt.Sprintf("contains(CAST(%s AS VARCHAR), ?)", quoteIdent(mapping.CropHistoryColumn))
				args = append(args, code)
			}
			predicates = append(predicates, "("+strings.Join(contains, " OR ")+")")
		} else {
			predicates = append(predicates,
				fmt.Sprintf("CAST(%s AS VARCHAR) IN (%s)", quoteIdent(mapping.CropCodeColumn), placeholders(len(resolved.CropCodes))))
			for _, code := range resolved.CropCodes {
				args = append(args, code)
			}
		}
	}

	if resolved.MinAcres != nil {
		predicates = append(predicates, fmt.Sprintf("%s >= ?", mapping.acresExpr()))
		args = append(args, *resolved.MinAcres)
	}
	if resolved.MaxAcres != nil {
		predicates = append(predicates, fmt.Sprintf("%s <= ?", mapping.acresExpr()))
		args = append(args, *resolved.MaxAcres)
	}

	if len(predicates) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(predicates, " AND "), args
}

// buildQuery assembles the full selection: harmonized columns, pushdown
// predicates, randomized ordering, and the oversampled row limit.  Acreage
// is measured in the equal-area projection and the output geometry is
// reprojected to geographic coordinates, both server side.
func buildQuery(url string, mapping SchemaMapping, resolved *filter.Resolved, limit int) (string, []any) {
	columns := []string{
		fmt.Sprintf("CAST(%s AS VARCHAR) AS field_id", quoteIdent(mapping.IDColumn)),
		fmt.Sprintf("CAST(%s AS VARCHAR) AS state_fips", mapping.stateExpr()),
		optionalColumn(mapping.CropCodeColumn, "crop_code"),
		optionalColumn(mapping.CropNameColumn, "crop_name"),
		optionalColumn(mapping.CropHistoryColumn, "crop_code_list"),
		fmt.Sprintf("CAST(%s AS DOUBLE) AS area_acres", mapping.acresExpr()),
		fmt.Sprintf("ST_AsWKB(%s) AS geometry", mapping.outputExpr()),
	}

	where, args := buildWhere(mapping, resolved)
	query := fmt.Sprintf("SELECT %s FROM read_parquet(%s)%s ORDER BY random() LIMIT %d",
		strings.Join(columns, ", "), quoteLiteral(url), where, limit)
	return query, args
}

// regionLabel reverse-maps a state FIPS code to one of the requested
// regions.  Codes outside every requested region are labeled "mixed" when
// multiple regions were requested, and default to the single requested
// region otherwise.
func regionLabel(requested []string, fips string) string {
	for _, region := range requested {
		for _, code := range filter.RegionStateFIPS[region] {
			if code == fips {
				return region
			}
		}
	}
	if len(requested) == 1 {
		return requested[0]
	}
	return "mixed"
}
