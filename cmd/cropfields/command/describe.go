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
	"encoding/json"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/planetlabs/cropfields/internal/extract"
	"github.com/planetlabs/cropfields/internal/filter"
	"golang.org/x/term"
)

type DescribeCmd struct {
	Counts   bool   `help:"Query the remote dataset for the number of fields per region and crop."`
	URL      string `help:"Override the source dataset URL."`
	Format   string `help:"Report format.  Possible values: ${enum}." enum:"text, json" default:"text"`
	Unpretty bool   `help:"No newlines or indentation in the JSON output."`
	Verbose  bool   `help:"Log at debug level."`
}

type DescribeInfo struct {
	Regions map[string][]string `json:"regions"`
	Crops   map[string][]string `json:"crops"`
	Counts  map[string]int64    `json:"counts,omitempty"`
}

func (c *DescribeCmd) Run() error {
	info := &DescribeInfo{
		Regions: filter.RegionStateFIPS,
		Crops:   filter.CropCodes,
	}

	if c.Counts {
		engine := extract.NewEngine(c.URL, extract.WithLogger(newLogger(c.Verbose)))
		defer func() { _ = engine.Close() }()

		info.Counts = map[string]int64{}
		for _, region := range filter.RegionNames() {
			for _, crop := range filter.CropNames() {
				count, err := engine.Count(context.Background(),
					filter.RegionStateFIPS[region], filter.CropCodes[crop])
				if err != nil {
					return NewCommandError("failed to count %s/%s: %w", region, crop, err)
				}
				info.Counts[region+"/"+crop] = count
			}
		}
	}

	if c.Format == "json" {
		return c.formatJSON(info)
	}
	return c.formatText(info)
}

func (c *DescribeCmd) formatText(info *DescribeInfo) error {
	out := os.Stdout

	render := func(tbl table.Writer) {
		if term.IsTerminal(int(out.Fd())) {
			width, _, err := term.GetSize(int(out.Fd()))
			if err == nil {
				tbl.SetAllowedRowLength(width)
			}
		}
		tbl.SetStyle(table.StyleRounded)
		tbl.SetOutputMirror(out)
		tbl.Render()
	}

	regions := table.NewWriter()
	regions.AppendHeader(table.Row{"Region", "State FIPS"})
	for _, region := range filter.RegionNames() {
		regions.AppendRow(table.Row{region, strings.Join(info.Regions[region], ", ")})
	}
	render(regions)

	crops := table.NewWriter()
	crops.AppendHeader(table.Row{"Crop", "CDL Codes"})
	for _, crop := range filter.CropNames() {
		crops.AppendRow(table.Row{crop, strings.Join(info.Crops[crop], ", ")})
	}
	render(crops)

	if info.Counts != nil {
		counts := table.NewWriter()
		counts.AppendHeader(table.Row{"Region", "Crop", "Fields"})
		for _, region := range filter.RegionNames() {
			for _, crop := range filter.CropNames() {
				counts.AppendRow(table.Row{region, crop, info.Counts[region+"/"+crop]})
			}
		}
		render(counts)
	}

	return nil
}

func (c *DescribeCmd) formatJSON(info *DescribeInfo) error {
	encoder := json.NewEncoder(os.Stdout)
	if !c.Unpretty {
		encoder.SetIndent("", "  ")
		encoder.SetEscapeHTML(false)
	}
	return encoder.Encode(info)
}
