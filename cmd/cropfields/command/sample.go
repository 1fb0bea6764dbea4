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
	"fmt"

	"github.com/planetlabs/cropfields/internal/geoparquet"
)

type SampleCmd struct {
	Output string `arg:"" name:"output" help:"Path for the generated GeoParquet file."`
	Count  int    `help:"Number of synthetic fields to generate." default:"100"`
	Seed   int64  `help:"Random seed." default:"1"`
}

func (c *SampleCmd) Run() error {
	if c.Count <= 0 {
		return NewCommandError("count must be positive, got %d", c.Count)
	}
	rows := geoparquet.SampleFields(c.Count, c.Seed)
	if err := geoparquet.WriteFile(c.Output, rows); err != nil {
		return NewCommandError("failed to write %q: %w", c.Output, err)
	}
	fmt.Printf("Wrote %d synthetic fields to %s\n", len(rows), c.Output)
	return nil
}
