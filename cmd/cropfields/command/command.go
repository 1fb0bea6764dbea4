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
	"log/slog"
	"os"
)

var CLI struct {
	Fetch    FetchCmd    `cmd:"" help:"Fetch field boundaries matching filter criteria."`
	Describe DescribeCmd `cmd:"" help:"Describe the supported regions and crops."`
	Validate ValidateCmd `cmd:"" help:"Validate a field boundaries GeoJSON file."`
	Sample   SampleCmd   `cmd:"" help:"Generate a synthetic GeoParquet dataset for offline use."`
	Version  VersionCmd  `cmd:"" help:"Print the version of this program."`
}

// CommandError wraps expected failures so they are reported without a usage
// message.
type CommandError struct {
	err error
}

func NewCommandError(format string, args ...any) *CommandError {
	return &CommandError{err: fmt.Errorf(format, args...)}
}

func (e *CommandError) Error() string {
	return e.err.Error()
}

func (e *CommandError) Unwrap() error {
	return e.err
}

// newLogger returns a logger writing to stderr, at debug level when verbose.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
