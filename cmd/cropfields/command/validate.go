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
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/planetlabs/cropfields/internal/fields"
	"github.com/planetlabs/cropfields/internal/geo"
	"github.com/planetlabs/cropfields/internal/vector"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed featurecollection.json
var featureCollectionSchema []byte

type ValidateCmd struct {
	Input    string `arg:"" name:"input" help:"Path to a field boundaries GeoJSON file." type:"existingfile"`
	Unpretty bool   `help:"No colors in text output, no newlines and indentation in JSON output."`
	Format   string `help:"Report format.  Possible values: ${enum}." enum:"text, json" default:"text"`
}

type Check struct {
	Title   string `json:"title"`
	Passed  bool   `json:"passed"`
	Message string `json:"message,omitempty"`
}

type ValidationReport struct {
	Input  string   `json:"input"`
	Checks []*Check `json:"checks"`
}

func (c *ValidateCmd) Run(ctx *kong.Context) error {
	report, err := validateFile(c.Input)
	if err != nil {
		return NewCommandError("validation failed: %w", err)
	}

	valid := true
	for _, check := range report.Checks {
		if !check.Passed {
			valid = false
			break
		}
	}

	if c.Format == "json" {
		if err := c.formatJSON(report); err != nil {
			return NewCommandError("unable to format report as json: %w", err)
		}
	} else {
		if err := c.formatText(report); err != nil {
			return NewCommandError("unable to format report: %w", err)
		}
	}

	if !valid {
		ctx.Kong.Exit(1)
	}
	return nil
}

func validateFile(path string) (*ValidationReport, error) {
	report := &ValidationReport{Input: path}
	add := func(title string, passed bool, message string) bool {
		report.Checks = append(report.Checks, &Check{Title: title, Passed: passed, Message: message})
		return passed
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("featurecollection.json", bytes.NewReader(featureCollectionSchema)); err != nil {
		return nil, err
	}
	schema, err := compiler.Compile("featurecollection.json")
	if err != nil {
		return nil, err
	}

	var document any
	if jsonErr := json.Unmarshal(data, &document); jsonErr != nil {
		add("file must be valid JSON", false, jsonErr.Error())
		return report, nil
	}
	add("file must be valid JSON", true, "")

	if schemaErr := schema.Validate(document); schemaErr != nil {
		message := schemaErr.Error()
		if validationErr, ok := schemaErr.(*jsonschema.ValidationError); ok {
			message = simplifiedValidationMessage(validationErr)
		}
		add("file must be a field boundaries FeatureCollection", false, message)
		return report, nil
	}
	add("file must be a field boundaries FeatureCollection", true, "")

	collection, loadErr := vector.LoadGeoJSON(path)
	if loadErr != nil {
		add("features must parse as GeoJSON", false, loadErr.Error())
		return report, nil
	}
	add("features must parse as GeoJSON", true, "")

	add("collection must not be empty", collection.Len() > 0, "")

	var missing []string
	for _, required := range fields.RequiredColumns {
		if !collection.HasColumn(required) {
			missing = append(missing, required)
		}
	}
	add("required columns must be present", len(missing) == 0, strings.Join(missing, ", "))

	invalid := 0
	message := ""
	for _, record := range collection.Records {
		if geomErr := geo.Validate(record.Geometry); geomErr != nil {
			invalid++
			if message == "" {
				message = fmt.Sprintf("field %q: %v", record.ID, geomErr)
			}
		}
	}
	add("all geometries must be valid polygons", invalid == 0, message)

	add("collection must have a coordinate reference system", collection.CRS != "", "")

	return report, nil
}

func simplifiedValidationMessage(err *jsonschema.ValidationError) string {
	leaf := err
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	location := leaf.InstanceLocation
	if location == "" {
		location = "input"
	}
	return fmt.Sprintf("%s is invalid: %s", location, leaf.Message)
}

func (c *ValidateCmd) formatJSON(report *ValidationReport) error {
	encoder := json.NewEncoder(os.Stdout)
	if !c.Unpretty {
		encoder.SetIndent("", "  ")
		encoder.SetEscapeHTML(false)
	}
	return encoder.Encode(report)
}

func (c *ValidateCmd) formatText(report *ValidationReport) error {
	passed := 0
	failed := 0
	for _, check := range report.Checks {
		if check.Passed {
			passed++
		} else {
			failed++
		}
	}

	summaries := []string{
		fmt.Sprintf("Passed %d check%s", passed, maybeS(passed)),
	}
	if failed > 0 {
		summaries = append(summaries, fmt.Sprintf("failed %d check%s", failed, maybeS(failed)))
	}

	if c.Unpretty {
		color.NoColor = true
	}

	fmt.Printf("\nSummary: %s.\n\n", strings.Join(summaries, ", "))

	passPrefix := " ✓"
	failPrefix := " ✗"
	reasonPrefix := "   ↳"
	for _, check := range report.Checks {
		if check.Passed {
			color.Green("%s %s", passPrefix, check.Title)
			continue
		}
		color.Red("%s %s", failPrefix, check.Title)
		if check.Message != "" {
			color.Red("%s %s", reasonPrefix, check.Message)
		}
	}
	fmt.Println()

	return nil
}

func maybeS(count int) string {
	if count == 1 {
		return ""
	}
	return "s"
}
