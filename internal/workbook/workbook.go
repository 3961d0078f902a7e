// Package workbook reads the Excel inputs of an RDR scenario:
// Model_Parameters.xlsx and UserInputs.xlsx.
package workbook

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/leapstack-labs/rdrkit/internal/tabular"
)

// Workbook file names inside the scenario input directory.
const (
	ModelParametersFile = "Model_Parameters.xlsx"
	UserInputsFile      = "UserInputs.xlsx"
)

// Sheet names.
const (
	SheetUncertainty   = "UncertaintyParameters"
	SheetProjectGroups = "ProjectGroups"
	SheetHazards       = "Hazards"
	SheetUserInputs    = "UserInputs"
)

// Column names shared by the sheets.
const (
	ColHazardEvents      = "Hazard Events"
	ColRecoveryStages    = "Recovery Stages"
	ColEconomicScenarios = "Economic Scenarios"
	ColElasticities      = "Trip Loss Elasticities"
	ColProjectGroups     = "Project Groups"
	ColResilProjects     = "Resiliency Projects"
	ColFrequencyFactors  = "Event Frequency Factors"

	ColHazardEvent = "Hazard Event"
	ColFilename    = "Filename"
	ColHazardDim1  = "HazardDim1"
	ColHazardDim2  = "HazardDim2"
	ColProbability = "Event Probability in Start Year"
)

// Required columns per sheet.
var (
	UncertaintyColumns  = []string{ColHazardEvents, ColRecoveryStages, ColEconomicScenarios, ColElasticities, ColProjectGroups}
	ProjectGroupColumns = []string{ColProjectGroups, ColResilProjects}
	HazardColumns       = []string{ColHazardEvent, ColFilename, ColHazardDim1, ColHazardDim2, ColProbability}
	UserInputColumns    = []string{ColHazardEvents, ColEconomicScenarios, ColElasticities, ColResilProjects, ColFrequencyFactors}
)

// SheetError reports a sheet missing from a workbook.
type SheetError struct {
	Path  string
	Sheet string
}

func (e *SheetError) Error() string {
	return fmt.Sprintf("%s: %s tab could not be found", filepath.Base(e.Path), e.Sheet)
}

// ColumnError reports required columns missing from a sheet.
type ColumnError struct {
	Path    string
	Sheet   string
	Columns []string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("%s: %s tab is missing required column(s): %s",
		filepath.Base(e.Path), e.Sheet, strings.Join(e.Columns, ", "))
}

// Workbook is an open Excel file.
type Workbook struct {
	Path string
	f    *excelize.File
}

// Open opens an Excel workbook.
func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	return &Workbook{Path: path, f: f}, nil
}

// Close releases the workbook.
func (w *Workbook) Close() error {
	return w.f.Close()
}

// Sheets lists the sheet names.
func (w *Workbook) Sheets() []string {
	return w.f.GetSheetList()
}

// Sheet reads a sheet as a table whose first row is the header.
// Cell values are the formatted strings shown in Excel.
func (w *Workbook) Sheet(name string, required ...string) (*tabular.Table, error) {
	found := false
	for _, s := range w.f.GetSheetList() {
		if s == name {
			found = true
			break
		}
	}
	if !found {
		return nil, &SheetError{Path: w.Path, Sheet: name}
	}

	rows, err := w.f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("read %s tab: %w", name, err)
	}
	var t *tabular.Table
	if len(rows) == 0 {
		t = tabular.New(nil, nil)
	} else {
		t = tabular.New(rows[0], rows[1:])
	}
	t.Path = w.Path

	if missing := t.Missing(required...); len(missing) > 0 {
		return t, &ColumnError{Path: w.Path, Sheet: name, Columns: missing}
	}
	return t, nil
}

// IsSheetError reports whether err is a missing-sheet error.
func IsSheetError(err error) bool {
	var se *SheetError
	return errors.As(err, &se)
}

// nonBlank returns the non-blank values of a column.
func nonBlank(t *tabular.Table, col string) []string {
	var out []string
	for _, v := range t.Strings(col) {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// distinct returns the unique non-blank values of a column in first-seen order.
func distinct(t *tabular.Table, col string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range nonBlank(t, col) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
