// Package tabular reads and writes the header-indexed CSV tables exchanged with the engine.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// MissingColumnsError reports required columns absent from a table.
type MissingColumnsError struct {
	Path    string
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s is missing required column(s): %s", filepath.Base(e.Path), strings.Join(e.Columns, ", "))
}

// ValueError reports cells of a column that do not parse as the requested type.
type ValueError struct {
	Path   string
	Column string
	Want   string
	// Rows are 1-based data row numbers, not counting the header.
	Rows []int
}

func (e *ValueError) Error() string {
	rows := make([]string, 0, len(e.Rows))
	for i, r := range e.Rows {
		if i == 5 {
			rows = append(rows, fmt.Sprintf("and %d more", len(e.Rows)-5))
			break
		}
		rows = append(rows, strconv.Itoa(r))
	}
	return fmt.Sprintf("%s column %q must contain %s values (rows %s)",
		filepath.Base(e.Path), e.Column, e.Want, strings.Join(rows, ", "))
}

// Table is a CSV file held in memory.
type Table struct {
	Path   string
	Header []string
	Rows   [][]string

	index map[string]int
}

// Read loads a CSV file and checks that the required columns are present.
func Read(path string, required ...string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	t.Path = path

	if missing := t.Missing(required...); len(missing) > 0 {
		return t, &MissingColumnsError{Path: path, Columns: missing}
	}
	return t, nil
}

// New builds a table from a header and rows, trimming header names and
// padding short rows. Fully blank rows are dropped.
func New(header []string, rows [][]string) *Table {
	t := &Table{Header: make([]string, len(header))}
	for i, h := range header {
		t.Header[i] = strings.TrimSpace(h)
	}
	t.reindex()
	for _, rec := range rows {
		if isBlankRecord(rec) {
			continue
		}
		for len(rec) < len(header) {
			rec = append(rec, "")
		}
		t.Rows = append(t.Rows, rec)
	}
	return t
}

// Parse reads CSV data from r. The first record is the header.
func Parse(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("file is empty")
	}
	if err != nil {
		return nil, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
	return New(header, rows), nil
}

func isBlankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		if _, dup := t.index[h]; !dup {
			t.index[h] = i
		}
	}
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Has reports whether the table has a column.
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Missing returns the columns in cols that the table lacks.
func (t *Table) Missing(cols ...string) []string {
	var out []string
	for _, c := range cols {
		if !t.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Value returns a trimmed cell, or "" when the column does not exist.
func (t *Table) Value(row int, col string) string {
	i, ok := t.index[col]
	if !ok || i >= len(t.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[row][i])
}

// Strings returns the trimmed values of a column.
func (t *Table) Strings(col string) []string {
	out := make([]string, len(t.Rows))
	for r := range t.Rows {
		out[r] = t.Value(r, col)
	}
	return out
}

// Ints parses a column as integers. Blank cells are errors.
func (t *Table) Ints(col string) ([]int, error) {
	if !t.Has(col) {
		return nil, &MissingColumnsError{Path: t.Path, Columns: []string{col}}
	}
	out := make([]int, len(t.Rows))
	var bad []int
	for r := range t.Rows {
		v, err := ParseInt(t.Value(r, col))
		if err != nil {
			bad = append(bad, r+1)
			continue
		}
		out[r] = v
	}
	if len(bad) > 0 {
		return out, &ValueError{Path: t.Path, Column: col, Want: "integer", Rows: bad}
	}
	return out, nil
}

// Floats parses a column as numbers. Blank cells become NaN.
func (t *Table) Floats(col string) ([]float64, error) {
	return t.floats(col, true)
}

// RequiredFloats parses a column as numbers. Blank cells are errors.
func (t *Table) RequiredFloats(col string) ([]float64, error) {
	return t.floats(col, false)
}

func (t *Table) floats(col string, allowBlank bool) ([]float64, error) {
	if !t.Has(col) {
		return nil, &MissingColumnsError{Path: t.Path, Columns: []string{col}}
	}
	out := make([]float64, len(t.Rows))
	var bad []int
	for r := range t.Rows {
		raw := t.Value(r, col)
		if raw == "" && allowBlank {
			out[r] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			bad = append(bad, r+1)
			continue
		}
		out[r] = v
	}
	if len(bad) > 0 {
		return out, &ValueError{Path: t.Path, Column: col, Want: "numeric", Rows: bad}
	}
	return out, nil
}

// Duplicates returns values that occur more than once in a column, in first-seen order.
func (t *Table) Duplicates(col string) []string {
	seen := make(map[string]int)
	var out []string
	for _, v := range t.Strings(col) {
		seen[v]++
		if seen[v] == 2 {
			out = append(out, v)
		}
	}
	return out
}

// Unique returns the distinct values of a column in first-seen order.
func (t *Table) Unique(col string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range t.Strings(col) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// Rename renames a column if present.
func (t *Table) Rename(from, to string) {
	for i, h := range t.Header {
		if h == from {
			t.Header[i] = to
		}
	}
	t.reindex()
}

// ParseInt parses an integer cell, accepting integral decimals such as "12.0".
func ParseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return int(f), nil
}

// Write creates a CSV file with the given header and rows.
func Write(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// FormatFloat renders a number the way the engine writes it.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
