// Package dataset loads tabular files into rows of raw cell values and guards
// them against size and naming limits.
package dataset

import (
	"fmt"
	"strings"
)

// Row maps a column name to a raw cell: nil, string, float64 or bool.
type Row = map[string]any

// Dataset is an in-memory table. Rows are never mutated after loading.
type Dataset struct {
	Name     string   `json:"name"`
	Columns  []string `json:"columns"`
	Rows     []Row    `json:"data"`
	Total    int      `json:"total_rows"` // rows seen in the source, including those past MaxRows
	Warnings []string `json:"warnings,omitempty"`
}

// Column returns the raw values of one column in row order.
func (d *Dataset) Column(name string) []any {
	out := make([]any, len(d.Rows))
	for i, r := range d.Rows {
		out[i] = r[name]
	}
	return out
}

// HasColumn reports whether name is one of the dataset's columns.
func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Select returns the requested columns, failing on the first unknown name.
// An empty request selects every column.
func (d *Dataset) Select(names []string) ([]string, error) {
	if len(names) == 0 {
		return append([]string(nil), d.Columns...), nil
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if !d.HasColumn(n) {
			return nil, fmt.Errorf("unknown column %q", n)
		}
		out = append(out, n)
	}
	return out, nil
}

// fromRecords builds a dataset from a header row and string records, applying
// the row cap. Blank cells become nil.
func fromRecords(name string, header []string, next func() ([]string, error), maxRows int) (*Dataset, error) {
	cols, renamed := uniqueHeaders(header)
	ds := &Dataset{Name: name, Columns: cols}
	if renamed > 0 {
		ds.Warnings = append(ds.Warnings, fmt.Sprintf("renamed %d blank or duplicate column header(s)", renamed))
	}
	if maxRows <= 0 {
		maxRows = int(^uint(0) >> 1)
	}
	for {
		rec, err := next()
		if err != nil {
			return nil, err
		}
		if rec == nil {
			break
		}
		ds.Total++
		if len(ds.Rows) >= maxRows {
			continue
		}
		row := make(Row, len(cols))
		for j, c := range cols {
			var cell string
			if j < len(rec) {
				cell = strings.TrimSpace(rec[j])
			}
			if cell == "" {
				row[c] = nil
				continue
			}
			row[c] = cell
		}
		ds.Rows = append(ds.Rows, row)
	}
	if len(ds.Rows) < ds.Total {
		ds.Warnings = append(ds.Warnings, fmt.Sprintf("processed only %d/%d rows due to MaxRows", len(ds.Rows), ds.Total))
	}
	return ds, nil
}

func uniqueHeaders(header []string) ([]string, int) {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	renamed := 0
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
			renamed++
		}
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
			renamed++
		}
		seen[name]++
		out[i] = name
	}
	return out, renamed
}
