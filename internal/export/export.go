// Package export writes a loaded table and its analysis to downloadable files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/tabscope-cli/internal/stats"
)

// Format is an export file type.
type Format string

const (
	CSV     Format = "csv"
	JSON    Format = "json"
	Summary Format = "txt"
	XLSX    Format = "xlsx"
)

// ParseFormat accepts a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case CSV, JSON, Summary, XLSX:
		return f, nil
	case "text", "report":
		return Summary, nil
	}
	return "", fmt.Errorf("unsupported export format %q (use csv, json, txt or xlsx)", s)
}

// Suffix is the file name ending used for the format.
func (f Format) Suffix() string {
	switch f {
	case CSV:
		return "_cleaned.csv"
	case JSON:
		return "_analysis.json"
	case XLSX:
		return "_cleaned.xlsx"
	}
	return "_report.txt"
}

// BaseName strips the directory and the last extension from file and appends
// suffix: "data/sales.csv" + "_cleaned.csv" = "sales_cleaned.csv".
func BaseName(file, suffix string) string {
	base := filepath.Base(file)
	if ext := filepath.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return base + suffix
}

// WriteCSV writes the header and rows. Missing cells are empty.
func WriteCSV(w io.Writer, columns []string, rows []map[string]any) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(columns))
	for i, row := range rows {
		for j, c := range columns {
			rec[j] = cell(row[c])
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Metadata heads a JSON export.
type Metadata struct {
	FileName    string    `json:"file_name"`
	ExportDate  time.Time `json:"export_date"`
	RowCount    int       `json:"row_count"`
	ColumnCount int       `json:"column_count"`
}

// Document is the JSON export layout.
type Document struct {
	Metadata Metadata         `json:"metadata"`
	Analysis any              `json:"analysis"`
	Data     []map[string]any `json:"data"`
}

// WriteJSON writes metadata, the analysis and the rows as indented JSON.
func WriteJSON(w io.Writer, name string, columns []string, analysis any, rows []map[string]any, now time.Time) error {
	if rows == nil {
		rows = []map[string]any{}
	}
	doc := Document{
		Metadata: Metadata{
			FileName:    name,
			ExportDate:  now.UTC(),
			RowCount:    len(rows),
			ColumnCount: len(columns),
		},
		Analysis: analysis,
		Data:     rows,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}

// WriteSummary writes a plain-text column report.
func WriteSummary(w io.Writer, name string, rows int, analysis map[string]stats.Summary, now time.Time) error {
	var b strings.Builder
	b.WriteString("DATA ANALYSIS SUMMARY REPORT\n")
	b.WriteString(strings.Repeat("=", 50) + "\n\n")
	fmt.Fprintf(&b, "File: %s\n", name)
	fmt.Fprintf(&b, "Rows: %d\n", rows)
	fmt.Fprintf(&b, "Columns: %d\n", len(analysis))
	fmt.Fprintf(&b, "Generated: %s\n\n", now.Format(time.RFC1123))
	b.WriteString("COLUMN ANALYSIS\n")
	b.WriteString(strings.Repeat("-", 50) + "\n")

	names := make([]string, 0, len(analysis))
	for k := range analysis {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, col := range names {
		s := analysis[col]
		fmt.Fprintf(&b, "\n%s:\n", col)
		fmt.Fprintf(&b, "  Type: %s\n", s.DType)
		fmt.Fprintf(&b, "  Unique: %d\n", s.Unique)
		fmt.Fprintf(&b, "  Missing: %.2f%%\n", s.MissingPercent*100)
		if s.Mean != nil {
			fmt.Fprintf(&b, "  Mean: %.2f\n", *s.Mean)
		}
		if s.Max != nil {
			fmt.Fprintf(&b, "  Max: %.2f\n", *s.Max)
		}
		if s.Min != nil {
			fmt.Fprintf(&b, "  Min: %.2f\n", *s.Min)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteXLSX writes the rows to a single-sheet workbook. Cells that coerce to
// finite numbers are stored as numbers.
func WriteXLSX(w io.Writer, sheet string, columns []string, rows []map[string]any) error {
	f := excelize.NewFile()
	defer f.Close()
	if sheet == "" {
		sheet = "Data"
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("open sheet writer: %w", err)
	}
	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		vals := make([]any, len(columns))
		for j, c := range columns {
			vals[j] = xlsxCell(row[c])
		}
		axis, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(axis, vals); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func cell(v any) string {
	if stats.IsMissing(v) {
		return ""
	}
	return stats.FormatRaw(v)
}

func xlsxCell(v any) any {
	if stats.IsMissing(v) {
		return nil
	}
	if s, ok := v.(string); ok {
		if f, ok := stats.ToNumber(s); ok && strings.TrimSpace(s) != "" && !math.IsInf(f, 0) {
			return f
		}
		return s
	}
	return v
}
