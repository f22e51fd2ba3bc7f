package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Severity grades a validation finding.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Issue is one validation finding.
type Issue struct {
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// ValidationResult collects errors (which block processing) and warnings.
type ValidationResult struct {
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// Valid reports whether no blocking error was found.
func (v ValidationResult) Valid() bool { return len(v.Errors) == 0 }

// Err folds the blocking errors into a single error, or nil.
func (v ValidationResult) Err() error {
	if v.Valid() {
		return nil
	}
	msgs := make([]string, len(v.Errors))
	for i, e := range v.Errors {
		msgs[i] = e.Message
	}
	return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
}

func (v *ValidationResult) fail(field, msg string) {
	v.Errors = append(v.Errors, Issue{Field: field, Message: msg, Severity: SeverityError})
}

func (v *ValidationResult) warn(field, msg string) {
	v.Warnings = append(v.Warnings, Issue{Field: field, Message: msg, Severity: SeverityWarning})
}

// Limits bounds what a user may feed in.
type Limits struct {
	MaxFileSize       int64
	MaxRows           int
	MaxColumns        int
	MaxMemory         int64
	AllowedExtensions []string
}

const (
	smallFileBytes = 100
	largeFileBytes = 10 << 20
	avgCellBytes   = 50
)

// DefaultLimits mirrors the dashboard's upload guard.
func DefaultLimits() Limits {
	return Limits{
		MaxFileSize:       100 << 20,
		MaxRows:           1000000,
		MaxColumns:        500,
		MaxMemory:         500 << 20,
		AllowedExtensions: []string{".csv", ".tsv", ".xls", ".xlsx"},
	}
}

// ValidateFile checks size, extension and file name of path.
func (l Limits) ValidateFile(path string) ValidationResult {
	var res ValidationResult
	info, err := os.Stat(path)
	if err != nil {
		res.fail("file", fmt.Sprintf("cannot read file: %v", err))
		return res
	}
	if info.IsDir() {
		res.fail("file", "path is a directory")
		return res
	}
	size := info.Size()
	if l.MaxFileSize > 0 && size > l.MaxFileSize {
		res.fail("fileSize", fmt.Sprintf("File size (%s) exceeds maximum allowed size (%s)", FormatBytes(size), FormatBytes(l.MaxFileSize)))
	}
	base := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(base))
	allowed := false
	for _, e := range l.AllowedExtensions {
		if ext == e {
			allowed = true
			break
		}
	}
	if !allowed {
		res.fail("fileType", fmt.Sprintf("File type is not allowed. Accepted types: %s", strings.Join(l.AllowedExtensions, ", ")))
	}
	if SuspiciousName(base) {
		res.fail("fileName", "File name contains invalid characters")
	}
	if size < smallFileBytes {
		res.warn("fileSize", "File size is very small. Make sure the file contains valid data.")
	}
	if size > largeFileBytes {
		res.warn("fileSize", fmt.Sprintf("Large file (%.2fMB). Processing may take a moment.", float64(size)/(1<<20)))
	}
	return res
}

// ValidateDimensions checks row and column counts.
func (l Limits) ValidateDimensions(rows, cols int) ValidationResult {
	var res ValidationResult
	if l.MaxRows > 0 && rows > l.MaxRows {
		res.fail("rows", fmt.Sprintf("Dataset exceeds maximum rows (%d). Got %d rows.", l.MaxRows, rows))
	}
	if l.MaxColumns > 0 && cols > l.MaxColumns {
		res.fail("columns", fmt.Sprintf("Dataset exceeds maximum columns (%d). Got %d columns.", l.MaxColumns, cols))
	}
	if l.WouldExceedMemory(rows, cols) {
		res.warn("memory", fmt.Sprintf("Estimated memory %s exceeds %s", FormatBytes(EstimateMemory(rows, cols)), FormatBytes(l.MaxMemory)))
	}
	return res
}

// EstimateMemory is a rough rows*cols*50 byte estimate.
func EstimateMemory(rows, cols int) int64 {
	return int64(rows) * int64(cols) * avgCellBytes
}

// WouldExceedMemory reports whether the estimate passes MaxMemory.
func (l Limits) WouldExceedMemory(rows, cols int) bool {
	return l.MaxMemory > 0 && EstimateMemory(rows, cols) > l.MaxMemory
}

// ValidateColumns flags an empty header or duplicated names.
func ValidateColumns(columns []string) ValidationResult {
	var res ValidationResult
	if len(columns) == 0 {
		res.fail("columns", "No columns found in dataset.")
		return res
	}
	seen := make(map[string]bool, len(columns))
	var dups []string
	for _, c := range columns {
		if seen[c] {
			dups = append(dups, c)
		}
		seen[c] = true
	}
	if len(dups) > 0 {
		res.fail("columns", fmt.Sprintf("Duplicate column names found: %s", strings.Join(dups, ", ")))
	}
	return res
}

// SuspiciousName reports path traversal or markup characters in a file name.
func SuspiciousName(name string) bool {
	return strings.Contains(name, "..") || strings.ContainsAny(name, `/\<>{}`)
}

var (
	unsafeColumnChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
	controlChars      = regexp.MustCompile(`[\x00-\x1F\x7F]`)
)

const (
	maxColumnName = 255
	maxCellLength = 10000
)

// SanitizeColumnName keeps [A-Za-z0-9_-], replacing the rest with '_'.
func SanitizeColumnName(name string) string {
	s := unsafeColumnChars.ReplaceAllString(name, "_")
	if len(s) > maxColumnName {
		s = s[:maxColumnName]
	}
	return s
}

// SanitizeCellValue strips control characters and caps the length of string
// cells. Other values pass through.
func SanitizeCellValue(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	s = controlChars.ReplaceAllString(s, "")
	if r := []rune(s); len(r) > maxCellLength {
		s = string(r[:maxCellLength])
	}
	return s
}

// FormatBytes renders a byte count as "1.5 MB".
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}
	units := []string{"Bytes", "KB", "MB", "GB", "TB"}
	f := float64(n)
	i := 0
	for f >= 1024 && i < len(units)-1 {
		f /= 1024
		i++
	}
	return fmt.Sprintf("%s %s", strings.TrimSuffix(strings.TrimSuffix(fmt.Sprintf("%.2f", f), "0"), ".0"), units[i])
}
