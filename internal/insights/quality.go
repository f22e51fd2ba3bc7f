package insights

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/KaramelBytes/tabscope-cli/internal/backend"
	"github.com/KaramelBytes/tabscope-cli/internal/stats"
)

var printer = message.NewPrinter(language.English)

// Quality label thresholds, checked from the top.
var qualityLabels = []struct {
	min   float64
	label string
}{
	{0.9, "Excellent"},
	{0.7, "Good"},
	{0.5, "Fair"},
	{0.3, "Poor"},
}

// QualityLabel grades a quality score in [0, 1].
func QualityLabel(score float64) string {
	for _, q := range qualityLabels {
		if score >= q.min {
			return q.label
		}
	}
	return "Critical"
}

// LocalQuality scores rows the same way the analysis service does: missing
// cells lower the score one for one, duplicate rows at a tenth of their share.
func LocalQuality(rows []map[string]any, columns []string) backend.DataQuality {
	q := backend.DataQuality{Issues: []string{}}
	cells := len(rows) * len(columns)
	for _, r := range rows {
		for _, c := range columns {
			if stats.IsMissing(r[c]) {
				q.MissingCount++
			}
		}
	}
	q.DuplicateCount = countDuplicates(rows, columns)

	if cells > 0 {
		q.Completeness = 1 - float64(q.MissingCount)/float64(cells)
		q.QualityScore = q.Completeness - float64(q.DuplicateCount)/float64(len(rows))*0.1
	}
	q.QualityScore = clamp01(q.QualityScore)

	if q.MissingCount > 0 {
		q.Issues = append(q.Issues, printer.Sprintf("Contains %d missing values", q.MissingCount))
	}
	if q.DuplicateCount > 0 {
		q.Issues = append(q.Issues, printer.Sprintf("Contains %d duplicate rows", q.DuplicateCount))
	}
	if len(columns) > 50 {
		q.Issues = append(q.Issues, "Dataset has many columns, consider dimensionality reduction")
	}
	if len(rows) < 10 {
		q.Issues = append(q.Issues, "Dataset is very small, analysis may be limited")
	}
	return q
}

// countDuplicates counts rows identical to an earlier row over columns.
func countDuplicates(rows []map[string]any, columns []string) int {
	seen := make(map[string]struct{}, len(rows))
	dups := 0
	var sb strings.Builder
	for _, r := range rows {
		sb.Reset()
		for _, c := range columns {
			if stats.IsMissing(r[c]) {
				sb.WriteString("\x00")
			} else {
				sb.WriteString(stats.FormatRaw(r[c]))
			}
			sb.WriteString("\x1f")
		}
		key := sb.String()
		if _, ok := seen[key]; ok {
			dups++
			continue
		}
		seen[key] = struct{}{}
	}
	return dups
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}
