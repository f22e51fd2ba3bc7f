// Package insights derives short narrative findings from a table and its
// quality report.
package insights

import (
	"fmt"
	"math"

	"github.com/KaramelBytes/tabscope-cli/internal/backend"
	"github.com/KaramelBytes/tabscope-cli/internal/stats"
)

const (
	smallDataset  = 100
	mediumDataset = 1000

	lowQualityScore       = 0.7
	highCardinalityRatio  = 0.8
	exponentialSpreadRate = 10
)

// Generate returns insights for rows over columns, in a fixed order: overview,
// quality, then per column (variability, exponential spread, cardinality),
// then completeness and duplicates.
func Generate(rows []map[string]any, columns []string, quality backend.DataQuality) []backend.Insight {
	out := []backend.Insight{}
	if len(rows) == 0 {
		return out
	}

	out = append(out, backend.Insight{
		Type:  backend.InsightGeneral,
		Title: "Dataset Overview",
		Message: fmt.Sprintf("Your dataset contains %d rows across %d columns. This is a %s dataset.",
			len(rows), len(columns), sizeLabel(len(rows))),
	})

	if quality.QualityScore < lowQualityScore {
		out = append(out, backend.Insight{
			Type:    backend.InsightAlert,
			Title:   "Data Quality Issues",
			Message: fmt.Sprintf("Data quality score is %.0f%%. Consider cleaning missing values and duplicates.", quality.QualityScore*100),
			Metrics: map[string]float64{"quality_score": quality.QualityScore},
		})
	}

	for _, col := range columns {
		out = append(out, columnInsights(col, rows)...)
	}

	if quality.Completeness < 1 {
		out = append(out, backend.Insight{
			Type:    backend.InsightAlert,
			Title:   "Missing Data",
			Message: fmt.Sprintf("%.1f%% of values are missing. This may affect analysis accuracy.", (1-quality.Completeness)*100),
			Metrics: map[string]float64{"completeness": quality.Completeness},
		})
	}

	if quality.DuplicateCount > 0 {
		out = append(out, backend.Insight{
			Type:           backend.InsightAlert,
			Title:          "Duplicate Records Found",
			Message:        fmt.Sprintf("%d duplicate rows detected. Remove them for accurate analysis.", quality.DuplicateCount),
			Recommendation: "Remove duplicate rows to improve data quality.",
			Metrics:        map[string]float64{"duplicate_count": float64(quality.DuplicateCount)},
		})
	}
	return out
}

func columnInsights(col string, rows []map[string]any) []backend.Insight {
	present := make([]any, 0, len(rows))
	for _, r := range rows {
		if v := r[col]; !stats.IsMissing(v) {
			present = append(present, v)
		}
	}
	if len(present) == 0 {
		return nil
	}
	var out []backend.Insight

	// a column counts as numeric when its first present value does
	if _, ok := stats.ToNumber(present[0]); ok {
		if nums := stats.Numbers(present); len(nums) > 0 {
			out = append(out, numericInsights(col, nums)...)
		}
	}

	unique := make(map[string]struct{}, len(present))
	for _, v := range present {
		unique[stats.FormatRaw(v)] = struct{}{}
	}
	if ratio := float64(len(unique)) / float64(len(present)); ratio > highCardinalityRatio {
		out = append(out, backend.Insight{
			Type:    backend.InsightGeneral,
			Title:   fmt.Sprintf("High Cardinality in %s", col),
			Message: fmt.Sprintf("%s has %d unique values. Consider grouping for better visualization.", col, len(unique)),
			Metrics: map[string]float64{"unique": float64(len(unique)), "unique_ratio": ratio},
		})
	}
	return out
}

func numericInsights(col string, nums []float64) []backend.Insight {
	lo, hi := math.Inf(1), math.Inf(-1)
	var sum float64
	for _, v := range nums {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		sum += v
	}
	avg := sum / float64(len(nums))

	var out []backend.Insight
	if hi-lo > avg*2 {
		out = append(out, backend.Insight{
			Type:    backend.InsightTrend,
			Title:   fmt.Sprintf("High Variability in %s", col),
			Message: fmt.Sprintf("%s has a wide range (%.2f to %.2f). Consider log transformation for visualization.", col, lo, hi),
			Metrics: map[string]float64{"min": lo, "max": hi, "mean": avg},
		})
	}
	if lo > 0 && hi/lo > exponentialSpreadRate {
		out = append(out, backend.Insight{
			Type:    backend.InsightTrend,
			Title:   fmt.Sprintf("Exponential Pattern in %s", col),
			Message: fmt.Sprintf("%s shows a %.1fx difference between max and min values, suggesting exponential growth.", col, hi/lo),
			Metrics: map[string]float64{"ratio": hi / lo},
		})
	}
	return out
}

func sizeLabel(n int) string {
	switch {
	case n < smallDataset:
		return "small"
	case n < mediumDataset:
		return "medium"
	}
	return "large"
}
