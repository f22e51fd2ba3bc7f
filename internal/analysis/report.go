// Package analysis assembles the column statistics, distributions,
// correlations and insights of a dataset into a renderable report.
package analysis

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/tabscope-cli/internal/backend"
	"github.com/KaramelBytes/tabscope-cli/internal/dataset"
	"github.com/KaramelBytes/tabscope-cli/internal/insights"
	"github.com/KaramelBytes/tabscope-cli/internal/stats"
)

// Options controls what Build computes.
type Options struct {
	// Columns restricts the report to these columns; empty means all.
	Columns []string
	// Correlations computes the Pearson matrix over numeric columns.
	Correlations bool
	// Histograms bins every numeric column with Histogram.
	Histograms bool
	Histogram  stats.HistogramOptions
	// GroupBy summarizes numeric columns per distinct key of these columns.
	GroupBy []string
	// SampleRows is how many leading rows to show; 0 means none.
	SampleRows int
	// TopValues is how many frequent values to list for non-numeric columns.
	TopValues int
	// Workers bounds concurrent column work; 0 means GOMAXPROCS.
	Workers int
}

// DefaultOptions returns the settings used when no flags are given.
func DefaultOptions() Options {
	return Options{
		Correlations: true,
		Histograms:   true,
		Histogram:    stats.ChartHistogram,
		SampleRows:   5,
		TopValues:    5,
	}
}

// Report is the assembled analysis of one dataset.
type Report struct {
	Name        string              `json:"name"`
	Rows        int                 `json:"rows"`
	Total       int                 `json:"total_rows"`
	Columns     []ColumnReport      `json:"columns"`
	Correlation *stats.Matrix       `json:"correlation,omitempty"`
	Groups      []GroupResult       `json:"groups,omitempty"`
	Quality     backend.DataQuality `json:"data_quality"`
	Insights    []backend.Insight   `json:"insights"`
	Samples     []dataset.Row       `json:"samples,omitempty"`
	Warnings    []string            `json:"warnings,omitempty"`
	GeneratedAt time.Time           `json:"generated_at"`
}

// ColumnReport extends a column summary with its distribution.
type ColumnReport struct {
	Name string `json:"name"`
	stats.Summary
	Quartiles *stats.QuartileRecord `json:"quartiles,omitempty"`
	Tails     *Tails                `json:"tails,omitempty"`
	Outliers  []float64             `json:"outliers,omitempty"`
	Histogram []stats.Bin           `json:"histogram,omitempty"`
	TopValues []CategoryCount       `json:"top_values,omitempty"`
}

// Tails holds the 5th and 95th percentiles of a numeric column.
type Tails struct {
	P5  float64 `json:"p5"`
	P95 float64 `json:"p95"`
}

func tailsOf(nums []float64) *Tails {
	p5, err := stats.Percentile(nums, 5)
	if err != nil {
		return nil
	}
	p95, _ := stats.Percentile(nums, 95)
	return &Tails{P5: p5, P95: p95}
}

// CategoryCount is one frequent value of a non-numeric column.
type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Analysis returns the per-column summaries keyed by column name, the shape
// the analysis service uses.
func (r *Report) Analysis() map[string]stats.Summary {
	out := make(map[string]stats.Summary, len(r.Columns))
	for _, c := range r.Columns {
		out[c.Name] = c.Summary
	}
	return out
}

// NumericColumns lists the report's numeric columns in order.
func (r *Report) NumericColumns() []string {
	var out []string
	for _, c := range r.Columns {
		if c.DType == stats.Numeric {
			out = append(out, c.Name)
		}
	}
	return out
}

// Column finds a column report by name.
func (r *Report) Column(name string) (ColumnReport, bool) {
	for _, c := range r.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnReport{}, false
}

// Build analyzes ds. Columns are described concurrently; the result does
// not depend on scheduling.
func Build(ctx context.Context, ds *dataset.Dataset, opt Options) (*Report, error) {
	start := time.Now()
	cols, err := ds.Select(opt.Columns)
	if err != nil {
		return nil, err
	}
	rep := &Report{
		Name:        ds.Name,
		Rows:        len(ds.Rows),
		Total:       ds.Total,
		Columns:     make([]ColumnReport, len(cols)),
		Warnings:    append([]string(nil), ds.Warnings...),
		GeneratedAt: time.Now().UTC(),
	}

	workers := opt.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, name := range cols {
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rep.Columns[i] = describe(name, ds.Column(name), opt)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analyze columns: %w", err)
	}

	if opt.Correlations {
		if numeric := rep.NumericColumns(); len(numeric) >= 2 {
			m := stats.CorrelationMatrix(ds.Rows, numeric)
			rep.Correlation = &m
		} else {
			rep.Warnings = append(rep.Warnings, "not enough numeric columns for correlation")
		}
	}
	if len(opt.GroupBy) > 0 {
		groups, err := groupBy(ds, opt.GroupBy, rep.NumericColumns())
		if err != nil {
			return nil, err
		}
		rep.Groups = groups
	}

	rep.Quality = insights.LocalQuality(ds.Rows, cols)
	rep.Insights = insights.Generate(ds.Rows, cols, rep.Quality)

	if n := min(opt.SampleRows, len(ds.Rows)); n > 0 {
		rep.Samples = make([]dataset.Row, n)
		for i := 0; i < n; i++ {
			row := make(dataset.Row, len(cols))
			for _, c := range cols {
				row[c] = ds.Rows[i][c]
			}
			rep.Samples[i] = row
		}
	}
	log.Printf("[Analysis] %s: %d columns, %d rows in %s", ds.Name, len(cols), len(ds.Rows), time.Since(start).Round(time.Microsecond))
	return rep, nil
}

func describe(name string, values []any, opt Options) ColumnReport {
	c := ColumnReport{Name: name, Summary: stats.DescribeColumn(values)}
	if c.DType != stats.Numeric {
		c.TopValues = topValues(values, opt.TopValues)
		return c
	}
	nums := stats.Numbers(values)
	if q, err := stats.Quartiles(nums); err == nil {
		c.Quartiles = &q
		// Quartiles succeeded, so Outliers sees the same non-empty input
		c.Outliers, _ = stats.Outliers(nums)
		c.Tails = tailsOf(nums)
	}
	if opt.Histograms {
		c.Histogram = stats.Histogram(nums, opt.Histogram)
	}
	return c
}

func topValues(values []any, limit int) []CategoryCount {
	if limit <= 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, v := range values {
		if !stats.IsMissing(v) {
			counts[stats.FormatRaw(v)]++
		}
	}
	tops := make([]CategoryCount, 0, len(counts))
	for k, v := range counts {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > limit {
		tops = tops[:limit]
	}
	return tops
}
