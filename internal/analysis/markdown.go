package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/KaramelBytes/tabscope-cli/internal/backend"
	"github.com/KaramelBytes/tabscope-cli/internal/insights"
	"github.com/KaramelBytes/tabscope-cli/internal/stats"
	"github.com/KaramelBytes/tabscope-cli/internal/utils"
)

const (
	maxCellRunes     = 80
	maxMatrixColumns = 12
	maxGroupMetrics  = 6
)

// view is what both local reports and service payloads render from.
type view struct {
	name          string
	rows, total   int
	columns       int
	quality       backend.DataQuality
	summaries     [][]string
	distributions []distribution
	corr          *stats.Matrix
	groups        []GroupResult
	insights      []backend.Insight
	sampleColumns []string
	samples       []map[string]any
	notes         []string
}

type distribution struct {
	name      string
	quartiles *stats.QuartileRecord
	tails     *Tails
	outliers  []float64
	histogram []stats.Bin
	top       []CategoryCount
}

var summaryHeader = []string{"Column", "Type", "Unique", "Missing", "Mean", "Median", "Std", "Min", "Max"}

// Markdown renders the report as a Markdown document.
func (r *Report) Markdown() string {
	v := view{
		name:     r.Name,
		rows:     r.Rows,
		total:    r.Total,
		columns:  len(r.Columns),
		quality:  r.Quality,
		corr:     r.Correlation,
		groups:   r.Groups,
		insights: r.Insights,
		samples:  make([]map[string]any, len(r.Samples)),
		notes:    r.Warnings,
	}
	for _, c := range r.Columns {
		v.summaries = append(v.summaries, summaryRow(c.Name, string(c.DType), c.Unique, c.Missing, c.MissingPercent,
			c.Mean, c.Median, c.Std, c.Min, c.Max))
		v.distributions = append(v.distributions, distribution{
			name: c.Name, quartiles: c.Quartiles, tails: c.Tails, outliers: c.Outliers, histogram: c.Histogram, top: c.TopValues,
		})
		v.sampleColumns = append(v.sampleColumns, c.Name)
	}
	for i, s := range r.Samples {
		v.samples[i] = s
	}
	return v.markdown()
}

// HTML renders the report as a standalone HTML page.
func (r *Report) HTML() []byte {
	return HTML(r.Markdown(), "tabscope: "+r.Name)
}

// RenderPayload renders a service payload like a local report. Correlations
// and histograms are derived from the payload rows when opt asks for them.
// Insights fall back to locally generated ones when the payload has none.
func RenderPayload(p *backend.Payload, opt Options) string {
	v := view{
		columns:       len(p.Columns),
		rows:          len(p.Data),
		total:         len(p.Data),
		quality:       p.DataQuality,
		insights:      p.Insights,
		sampleColumns: p.Columns,
	}
	if p.Metadata != nil {
		v.name = p.Metadata.Filename
		if p.Metadata.Rows > v.total {
			v.total = p.Metadata.Rows
		}
	}
	if len(v.insights) == 0 {
		v.insights = insights.Generate(p.Data, p.Columns, p.DataQuality)
	}
	var numeric []string
	for _, col := range p.Columns {
		a, ok := p.Analysis[col]
		if !ok {
			continue
		}
		kind := backend.ClassifyDType(a.DType)
		v.summaries = append(v.summaries, summaryRow(col, fmt.Sprintf("%s (%s)", kind, a.DType), a.Unique, a.Missing, a.MissingPercent,
			a.Mean, a.Median, a.Std, a.Min, a.Max))
		if kind.Numeric() {
			numeric = append(numeric, col)
		}
	}
	for _, col := range numeric {
		nums := stats.Numbers(columnOf(p.Data, col))
		d := distribution{name: col}
		if q, err := stats.Quartiles(nums); err == nil {
			d.quartiles = &q
			d.outliers, _ = stats.Outliers(nums)
			d.tails = tailsOf(nums)
		}
		if opt.Histograms {
			d.histogram = stats.Histogram(nums, opt.Histogram)
		}
		v.distributions = append(v.distributions, d)
	}
	if opt.Correlations && len(numeric) >= 2 {
		m := stats.CorrelationMatrix(p.Data, numeric)
		v.corr = &m
	}
	if n := min(opt.SampleRows, len(p.Data)); n > 0 {
		v.samples = p.Data[:n]
	}
	return v.markdown()
}

// HTML converts Markdown to a complete HTML page.
func HTML(md, title string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(md))
	r := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage | html.HrefTargetBlank,
		Title: title,
	})
	return markdown.Render(doc, r)
}

func columnOf(rows []map[string]any, col string) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r[col]
	}
	return out
}

func summaryRow(name, kind string, unique, missing int, missingFrac float64, mean, median, std, lo, hi *float64) []string {
	return []string{
		safeName(name), kind, fmt.Sprint(unique),
		fmt.Sprintf("%d (%.1f%%)", missing, missingFrac*100),
		optNum(mean), optNum(median), optNum(std), optNum(lo), optNum(hi),
	}
}

func (v view) markdown() string {
	var b strings.Builder
	title := v.name
	if title == "" {
		title = "dataset"
	}
	fmt.Fprintf(&b, "# Analysis: %s\n\n", safeVal(title))

	b.WriteString("## Dataset Summary\n\n")
	if v.total > v.rows {
		fmt.Fprintf(&b, "- Rows: ~%d (processed %d)\n", v.total, v.rows)
	} else {
		fmt.Fprintf(&b, "- Rows: %d\n", v.rows)
	}
	fmt.Fprintf(&b, "- Columns: %d\n", v.columns)
	fmt.Fprintf(&b, "- Data quality: %.1f%% (%s)\n\n", v.quality.QualityScore*100, insights.QualityLabel(v.quality.QualityScore))

	b.WriteString("## Data Quality\n\n")
	fmt.Fprintf(&b, "- Missing values: %d\n", v.quality.MissingCount)
	fmt.Fprintf(&b, "- Duplicate rows: %d\n", v.quality.DuplicateCount)
	fmt.Fprintf(&b, "- Completeness: %.1f%%\n", v.quality.Completeness*100)
	for _, issue := range v.quality.Issues {
		fmt.Fprintf(&b, "- Issue: %s\n", issue)
	}
	b.WriteString("\n")

	if len(v.summaries) > 0 {
		b.WriteString("## Column Summaries\n\n")
		writeTable(&b, summaryHeader, v.summaries)
		b.WriteString("\n")
	}

	if len(v.distributions) > 0 {
		b.WriteString("## Distributions\n\n")
		for _, d := range v.distributions {
			d.write(&b)
		}
	}

	if v.corr != nil && len(v.corr.Columns) >= 2 {
		b.WriteString("## Correlations\n\n")
		writeCorrelation(&b, v.corr)
	}

	if len(v.groups) > 0 {
		b.WriteString("## Group-By Summary\n\n")
		for _, g := range v.groups {
			fmt.Fprintf(&b, "- %s (n=%d)\n", g.Key, g.Size)
			for i, k := range sortedKeys(g.Metrics) {
				if i == maxGroupMetrics {
					break
				}
				m := g.Metrics[k]
				fmt.Fprintf(&b, "  - %s: mean %.4g (min %.4g, max %.4g)\n", k, m.Mean, m.Min, m.Max)
			}
		}
		b.WriteString("\n")
	}

	if len(v.insights) > 0 {
		b.WriteString("## Insights\n\n")
		for _, in := range v.insights {
			title := in.Title
			if title == "" {
				title = insightHeading(in.Type)
			}
			fmt.Fprintf(&b, "- **%s** (%s): %s", title, in.Type, in.Text())
			if in.Recommendation != "" {
				fmt.Fprintf(&b, " _%s_", in.Recommendation)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(v.samples) > 0 && len(v.sampleColumns) > 0 {
		b.WriteString("## Sample Rows\n\n")
		header := make([]string, len(v.sampleColumns))
		for i, c := range v.sampleColumns {
			header[i] = safeName(c)
		}
		rows := make([][]string, len(v.samples))
		for i, s := range v.samples {
			rows[i] = make([]string, len(v.sampleColumns))
			for j, c := range v.sampleColumns {
				if !stats.IsMissing(s[c]) {
					rows[i][j] = utils.Truncate(stats.FormatRaw(s[c]), maxCellRunes)
				}
			}
		}
		writeTable(&b, header, rows)
		b.WriteString("\n")
	}

	if len(v.notes) > 0 {
		b.WriteString("## Notes\n\n")
		for _, n := range v.notes {
			fmt.Fprintf(&b, "- %s\n", n)
		}
	}
	return b.String()
}

func (d distribution) write(b *strings.Builder) {
	if d.quartiles == nil && len(d.histogram) == 0 && len(d.top) == 0 {
		return
	}
	fmt.Fprintf(b, "### %s\n\n", safeVal(safeName(d.name)))
	if q := d.quartiles; q != nil {
		lo, hi := q.Fences()
		fmt.Fprintf(b, "- Quartiles: Q1 %s, median %s, Q3 %s (IQR %s)\n", num(q.Q1), num(q.Q2), num(q.Q3), num(q.IQR))
		if t := d.tails; t != nil {
			fmt.Fprintf(b, "- Tails: P5 %s, P95 %s\n", num(t.P5), num(t.P95))
		}
		fmt.Fprintf(b, "- Outliers outside [%s, %s]: %d", num(lo), num(hi), len(d.outliers))
		if len(d.outliers) > 0 {
			shown := d.outliers
			if len(shown) > 10 {
				shown = shown[:10]
			}
			parts := make([]string, len(shown))
			for i, o := range shown {
				parts[i] = num(o)
			}
			fmt.Fprintf(b, " (%s", strings.Join(parts, ", "))
			if len(d.outliers) > len(shown) {
				b.WriteString(", …")
			}
			b.WriteString(")")
		}
		b.WriteString("\n")
	}
	if len(d.top) > 0 {
		parts := make([]string, len(d.top))
		for i, kv := range d.top {
			parts[i] = fmt.Sprintf("%s(%d)", safeVal(utils.Truncate(kv.Value, 40)), kv.Count)
		}
		fmt.Fprintf(b, "- Top values: %s\n", strings.Join(parts, ", "))
	}
	b.WriteString("\n")
	if len(d.histogram) > 0 {
		rows := make([][]string, len(d.histogram))
		for i, bin := range d.histogram {
			rows[i] = []string{bin.Label, fmt.Sprint(bin.Frequency)}
		}
		writeTable(b, []string{"Range", "Count"}, rows)
		b.WriteString("\n")
	}
}

// CorrelationMarkdown renders a matrix and its strong pairs.
func CorrelationMarkdown(m *stats.Matrix) string {
	var b strings.Builder
	writeCorrelation(&b, m)
	return b.String()
}

// HistogramMarkdown renders one column's quartiles, outliers and bins.
func HistogramMarkdown(column string, values []float64, opt stats.HistogramOptions) string {
	var b strings.Builder
	d := distribution{name: column, histogram: stats.Histogram(values, opt)}
	if q, err := stats.Quartiles(values); err == nil {
		d.quartiles = &q
		d.outliers, _ = stats.Outliers(values)
		d.tails = tailsOf(values)
	}
	d.write(&b)
	return b.String()
}

func writeCorrelation(b *strings.Builder, m *stats.Matrix) {
	writeMatrix(b, m)
	if len(m.StrongPairs) == 0 {
		b.WriteString("No strong correlations (|r| > 0.7) found.\n\n")
		return
	}
	for _, p := range m.StrongPairs {
		fmt.Fprintf(b, "- %s ~ %s: r=%.3f (%s)\n", safeVal(p.A), safeVal(p.B), p.R, p.Strength)
	}
	b.WriteString("\n")
}

func writeMatrix(b *strings.Builder, m *stats.Matrix) {
	d := m.Dense()
	if d == nil {
		return
	}
	k := min(len(m.Columns), maxMatrixColumns)
	view := d.Slice(0, k, 0, k)
	cols := m.Columns[:k]
	header := append([]string{""}, cols...)
	rows := make([][]string, k)
	for i, a := range cols {
		rows[i] = make([]string, k+1)
		rows[i][0] = a
		for j := 0; j < k; j++ {
			rows[i][j+1] = fmt.Sprintf("%.3f", view.At(i, j))
		}
	}
	writeTable(b, header, rows)
	b.WriteString("\n")
}

func writeTable(b *strings.Builder, header []string, rows [][]string) {
	b.WriteString("|")
	for _, h := range header {
		fmt.Fprintf(b, " %s |", safeVal(h))
	}
	b.WriteString("\n|")
	for range header {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString("|")
		for i := range header {
			val := ""
			if i < len(row) {
				val = row[i]
			}
			fmt.Fprintf(b, " %s |", safeVal(val))
		}
		b.WriteString("\n")
	}
}

func insightHeading(t backend.InsightType) string {
	switch t {
	case backend.InsightTrend:
		return "Trend"
	case backend.InsightAlert:
		return "Alert"
	}
	return "Insight"
}

func num(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return fmt.Sprint(f)
	}
	return fmt.Sprintf("%.4g", f)
}

func optNum(f *float64) string {
	if f == nil {
		return "-"
	}
	return num(*f)
}

func sortedKeys(m map[string]NumSummary) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
