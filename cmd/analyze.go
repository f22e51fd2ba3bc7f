package cmd

import (
	"context"
	"path/filepath"

	"github.com/KaramelBytes/tabscope-cli/internal/analysis"
	cfgpkg "github.com/KaramelBytes/tabscope-cli/internal/config"
	"github.com/KaramelBytes/tabscope-cli/internal/workspace"
	"github.com/spf13/cobra"
)

// reportFlags are the report-shaping flags shared by analyze and analyze-batch.
type reportFlags struct {
	columns      []string
	groupBy      []string
	correlations bool
	histograms   bool
	preset       string
	bins         int
	decimals     int
	sampleRows   int
	topValues    int
}

func (rf reportFlags) options(c *cfgpkg.Global) (analysis.Options, error) {
	opt := analysis.DefaultOptions()
	opt.Columns = rf.columns
	opt.GroupBy = rf.groupBy
	opt.Correlations = rf.correlations
	opt.Histograms = rf.histograms
	opt.SampleRows = c.SampleRows
	if rf.sampleRows >= 0 {
		opt.SampleRows = rf.sampleRows
	}
	if rf.topValues >= 0 {
		opt.TopValues = rf.topValues
	}
	h, err := histogramOptions(c, rf.preset, rf.bins, rf.decimals)
	if err != nil {
		return opt, err
	}
	opt.Histogram = h
	return opt, nil
}

func bindReportFlags(cmd *cobra.Command, rf *reportFlags) {
	f := cmd.Flags()
	f.StringSliceVar(&rf.columns, "columns", nil, "restrict the report to these columns (comma-separated)")
	f.StringSliceVar(&rf.groupBy, "group-by", nil, "column names to group by (repeatable)")
	f.BoolVar(&rf.correlations, "correlations", true, "compute Pearson correlations among numeric columns")
	f.BoolVar(&rf.histograms, "histogram", true, "bin every numeric column")
	f.StringVar(&rf.preset, "preset", "chart", "histogram preset: chart (adaptive bins) | general (20 bins)")
	f.IntVar(&rf.bins, "bins", 0, "histogram bin count (0 = preset)")
	f.IntVar(&rf.decimals, "decimals", -1, "histogram label decimals (-1 = preset)")
	f.IntVar(&rf.sampleRows, "sample-rows", -1, "number of sample rows to include (-1 = config)")
	f.IntVar(&rf.topValues, "top-values", -1, "frequent values listed per text column (-1 = default)")
}

func bindInputFlags(cmd *cobra.Command, in *inputFlags) {
	f := cmd.Flags()
	f.StringVar(&in.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | 'pipe' (sniffed if omitted)")
	f.StringVar(&in.sheetName, "sheet-name", "", "XLSX: sheet name to analyze")
	f.IntVar(&in.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	f.IntVar(&in.maxRows, "max-rows", -1, "maximum rows to process (0 = unlimited, -1 = config)")
}

var (
	anaInput     inputFlags
	anaReport    reportFlags
	anaFormat    string
	anaOutput    string
	anaNoHistory bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Profile a CSV/TSV/XLSX file locally",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := current()
		if err != nil {
			return err
		}
		path := args[0]
		opt, err := anaReport.options(c)
		if err != nil {
			return err
		}
		ds, err := loadDataset(c, path, anaInput)
		if err != nil {
			return err
		}
		rep, err := analysis.Build(cmdContext(cmd), ds, opt)
		if err != nil {
			return err
		}
		body, ext, err := render(anaFormat, rep.Markdown(), "tabscope: "+rep.Name, func() any { return rep })
		if err != nil {
			return err
		}
		if !anaNoHistory {
			run := workspace.NewRun(path, workspace.SourceLocal)
			run.Rows = rep.Rows
			run.Columns = len(rep.Columns)
			run.QualityScore = rep.Quality.QualityScore
			recordRun(c, run, ext, body)
		}
		return emit(anaOutput, body)
	},
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func defaultReportName(file, ext string) string {
	base := filepath.Base(file)
	return base[:len(base)-len(filepath.Ext(base))] + "_report." + ext
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	bindInputFlags(analyzeCmd, &anaInput)
	bindReportFlags(analyzeCmd, &anaReport)
	analyzeCmd.Flags().StringVarP(&anaFormat, "format", "f", "md", "output format: md | html | json")
	analyzeCmd.Flags().StringVarP(&anaOutput, "output", "o", "", "optional path to write the report (stdout if omitted)")
	analyzeCmd.Flags().BoolVar(&anaNoHistory, "no-history", false, "do not record this run in the workspace history")
}
