package cmd

import (
	"fmt"

	"github.com/KaramelBytes/tabscope-cli/internal/analysis"
	"github.com/KaramelBytes/tabscope-cli/internal/stats"
	"github.com/spf13/cobra"
)

var (
	histInput    inputFlags
	histColumn   string
	histPreset   string
	histBins     int
	histDecimals int
	histFormat   string
	histOutput   string
)

var histogramCmd = &cobra.Command{
	Use:   "histogram <file>",
	Short: "Bin one numeric column into equal-width buckets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := current()
		if err != nil {
			return err
		}
		opt, err := histogramOptions(c, histPreset, histBins, histDecimals)
		if err != nil {
			return err
		}
		ds, err := loadDataset(c, args[0], histInput)
		if err != nil {
			return err
		}
		if !ds.HasColumn(histColumn) {
			return fmt.Errorf("unknown column %q", histColumn)
		}
		values := ds.Column(histColumn)
		if t := stats.InferType(values); t != stats.Numeric {
			return fmt.Errorf("column %q is %s, not numeric", histColumn, t)
		}
		nums := stats.Numbers(values)
		md := fmt.Sprintf("# Histogram: %s\n\n%s", ds.Name, analysis.HistogramMarkdown(histColumn, nums, opt))
		body, _, err := render(histFormat, md, "tabscope: "+ds.Name, func() any {
			return map[string]any{"column": histColumn, "options": opt, "bins": stats.Histogram(nums, opt)}
		})
		if err != nil {
			return err
		}
		return emit(histOutput, body)
	},
}

func init() {
	rootCmd.AddCommand(histogramCmd)
	bindInputFlags(histogramCmd, &histInput)
	histogramCmd.Flags().StringVarP(&histColumn, "column", "c", "", "numeric column to bin (required)")
	histogramCmd.Flags().StringVar(&histPreset, "preset", "chart", "chart (adaptive bins, 1 decimal) | general (20 bins, 2 decimals)")
	histogramCmd.Flags().IntVar(&histBins, "bins", 0, "bin count (0 = preset)")
	histogramCmd.Flags().IntVar(&histDecimals, "decimals", -1, "label decimals (-1 = preset)")
	histogramCmd.Flags().StringVarP(&histFormat, "format", "f", "md", "output format: md | html | json")
	histogramCmd.Flags().StringVarP(&histOutput, "output", "o", "", "optional path to write the result (stdout if omitted)")
	_ = histogramCmd.MarkFlagRequired("column")
}
