package cmd

import (
	"fmt"
	"os"

	"github.com/KaramelBytes/tabscope-cli/internal/analysis"
	"github.com/KaramelBytes/tabscope-cli/internal/stats"
	"github.com/spf13/cobra"
)

var (
	corrInput   inputFlags
	corrColumns []string
	corrFormat  string
	corrOutput  string
)

var correlateCmd = &cobra.Command{
	Use:   "correlate <file>",
	Short: "Print the Pearson correlation matrix of the numeric columns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := current()
		if err != nil {
			return err
		}
		ds, err := loadDataset(c, args[0], corrInput)
		if err != nil {
			return err
		}
		cols, err := ds.Select(corrColumns)
		if err != nil {
			return err
		}
		numeric := stats.NumericColumns(ds.Rows, cols)
		if len(numeric) < 2 {
			fmt.Fprintf(os.Stderr, "⚠ Warning: need at least 2 numeric columns, found %d\n", len(numeric))
		}
		m := stats.CorrelationMatrix(ds.Rows, numeric)
		md := fmt.Sprintf("# Correlations: %s\n\n%s", ds.Name, analysis.CorrelationMarkdown(&m))
		body, _, err := render(corrFormat, md, "tabscope: "+ds.Name, func() any { return m })
		if err != nil {
			return err
		}
		return emit(corrOutput, body)
	},
}

func init() {
	rootCmd.AddCommand(correlateCmd)
	bindInputFlags(correlateCmd, &corrInput)
	correlateCmd.Flags().StringSliceVar(&corrColumns, "columns", nil, "candidate columns (non-numeric ones are skipped)")
	correlateCmd.Flags().StringVarP(&corrFormat, "format", "f", "md", "output format: md | html | json")
	correlateCmd.Flags().StringVarP(&corrOutput, "output", "o", "", "optional path to write the result (stdout if omitted)")
}
