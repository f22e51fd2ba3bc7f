package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"
	"time"

	"github.com/KaramelBytes/tabscope-cli/internal/analysis"
	"github.com/KaramelBytes/tabscope-cli/internal/dataset"
	"github.com/KaramelBytes/tabscope-cli/internal/export"
	"github.com/KaramelBytes/tabscope-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	expInput    inputFlags
	expFormat   string
	expOutput   string
	expOutDir   string
	expColumns  []string
	expSanitize bool
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write a cleaned copy or the analysis of a file (csv, json, txt, xlsx)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := current()
		if err != nil {
			return err
		}
		format, err := export.ParseFormat(expFormat)
		if err != nil {
			return err
		}
		ds, err := loadDataset(c, args[0], expInput)
		if err != nil {
			return err
		}
		cols, err := ds.Select(expColumns)
		if err != nil {
			return err
		}
		rows := ds.Rows
		if expSanitize {
			if cols, rows, err = sanitize(cols, rows); err != nil {
				return err
			}
		}

		var buf bytes.Buffer
		now := time.Now()
		switch format {
		case export.CSV:
			err = export.WriteCSV(&buf, cols, rows)
		case export.XLSX:
			err = export.WriteXLSX(&buf, "Data", cols, rows)
		case export.JSON, export.Summary:
			view := &dataset.Dataset{Name: ds.Name, Columns: cols, Rows: rows, Total: ds.Total}
			opt := analysis.DefaultOptions()
			opt.Correlations, opt.Histograms, opt.SampleRows = false, false, 0
			rep, berr := analysis.Build(cmdContext(cmd), view, opt)
			if berr != nil {
				return berr
			}
			if format == export.JSON {
				err = export.WriteJSON(&buf, ds.Name, cols, rep.Analysis(), rows, now)
			} else {
				err = export.WriteSummary(&buf, ds.Name, len(rows), rep.Analysis(), now)
			}
		}
		if err != nil {
			return fmt.Errorf("export %s: %w", format, err)
		}

		out := expOutput
		if out == "" {
			out = filepath.Join(expOutDir, export.BaseName(args[0], format.Suffix()))
		}
		if err := utils.SafeWriteFile(out, buf.Bytes()); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Printf("✓ Exported %d rows to %s\n", len(rows), out)
		return nil
	},
}

// sanitize renames columns to safe identifiers and strips control characters
// from string cells.
func sanitize(cols []string, rows []dataset.Row) ([]string, []dataset.Row, error) {
	renamed := make([]string, len(cols))
	for i, c := range cols {
		renamed[i] = dataset.SanitizeColumnName(c)
	}
	if err := dataset.ValidateColumns(renamed).Err(); err != nil {
		return nil, nil, fmt.Errorf("sanitized names collide: %w", err)
	}
	out := make([]dataset.Row, len(rows))
	for i, r := range rows {
		row := make(dataset.Row, len(cols))
		for j, c := range cols {
			row[renamed[j]] = dataset.SanitizeCellValue(r[c])
		}
		out[i] = row
	}
	return renamed, out, nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	bindInputFlags(exportCmd, &expInput)
	exportCmd.Flags().StringVarP(&expFormat, "format", "f", "csv", "export format: csv | json | txt | xlsx")
	exportCmd.Flags().StringVarP(&expOutput, "output", "o", "", "output path (default: <name>_<kind>.<ext> in --out-dir)")
	exportCmd.Flags().StringVar(&expOutDir, "out-dir", ".", "directory for the default output name")
	exportCmd.Flags().StringSliceVar(&expColumns, "columns", nil, "export only these columns")
	exportCmd.Flags().BoolVar(&expSanitize, "sanitize", false, "rename columns to [A-Za-z0-9_-] and strip control characters")
}
