package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded analyze and upload runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := current()
		if err != nil {
			return err
		}
		h, err := openHistory(c)
		if err != nil {
			return err
		}
		runs := h.List()
		if len(runs) == 0 {
			fmt.Println("(no runs)")
			return nil
		}
		for i, r := range runs {
			if historyLimit > 0 && i == historyLimit {
				fmt.Printf("… %d more\n", len(runs)-historyLimit)
				break
			}
			fmt.Printf("- %s  %s  %-6s %s (%d rows, %d cols, quality %.0f%%)\n",
				shortID(r.ID), r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Source, filepath.Base(r.File), r.Rows, r.Columns, r.QualityScore*100)
		}
		return nil
	},
}

var historyPrint bool

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one run (full ID or unique prefix)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := current()
		if err != nil {
			return err
		}
		h, err := openHistory(c)
		if err != nil {
			return err
		}
		r, err := h.Get(args[0])
		if err != nil {
			return err
		}
		if historyPrint {
			if r.ReportPath == "" {
				return fmt.Errorf("run %s has no saved report", r.ID)
			}
			b, err := os.ReadFile(r.ReportPath)
			if err != nil {
				return fmt.Errorf("read report: %w", err)
			}
			fmt.Println(string(b))
			return nil
		}
		fmt.Printf("id: %s\n", r.ID)
		fmt.Printf("file: %s\n", r.File)
		fmt.Printf("source: %s\n", r.Source)
		fmt.Printf("rows: %d\n", r.Rows)
		fmt.Printf("columns: %d\n", r.Columns)
		fmt.Printf("quality_score: %.3f\n", r.QualityScore)
		fmt.Printf("created_at: %s\n", r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
		if r.ReportPath != "" {
			fmt.Printf("report: %s\n", r.ReportPath)
		}
		return nil
	},
}

var historyKeep int

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop all but the newest runs and their saved reports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := current()
		if err != nil {
			return err
		}
		h, err := openHistory(c)
		if err != nil {
			return err
		}
		removed := h.Prune(historyKeep)
		for _, r := range removed {
			if r.ReportPath == "" {
				continue
			}
			if err := os.Remove(r.ReportPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				fmt.Fprintf(os.Stderr, "⚠ Warning: remove %s: %v\n", r.ReportPath, err)
			}
		}
		if err := h.Save(); err != nil {
			return err
		}
		fmt.Printf("✓ Pruned %d runs (kept %d)\n", len(removed), len(h.Runs))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyPruneCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "show at most this many runs (0 = all)")
	historyShowCmd.Flags().BoolVar(&historyPrint, "print", false, "print the saved report instead of the run details")
	historyPruneCmd.Flags().IntVar(&historyKeep, "keep", 50, "number of newest runs to keep")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
