package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/KaramelBytes/tabscope-cli/internal/analysis"
	cfgpkg "github.com/KaramelBytes/tabscope-cli/internal/config"
	"github.com/KaramelBytes/tabscope-cli/internal/workspace"
	"github.com/spf13/cobra"
	"golang.org/x/sync/semaphore"
)

var (
	abInput     inputFlags
	abReport    reportFlags
	abFormat    string
	abOutDir    string
	abJobs      int
	abQuiet     bool
	abNoHistory bool
)

type batchResult struct {
	path   string
	rep    *analysis.Report
	body   []byte
	ext    string
	cached bool
	err    error
}

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple CSV/TSV/XLSX files concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := current()
		if err != nil {
			return err
		}
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		opt, err := abReport.options(c)
		if err != nil {
			return err
		}
		if err := checkFormat(abFormat); err != nil {
			return err
		}

		jobs := abJobs
		if jobs <= 0 {
			jobs = runtime.GOMAXPROCS(0)
		}
		ctx := cmdContext(cmd)
		sem := semaphore.NewWeighted(int64(jobs))
		memo := analysis.NewMemo(len(files))
		results := make([]batchResult, len(files))
		var wg sync.WaitGroup
		for i, path := range files {
			i, path := i, path
			if err := sem.Acquire(ctx, 1); err != nil {
				return err
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer sem.Release(1)
				results[i] = analyzeOne(ctx, c, memo, path, opt)
			}()
		}
		wg.Wait()

		var h *workspace.History
		if !abNoHistory {
			if h, err = openHistory(c); err != nil {
				fmt.Fprintf(os.Stderr, "⚠ Warning: history unavailable: %v\n", err)
			}
		}
		failed := 0
		used := map[string]int{}
		total := len(results)
		for i, r := range results {
			if r.err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "✗ [%d/%d] %s: %v\n", i+1, total, r.path, r.err)
				continue
			}
			if !abQuiet {
				note := ""
				if r.cached {
					note = " (identical to an earlier file)"
				}
				fmt.Printf("[%d/%d] %s: %d rows, %d columns%s\n", i+1, total, filepath.Base(r.path), r.rep.Rows, len(r.rep.Columns), note)
			}
			if abOutDir != "" {
				name := defaultReportName(r.path, r.ext)
				used[name]++
				if n := used[name]; n > 1 {
					// same base name from another directory
					ext := filepath.Ext(name)
					name = fmt.Sprintf("%s__%d%s", name[:len(name)-len(ext)], n, ext)
				}
				out := filepath.Join(abOutDir, name)
				if err := emit(out, r.body); err != nil {
					return err
				}
			} else if !abQuiet {
				fmt.Println(string(r.body))
			}
			if h != nil {
				run := workspace.NewRun(r.path, workspace.SourceLocal)
				run.Rows = r.rep.Rows
				run.Columns = len(r.rep.Columns)
				run.QualityScore = r.rep.Quality.QualityScore
				if p, err := h.SaveReport(run.ID, r.ext, r.body); err == nil {
					run.ReportPath = p
				}
				h.Record(run)
			}
		}
		if h != nil {
			if err := h.Save(); err != nil {
				fmt.Fprintf(os.Stderr, "⚠ Warning: save history: %v\n", err)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, total)
		}
		if !abQuiet {
			hits, _ := memo.Stats()
			fmt.Printf("✓ Analyzed %d files (%d reused)\n", total, hits)
		}
		return nil
	},
}

func analyzeOne(ctx context.Context, c *cfgpkg.Global, memo *analysis.Memo, path string, opt analysis.Options) batchResult {
	res := batchResult{path: path}
	ds, err := loadDataset(c, path, abInput)
	if err != nil {
		res.err = err
		return res
	}
	rep, cached, err := memo.Build(ctx, ds, opt)
	if err != nil {
		res.err = err
		return res
	}
	if cached {
		// same cells under another file name
		cp := *rep
		cp.Name = ds.Name
		rep = &cp
	}
	res.rep, res.cached = rep, cached
	res.body, res.ext, res.err = render(abFormat, rep.Markdown(), "tabscope: "+rep.Name, func() any { return rep })
	return res
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	bindInputFlags(analyzeBatchCmd, &abInput)
	bindReportFlags(analyzeBatchCmd, &abReport)
	analyzeBatchCmd.Flags().StringVarP(&abFormat, "format", "f", "md", "output format: md | html | json")
	analyzeBatchCmd.Flags().StringVar(&abOutDir, "out-dir", "", "write one report per file into this directory")
	analyzeBatchCmd.Flags().IntVarP(&abJobs, "jobs", "j", 0, "files analyzed concurrently (0 = GOMAXPROCS)")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
	analyzeBatchCmd.Flags().BoolVar(&abNoHistory, "no-history", false, "do not record these runs in the workspace history")
}
