package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/tabscope-cli/internal/analysis"
	"github.com/KaramelBytes/tabscope-cli/internal/backend"
	cfgpkg "github.com/KaramelBytes/tabscope-cli/internal/config"
	"github.com/KaramelBytes/tabscope-cli/internal/dataset"
	"github.com/KaramelBytes/tabscope-cli/internal/stats"
	"github.com/KaramelBytes/tabscope-cli/internal/utils"
	"github.com/KaramelBytes/tabscope-cli/internal/workspace"
)

// inputFlags are the loader flags shared by commands that read a file.
type inputFlags struct {
	delimiter  string
	sheetName  string
	sheetIndex int
	maxRows    int
}

func (in inputFlags) options(c *cfgpkg.Global) (dataset.Options, error) {
	opt := dataset.DefaultOptions()
	opt.MaxRows = c.MaxRows
	if in.maxRows >= 0 {
		opt.MaxRows = in.maxRows
	}
	opt.SheetName = in.sheetName
	if in.sheetIndex > 0 {
		opt.SheetIndex = in.sheetIndex
	}
	switch in.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	case "|", "pipe":
		opt.Delimiter = '|'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", in.delimiter)
	}
	return opt, nil
}

func limitsFromConfig(c *cfgpkg.Global) dataset.Limits {
	l := dataset.DefaultLimits()
	if c.MaxFileMB > 0 {
		l.MaxFileSize = int64(c.MaxFileMB) << 20
	}
	if c.MaxColumns > 0 {
		l.MaxColumns = c.MaxColumns
	}
	return l
}

// loadDataset validates path against the configured limits, then reads it.
// Warnings are printed and never block.
func loadDataset(c *cfgpkg.Global, path string, in inputFlags) (*dataset.Dataset, error) {
	lim := limitsFromConfig(c)
	res := lim.ValidateFile(path)
	printWarnings(res.Warnings)
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	opt, err := in.options(c)
	if err != nil {
		return nil, err
	}
	ds, err := dataset.Load(path, opt)
	if err != nil {
		return nil, err
	}
	for _, check := range []dataset.ValidationResult{
		dataset.ValidateColumns(ds.Columns),
		lim.ValidateDimensions(ds.Total, len(ds.Columns)),
	} {
		printWarnings(check.Warnings)
		if err := check.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
	}
	return ds, nil
}

func printWarnings(issues []dataset.Issue) {
	for _, w := range issues {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %s\n", w.Message)
	}
}

// histogramOptions resolves a preset name and explicit overrides.
func histogramOptions(c *cfgpkg.Global, preset string, bins, decimals int) (stats.HistogramOptions, error) {
	var opt stats.HistogramOptions
	switch strings.ToLower(strings.TrimSpace(preset)) {
	case "", "chart":
		opt = stats.ChartHistogram
		if c.HistogramBins > 0 {
			opt.Bins = c.HistogramBins
		}
		opt.Decimals = c.HistogramDecimals
	case "general":
		opt = stats.GeneralHistogram
	default:
		return opt, fmt.Errorf("unsupported --preset: %s (use chart|general)", preset)
	}
	if bins > 0 {
		opt.Bins = bins
	}
	if decimals >= 0 {
		opt.Decimals = decimals
	}
	return opt, nil
}

func newBackendClient(c *cfgpkg.Global) *backend.Client {
	return backend.NewClient(
		c.BackendURL,
		time.Duration(c.HTTPTimeoutSec)*time.Second,
		c.RetryMaxAttempts,
		time.Duration(c.RetryBaseDelayMs)*time.Millisecond,
		time.Duration(c.RetryMaxDelayMs)*time.Millisecond,
	)
}

func openHistory(c *cfgpkg.Global) (*workspace.History, error) {
	return workspace.Open(c.WorkspaceDir)
}

// recordRun stores the rendered report in the workspace and appends the run
// to history. Failures are reported but do not fail the command.
func recordRun(c *cfgpkg.Global, run workspace.Run, ext string, body []byte) {
	h, err := openHistory(c)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: history unavailable: %v\n", err)
		return
	}
	if path, err := h.SaveReport(run.ID, ext, body); err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v\n", err)
	} else {
		run.ReportPath = path
	}
	h.Record(run)
	if err := h.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: save history: %v\n", err)
	}
}

func checkFormat(format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "md", "markdown", "html", "json":
		return nil
	}
	return fmt.Errorf("unsupported --format: %s (use md|html|json)", format)
}

// render turns a Markdown report into the requested output format.
func render(format, md, title string, asJSON func() any) ([]byte, string, error) {
	if err := checkFormat(format); err != nil {
		return nil, "", err
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "html":
		return analysis.HTML(md, title), "html", nil
	case "json":
		b, err := utils.PrettyJSON(asJSON())
		if err != nil {
			return nil, "", err
		}
		return b, "json", nil
	}
	return []byte(md), "md", nil
}

// emit writes body to path, or prints it when path is empty.
func emit(path string, body []byte) error {
	if path == "" {
		fmt.Println(strings.TrimRight(string(body), "\n"))
		return nil
	}
	if err := utils.SafeWriteFile(path, body); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Printf("✓ Wrote %s\n", path)
	return nil
}

// expandInputs resolves globs and literal paths, dropping duplicates.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}
