package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAnalyzeBatch_OutDirCollisionsAndReuse(t *testing.T) {
	home := isolate(t)

	// Three files with the same cells (two share a basename), plus one that differs
	csv := "col1,col2\nA,1\nB,2\nC,3\n"
	writeFile(t, filepath.Join(home, "d1", "metrics.csv"), csv)
	writeFile(t, filepath.Join(home, "d2", "metrics.csv"), csv)
	writeFile(t, filepath.Join(home, "d3", "copy.csv"), csv)
	writeFile(t, filepath.Join(home, "d3", "other.csv"), "col1,col2\nA,9\nB,8\nC,7\n")
	outDir := filepath.Join(home, "reports")

	runCmd(t, "analyze-batch", filepath.Join(home, "d*", "*.csv"), "--out-dir", outDir, "--sample-rows", "0", "-j", "2")

	for _, name := range []string{"copy_report.md", "metrics_report.md", "metrics_report__2.md", "other_report.md"} {
		body := readFile(t, filepath.Join(outDir, name))
		if strings.Contains(body, "## Sample Rows") {
			t.Fatalf("expected no sample rows in %s", name)
		}
		if !strings.Contains(body, "## Column Summaries") {
			t.Fatalf("expected column summaries in %s:\n%s", name, body)
		}
	}
	for name, title := range map[string]string{
		"copy_report.md":       "# Analysis: copy.csv",
		"metrics_report__2.md": "# Analysis: metrics.csv",
		"other_report.md":      "# Analysis: other.csv",
	} {
		if !strings.Contains(readFile(t, filepath.Join(outDir, name)), title) {
			t.Fatalf("%s should be titled %q", name, title)
		}
	}

	runs := loadHistory(t, home).List()
	if len(runs) != 4 {
		t.Fatalf("expected 4 runs, got %d", len(runs))
	}
}

func TestAnalyzeBatch_ReportsFailures(t *testing.T) {
	home := isolate(t)
	good := writeFile(t, filepath.Join(home, "good.csv"), "a,b\n1,2\n3,4\n")
	bad := writeFile(t, filepath.Join(home, "bad.csv"), "")

	err := execCmd("analyze-batch", good, bad, "--quiet", "--no-history")
	if err == nil || !strings.Contains(err.Error(), "1 of 2 files failed") {
		t.Fatalf("expected one failure, got %v", err)
	}
	if err := execCmd("analyze-batch", filepath.Join(home, "none-*.csv")); err == nil {
		t.Fatalf("expected no-match error")
	}
	if _, err := os.Stat(filepath.Join(home, ".tabscope", "workspace", "history.json")); !os.IsNotExist(err) {
		t.Fatalf("--no-history should not write history (err=%v)", err)
	}
}
