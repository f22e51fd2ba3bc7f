package workspace_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/KaramelBytes/tabscope-cli/internal/workspace"
)

func TestHistoryRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ws")
	h, err := workspace.Open(dir)
	if err != nil {
		t.Fatalf("open empty: %v", err)
	}
	if len(h.List()) != 0 {
		t.Fatalf("expected no runs")
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, f := range []string{"a.csv", "b.csv", "c.xlsx"} {
		r := workspace.NewRun(f, workspace.SourceLocal)
		r.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		r.Rows = 10 * (i + 1)
		h.Record(r)
	}
	remote := h.Record(workspace.Run{File: "d.csv", Source: workspace.SourceRemote})
	if remote.ID == "" || remote.CreatedAt.IsZero() {
		t.Fatalf("record should fill id and time: %+v", remote)
	}
	if err := h.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := workspace.Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	runs := loaded.List()
	if len(runs) != 4 {
		t.Fatalf("expected 4 runs, got %d", len(runs))
	}
	if runs[0].File != "d.csv" || runs[3].File != "a.csv" {
		t.Fatalf("unexpected order: %s ... %s", runs[0].File, runs[3].File)
	}

	got, err := loaded.Get(runs[1].ID[:8])
	if err != nil {
		t.Fatalf("get by prefix: %v", err)
	}
	if got.File != "c.xlsx" || got.Rows != 30 {
		t.Fatalf("unexpected run: %+v", got)
	}
	if _, err := loaded.Get("zzzz"); !errors.Is(err, workspace.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}

	removed := loaded.Prune(2)
	if len(removed) != 2 || len(loaded.Runs) != 2 {
		t.Fatalf("prune: removed=%d kept=%d", len(removed), len(loaded.Runs))
	}
	if removed[1].File != "a.csv" {
		t.Fatalf("oldest run should be pruned last in list, got %s", removed[1].File)
	}
	if loaded.Prune(5) != nil {
		t.Fatalf("nothing should be pruned")
	}
}

func TestSaveReport(t *testing.T) {
	dir := t.TempDir()
	h, err := workspace.Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	path, err := h.SaveReport("abc", ".md", []byte("# report"))
	if err != nil {
		t.Fatalf("save report: %v", err)
	}
	if path != filepath.Join(dir, "reports", "abc.md") {
		t.Fatalf("unexpected path %s", path)
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "# report" {
		t.Fatalf("read back: %q %v", b, err)
	}
}

func TestOpenCorruptHistory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "history.json"), []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := workspace.Open(dir); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := workspace.Open(""); err == nil {
		t.Fatalf("expected error for empty dir")
	}
}
