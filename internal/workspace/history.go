// Package workspace keeps the history of analysis runs and their saved
// reports under a workspace directory.
package workspace

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/tabscope-cli/internal/utils"
)

const (
	historyFileName = "history.json"
	reportsDirName  = "reports"
)

// ErrRunNotFound is returned by Get for unknown IDs.
var ErrRunNotFound = errors.New("run not found")

// History is the persisted list of runs in a workspace.
type History struct {
	Runs      []Run     `json:"runs"`
	UpdatedAt time.Time `json:"updated_at"`

	// Not serialized: the workspace directory holding history.json
	rootDir string `json:"-"`
}

// Open loads the history in dir. A missing file yields an empty history.
func Open(dir string) (*History, error) {
	if dir == "" {
		return nil, errors.New("workspace directory not set")
	}
	h := &History{rootDir: dir}
	if _, err := utils.ReadJSON(filepath.Join(dir, historyFileName), h); err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	h.rootDir = dir
	return h, nil
}

// RootDir returns the workspace directory.
func (h *History) RootDir() string { return h.rootDir }

// Save writes history.json atomically.
func (h *History) Save() error {
	if h.rootDir == "" {
		return errors.New("workspace directory not set")
	}
	h.UpdatedAt = time.Now()
	data, err := utils.PrettyJSON(h)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(h.rootDir, historyFileName), data)
}

// NewRun returns a run with a fresh ID and timestamp; add it with Record.
func NewRun(file string, source Source) Run {
	return Run{ID: uuid.NewString(), File: file, Source: source, CreatedAt: time.Now().UTC()}
}

// Record appends r, filling in a missing ID or timestamp.
func (h *History) Record(r Run) Run {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	h.Runs = append(h.Runs, r)
	return r
}

// List returns the runs newest first.
func (h *History) List() []Run {
	out := append([]Run(nil), h.Runs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Get finds a run by full ID or by a unique ID prefix.
func (h *History) Get(id string) (Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Run{}, fmt.Errorf("%w: empty id", ErrRunNotFound)
	}
	var match []Run
	for _, r := range h.Runs {
		if r.ID == id {
			return r, nil
		}
		if strings.HasPrefix(r.ID, id) {
			match = append(match, r)
		}
	}
	switch len(match) {
	case 0:
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return match[0], nil
	}
	return Run{}, fmt.Errorf("id prefix %q is ambiguous (%d runs)", id, len(match))
}

// Prune keeps the newest keep runs and returns the removed ones.
func (h *History) Prune(keep int) []Run {
	if keep < 0 {
		keep = 0
	}
	ordered := h.List()
	if len(ordered) <= keep {
		return nil
	}
	removed := ordered[keep:]
	h.Runs = ordered[:keep]
	return removed
}

// ReportPath is where the report of run id with extension ext is saved.
func (h *History) ReportPath(id, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	return filepath.Join(h.rootDir, reportsDirName, id+"."+ext)
}

// SaveReport writes a report body for run id and returns its path.
func (h *History) SaveReport(id, ext string, body []byte) (string, error) {
	path := h.ReportPath(id, ext)
	if err := utils.SafeWriteFile(path, body); err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}
	return path, nil
}
