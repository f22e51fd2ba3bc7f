package dataset

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"
)

// Options controls how a file is read.
type Options struct {
	// MaxRows limits rows kept; 0 means unlimited.
	MaxRows int
	// Delimiter for CSV. If 0, sniffed from the extension and header line.
	Delimiter rune
	// XLSX sheet selection: SheetName wins over the 1-based SheetIndex.
	SheetName  string
	SheetIndex int
}

// DefaultOptions returns the limits used when no flags are given.
func DefaultOptions() Options {
	return Options{MaxRows: 100000, SheetIndex: 1}
}

// Loader reads one file format.
type Loader interface {
	CanLoad(path string) bool
	Load(path string, opt Options) (*Dataset, error)
}

var registry []Loader

// Register adds a loader. Later registrations do not override earlier ones.
func Register(l Loader) {
	registry = append(registry, l)
}

// ErrUnsupported indicates no loader accepts the file's extension.
var ErrUnsupported = errors.New("unsupported file format")

// Load picks a loader by file name and reads the file.
func Load(path string, opt Options) (*Dataset, error) {
	for _, l := range registry {
		if !l.CanLoad(path) {
			continue
		}
		start := time.Now()
		ds, err := l.Load(path, opt)
		if err != nil {
			return nil, err
		}
		log.Printf("[Loader] %s read in %.2fms (%d columns, %d/%d rows)",
			filepath.Base(path), float64(time.Since(start).Microseconds())/1000, len(ds.Columns), len(ds.Rows), ds.Total)
		return ds, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
}

func init() {
	Register(csvLoader{})
	Register(xlsxLoader{})
}
