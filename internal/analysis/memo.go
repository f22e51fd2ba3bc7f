package analysis

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/KaramelBytes/tabscope-cli/internal/dataset"
	"github.com/KaramelBytes/tabscope-cli/internal/stats"
)

// Memo caches reports by dataset identity: its column list, its row counts,
// its load warnings, a digest of its cells and the selected columns. Identical concurrent
// requests share one Build.
type Memo struct {
	size  int
	group singleflight.Group

	mu      sync.Mutex
	entries map[string]*Report
	order   []string
	hits    int
	misses  int
}

// NewMemo returns a cache holding at most size reports; the oldest entry is
// evicted first.
func NewMemo(size int) *Memo {
	if size <= 0 {
		size = 16
	}
	return &Memo{size: size, entries: make(map[string]*Report, size)}
}

// MemoKey identifies a dataset for caching. Options outside the column
// selection are folded in so differently configured reports do not collide.
func MemoKey(ds *dataset.Dataset, opt Options) string {
	var b strings.Builder
	b.WriteString(strings.Join(ds.Columns, "\x1f"))
	fmt.Fprintf(&b, "\x1e%d\x1e%d\x1e%016x\x1e", len(ds.Rows), ds.Total, digest(ds))
	b.WriteString(strings.Join(ds.Warnings, "\x1f"))
	b.WriteString("\x1e")
	b.WriteString(strings.Join(opt.Columns, "\x1f"))
	fmt.Fprintf(&b, "\x1e%t|%t|%d|%d|%t|%s|%d|%d",
		opt.Correlations, opt.Histograms, opt.Histogram.Bins, opt.Histogram.Decimals, opt.Histogram.Fixed,
		strings.Join(opt.GroupBy, "\x1f"), opt.SampleRows, opt.TopValues)
	return b.String()
}

// digest hashes every cell in column order so equally shaped files with
// different contents get different keys.
func digest(ds *dataset.Dataset) uint64 {
	h := fnv.New64a()
	for _, row := range ds.Rows {
		for _, c := range ds.Columns {
			v := row[c]
			if stats.IsMissing(v) {
				h.Write([]byte{0})
			} else {
				h.Write([]byte(stats.FormatRaw(v)))
			}
			h.Write([]byte{0x1f})
		}
		h.Write([]byte{0x1e})
	}
	return h.Sum64()
}

// Build returns the cached report for ds or computes it. cached reports
// whether the result came from the cache or a concurrent caller.
func (m *Memo) Build(ctx context.Context, ds *dataset.Dataset, opt Options) (rep *Report, cached bool, err error) {
	key := MemoKey(ds, opt)
	m.mu.Lock()
	if r, ok := m.entries[key]; ok {
		m.hits++
		m.mu.Unlock()
		return r, true, nil
	}
	m.mu.Unlock()

	v, err, shared := m.group.Do(key, func() (any, error) {
		// a flight that finished between the lookup above and Do already stored it
		m.mu.Lock()
		r, ok := m.entries[key]
		m.mu.Unlock()
		if ok {
			return r, nil
		}
		r, err := Build(ctx, ds, opt)
		if err != nil {
			return nil, err
		}
		m.store(key, r)
		return r, nil
	})
	if err != nil {
		return nil, false, err
	}
	m.mu.Lock()
	if shared {
		m.hits++
	} else {
		m.misses++
	}
	m.mu.Unlock()
	return v.(*Report), shared, nil
}

func (m *Memo) store(key string, r *Report) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; ok {
		return
	}
	if len(m.order) >= m.size {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.entries, oldest)
	}
	m.entries[key] = r
	m.order = append(m.order, key)
}

// Len returns the number of cached reports.
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Stats returns cache hits and misses so far.
func (m *Memo) Stats() (hits, misses int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits, m.misses
}
