package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/tabscope-cli/internal/dataset"
	"github.com/KaramelBytes/tabscope-cli/internal/stats"
)

const maxGroups = 20

// GroupResult aggregates numeric columns for one group key.
type GroupResult struct {
	Key     string                `json:"key"`
	Size    int                   `json:"size"`
	Metrics map[string]NumSummary `json:"metrics"`
}

type NumSummary struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
}

// groupBy keys each row by the given columns ("a=x | b=y") and summarizes the
// numeric columns per key. The largest groups come first.
func groupBy(ds *dataset.Dataset, by, numeric []string) ([]GroupResult, error) {
	keys, err := ds.Select(by)
	if err != nil {
		return nil, fmt.Errorf("group by: %w", err)
	}
	type acc struct {
		size int
		sum  map[string]float64
		m    map[string]NumSummary
	}
	groups := map[string]*acc{}
	parts := make([]string, len(keys))
	for _, row := range ds.Rows {
		for i, k := range keys {
			val := "(missing)"
			if !stats.IsMissing(row[k]) {
				val = safeVal(stats.FormatRaw(row[k]))
			}
			parts[i] = k + "=" + val
		}
		key := strings.Join(parts, " | ")
		g := groups[key]
		if g == nil {
			g = &acc{sum: map[string]float64{}, m: map[string]NumSummary{}}
			groups[key] = g
		}
		g.size++
		for _, col := range numeric {
			if stats.IsMissing(row[col]) {
				continue
			}
			x, ok := stats.ToNumber(row[col])
			if !ok {
				continue
			}
			s, seen := g.m[col]
			if !seen || x < s.Min {
				s.Min = x
			}
			if !seen || x > s.Max {
				s.Max = x
			}
			s.Count++
			g.sum[col] += x
			g.m[col] = s
		}
	}

	out := make([]GroupResult, 0, len(groups))
	for k, g := range groups {
		for col, s := range g.m {
			s.Mean = g.sum[col] / float64(s.Count)
			g.m[col] = s
		}
		out = append(out, GroupResult{Key: k, Size: g.size, Metrics: g.m})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Size == out[j].Size {
			return out[i].Key < out[j].Key
		}
		return out[i].Size > out[j].Size
	})
	if len(out) > maxGroups {
		out = out[:maxGroups]
	}
	return out, nil
}
