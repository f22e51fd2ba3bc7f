package stats

import (
	mfstats "github.com/montanaflynn/stats"
)

// Summary is the per-column record shown in column summaries. The numeric
// fields are nil unless the column is numeric and has at least one number.
type Summary struct {
	DType          Type     `json:"dtype"`
	Unique         int      `json:"unique"`
	Missing        int      `json:"missing"`
	MissingPercent float64  `json:"missing_percent"`
	Mean           *float64 `json:"mean,omitempty"`
	Median         *float64 `json:"median,omitempty"`
	Std            *float64 `json:"std,omitempty"`
	Min            *float64 `json:"min,omitempty"`
	Max            *float64 `json:"max,omitempty"`
}

// HasNumbers reports whether the numeric fields are populated.
func (s Summary) HasNumbers() bool { return s.Mean != nil }

// DescribeColumn computes descriptive statistics over one column.
func DescribeColumn(values []any) Summary {
	s := Summary{DType: InferType(values)}
	seen := make(map[string]struct{})
	for _, v := range values {
		if IsMissing(v) {
			s.Missing++
			continue
		}
		seen[FormatRaw(v)] = struct{}{}
	}
	s.Unique = len(seen)
	if len(values) > 0 {
		s.MissingPercent = float64(s.Missing) / float64(len(values))
	}
	if s.DType != Numeric {
		return s
	}
	nums := Numbers(values)
	if len(nums) == 0 {
		return s
	}
	// the library only fails on empty input, which is ruled out above
	mean, _ := mfstats.Mean(nums)
	std, _ := mfstats.StandardDeviationPopulation(nums)
	lo, _ := mfstats.Min(nums)
	hi, _ := mfstats.Max(nums)
	q, _ := Quartiles(nums)
	s.Mean = &mean
	s.Median = &q.Q2
	s.Std = &std
	s.Min = &lo
	s.Max = &hi
	return s
}
