package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrEmptyInput is matched by every EmptyInputError.
var ErrEmptyInput = errors.New("empty input")

// EmptyInputError is returned by the quantile functions when no usable value
// remains after NaN removal.
type EmptyInputError struct {
	Op string
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, ErrEmptyInput)
}

func (e *EmptyInputError) Is(target error) bool { return target == ErrEmptyInput }

// QuartileRecord holds nearest-rank quartiles and their spread.
type QuartileRecord struct {
	Q1  float64 `json:"q1"`
	Q2  float64 `json:"q2"`
	Q3  float64 `json:"q3"`
	IQR float64 `json:"iqr"`
}

// Fences returns the Tukey outlier bounds.
func (q QuartileRecord) Fences() (lower, upper float64) {
	return q.Q1 - 1.5*q.IQR, q.Q3 + 1.5*q.IQR
}

// Percentile returns the value at rank ceil(p/100*n)-1 of the sorted sample,
// clamped to the sample bounds.
func Percentile(values []float64, p float64) (float64, error) {
	sorted := sortedNumbers(values)
	if len(sorted) == 0 {
		return math.NaN(), &EmptyInputError{Op: "percentile"}
	}
	return sorted[ceilRank(len(sorted), p/100)], nil
}

// Quartiles indexes the sorted sample at floor(n*0.25), floor(n*0.5) and
// floor(n*0.75). No interpolation.
func Quartiles(values []float64) (QuartileRecord, error) {
	sorted := sortedNumbers(values)
	if len(sorted) == 0 {
		return QuartileRecord{}, &EmptyInputError{Op: "quartiles"}
	}
	return quartilesSorted(sorted), nil
}

func quartilesSorted(sorted []float64) QuartileRecord {
	n := len(sorted)
	q := QuartileRecord{
		Q1: sorted[floorRank(n, 0.25)],
		Q2: sorted[floorRank(n, 0.5)],
		Q3: sorted[floorRank(n, 0.75)],
	}
	q.IQR = q.Q3 - q.Q1
	return q
}

// Outliers returns the values outside the Tukey fences, in input order.
func Outliers(values []float64) ([]float64, error) {
	q, err := Quartiles(values)
	if err != nil {
		return nil, &EmptyInputError{Op: "outliers"}
	}
	lo, hi := q.Fences()
	out := []float64{}
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if v < lo || v > hi {
			out = append(out, v)
		}
	}
	return out, nil
}

// ceilRank is the index used by Percentile.
func ceilRank(n int, q float64) int {
	return clampIndex(math.Ceil(q*float64(n))-1, n)
}

// floorRank is the index used by Quartiles.
func floorRank(n int, q float64) int {
	return clampIndex(math.Floor(float64(n)*q), n)
}

func clampIndex(pos float64, n int) int {
	switch {
	case math.IsNaN(pos) || pos < 0:
		return 0
	case pos > float64(n-1):
		return n - 1
	}
	return int(pos)
}

func sortedNumbers(values []float64) []float64 {
	cp := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			cp = append(cp, v)
		}
	}
	sort.Float64s(cp)
	return cp
}
