package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

const (
	strongThreshold     = 0.7
	veryStrongThreshold = 0.9
)

// Strength labels for StrongPair.
const (
	StrengthStrong     = "Strong"
	StrengthVeryStrong = "Very Strong"
)

// Matrix is a square Pearson correlation table over numeric columns.
type Matrix struct {
	Columns     []string     `json:"columns"`
	Values      [][]float64  `json:"values"` // row-major, Values[i][j]
	StrongPairs []StrongPair `json:"strong_pairs"`
}

// StrongPair is an off-diagonal pair with |r| above the strong threshold.
type StrongPair struct {
	A        string  `json:"col1"`
	B        string  `json:"col2"`
	R        float64 `json:"correlation"`
	Strength string  `json:"strength"`
}

// Pearson returns the product-moment correlation of the index-aligned pairs
// where both sides coerce to numbers. Fewer than two pairs, or zero variance
// on either side, yields 0.
func Pearson(a, b []any) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	xs := make([]float64, 0, n)
	ys := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if IsMissing(a[i]) || IsMissing(b[i]) {
			continue
		}
		x, okx := ToNumber(a[i])
		y, oky := ToNumber(b[i])
		if !okx || !oky {
			continue
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	return pearsonFloats(xs, ys)
}

func pearsonFloats(xs, ys []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	var sx, sy float64
	for i := 0; i < n; i++ {
		sx += xs[i]
		sy += ys[i]
	}
	mx, my := sx/float64(n), sy/float64(n)
	var num, dxx, dyy float64
	for i := 0; i < n; i++ {
		dx, dy := xs[i]-mx, ys[i]-my
		num += dx * dy
		dxx += dx * dx
		dyy += dy * dy
	}
	den := math.Sqrt(dxx * dyy)
	if den == 0 || math.IsNaN(den) {
		return 0
	}
	r := num / den
	switch {
	case math.IsNaN(r):
		return 0
	case r > 1:
		return 1
	case r < -1:
		return -1
	}
	return r
}

// NumericColumns keeps the columns whose inferred type is numeric, in the
// order given.
func NumericColumns(rows []map[string]any, columns []string) []string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		if InferType(columnValues(rows, c)) == Numeric {
			out = append(out, c)
		}
	}
	return out
}

// CorrelationMatrix correlates every ordered pair of the given columns,
// including each column with itself, and extracts the strong pairs from the
// upper triangle.
func CorrelationMatrix(rows []map[string]any, numericColumns []string) Matrix {
	n := len(numericColumns)
	cols := make([][]any, n)
	for i, c := range numericColumns {
		cols[i] = columnValues(rows, c)
	}
	m := Matrix{
		Columns:     append([]string(nil), numericColumns...),
		Values:      make([][]float64, n),
		StrongPairs: []StrongPair{},
	}
	for i := 0; i < n; i++ {
		m.Values[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			r := Pearson(cols[i], cols[j])
			m.Values[i][j] = r
			if i < j && math.Abs(r) > strongThreshold {
				m.StrongPairs = append(m.StrongPairs, StrongPair{
					A:        numericColumns[i],
					B:        numericColumns[j],
					R:        r,
					Strength: strengthLabel(r),
				})
			}
		}
	}
	sort.SliceStable(m.StrongPairs, func(i, j int) bool {
		return math.Abs(m.StrongPairs[i].R) > math.Abs(m.StrongPairs[j].R)
	})
	return m
}

// At returns the coefficient for two column names, or false when either is
// not part of the matrix.
func (m Matrix) At(a, b string) (float64, bool) {
	i, j := m.index(a), m.index(b)
	if i < 0 || j < 0 {
		return 0, false
	}
	return m.Values[i][j], true
}

// Dense copies the coefficients into a gonum matrix.
func (m Matrix) Dense() *mat.Dense {
	n := len(m.Columns)
	if n == 0 {
		return nil
	}
	data := make([]float64, 0, n*n)
	for _, row := range m.Values {
		data = append(data, row...)
	}
	return mat.NewDense(n, n, data)
}

func (m Matrix) index(name string) int {
	for i, c := range m.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

func strengthLabel(r float64) string {
	if math.Abs(r) > veryStrongThreshold {
		return StrengthVeryStrong
	}
	return StrengthStrong
}

func columnValues(rows []map[string]any, name string) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r[name]
	}
	return out
}
