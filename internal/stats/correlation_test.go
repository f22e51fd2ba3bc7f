package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rowsOf(cols map[string][]any) []map[string]any {
	n := 0
	for _, v := range cols {
		if len(v) > n {
			n = len(v)
		}
	}
	rows := make([]map[string]any, n)
	for i := range rows {
		rows[i] = map[string]any{}
		for name, vals := range cols {
			if i < len(vals) {
				rows[i][name] = vals[i]
			}
		}
	}
	return rows
}

func TestPearsonPerfectAndSelf(t *testing.T) {
	x := []any{1, 2, 3, 4, 5}
	y := []any{2, 4, 6, 8, 10}
	assert.Equal(t, 1.0, Pearson(x, y))
	assert.Equal(t, 1.0, Pearson(x, x))
	assert.Equal(t, -1.0, Pearson(x, []any{10, 8, 6, 4, 2}))
}

func TestPearsonDegenerate(t *testing.T) {
	constant := []any{3, 3, 3, 3}
	assert.Equal(t, 0.0, Pearson(constant, constant))
	assert.Equal(t, 0.0, Pearson(constant, []any{1, 2, 3, 4}))
	assert.Equal(t, 0.0, Pearson([]any{1}, []any{2}))
	assert.Equal(t, 0.0, Pearson(nil, nil))
	// only one co-present numeric pair survives
	assert.Equal(t, 0.0, Pearson([]any{1, "x", nil}, []any{2, 3, 4}))
}

func TestPearsonDropsPairsAndTruncates(t *testing.T) {
	a := []any{"1", "2", "oops", "3", "", "4"}
	b := []any{"10", "20", "30", "30", "50", "40", "999"}
	assert.InDelta(t, 1.0, Pearson(a, b), 1e-12)
}

func TestPearsonSymmetric(t *testing.T) {
	a := []any{1.5, 2.25, 9, -3, 4, 0}
	b := []any{7, 1, 2.5, 3, -8, 6}
	assert.Equal(t, Pearson(a, b), Pearson(b, a))
	r := Pearson(a, b)
	assert.GreaterOrEqual(t, r, -1.0)
	assert.LessOrEqual(t, r, 1.0)
}

func TestCorrelationMatrixStrongPairs(t *testing.T) {
	rows := rowsOf(map[string][]any{
		"x":     {1, 2, 3, 4, 5},
		"y":     {2, 4, 6, 8, 10},
		"noise": {5, 1, 4, 2, 3},
		"label": {"a", "b", "c", "d", "e"},
	})
	cols := NumericColumns(rows, []string{"x", "label", "y", "noise"})
	require.Equal(t, []string{"x", "y", "noise"}, cols)

	m := CorrelationMatrix(rows, cols)
	require.Len(t, m.Values, 3)
	for i := range m.Values {
		assert.Equal(t, 1.0, m.Values[i][i])
		for j := range m.Values {
			assert.Equal(t, m.Values[i][j], m.Values[j][i])
		}
	}
	r, ok := m.At("x", "y")
	require.True(t, ok)
	assert.Equal(t, 1.0, r)

	require.Len(t, m.StrongPairs, 1)
	assert.Equal(t, StrongPair{A: "x", B: "y", R: 1, Strength: StrengthVeryStrong}, m.StrongPairs[0])

	d := m.Dense()
	rr, cc := d.Dims()
	assert.Equal(t, 3, rr)
	assert.Equal(t, 3, cc)
	assert.Equal(t, m.Values[0][2], d.At(0, 2))
}

func TestCorrelationMatrixConstantDiagonalIsZero(t *testing.T) {
	rows := rowsOf(map[string][]any{
		"flat": {7, 7, 7},
		"up":   {1, 2, 3},
	})
	m := CorrelationMatrix(rows, []string{"flat", "up"})
	assert.Equal(t, 0.0, m.Values[0][0])
	assert.Equal(t, 1.0, m.Values[1][1])
	assert.Empty(t, m.StrongPairs)
}

func TestCorrelationMatrixOrdersByMagnitudeStable(t *testing.T) {
	rows := rowsOf(map[string][]any{
		"a": {1, 2, 3, 4, 5, 6},
		"b": {1, 2, 3, 4, 6, 5},
		"c": {6, 5, 4, 3, 2, 1},
		"d": {1, 3, 2, 5, 4, 6},
	})
	m := CorrelationMatrix(rows, []string{"a", "b", "c", "d"})
	require.NotEmpty(t, m.StrongPairs)
	assert.Equal(t, "a", m.StrongPairs[0].A)
	assert.Equal(t, "c", m.StrongPairs[0].B)
	assert.Equal(t, -1.0, m.StrongPairs[0].R)
	for i := 1; i < len(m.StrongPairs); i++ {
		prev, cur := m.StrongPairs[i-1].R, m.StrongPairs[i].R
		assert.GreaterOrEqual(t, abs(prev), abs(cur))
	}
	for _, p := range m.StrongPairs {
		if abs(p.R) > 0.9 {
			assert.Equal(t, StrengthVeryStrong, p.Strength)
		} else {
			assert.Equal(t, StrengthStrong, p.Strength)
		}
	}
}

func TestCorrelationMatrixEmpty(t *testing.T) {
	m := CorrelationMatrix(nil, nil)
	assert.Empty(t, m.Values)
	assert.Empty(t, m.StrongPairs)
	assert.Nil(t, m.Dense())
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
