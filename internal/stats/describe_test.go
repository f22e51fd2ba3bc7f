package stats

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribeColumnNumeric(t *testing.T) {
	s := DescribeColumn([]any{1, 2, 3, 4, 100})

	assert.Equal(t, Numeric, s.DType)
	assert.Equal(t, 5, s.Unique)
	assert.Equal(t, 0, s.Missing)
	assert.Equal(t, 0.0, s.MissingPercent)
	require.True(t, s.HasNumbers())
	assert.Equal(t, 22.0, *s.Mean)
	assert.Equal(t, 1.0, *s.Min)
	assert.Equal(t, 100.0, *s.Max)
	assert.Equal(t, 3.0, *s.Median)

	var ss float64
	for _, v := range []float64{1, 2, 3, 4, 100} {
		ss += (v - 22) * (v - 22)
	}
	assert.InDelta(t, math.Sqrt(ss/5), *s.Std, 1e-12)
}

func TestDescribeColumnMissingAndUnique(t *testing.T) {
	s := DescribeColumn([]any{"a", "b", "a", nil, "", "c"})

	assert.Equal(t, Text, s.DType)
	assert.Equal(t, 3, s.Unique)
	assert.Equal(t, 2, s.Missing)
	assert.InDelta(t, 2.0/6.0, s.MissingPercent, 1e-12)
	assert.False(t, s.HasNumbers())
}

func TestDescribeColumnUniqueUsesStringForm(t *testing.T) {
	s := DescribeColumn([]any{1.0, "1", 2, "2", 3})
	assert.Equal(t, 3, s.Unique)
}

func TestDescribeColumnEmpty(t *testing.T) {
	s := DescribeColumn(nil)
	assert.Equal(t, Text, s.DType)
	assert.Equal(t, 0, s.Missing)
	assert.Equal(t, 0.0, s.MissingPercent)
	assert.Nil(t, s.Mean)
}

func TestDescribeColumnDropsNaNCoercions(t *testing.T) {
	// four numbers and one word: still numeric at 80%
	s := DescribeColumn([]any{"10", "20", "30", "40", "n/a"})
	require.Equal(t, Numeric, s.DType)
	assert.Equal(t, 25.0, *s.Mean)
	assert.Equal(t, 10.0, *s.Min)
	assert.Equal(t, 40.0, *s.Max)
	assert.Equal(t, 30.0, *s.Median)
}

func TestSummaryJSONOmitsAbsentNumbers(t *testing.T) {
	b, err := json.Marshal(DescribeColumn([]any{"x", "y"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"dtype":"text","unique":2,"missing":0,"missing_percent":0}`, string(b))
}
