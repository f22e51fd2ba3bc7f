package stats

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuartilesNearestRank(t *testing.T) {
	q, err := Quartiles([]float64{8, 7, 6, 5, 4, 3, 2, 1})
	require.NoError(t, err)
	assert.Equal(t, 3.0, q.Q1)
	assert.Equal(t, 5.0, q.Q2)
	assert.Equal(t, 7.0, q.Q3)
	assert.Equal(t, 4.0, q.IQR)
}

func TestQuartilesSingleValue(t *testing.T) {
	q, err := Quartiles([]float64{42})
	require.NoError(t, err)
	assert.Equal(t, QuartileRecord{Q1: 42, Q2: 42, Q3: 42, IQR: 0}, q)
}

func TestPercentileCeilRank(t *testing.T) {
	values := []float64{15, 20, 35, 40, 50}
	tests := []struct {
		p    float64
		want float64
	}{
		{0, 15},
		{5, 15},
		{30, 20},
		{40, 20},
		{50, 35},
		{100, 50},
		{150, 50},
	}
	for _, tt := range tests {
		got, err := Percentile(values, tt.p)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "p=%v", tt.p)
	}
}

func TestPercentileAndQuartilesUseDifferentRanks(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	p25, err := Percentile(values, 25)
	require.NoError(t, err)
	q, err := Quartiles(values)
	require.NoError(t, err)
	// ceil(0.25*8)-1 = 1 versus floor(8*0.25) = 2
	assert.Equal(t, 2.0, p25)
	assert.Equal(t, 3.0, q.Q1)
}

func TestQuantileEmptyInput(t *testing.T) {
	_, err := Percentile(nil, 50)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyInput))

	_, err = Quartiles([]float64{math.NaN()})
	var empty *EmptyInputError
	require.ErrorAs(t, err, &empty)
	assert.Equal(t, "quartiles", empty.Op)

	_, err = Outliers(nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestOutliersTukeyFences(t *testing.T) {
	values := []float64{100, 1, 2, 3, 4, 5, 6, 7, -50}
	out, err := Outliers(values)
	require.NoError(t, err)
	assert.Equal(t, []float64{100, -50}, out)
}

func TestOutliersSubsetAndIQRNonNegative(t *testing.T) {
	samples := [][]float64{
		{1},
		{5, 5, 5, 5},
		{3, -1, 4, 1, -5, 9, 2, 6},
		{0.1, 0.2, 10, 0.3, 0.25, -7},
	}
	for _, s := range samples {
		q, err := Quartiles(s)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, q.IQR, 0.0)

		out, err := Outliers(s)
		require.NoError(t, err)
		remaining := map[float64]int{}
		for _, v := range s {
			remaining[v]++
		}
		for _, v := range out {
			remaining[v]--
			assert.GreaterOrEqual(t, remaining[v], 0, "outlier %v not in sample %v", v, s)
		}
	}
}

func TestQuantileDoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	_, err := Quartiles(values)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 1, 2}, values)
}
