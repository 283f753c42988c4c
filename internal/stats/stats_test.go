package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		p      float64
		want   float64
	}{
		{name: "interpolated", values: []float64{1, 2, 3, 4, 5}, p: 80, want: 4.2},
		{name: "unsorted input", values: []float64{5, 1, 4, 2, 3}, p: 80, want: 4.2},
		{name: "exact rank", values: []float64{10, 20, 30, 40, 50}, p: 50, want: 30},
		{name: "two values", values: []float64{0, 10}, p: 80, want: 8},
		{name: "single value", values: []float64{7}, p: 80, want: 7},
		{name: "minimum", values: []float64{3, 1, 2}, p: 0, want: 1},
		{name: "maximum", values: []float64{3, 1, 2}, p: 100, want: 3},
		{name: "constant", values: []float64{2.5, 2.5, 2.5, 2.5}, p: 80, want: 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Percentile(tt.values, tt.p), 1e-9)
		})
	}
}

func TestPercentile_DoesNotMutate(t *testing.T) {
	values := []float64{3, 1, 2}
	_ = Percentile(values, 50)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestPercentile_Empty(t *testing.T) {
	assert.True(t, math.IsNaN(Percentile(nil, 80)))
}

func TestMeanStdDev(t *testing.T) {
	mean, std := MeanStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5.0, mean, 1e-9)
	// Sample standard deviation: sqrt(32/7).
	assert.InDelta(t, math.Sqrt(32.0/7.0), std, 1e-9)

	mean, std = MeanStdDev([]float64{42})
	assert.Equal(t, 42.0, mean)
	assert.Equal(t, 0.0, std)

	mean, std = MeanStdDev(nil)
	assert.Zero(t, mean)
	assert.Zero(t, std)
}

func TestConstant(t *testing.T) {
	assert.True(t, Constant(nil))
	assert.True(t, Constant([]float64{1}))
	assert.True(t, Constant([]float64{1, 1, 1}))
	assert.False(t, Constant([]float64{1, 1, 2}))
}

func TestStandardize(t *testing.T) {
	rows := [][]float64{
		{1, 5},
		{2, 5},
		{3, 5},
	}
	Standardize(rows)

	// Population std of {1,2,3} is sqrt(2/3).
	s := math.Sqrt(2.0 / 3.0)
	require.Len(t, rows, 3)
	assert.InDelta(t, -1/s, rows[0][0], 1e-9)
	assert.InDelta(t, 0, rows[1][0], 1e-9)
	assert.InDelta(t, 1/s, rows[2][0], 1e-9)

	for _, r := range rows {
		assert.Equal(t, 0.0, r[1], "zero-variance column must standardize to 0")
	}
}

func TestStandardize_Empty(t *testing.T) {
	assert.NotPanics(t, func() { Standardize(nil) })
}
