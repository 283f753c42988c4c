// Package stats holds the batch statistics shared by the detectors.
package stats

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Percentile returns the p-th percentile (0..100) of values using linear
// interpolation between the closest ranks: rank = p/100 * (n-1).
// The input is not modified. Empty input returns NaN.
func Percentile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[n-1]
	}

	rank := p / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// MeanStdDev returns the mean and the sample standard deviation (n-1
// denominator). Fewer than two values give a standard deviation of 0.
func MeanStdDev(values []float64) (mean, std float64) {
	switch len(values) {
	case 0:
		return 0, 0
	case 1:
		return values[0], 0
	}
	return stat.MeanStdDev(values, nil)
}

// Constant reports whether every value equals the first one.
func Constant(values []float64) bool {
	for _, v := range values[min(1, len(values)):] {
		if v != values[0] {
			return false
		}
	}
	return true
}

// Standardize rescales each column of rows to zero mean and unit population
// variance in place. Columns with zero variance become 0 for every row.
func Standardize(rows [][]float64) {
	if len(rows) == 0 {
		return
	}

	col := make([]float64, len(rows))
	for j := range rows[0] {
		for i := range rows {
			col[i] = rows[i][j]
		}

		if Constant(col) {
			for i := range rows {
				rows[i][j] = 0
			}
			continue
		}

		mean, std := stat.PopMeanStdDev(col, nil)
		for i := range rows {
			rows[i][j] = (rows[i][j] - mean) / std
		}
	}
}
