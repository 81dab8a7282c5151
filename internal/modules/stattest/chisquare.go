package stattest

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// ChiSquareIndependence tests whether the row and column factors of a
// contingency table of observed counts are independent. The table must be
// rectangular, at least 2x2, with non-negative entries and no zero margin.
func (a *Analyzer) ChiSquareIndependence(observed [][]float64) (*TestResult, error) {
	rows := len(observed)
	if rows < 2 {
		return nil, fmt.Errorf("%w: chi-square requires at least 2 rows, got %d",
			ErrInsufficientSample, rows)
	}
	cols := len(observed[0])
	if cols < 2 {
		return nil, fmt.Errorf("%w: chi-square requires at least 2 columns, got %d",
			ErrInsufficientSample, cols)
	}

	rowSums := make([]float64, rows)
	colSums := make([]float64, cols)
	var total float64
	for i, row := range observed {
		if len(row) != cols {
			return nil, fmt.Errorf("contingency table is ragged: row %d has %d columns, expected %d",
				i, len(row), cols)
		}
		for j, v := range row {
			if v < 0 {
				return nil, fmt.Errorf("contingency table cell (%d,%d) is negative: %f", i, j, v)
			}
			rowSums[i] += v
			colSums[j] += v
			total += v
		}
	}
	for i, s := range rowSums {
		if s == 0 {
			return nil, fmt.Errorf("contingency table row %d sums to zero", i)
		}
	}
	for j, s := range colSums {
		if s == 0 {
			return nil, fmt.Errorf("contingency table column %d sums to zero", j)
		}
	}

	var chi2 float64
	for i := range observed {
		for j := range observed[i] {
			expected := rowSums[i] * colSums[j] / total
			d := observed[i][j] - expected
			chi2 += d * d / expected
		}
	}

	df := float64((rows - 1) * (cols - 1))
	dist := distuv.ChiSquared{K: df}

	minDim := float64(rows - 1)
	if cols-1 < rows-1 {
		minDim = float64(cols - 1)
	}

	result := &TestResult{
		Test:             "chi-square independence",
		Statistic:        chi2,
		PValue:           1 - dist.CDF(chi2),
		DegreesOfFreedom: df,
		EffectSize:       math.Sqrt(chi2 / (total * minDim)),
		NullHypothesis:   "row and column factors are independent",
		AltHypothesis:    "row and column factors are associated",
	}
	return a.finish(result), nil
}
