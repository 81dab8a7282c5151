package riskmodel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/arithmax-research/quantcore/pkg/formulas"
)

// applyShrinkage shrinks a sample covariance matrix toward the
// constant-correlation target to improve conditioning with limited data.
//
// Reference: Ledoit, O., & Wolf, M. (2004). "A well-conditioned estimator
// for large-dimensional covariance matrices"
func applyShrinkage(sample *mat.SymDense) *mat.SymDense {
	n := sample.SymmetricDim()
	if n == 0 {
		return sample
	}

	// Shrinkage target: average variance on the diagonal, average
	// covariance off it (constant correlation model).
	var avgVar, avgCov float64
	for i := 0; i < n; i++ {
		avgVar += sample.At(i, i)
		for j := 0; j < n; j++ {
			if i != j {
				avgCov += sample.At(i, j)
			}
		}
	}
	avgVar /= float64(n)
	if n > 1 {
		avgCov /= float64(n * (n - 1))
	}

	targetAt := func(i, j int) float64 {
		if i == j {
			return avgVar
		}
		if avgVar > 0 {
			return avgCov
		}
		return 0
	}

	intensity := shrinkageIntensity(sample, targetAt, avgVar)

	shrunk := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			val := (1-intensity)*sample.At(i, j) + intensity*targetAt(i, j)
			shrunk.SetSym(i, j, val)
		}
	}

	return shrunk
}

// shrinkageIntensity estimates how far toward the target to shrink. This is
// a simplified estimator bounded to [0, 0.5], defaulting to 20% when the
// data gives no usable signal.
func shrinkageIntensity(sample *mat.SymDense, targetAt func(i, j int) float64, avgVar float64) float64 {
	n := sample.SymmetricDim()
	intensity := 0.2

	if n <= 2 || avgVar <= 0 {
		return intensity
	}

	var sumSqDiff float64
	var sumSample, sumSqSample float64
	count := 0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			val := sample.At(i, j)
			diff := val - targetAt(i, j)
			sumSqDiff += diff * diff
			sumSample += val
			sumSqSample += val * val
			count++
		}
	}

	meanSqDiff := sumSqDiff / float64(count)
	meanSample := sumSample / float64(count)
	varSample := sumSqSample/float64(count) - meanSample*meanSample

	if varSample > 0 && meanSqDiff > 0 {
		intensity = math.Min(0.5, math.Max(0.0, varSample/(varSample+meanSqDiff)))
	}

	return intensity
}

// correlationFromCovariance rebuilds the correlation matrix from a (possibly
// shrunk) covariance matrix.
func correlationFromCovariance(cov *mat.SymDense) (*mat.SymDense, error) {
	n := cov.SymmetricDim()

	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		rows[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			rows[i][j] = cov.At(i, j)
		}
	}

	corrRows, err := formulas.CorrelationMatrixFromCovariance(rows)
	if err != nil {
		return nil, fmt.Errorf("covariance not usable for correlation: %w", err)
	}

	corr := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			corr.SetSym(i, j, corrRows[i][j])
		}
	}

	return corr, nil
}
