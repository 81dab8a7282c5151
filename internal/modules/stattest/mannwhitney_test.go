package stattest

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMannWhitneyUFullySeparated(t *testing.T) {
	analyzer := NewAnalyzer(zerolog.Nop())

	result, err := analyzer.MannWhitneyU([]float64{1, 2, 3}, []float64{4, 5, 6})
	require.NoError(t, err)

	// Ranks of x are 1..3, so U = 6 - 3*4/2 = 0 and
	// z = -4.5/sqrt(5.25) = -1.9640.
	assert.Equal(t, 0.0, result.Statistic)
	assert.InDelta(t, 0.0495, result.PValue, 1e-3)
	assert.InDelta(t, -1.0, result.EffectSize, 1e-12,
		"all of x below all of y is a rank-biserial correlation of -1")
	assert.True(t, result.Significant)
}

func TestMannWhitneyUSwapSymmetry(t *testing.T) {
	analyzer := NewAnalyzer(zerolog.Nop())

	forward, err := analyzer.MannWhitneyU([]float64{1, 2, 3}, []float64{4, 5, 6})
	require.NoError(t, err)
	backward, err := analyzer.MannWhitneyU([]float64{4, 5, 6}, []float64{1, 2, 3})
	require.NoError(t, err)

	assert.Equal(t, 9.0, backward.Statistic, "swapping samples should give U' = n1*n2 - U")
	assert.InDelta(t, forward.PValue, backward.PValue, 1e-12)
	assert.InDelta(t, -forward.EffectSize, backward.EffectSize, 1e-12)
}

func TestMannWhitneyUTieCorrection(t *testing.T) {
	analyzer := NewAnalyzer(zerolog.Nop())

	result, err := analyzer.MannWhitneyU([]float64{1, 2, 2}, []float64{2, 3, 3})
	require.NoError(t, err)

	// Midranks are 1 for the 1, 3 for each 2, and 5.5 for each 3, so
	// R1 = 7 and U = 1. The tie term sum(t^3-t) = 30 shrinks the variance
	// to 4.5, giving z = -3.5/sqrt(4.5) = -1.6499.
	assert.Equal(t, 1.0, result.Statistic)
	assert.InDelta(t, 0.0990, result.PValue, 1e-3)
	assert.False(t, result.Significant)
}

func TestMannWhitneyUIdenticalConstants(t *testing.T) {
	analyzer := NewAnalyzer(zerolog.Nop())

	result, err := analyzer.MannWhitneyU([]float64{5, 5}, []float64{5, 5})
	require.NoError(t, err)

	assert.Equal(t, 1.0, result.PValue, "fully tied data carries no rank information")
	assert.Equal(t, 0.0, result.EffectSize)
	assert.False(t, result.Significant)
}

func TestMannWhitneyUSingleObservations(t *testing.T) {
	analyzer := NewAnalyzer(zerolog.Nop())

	result, err := analyzer.MannWhitneyU([]float64{1}, []float64{2})
	require.NoError(t, err)

	// U = 0, mean 0.5, variance 0.25, so z = -1 and p = 2*Phi(-1).
	assert.Equal(t, 0.0, result.Statistic)
	assert.InDelta(t, 0.3173, result.PValue, 1e-3)
}

func TestMannWhitneyUValidation(t *testing.T) {
	analyzer := NewAnalyzer(zerolog.Nop())

	_, err := analyzer.MannWhitneyU(nil, []float64{1})
	assert.ErrorIs(t, err, ErrInsufficientSample)

	_, err = analyzer.MannWhitneyU([]float64{1}, []float64{})
	assert.ErrorIs(t, err, ErrInsufficientSample)
}
