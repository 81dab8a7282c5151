package optimization

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHRPCorrelatedPairFormsCluster(t *testing.T) {
	// AAA and BBB correlate at 0.95, CCC is independent; equal variances.
	model := testModel(t, []string{"AAA", "BBB", "CCC"}, [][]float64{
		{0.04, 0.038, 0},
		{0.038, 0.04, 0},
		{0, 0, 0.04},
	}, nil)
	hrp := NewHRP(zerolog.Nop())

	result, err := hrp.Optimize(model, Constraints{})
	require.NoError(t, err)

	require.Len(t, result.Clusters, 2)
	assert.Equal(t, []string{"AAA", "BBB"}, result.Clusters[0])
	assert.Equal(t, []string{"CCC"}, result.Clusters[1])

	// Each cluster receives half the budget; the pair splits its half.
	assert.InDelta(t, 0.25, result.Weights["AAA"], 1e-9)
	assert.InDelta(t, 0.25, result.Weights["BBB"], 1e-9)
	assert.InDelta(t, 0.50, result.Weights["CCC"], 1e-9)
	assertWeightsSumToOne(t, result.Weights)
}

func TestHRPInverseVarianceWithinCluster(t *testing.T) {
	// BBB carries four times the variance of AAA inside the same cluster.
	model := testModel(t, []string{"AAA", "BBB", "CCC"}, [][]float64{
		{0.04, 0.072, 0},
		{0.072, 0.16, 0},
		{0, 0, 0.04},
	}, nil)
	hrp := NewHRP(zerolog.Nop())

	result, err := hrp.Optimize(model, Constraints{})
	require.NoError(t, err)

	require.Len(t, result.Clusters, 2)
	assert.InDelta(t, 0.487805, result.Weights["AAA"], 1e-6)
	assert.InDelta(t, 0.121951, result.Weights["BBB"], 1e-6)
	assert.InDelta(t, 0.390244, result.Weights["CCC"], 1e-6)
	assert.Greater(t, result.Weights["AAA"], result.Weights["BBB"],
		"the quieter asset should carry more of the cluster")
	assertWeightsSumToOne(t, result.Weights)
}

func TestHRPUncorrelatedAssetsAreSingletons(t *testing.T) {
	symbols := []string{"AAA", "BBB", "CCC", "DDD"}
	model := testModel(t, symbols, [][]float64{
		{0.04, 0, 0, 0},
		{0, 0.09, 0, 0},
		{0, 0, 0.16, 0},
		{0, 0, 0, 0.01},
	}, nil)
	hrp := NewHRP(zerolog.Nop())

	result, err := hrp.Optimize(model, Constraints{})
	require.NoError(t, err)

	require.Len(t, result.Clusters, 4)
	for _, symbol := range symbols {
		assert.InDelta(t, 0.25, result.Weights[symbol], 1e-9, "weight of %s", symbol)
	}
}

func TestHRPExcludedAssetBreaksCluster(t *testing.T) {
	model := testModel(t, []string{"AAA", "BBB", "CCC"}, [][]float64{
		{0.04, 0.038, 0},
		{0.038, 0.04, 0},
		{0, 0, 0.04},
	}, nil)
	hrp := NewHRP(zerolog.Nop())

	result, err := hrp.Optimize(model, Constraints{Excluded: map[string]bool{"BBB": true}})
	require.NoError(t, err)

	require.Len(t, result.Clusters, 2)
	assert.Zero(t, result.Weights["BBB"])
	assert.InDelta(t, 0.5, result.Weights["AAA"], 1e-9)
	assert.InDelta(t, 0.5, result.Weights["CCC"], 1e-9)
}

func TestHRPConstraintsRespected(t *testing.T) {
	model := testModel(t, []string{"AAA", "BBB", "CCC"}, [][]float64{
		{0.04, 0.038, 0},
		{0.038, 0.04, 0},
		{0, 0, 0.04},
	}, nil)
	hrp := NewHRP(zerolog.Nop())

	result, err := hrp.Optimize(model, Constraints{MaxWeights: map[string]float64{"CCC": 0.3}})
	require.NoError(t, err)

	assert.InDelta(t, 0.35, result.Weights["AAA"], 1e-9)
	assert.InDelta(t, 0.35, result.Weights["BBB"], 1e-9)
	assert.InDelta(t, 0.30, result.Weights["CCC"], 1e-9)
	assertWeightsSumToOne(t, result.Weights)
}
