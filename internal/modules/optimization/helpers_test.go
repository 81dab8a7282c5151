package optimization

import (
	"math"
	"testing"

	"github.com/arithmax-research/quantcore/internal/modules/riskmodel"
	"github.com/arithmax-research/quantcore/pkg/formulas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// testModel assembles a risk model directly from a covariance matrix so
// optimizer inputs are exact instead of estimated from prices.
func testModel(t *testing.T, symbols []string, cov [][]float64, annualReturns []float64) *riskmodel.Model {
	t.Helper()

	universe, err := riskmodel.NewUniverse(symbols)
	require.NoError(t, err)

	n := len(symbols)
	covData := make([]float64, 0, n*n)
	for i := 0; i < n; i++ {
		covData = append(covData, cov[i]...)
	}

	corrRows, err := formulas.CorrelationMatrixFromCovariance(cov)
	require.NoError(t, err)
	corrData := make([]float64, 0, n*n)
	for i := 0; i < n; i++ {
		corrData = append(corrData, corrRows[i]...)
	}

	if annualReturns == nil {
		annualReturns = make([]float64, n)
	}
	vols := make([]float64, n)
	for i := 0; i < n; i++ {
		vols[i] = math.Sqrt(cov[i][i] * formulas.TradingDaysPerYear)
	}

	return &riskmodel.Model{
		Universe:      universe,
		Returns:       map[string][]float64{},
		MeanReturns:   make([]float64, n),
		AnnualReturns: annualReturns,
		Volatilities:  vols,
		Covariance:    mat.NewSymDense(n, covData),
		Correlation:   mat.NewSymDense(n, corrData),
	}
}

func assertWeightsSumToOne(t *testing.T, weights map[string]float64) {
	t.Helper()
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9, "weights should sum to 1, got %f", sum)
}
