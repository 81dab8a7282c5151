package riskmodel

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/arithmax-research/quantcore/pkg/formulas"
	"github.com/arithmax-research/quantcore/pkg/logger"
	"github.com/rs/zerolog"
)

// Constants for risk model configuration
const (
	DefaultLookbackDays      = 252  // 1 year of trading days
	HighCorrelationThreshold = 0.80 // 80% correlation is considered "high"

	// Below this many return observations the estimates are flagged as
	// low quality, but the build still succeeds.
	recommendedObservations = 30
)

// ErrInsufficientData marks series or pair overlaps too short to estimate
// variance/covariance from.
var ErrInsufficientData = errors.New("insufficient data")

// CorrelationPair reports one highly correlated asset pair.
type CorrelationPair struct {
	Symbol1     string
	Symbol2     string
	Correlation float64
}

// Options controls optional stages of the risk model build.
type Options struct {
	Shrinkage bool // shrink the sample covariance toward the constant-correlation target
}

// Model is the output of the Returns & Covariance Builder: everything the
// optimizers and simulators consume, indexed in Universe order.
type Model struct {
	Universe      *Universe
	Returns       map[string][]float64
	MeanReturns   []float64 // mean daily return per asset
	AnnualReturns []float64 // compound annual growth rate per asset
	Volatilities  []float64 // annualized volatility per asset
	Covariance    *mat.SymDense
	Correlation   *mat.SymDense
}

// Builder builds covariance matrices and risk models for optimization.
type Builder struct {
	log zerolog.Logger
}

// NewBuilder creates a new risk model builder.
func NewBuilder(log zerolog.Logger) *Builder {
	return &Builder{
		log: logger.Component(log, "risk_model"),
	}
}

// Build turns per-asset price series into a full risk model. Prices must be
// ordered oldest first; series may differ in length, covariance for each
// pair is estimated over the shorter of the two return series. Gaps (NaN or
// non-positive prices) are forward/back-filled before returns are computed.
func (b *Builder) Build(symbols []string, prices map[string][]float64, opts Options) (*Model, error) {
	universe, err := NewUniverse(symbols)
	if err != nil {
		return nil, err
	}
	n := universe.Len()

	b.log.Info().
		Int("num_symbols", n).
		Bool("shrinkage", opts.Shrinkage).
		Msg("Building risk model")

	returns := make(map[string][]float64, n)
	minObs := -1
	for _, symbol := range universe.Symbols() {
		series, ok := prices[symbol]
		if !ok || len(series) == 0 {
			return nil, fmt.Errorf("empty price series for %s", symbol)
		}

		repaired, unfilled := repairMissing(series)
		if unfilled > 0 {
			return nil, fmt.Errorf("%w: no valid prices for %s", ErrInsufficientData, symbol)
		}

		rets := formulas.CalculateReturns(repaired)
		if len(rets) < 2 {
			return nil, fmt.Errorf("%w: %d return observations for %s, need at least 2",
				ErrInsufficientData, len(rets), symbol)
		}
		returns[symbol] = rets
		if minObs < 0 || len(rets) < minObs {
			minObs = len(rets)
		}
	}

	if minObs < recommendedObservations {
		b.log.Warn().
			Int("observations", minObs).
			Int("recommended", recommendedObservations).
			Msg("Short return history, risk estimates will be noisy")
	}

	cov, corr, err := b.pairwiseMatrices(universe, returns)
	if err != nil {
		return nil, err
	}

	if opts.Shrinkage {
		cov = applyShrinkage(cov)
		corr, err = correlationFromCovariance(cov)
		if err != nil {
			return nil, fmt.Errorf("failed to rebuild correlation after shrinkage: %w", err)
		}
		b.log.Debug().Msg("Applied constant-correlation shrinkage to covariance")
	}

	model := &Model{
		Universe:      universe,
		Returns:       returns,
		MeanReturns:   make([]float64, n),
		AnnualReturns: make([]float64, n),
		Volatilities:  make([]float64, n),
		Covariance:    cov,
		Correlation:   corr,
	}
	for i, symbol := range universe.Symbols() {
		rets := returns[symbol]
		model.MeanReturns[i] = formulas.Mean(rets)
		model.AnnualReturns[i] = formulas.CalculateAnnualReturn(rets)
		model.Volatilities[i] = formulas.AnnualizedVolatility(rets)
	}

	b.log.Info().
		Int("matrix_size", n).
		Int("observations", minObs).
		Msg("Built risk model")

	return model, nil
}

// pairwiseMatrices estimates sample covariance and correlation for every
// asset pair over the tail overlap of the two return series. Fewer than 2
// overlapping points for any pair is an error, never a silent zero.
func (b *Builder) pairwiseMatrices(universe *Universe, returns map[string][]float64) (*mat.SymDense, *mat.SymDense, error) {
	n := universe.Len()
	cov := mat.NewSymDense(n, nil)
	corr := mat.NewSymDense(n, nil)

	for i := 0; i < n; i++ {
		corr.SetSym(i, i, 1.0)
		ri := returns[universe.Symbol(i)]
		for j := i; j < n; j++ {
			rj := returns[universe.Symbol(j)]

			overlap := len(ri)
			if len(rj) < overlap {
				overlap = len(rj)
			}
			if overlap < 2 {
				return nil, nil, fmt.Errorf("%w: %d aligned return points for pair %s/%s",
					ErrInsufficientData, overlap, universe.Symbol(i), universe.Symbol(j))
			}

			x := ri[len(ri)-overlap:]
			y := rj[len(rj)-overlap:]
			cov.SetSym(i, j, stat.Covariance(x, y, nil))

			if i != j {
				rho := stat.Correlation(x, y, nil)
				if math.IsNaN(rho) {
					// Zero-variance leg, correlation is undefined.
					rho = 0
				}
				rho = math.Max(-1.0, math.Min(1.0, rho))
				corr.SetSym(i, j, rho)
			}
		}
	}

	return cov, corr, nil
}

// HighCorrelations extracts asset pairs whose absolute correlation meets the
// threshold, for diversification diagnostics.
func (m *Model) HighCorrelations(threshold float64) []CorrelationPair {
	n := m.Universe.Len()
	pairs := make([]CorrelationPair, 0)

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			rho := m.Correlation.At(i, j)
			if math.Abs(rho) >= threshold {
				pairs = append(pairs, CorrelationPair{
					Symbol1:     m.Universe.Symbol(i),
					Symbol2:     m.Universe.Symbol(j),
					Correlation: rho,
				})
			}
		}
	}

	return pairs
}

// AssetVariances returns the covariance diagonal in universe order.
func (m *Model) AssetVariances() []float64 {
	n := m.Universe.Len()
	variances := make([]float64, n)
	for i := 0; i < n; i++ {
		variances[i] = m.Covariance.At(i, i)
	}
	return variances
}

// PortfolioVariance computes w' * Σ * w for a weight vector in universe order.
func (m *Model) PortfolioVariance(weights []float64) float64 {
	n := m.Universe.Len()
	if len(weights) != n {
		return 0
	}

	w := mat.NewVecDense(n, weights)
	var sw mat.VecDense
	sw.MulVec(m.Covariance, w)
	return mat.Dot(w, &sw)
}
