package risk

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/arithmax-research/quantcore/internal/modules/riskmodel"
	"github.com/arithmax-research/quantcore/pkg/formulas"
)

// PortfolioReport bundles the realized risk picture of one weighted
// portfolio: the historical tail of the weighted return series, the
// variance-covariance cross-check from the risk model's matrix, and the
// undiversified weighted sum of per-asset CVaRs as an upper bound on tail
// loss.
type PortfolioReport struct {
	ID           string
	Timestamp    time.Time
	Confidence   float64
	Observations int

	Historical Report
	Parametric Report

	// UndiversifiedCVaR ignores cross-asset correlation; the gap to
	// Historical.CVaR is the diversification benefit.
	UndiversifiedCVaR    float64
	AnnualizedVolatility float64
	MaxDrawdown          float64
}

// PortfolioRisk builds the full risk report for a weighted portfolio. The
// weighted return series runs over the most recent window common to every
// weighted symbol; weights must cover only universe symbols and sum to 1.
func (a *Analyzer) PortfolioRisk(model *riskmodel.Model, weights map[string]float64, confidence float64) (*PortfolioReport, error) {
	if err := validateConfidence(confidence); err != nil {
		return nil, err
	}
	aligned, err := alignWeights(model, weights)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	series, err := portfolioSeries(model, aligned)
	if err != nil {
		return nil, err
	}

	historical, err := a.HistoricalVaR(series, confidence)
	if err != nil {
		return nil, err
	}

	// Variance-covariance moments come from the model matrix, not the
	// realized series, so the two reports are independent estimates.
	weightVec := mat.NewVecDense(len(aligned), aligned)
	variance := mat.Inner(weightVec, model.Covariance, weightVec)
	meanDaily := 0.0
	for i, w := range aligned {
		meanDaily += w * model.MeanReturns[i]
	}
	parametric := parametricReport(meanDaily, math.Sqrt(math.Max(variance, 0)), confidence, len(series))

	values := make([]float64, 0, len(series)+1)
	values = append(values, 1)
	for _, r := range series {
		values = append(values, values[len(values)-1]*(1+r))
	}
	maxDrawdown := 0.0
	if dd := formulas.CalculateMaxDrawdown(values); dd != nil {
		maxDrawdown = *dd
	}

	report := &PortfolioReport{
		ID:                   uuid.New().String(),
		Timestamp:            time.Now(),
		Confidence:           confidence,
		Observations:         len(series),
		Historical:           *historical,
		Parametric:           *parametric,
		UndiversifiedCVaR:    formulas.CalculatePortfolioCVaR(weights, model.Returns, confidence),
		AnnualizedVolatility: formulas.AnnualizedVolatility(series),
		MaxDrawdown:          maxDrawdown,
	}

	a.log.Info().
		Str("id", report.ID).
		Int("observations", report.Observations).
		Float64("var", report.Historical.VaR).
		Float64("cvar", report.Historical.CVaR).
		Float64("max_drawdown", report.MaxDrawdown).
		Dur("elapsed", time.Since(start)).
		Msg("Portfolio risk report completed")

	return report, nil
}

// portfolioSeries compounds the weighted daily return series over the most
// recent window shared by all weighted symbols. Return series may differ in
// length (the builder estimates pairwise), so longer histories are cut to
// the common window, aligned at the latest observation.
func portfolioSeries(model *riskmodel.Model, aligned []float64) ([]float64, error) {
	window := -1
	for i, w := range aligned {
		if w == 0 {
			continue
		}
		rets := model.Returns[model.Universe.Symbol(i)]
		if window < 0 || len(rets) < window {
			window = len(rets)
		}
	}
	if window < 2 {
		return nil, fmt.Errorf("%w: %d common return observations across weighted symbols, need at least 2",
			riskmodel.ErrInsufficientData, window)
	}

	series := make([]float64, window)
	for i, w := range aligned {
		if w == 0 {
			continue
		}
		rets := model.Returns[model.Universe.Symbol(i)]
		offset := len(rets) - window
		for t := 0; t < window; t++ {
			series[t] += w * rets[offset+t]
		}
	}
	return series, nil
}

// alignWeights maps the weight map onto universe order. Symbols absent from
// the map hold weight zero; symbols outside the universe are an error, as
// is a total away from 1.
func alignWeights(model *riskmodel.Model, weights map[string]float64) ([]float64, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("no portfolio weights given")
	}
	aligned := make([]float64, model.Universe.Len())
	total := 0.0
	for symbol, w := range weights {
		idx, ok := model.Universe.Index(symbol)
		if !ok {
			return nil, fmt.Errorf("weight for symbol %s outside the universe", symbol)
		}
		aligned[idx] = w
		total += w
	}
	if math.Abs(total-1) > 1e-6 {
		return nil, fmt.Errorf("weights sum to %v, expected 1", total)
	}
	return aligned, nil
}
