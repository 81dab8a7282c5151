// Package risk measures realized downside risk: historical and parametric
// VaR/CVaR on daily return series, and portfolio-level reports that combine
// the risk model's covariance with the realized paths. Returns follow the
// engine-wide sign convention: negative values are losses, so CVaR is
// always at or below VaR.
package risk

import (
	"fmt"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/arithmax-research/quantcore/internal/modules/riskmodel"
	"github.com/arithmax-research/quantcore/pkg/formulas"
	"github.com/arithmax-research/quantcore/pkg/logger"
)

// Method names the estimation approach behind a Report.
type Method string

const (
	// MethodHistorical reads the tail off the empirical distribution.
	MethodHistorical Method = "historical"
	// MethodParametric assumes normal returns and uses the sample moments.
	MethodParametric Method = "parametric"
)

// Report is a single VaR/CVaR estimate over a daily return series. VaR is
// the return at the tail boundary and CVaR the mean of the tail, both
// negative when the tail holds losses.
type Report struct {
	Method       Method
	Confidence   float64
	Observations int
	Mean         float64
	StdDev       float64
	VaR          float64
	CVaR         float64
}

// Analyzer computes risk reports. It is stateless; one instance may be
// shared across goroutines.
type Analyzer struct {
	log zerolog.Logger
}

// NewAnalyzer creates a risk analyzer.
func NewAnalyzer(log zerolog.Logger) *Analyzer {
	return &Analyzer{
		log: logger.Component(log, "risk"),
	}
}

// HistoricalVaR sorts the realized returns and reads VaR and CVaR off the
// empirical tail at the given confidence level.
func (a *Analyzer) HistoricalVaR(returns []float64, confidence float64) (*Report, error) {
	if err := validateConfidence(confidence); err != nil {
		return nil, err
	}
	if len(returns) == 0 {
		return nil, fmt.Errorf("%w: historical VaR needs at least one return observation",
			riskmodel.ErrInsufficientData)
	}

	return &Report{
		Method:       MethodHistorical,
		Confidence:   confidence,
		Observations: len(returns),
		Mean:         stat.Mean(returns, nil),
		StdDev:       sampleStdDev(returns),
		VaR:          formulas.CalculateVaR(returns, confidence),
		CVaR:         formulas.CalculateCVaR(returns, confidence),
	}, nil
}

// ParametricVaR fits a normal distribution to the sample moments and reads
// the tail analytically (the variance-covariance method). At least two
// observations are needed for a standard deviation.
func (a *Analyzer) ParametricVaR(returns []float64, confidence float64) (*Report, error) {
	if err := validateConfidence(confidence); err != nil {
		return nil, err
	}
	if len(returns) < 2 {
		return nil, fmt.Errorf("%w: parametric VaR needs at least 2 return observations, got %d",
			riskmodel.ErrInsufficientData, len(returns))
	}

	mean := stat.Mean(returns, nil)
	sd := stat.StdDev(returns, nil)
	report := parametricReport(mean, sd, confidence, len(returns))
	return report, nil
}

// parametricReport evaluates the normal-tail formulas for the given
// moments:
//
//	VaR  = mean + sd*z            with z the (1-confidence) normal quantile
//	CVaR = mean - sd*pdf(z)/(1-confidence)
func parametricReport(mean, sd float64, confidence float64, observations int) *Report {
	report := &Report{
		Method:       MethodParametric,
		Confidence:   confidence,
		Observations: observations,
		Mean:         mean,
		StdDev:       sd,
	}
	if sd == 0 {
		report.VaR = mean
		report.CVaR = mean
		return report
	}

	normal := distuv.Normal{Mu: 0, Sigma: 1}
	z := normal.Quantile(1 - confidence)
	report.VaR = mean + sd*z
	report.CVaR = mean - sd*normal.Prob(z)/(1-confidence)
	return report
}

func validateConfidence(confidence float64) error {
	if confidence <= 0 || confidence >= 1 {
		return fmt.Errorf("confidence must lie in (0, 1), got %v", confidence)
	}
	return nil
}

func sampleStdDev(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	return stat.StdDev(returns, nil)
}
