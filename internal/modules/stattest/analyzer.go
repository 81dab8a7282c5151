// Package stattest implements the classical hypothesis tests used to compare
// strategy return samples: two-sample t-test, one-way ANOVA, chi-square
// independence, Mann-Whitney U, and power analysis. Every test fails loudly
// on inputs that cannot support it rather than returning a quiet NaN.
package stattest

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/arithmax-research/quantcore/pkg/logger"
)

// DefaultAlpha is the significance level used unless overridden.
const DefaultAlpha = 0.05

// ErrInsufficientSample marks inputs too small for the requested test.
var ErrInsufficientSample = errors.New("insufficient sample")

// TestResult is the outcome of one hypothesis test. PValue is two-sided and
// clamped to [0, 1]; Significant compares it against Alpha. EffectSize is
// the test's conventional effect measure (Cohen's d, eta squared, Cramer's
// V, or rank-biserial correlation).
type TestResult struct {
	Test             string
	Statistic        float64
	PValue           float64
	DegreesOfFreedom float64
	EffectSize       float64
	Alpha            float64
	Significant      bool
	NullHypothesis   string
	AltHypothesis    string
}

// Analyzer runs hypothesis tests at a configured significance level.
type Analyzer struct {
	alpha float64
	log   zerolog.Logger
}

// NewAnalyzer creates an analyzer at the default significance level.
func NewAnalyzer(log zerolog.Logger) *Analyzer {
	return &Analyzer{
		alpha: DefaultAlpha,
		log:   logger.Component(log, "stattest"),
	}
}

// SetAlpha changes the significance level; values outside (0, 1) are
// ignored.
func (a *Analyzer) SetAlpha(alpha float64) {
	if alpha > 0 && alpha < 1 {
		a.alpha = alpha
	}
}

// finish clamps the p-value and fills the shared result fields.
func (a *Analyzer) finish(result *TestResult) *TestResult {
	result.PValue = clamp01(result.PValue)
	result.Alpha = a.alpha
	result.Significant = result.PValue < a.alpha

	a.log.Debug().
		Str("test", result.Test).
		Float64("statistic", result.Statistic).
		Float64("p_value", result.PValue).
		Bool("significant", result.Significant).
		Msg("Hypothesis test completed")

	return result
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
