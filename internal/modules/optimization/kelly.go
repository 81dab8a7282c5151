package optimization

import (
	"fmt"

	"github.com/arithmax-research/quantcore/internal/modules/riskmodel"
	"github.com/arithmax-research/quantcore/pkg/logger"
	"github.com/rs/zerolog"
)

// Fractional Kelly bounds. Full Kelly is notoriously aggressive; sizes are
// scaled by a multiplier kept inside this band.
const (
	kellyMinMultiplier  = 0.25
	kellyMaxMultiplier  = 0.75
	kellyBaseMultiplier = 0.5

	kellyMinVariance = 1e-10
)

// KellyMode selects how the fractional multiplier is chosen.
type KellyMode string

const (
	// KellyModeFixed always applies the configured fixed fraction.
	KellyModeFixed KellyMode = "fixed"
	// KellyModeAdaptive scales the half-Kelly base by the caller's
	// confidence in the expected return.
	KellyModeAdaptive KellyMode = "adaptive"
)

// KellySize breaks a position size into its parts: the raw Kelly fraction,
// the fractional multiplier applied to it, and the final bounded size.
type KellySize struct {
	Fraction   float64
	Multiplier float64
	Size       float64
}

// KellySizer turns expected return and variance into position sizes via the
// Kelly criterion, damped by a fractional multiplier and clamped to the
// configured size bounds.
type KellySizer struct {
	riskFreeRate  float64
	fixedFraction float64
	minSize       float64
	maxSize       float64
	mode          KellyMode
	log           zerolog.Logger
}

// NewKellySizer creates an adaptive-mode sizer. minSize and maxSize bound
// the final position size as fractions of the portfolio.
func NewKellySizer(riskFreeRate, fixedFraction, minSize, maxSize float64, log zerolog.Logger) *KellySizer {
	return &KellySizer{
		riskFreeRate:  riskFreeRate,
		fixedFraction: fixedFraction,
		minSize:       minSize,
		maxSize:       maxSize,
		mode:          KellyModeAdaptive,
		log:           logger.Component(log, "kelly_sizer"),
	}
}

// SetMode switches between fixed and adaptive fractional Kelly.
func (ks *KellySizer) SetMode(mode KellyMode) {
	if mode == KellyModeFixed || mode == KellyModeAdaptive {
		ks.mode = mode
	}
}

// Size computes the position size for one asset. The raw Kelly fraction is
// (expectedReturn - riskFreeRate) / variance, zero when the edge is not
// positive or the variance is degenerate.
func (ks *KellySizer) Size(expectedReturn, variance, confidence float64) KellySize {
	fraction := ks.kellyFraction(expectedReturn, variance)
	multiplier := ks.multiplier(confidence)

	size := fraction * multiplier
	if size < ks.minSize {
		size = ks.minSize
	}
	if size > ks.maxSize {
		size = ks.maxSize
	}

	return KellySize{
		Fraction:   fraction,
		Multiplier: multiplier,
		Size:       size,
	}
}

// SizeForSymbol reads the asset's variance off the risk model covariance
// diagonal.
func (ks *KellySizer) SizeForSymbol(model *riskmodel.Model, symbol string, expectedReturn, confidence float64) (KellySize, error) {
	idx, ok := model.Universe.Index(symbol)
	if !ok {
		return KellySize{}, fmt.Errorf("symbol %s not in universe", symbol)
	}
	variance := model.Covariance.At(idx, idx)
	if variance < 0 {
		return KellySize{}, fmt.Errorf("negative variance %.6g for symbol %s", variance, symbol)
	}
	return ks.Size(expectedReturn, variance, confidence), nil
}

// SizeAll sizes every asset in the universe. Missing confidences default to
// 0.5; a missing expected return downgrades that asset to the minimum size
// with a warning rather than failing the batch.
func (ks *KellySizer) SizeAll(model *riskmodel.Model, expectedReturns, confidences map[string]float64) map[string]KellySize {
	symbols := model.Universe.Symbols()
	result := make(map[string]KellySize, len(symbols))

	for _, symbol := range symbols {
		ret, ok := expectedReturns[symbol]
		if !ok {
			ks.log.Warn().
				Str("symbol", symbol).
				Msg("No expected return, using minimum position size")
			result[symbol] = KellySize{Size: ks.minSize, Multiplier: ks.multiplier(0.5)}
			continue
		}

		confidence := 0.5
		if c, has := confidences[symbol]; has {
			confidence = c
		}

		size, err := ks.SizeForSymbol(model, symbol, ret, confidence)
		if err != nil {
			ks.log.Warn().
				Str("symbol", symbol).
				Err(err).
				Msg("Kelly sizing failed, using minimum position size")
			result[symbol] = KellySize{Size: ks.minSize, Multiplier: ks.multiplier(confidence)}
			continue
		}
		result[symbol] = size
	}

	return result
}

func (ks *KellySizer) kellyFraction(expectedReturn, variance float64) float64 {
	edge := expectedReturn - ks.riskFreeRate
	if edge <= 0 {
		return 0
	}
	if variance <= kellyMinVariance {
		return 0
	}
	return edge / variance
}

// multiplier maps confidence in [0,1] onto [0.25, 0.75] around the
// half-Kelly base in adaptive mode.
func (ks *KellySizer) multiplier(confidence float64) float64 {
	if ks.mode == KellyModeFixed {
		return ks.fixedFraction
	}

	m := kellyBaseMultiplier + (confidence-0.5)*0.5
	if m < kellyMinMultiplier {
		m = kellyMinMultiplier
	}
	if m > kellyMaxMultiplier {
		m = kellyMaxMultiplier
	}
	return m
}
