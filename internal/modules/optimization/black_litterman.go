package optimization

import (
	"fmt"
	"math"

	"github.com/arithmax-research/quantcore/internal/modules/riskmodel"
	"github.com/arithmax-research/quantcore/pkg/logger"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// Black-Litterman defaults.
const (
	// DefaultRiskAversion is the market risk-aversion scalar lambda in the
	// equilibrium prior pi = lambda * Sigma * w.
	DefaultRiskAversion = 2.5
	// DefaultTau scales the covariance of the prior estimate in the
	// bayesian blend.
	DefaultTau = 0.05

	minViewUncertainty = 1e-6
)

// ViewType distinguishes absolute views on a single asset from relative
// views between two assets.
type ViewType string

const (
	ViewTypeAbsolute ViewType = "absolute"
	ViewTypeRelative ViewType = "relative"
)

// View is an investor view on expected returns. An absolute view targets
// Symbol with an expected return; a relative view states that Symbol1
// outperforms Symbol2 by Return. Confidence lies in [0, 1]; a confidence of
// zero leaves the prior untouched.
type View struct {
	Type       ViewType
	Symbol     string
	Symbol1    string
	Symbol2    string
	Return     float64
	Confidence float64
}

// BlendMode selects how views are folded into the equilibrium prior.
type BlendMode string

const (
	// BlendDiagonal blends each absolute view directly with the prior:
	// posterior = confidence*view + (1-confidence)*prior. Relative views
	// are rejected in this mode.
	BlendDiagonal BlendMode = "diagonal"
	// BlendBayesian applies the full Black-Litterman master formula with a
	// diagonal view-uncertainty matrix and accepts relative views.
	BlendBayesian BlendMode = "bayesian"
)

// BlackLitterman derives posterior expected returns from a market
// equilibrium prior and a set of investor views.
type BlackLitterman struct {
	riskAversion float64
	tau          float64
	log          zerolog.Logger
}

// NewBlackLitterman creates a posterior engine with default risk aversion
// and tau.
func NewBlackLitterman(log zerolog.Logger) *BlackLitterman {
	return &BlackLitterman{
		riskAversion: DefaultRiskAversion,
		tau:          DefaultTau,
		log:          logger.Component(log, "black_litterman"),
	}
}

// MarketEquilibrium computes the implied equilibrium returns
// pi = lambda * Sigma * w for the model universe. When marketWeights is nil
// every asset is weighted equally; otherwise the supplied weights are
// normalized to sum 1 first.
func (bl *BlackLitterman) MarketEquilibrium(model *riskmodel.Model, marketWeights map[string]float64) (map[string]float64, error) {
	symbols := model.Universe.Symbols()
	n := len(symbols)

	w := mat.NewVecDense(n, nil)
	if marketWeights == nil {
		for i := 0; i < n; i++ {
			w.SetVec(i, 1.0/float64(n))
		}
	} else {
		total := 0.0
		for _, symbol := range symbols {
			total += marketWeights[symbol]
		}
		if total <= 0 {
			return nil, fmt.Errorf("market weights sum to %.6f, expected a positive total", total)
		}
		for i, symbol := range symbols {
			w.SetVec(i, marketWeights[symbol]/total)
		}
	}

	var sigmaW mat.VecDense
	sigmaW.MulVec(model.Covariance, w)

	prior := make(map[string]float64, n)
	for i, symbol := range symbols {
		prior[symbol] = bl.riskAversion * sigmaW.AtVec(i)
	}
	return prior, nil
}

// PosteriorReturns blends views into the equilibrium prior. An empty view
// list returns the prior unchanged. An empty mode defaults to the diagonal
// blend.
func (bl *BlackLitterman) PosteriorReturns(model *riskmodel.Model, views []View, marketWeights map[string]float64, mode BlendMode) (map[string]float64, error) {
	if mode == "" {
		mode = BlendDiagonal
	}
	if mode != BlendDiagonal && mode != BlendBayesian {
		return nil, fmt.Errorf("unknown blend mode %q", mode)
	}

	prior, err := bl.MarketEquilibrium(model, marketWeights)
	if err != nil {
		return nil, err
	}
	if err := bl.validateViews(model, views, mode); err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return prior, nil
	}

	bl.log.Debug().
		Int("views", len(views)).
		Str("mode", string(mode)).
		Msg("Blending views with equilibrium prior")

	if mode == BlendBayesian {
		return bl.bayesianPosterior(model, prior, views)
	}
	return bl.diagonalPosterior(prior, views), nil
}

func (bl *BlackLitterman) validateViews(model *riskmodel.Model, views []View, mode BlendMode) error {
	for i, view := range views {
		if view.Confidence < 0 || view.Confidence > 1 {
			return fmt.Errorf("view %d: confidence %.4f outside [0, 1]", i, view.Confidence)
		}
		if math.IsNaN(view.Return) || math.IsInf(view.Return, 0) {
			return fmt.Errorf("view %d: return is not finite", i)
		}

		switch view.Type {
		case ViewTypeAbsolute, "":
			if _, ok := model.Universe.Index(view.Symbol); !ok {
				return fmt.Errorf("view %d: symbol %s not in universe", i, view.Symbol)
			}
		case ViewTypeRelative:
			if mode != BlendBayesian {
				return fmt.Errorf("view %d: relative views require the bayesian blend mode", i)
			}
			if _, ok := model.Universe.Index(view.Symbol1); !ok {
				return fmt.Errorf("view %d: symbol %s not in universe", i, view.Symbol1)
			}
			if _, ok := model.Universe.Index(view.Symbol2); !ok {
				return fmt.Errorf("view %d: symbol %s not in universe", i, view.Symbol2)
			}
			if view.Symbol1 == view.Symbol2 {
				return fmt.Errorf("view %d: relative view needs two distinct symbols", i)
			}
		default:
			return fmt.Errorf("view %d: unknown view type %q", i, view.Type)
		}
	}
	return nil
}

// diagonalPosterior applies the per-asset confidence blend. When several
// views target the same symbol the last one wins.
func (bl *BlackLitterman) diagonalPosterior(prior map[string]float64, views []View) map[string]float64 {
	posterior := make(map[string]float64, len(prior))
	for symbol, value := range prior {
		posterior[symbol] = value
	}
	for _, view := range views {
		c := view.Confidence
		posterior[view.Symbol] = c*view.Return + (1-c)*prior[view.Symbol]
	}
	return posterior
}

// bayesianPosterior solves the Black-Litterman master formula
//
//	E[R] = [(tau*Sigma)^-1 + P' Omega^-1 P]^-1 [(tau*Sigma)^-1 pi + P' Omega^-1 Q]
//
// with a diagonal Omega scaled per view so that confidence 1 pins the
// posterior to the view and confidence 0 removes the view entirely.
func (bl *BlackLitterman) bayesianPosterior(model *riskmodel.Model, prior map[string]float64, views []View) (map[string]float64, error) {
	symbols := model.Universe.Symbols()
	n := len(symbols)
	k := len(views)

	p := mat.NewDense(k, n, nil)
	q := mat.NewVecDense(k, nil)
	omegaInv := mat.NewDense(k, k, nil)

	for vi, view := range views {
		var viewVariance float64
		switch view.Type {
		case ViewTypeRelative:
			i1, _ := model.Universe.Index(view.Symbol1)
			i2, _ := model.Universe.Index(view.Symbol2)
			p.Set(vi, i1, 1)
			p.Set(vi, i2, -1)
			viewVariance = model.Covariance.At(i1, i1) + model.Covariance.At(i2, i2) - 2*model.Covariance.At(i1, i2)
		default:
			idx, _ := model.Universe.Index(view.Symbol)
			p.Set(vi, idx, 1)
			viewVariance = model.Covariance.At(idx, idx)
		}
		q.SetVec(vi, view.Return)

		// Idzorek-style uncertainty: omega grows without bound as the
		// confidence approaches zero, so a zero-confidence view drops out.
		if view.Confidence <= 0 {
			continue
		}
		omega := bl.tau * math.Max(viewVariance, minViewUncertainty) * (1 - view.Confidence) / view.Confidence
		if omega < minViewUncertainty {
			omega = minViewUncertainty
		}
		omegaInv.Set(vi, vi, 1/omega)
	}

	tauSigma := mat.NewDense(n, n, nil)
	tauSigma.Scale(bl.tau, model.Covariance)
	var tauSigmaInv mat.Dense
	if err := tauSigmaInv.Inverse(tauSigma); err != nil {
		return nil, fmt.Errorf("failed to invert scaled covariance: %w", err)
	}

	var ptOmegaInv mat.Dense
	ptOmegaInv.Mul(p.T(), omegaInv)
	var ptOmegaInvP mat.Dense
	ptOmegaInvP.Mul(&ptOmegaInv, p)

	var precision mat.Dense
	precision.Add(&tauSigmaInv, &ptOmegaInvP)

	piVec := mat.NewVecDense(n, nil)
	for i, symbol := range symbols {
		piVec.SetVec(i, prior[symbol])
	}
	var priorTerm mat.VecDense
	priorTerm.MulVec(&tauSigmaInv, piVec)
	var viewTerm mat.VecDense
	viewTerm.MulVec(&ptOmegaInv, q)
	var rhs mat.VecDense
	rhs.AddVec(&priorTerm, &viewTerm)

	var posteriorVec mat.VecDense
	if err := posteriorVec.SolveVec(&precision, &rhs); err != nil {
		return nil, fmt.Errorf("failed to solve posterior system: %w", err)
	}

	posterior := make(map[string]float64, n)
	for i, symbol := range symbols {
		posterior[symbol] = posteriorVec.AtVec(i)
	}
	return posterior, nil
}
