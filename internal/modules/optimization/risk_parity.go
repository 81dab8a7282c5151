package optimization

import (
	"fmt"
	"math"

	"github.com/arithmax-research/quantcore/internal/modules/riskmodel"
	"github.com/arithmax-research/quantcore/pkg/logger"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	// RiskParityMaxIterations caps the multiplicative fixed-point loop so
	// ill-conditioned covariance matrices cannot spin forever.
	RiskParityMaxIterations = 1000
	// RiskParityTolerance is the convergence bound on the largest deviation
	// of any risk contribution from its equal-share target.
	RiskParityTolerance = 1e-8
)

// RiskParityResult carries the solved weights together with convergence
// metadata. RiskContributions are recomputed after the post-loop constraint
// clamp, so they reflect the weights actually returned.
type RiskParityResult struct {
	Weights           map[string]float64
	RiskContributions map[string]float64
	Converged         bool
	Iterations        int
}

// RiskParity solves for weights whose per-asset risk contributions are
// equal. The iteration is a heuristic multiplicative fixed point, not a
// provably convergent Newton method; when the cap is reached the best
// iterate seen is returned with Converged=false.
type RiskParity struct {
	log zerolog.Logger
}

// NewRiskParity creates a risk parity solver.
func NewRiskParity(log zerolog.Logger) *RiskParity {
	return &RiskParity{
		log: logger.Component(log, "risk_parity"),
	}
}

// Optimize runs the equal-risk-contribution iteration over the non-excluded
// assets, then applies box constraints. The equal-share target is 1/M for M
// active assets.
func (rp *RiskParity) Optimize(model *riskmodel.Model, constraints Constraints) (*RiskParityResult, error) {
	symbols := model.Universe.Symbols()
	n := len(symbols)
	if err := constraints.Validate(symbols); err != nil {
		return nil, err
	}

	active := make([]int, 0, n)
	for i, symbol := range symbols {
		if !constraints.Excluded[symbol] {
			active = append(active, i)
		}
	}

	target := 1.0 / float64(len(active))
	weights := make([]float64, n)
	for _, i := range active {
		weights[i] = target
	}

	best := append([]float64(nil), weights...)
	bestDeviation := math.Inf(1)
	converged := false
	iterations := 0

	for iter := 1; iter <= RiskParityMaxIterations; iter++ {
		iterations = iter

		contribs, err := riskContributions(model.Covariance, weights)
		if err != nil {
			return nil, err
		}

		deviation := 0.0
		for _, i := range active {
			if d := math.Abs(contribs[i] - target); d > deviation {
				deviation = d
			}
		}
		if deviation < bestDeviation {
			bestDeviation = deviation
			copy(best, weights)
		}
		if deviation < RiskParityTolerance {
			converged = true
			break
		}

		for _, i := range active {
			if contribs[i] > 0 {
				weights[i] *= target / contribs[i]
			}
		}
		if sum := floats.Sum(weights); sum > 0 {
			floats.Scale(1/sum, weights)
		}
	}

	if !converged {
		rp.log.Warn().
			Int("iterations", iterations).
			Float64("best_deviation", bestDeviation).
			Msg("Risk parity iteration hit the cap without converging, returning best iterate")
	}

	raw := make(map[string]float64, n)
	for i, symbol := range symbols {
		raw[symbol] = best[i]
	}
	clamped, err := constraints.Apply(symbols, raw)
	if err != nil {
		return nil, err
	}

	// Clamping can reintroduce contribution imbalance; report contributions
	// for the weights the caller actually receives.
	final := make([]float64, n)
	for i, symbol := range symbols {
		final[i] = clamped[symbol]
	}
	contribs, err := riskContributions(model.Covariance, final)
	if err != nil {
		return nil, err
	}
	contribMap := make(map[string]float64, n)
	for i, symbol := range symbols {
		contribMap[symbol] = contribs[i]
	}

	rp.log.Debug().
		Bool("converged", converged).
		Int("iterations", iterations).
		Msg("Risk parity solve finished")

	return &RiskParityResult{
		Weights:           clamped,
		RiskContributions: contribMap,
		Converged:         converged,
		Iterations:        iterations,
	}, nil
}

// riskContributions returns each asset's share of total portfolio variance:
// RC_i = w_i * (Sigma*w)_i / (w' * Sigma * w).
func riskContributions(cov *mat.SymDense, weights []float64) ([]float64, error) {
	n := len(weights)
	w := mat.NewVecDense(n, weights)
	var sigmaW mat.VecDense
	sigmaW.MulVec(cov, w)

	total := mat.Dot(w, &sigmaW)
	if total <= 0 || math.IsNaN(total) {
		return nil, fmt.Errorf("portfolio variance %.6g is not positive", total)
	}

	contribs := make([]float64, n)
	for i := range contribs {
		contribs[i] = weights[i] * sigmaW.AtVec(i) / total
	}
	return contribs, nil
}
