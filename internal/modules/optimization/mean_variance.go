package optimization

import (
	"fmt"
	"math"

	"github.com/arithmax-research/quantcore/internal/modules/riskmodel"
	"github.com/arithmax-research/quantcore/pkg/logger"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// Strategy selects the objective of the numerical mean-variance path.
type Strategy string

const (
	StrategyMinVolatility   Strategy = "min_volatility"
	StrategyMaxSharpe       Strategy = "max_sharpe"
	StrategyEfficientReturn Strategy = "efficient_return"
)

const (
	// mvPenaltyWeight scales the quadratic penalties that enforce the
	// fully-invested and target-return equality constraints.
	mvPenaltyWeight = 1000.0
	// mvRiskAversion trades return against variance in the
	// efficient-return objective.
	mvRiskAversion = 1.0
)

// MeanVariance holds the heuristic allocator and its numerical refinements.
// The default Optimize path is a diagonal risk-adjusted-return heuristic,
// deliberately not a full quadratic program; OptimizeNumerical solves the
// textbook objectives with a penalty method.
type MeanVariance struct {
	log zerolog.Logger
}

// NewMeanVariance creates a mean-variance optimizer.
func NewMeanVariance(log zerolog.Logger) *MeanVariance {
	return &MeanVariance{
		log: logger.Component(log, "mean_variance"),
	}
}

// Optimize weights each asset by max(0, expectedReturn/variance) using only
// the covariance diagonal, normalizes, and projects onto the constraints.
// When no asset has a positive risk-adjusted return the allocation falls
// back to equal weights over the non-excluded assets.
func (mv *MeanVariance) Optimize(model *riskmodel.Model, expectedReturns map[string]float64, constraints Constraints) (map[string]float64, error) {
	symbols := model.Universe.Symbols()
	if err := constraints.Validate(symbols); err != nil {
		return nil, err
	}

	raw := make(map[string]float64, len(symbols))
	positive := 0
	for i, symbol := range symbols {
		if constraints.Excluded[symbol] {
			continue
		}
		ret, ok := expectedReturns[symbol]
		if !ok {
			return nil, fmt.Errorf("missing expected return for symbol %s", symbol)
		}
		variance := model.Covariance.At(i, i)
		if variance <= 0 {
			continue
		}
		score := math.Max(0, ret/variance)
		raw[symbol] = score
		if score > 0 {
			positive++
		}
	}

	if positive == 0 {
		mv.log.Debug().Msg("No positive risk-adjusted returns, falling back to equal weights")
		for _, symbol := range symbols {
			if !constraints.Excluded[symbol] {
				raw[symbol] = 1
			}
		}
	}

	return constraints.Apply(symbols, normalizeWeights(raw))
}

// OptimizeMinVariance starts from equal weights over the non-excluded assets
// and relies on constraint clamping alone.
func (mv *MeanVariance) OptimizeMinVariance(model *riskmodel.Model, constraints Constraints) (map[string]float64, error) {
	symbols := model.Universe.Symbols()
	if err := constraints.Validate(symbols); err != nil {
		return nil, err
	}

	raw := make(map[string]float64, len(symbols))
	for _, symbol := range symbols {
		if !constraints.Excluded[symbol] {
			raw[symbol] = 1
		}
	}
	return constraints.Apply(symbols, normalizeWeights(raw))
}

// OptimizeNumerical minimizes a penalty-method objective for the chosen
// strategy: Nelder-Mead first, BFGS as fallback. expectedReturns may be nil
// for StrategyMinVolatility; targetReturn is only read by
// StrategyEfficientReturn.
func (mv *MeanVariance) OptimizeNumerical(model *riskmodel.Model, expectedReturns map[string]float64, constraints Constraints, strategy Strategy, targetReturn float64) (map[string]float64, error) {
	symbols := model.Universe.Symbols()
	if err := constraints.Validate(symbols); err != nil {
		return nil, err
	}
	n := len(symbols)

	mu := make([]float64, n)
	if strategy != StrategyMinVolatility {
		for i, symbol := range symbols {
			ret, ok := expectedReturns[symbol]
			if !ok {
				return nil, fmt.Errorf("missing expected return for symbol %s", symbol)
			}
			mu[i] = ret
		}
	}

	lo, hi := constraints.boundsFor(symbols)
	problem, err := mv.newProblem(model, mu, lo, hi, strategy, targetReturn)
	if err != nil {
		return nil, err
	}

	initial := make([]float64, n)
	for i := range initial {
		initial[i] = 1.0 / float64(n)
	}

	result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.NelderMead{})
	if err != nil || !numericalSuccess(result.Status) {
		result, err = optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.BFGS{})
		if err != nil {
			return nil, fmt.Errorf("optimization failed: %w", err)
		}
		if !numericalSuccess(result.Status) {
			return nil, fmt.Errorf("optimization did not converge: status=%v", result.Status)
		}
	}

	mv.log.Debug().
		Str("strategy", string(strategy)).
		Int("evaluations", result.Stats.FuncEvaluations).
		Msg("Numerical optimization finished")

	raw := make(map[string]float64, n)
	for i, symbol := range symbols {
		raw[symbol] = math.Max(0, math.Max(lo[i], math.Min(hi[i], result.X[i])))
	}
	return constraints.Apply(symbols, normalizeWeights(raw))
}

// newProblem builds the objective and its gradient for a strategy. The
// gradient treats the bound projection as the identity, which is the usual
// penalty-method shortcut.
func (mv *MeanVariance) newProblem(model *riskmodel.Model, mu, lo, hi []float64, strategy Strategy, targetReturn float64) (optimize.Problem, error) {
	cov := model.Covariance

	switch strategy {
	case StrategyMinVolatility:
		return optimize.Problem{
			Func: func(x []float64) float64 {
				xp := projectToBounds(x, lo, hi)
				_, variance, sum, _ := portfolioTerms(cov, mu, xp)
				return variance + mvPenaltyWeight*(sum-1)*(sum-1)
			},
			Grad: func(grad, x []float64) {
				xp := projectToBounds(x, lo, hi)
				_, _, sum, sigmaW := portfolioTerms(cov, mu, xp)
				for i := range grad {
					grad[i] = 2*sigmaW[i] + 2*mvPenaltyWeight*(sum-1)
				}
			},
		}, nil

	case StrategyMaxSharpe:
		return optimize.Problem{
			Func: func(x []float64) float64 {
				xp := projectToBounds(x, lo, hi)
				ret, variance, sum, _ := portfolioTerms(cov, mu, xp)
				sd := math.Sqrt(math.Max(variance, 1e-10))
				return -ret/sd + mvPenaltyWeight*(sum-1)*(sum-1)
			},
			Grad: func(grad, x []float64) {
				xp := projectToBounds(x, lo, hi)
				ret, variance, sum, sigmaW := portfolioTerms(cov, mu, xp)
				sd := math.Sqrt(math.Max(variance, 1e-10))
				for i := range grad {
					grad[i] = -mu[i]/sd + ret*sigmaW[i]/(sd*sd*sd) + 2*mvPenaltyWeight*(sum-1)
				}
			},
		}, nil

	case StrategyEfficientReturn:
		return optimize.Problem{
			Func: func(x []float64) float64 {
				xp := projectToBounds(x, lo, hi)
				ret, variance, sum, _ := portfolioTerms(cov, mu, xp)
				obj := -(ret - mvRiskAversion*variance)
				obj += mvPenaltyWeight * (sum - 1) * (sum - 1)
				obj += mvPenaltyWeight * (ret - targetReturn) * (ret - targetReturn)
				return obj
			},
			Grad: func(grad, x []float64) {
				xp := projectToBounds(x, lo, hi)
				ret, _, sum, sigmaW := portfolioTerms(cov, mu, xp)
				for i := range grad {
					grad[i] = -mu[i] + 2*mvRiskAversion*sigmaW[i]
					grad[i] += 2 * mvPenaltyWeight * (sum - 1)
					grad[i] += 2 * mvPenaltyWeight * (ret - targetReturn) * mu[i]
				}
			},
		}, nil

	default:
		return optimize.Problem{}, fmt.Errorf("unknown strategy %q", strategy)
	}
}

func numericalSuccess(status optimize.Status) bool {
	switch status {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence:
		return true
	default:
		return false
	}
}

// portfolioTerms evaluates the return, variance, weight sum and Sigma*w
// products shared by every numerical objective.
func portfolioTerms(cov mat.Symmetric, mu, x []float64) (ret, variance, sum float64, sigmaW []float64) {
	n := len(x)
	sigmaW = make([]float64, n)
	for i := 0; i < n; i++ {
		sum += x[i]
		ret += mu[i] * x[i]
		s := 0.0
		for j := 0; j < n; j++ {
			s += cov.At(i, j) * x[j]
		}
		sigmaW[i] = s
		variance += x[i] * s
	}
	return ret, variance, sum, sigmaW
}

func projectToBounds(x, lo, hi []float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = math.Max(lo[i], math.Min(hi[i], x[i]))
	}
	return out
}

// normalizeWeights scales a weight map to sum to 1, leaving an all-zero map
// untouched.
func normalizeWeights(weights map[string]float64) map[string]float64 {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		return weights
	}

	normalized := make(map[string]float64, len(weights))
	for symbol, w := range weights {
		normalized[symbol] = w / total
	}
	return normalized
}
