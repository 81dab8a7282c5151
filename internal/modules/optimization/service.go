package optimization

import (
	"fmt"
	"math"
	"time"

	"github.com/arithmax-research/quantcore/internal/modules/riskmodel"
	"github.com/arithmax-research/quantcore/pkg/formulas"
	"github.com/arithmax-research/quantcore/pkg/logger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Method selects the allocation philosophy for a request.
type Method string

const (
	MethodBlackLitterman Method = "blacklitterman"
	MethodRiskParity     Method = "riskparity"
	MethodHRP            Method = "hrp"
	MethodMeanVariance   Method = "meanvariance"
	MethodMinVariance    Method = "minvariance"
)

// Request is one optimization invocation: the universe with its price
// history, the method to run, and the method's inputs. Views and BlendMode
// apply to Black-Litterman only; Shrinkage is forwarded to the risk model
// build.
type Request struct {
	Symbols       []string
	Prices        map[string][]float64
	Method        Method
	Constraints   Constraints
	Views         []View
	MarketWeights map[string]float64
	BlendMode     BlendMode
	Shrinkage     bool
}

// Result is the structured outcome handed back to the caller. Converged and
// Iterations are meaningful for risk parity; Clusters for HRP;
// RiskContributions are filled for every method.
type Result struct {
	ID                string
	Timestamp         time.Time
	Method            Method
	Symbols           []string
	Weights           map[string]float64
	ExpectedReturn    float64
	Volatility        float64
	SharpeRatio       float64
	Converged         bool
	Iterations        int
	RiskContributions map[string]float64
	Clusters          [][]string
	HighCorrelations  []riskmodel.CorrelationPair
}

// Service wires the risk model builder and the optimizers behind a single
// entry point. It keeps no state between calls.
type Service struct {
	builder        *riskmodel.Builder
	blackLitterman *BlackLitterman
	riskParity     *RiskParity
	hrp            *HRP
	meanVariance   *MeanVariance
	log            zerolog.Logger
}

// NewService creates an optimization service.
func NewService(log zerolog.Logger) *Service {
	return &Service{
		builder:        riskmodel.NewBuilder(log),
		blackLitterman: NewBlackLitterman(log),
		riskParity:     NewRiskParity(log),
		hrp:            NewHRP(log),
		meanVariance:   NewMeanVariance(log),
		log:            logger.Component(log, "optimizer_service"),
	}
}

// Optimize builds the risk model from raw prices and runs the requested
// method.
func (s *Service) Optimize(req Request) (*Result, error) {
	model, err := s.builder.Build(req.Symbols, req.Prices, riskmodel.Options{Shrinkage: req.Shrinkage})
	if err != nil {
		return nil, fmt.Errorf("failed to build risk model: %w", err)
	}
	return s.OptimizeWithModel(model, req)
}

// OptimizeWithModel runs the requested method against a pre-built risk
// model.
func (s *Service) OptimizeWithModel(model *riskmodel.Model, req Request) (*Result, error) {
	start := time.Now()
	symbols := model.Universe.Symbols()

	s.log.Info().
		Str("method", string(req.Method)).
		Int("symbols", len(symbols)).
		Msg("Starting portfolio optimization")

	result := &Result{
		ID:        uuid.New().String(),
		Timestamp: start.UTC(),
		Method:    req.Method,
		Symbols:   symbols,
		Converged: true,
	}

	switch req.Method {
	case MethodBlackLitterman:
		posterior, err := s.blackLitterman.PosteriorReturns(model, req.Views, req.MarketWeights, req.BlendMode)
		if err != nil {
			return nil, fmt.Errorf("black-litterman posterior failed: %w", err)
		}
		weights, err := s.meanVariance.Optimize(model, posterior, req.Constraints)
		if err != nil {
			return nil, err
		}
		result.Weights = weights

	case MethodRiskParity:
		solved, err := s.riskParity.Optimize(model, req.Constraints)
		if err != nil {
			return nil, err
		}
		result.Weights = solved.Weights
		result.RiskContributions = solved.RiskContributions
		result.Converged = solved.Converged
		result.Iterations = solved.Iterations

	case MethodHRP:
		solved, err := s.hrp.Optimize(model, req.Constraints)
		if err != nil {
			return nil, err
		}
		result.Weights = solved.Weights
		result.Clusters = solved.Clusters

	case MethodMeanVariance:
		expected := make(map[string]float64, len(symbols))
		for i, symbol := range symbols {
			expected[symbol] = model.AnnualReturns[i]
		}
		weights, err := s.meanVariance.Optimize(model, expected, req.Constraints)
		if err != nil {
			return nil, err
		}
		result.Weights = weights

	case MethodMinVariance:
		weights, err := s.meanVariance.OptimizeMinVariance(model, req.Constraints)
		if err != nil {
			return nil, err
		}
		result.Weights = weights

	default:
		return nil, fmt.Errorf("unknown optimization method %q", req.Method)
	}

	s.summarize(model, result)
	result.HighCorrelations = model.HighCorrelations(riskmodel.HighCorrelationThreshold)

	s.log.Info().
		Str("id", result.ID).
		Str("method", string(req.Method)).
		Float64("expected_return", result.ExpectedReturn).
		Float64("volatility", result.Volatility).
		Dur("elapsed", time.Since(start)).
		Msg("Optimization completed")

	return result, nil
}

// summarize fills the portfolio-level scalars: annualized expected return,
// annualized volatility, and their ratio. Zero volatility yields a Sharpe of
// zero rather than a division error.
func (s *Service) summarize(model *riskmodel.Model, result *Result) {
	symbols := model.Universe.Symbols()
	weights := make([]float64, len(symbols))
	for i, symbol := range symbols {
		weights[i] = result.Weights[symbol]
	}

	expected := 0.0
	for i := range symbols {
		expected += weights[i] * model.AnnualReturns[i]
	}

	variance := model.PortfolioVariance(weights)
	volatility := 0.0
	if variance > 0 {
		volatility = math.Sqrt(variance) * math.Sqrt(formulas.TradingDaysPerYear)
	}

	result.ExpectedReturn = expected
	result.Volatility = volatility
	if volatility > 0 {
		result.SharpeRatio = expected / volatility
	}

	if result.RiskContributions == nil {
		if contribs, err := riskContributions(model.Covariance, weights); err == nil {
			rc := make(map[string]float64, len(symbols))
			for i, symbol := range symbols {
				rc[symbol] = contribs[i]
			}
			result.RiskContributions = rc
		}
	}
}
