// Package simulation generates correlated portfolio return paths and prices
// options by Monte Carlo. Shocks are drawn through a Cholesky factor of the
// asset correlation matrix so the simulated co-movement matches the risk
// model, and every run is reproducible from its seed.
package simulation

import (
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/arithmax-research/quantcore/internal/config"
	"github.com/arithmax-research/quantcore/internal/modules/riskmodel"
	"github.com/arithmax-research/quantcore/pkg/formulas"
	"github.com/arithmax-research/quantcore/pkg/logger"
)

const (
	// DefaultTrials is the trial count used when the request leaves it zero.
	DefaultTrials = 10000
	// DefaultHorizonDays is the default simulation horizon in trading days.
	DefaultHorizonDays = 252
	// DefaultConfidence is the confidence level for VaR and CVaR.
	DefaultConfidence = 0.95
)

// percentileLevels are the terminal-value percentiles reported per run.
var percentileLevels = []int{5, 25, 50, 75, 95}

// Request describes one portfolio simulation. Zero values fall back to the
// engine's configured defaults, then to the package defaults; Seed zero
// draws a fresh seed which is reported back in the result for replay.
type Request struct {
	Weights     map[string]float64
	Trials      int
	HorizonDays int
	Confidence  float64
	Seed        uint64
	Workers     int
}

// Result aggregates a simulation run. Terminal values are multiples of
// initial wealth (1.0 means flat); VaR and CVaR are ensemble averages of the
// per-trial daily-return tail statistics, negative for losses.
type Result struct {
	ID             string
	Seed           uint64
	Trials         int
	HorizonDays    int
	TerminalMean   float64
	TerminalMedian float64
	TerminalStdDev float64
	VaR            float64
	CVaR           float64
	Percentiles    map[int]float64
}

// Engine runs Monte Carlo simulations against a risk model. It keeps no
// state between runs; every trial owns a PCG stream keyed by (seed, trial
// index), so the same seed gives identical results at any worker count.
type Engine struct {
	log zerolog.Logger

	defaultTrials     int
	defaultConfidence float64
	defaultWorkers    int
}

// NewEngine creates a simulation engine using the package defaults.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{
		log: logger.Component(log, "simulation"),
	}
}

// NewEngineFromConfig creates a simulation engine whose fallback trial
// count, confidence level, and worker count come from the configuration
// instead of the package defaults. Request fields still win when set.
func NewEngineFromConfig(cfg *config.Config, log zerolog.Logger) *Engine {
	e := NewEngine(log)
	e.defaultTrials = cfg.DefaultTrials
	e.defaultConfidence = cfg.DefaultConfidence
	e.defaultWorkers = cfg.SimWorkers
	return e
}

// SimulatePortfolio compounds correlated daily portfolio returns over the
// horizon for every trial and reports the terminal-value distribution with
// per-trial VaR/CVaR averages.
func (e *Engine) SimulatePortfolio(model *riskmodel.Model, req Request) (*Result, error) {
	trials, horizon, confidence, workers, seed, err := e.normalize(req)
	if err != nil {
		return nil, err
	}

	weights, err := alignWeights(model, req.Weights)
	if err != nil {
		return nil, err
	}

	factor, err := correlationFactor(model.Correlation)
	if err != nil {
		return nil, err
	}

	n := model.Universe.Len()
	drift := make([]float64, n)
	vol := make([]float64, n)
	for i := 0; i < n; i++ {
		drift[i] = model.AnnualReturns[i] / formulas.TradingDaysPerYear
		vol[i] = model.Volatilities[i] / math.Sqrt(formulas.TradingDaysPerYear)
	}

	e.log.Info().
		Int("trials", trials).
		Int("horizon_days", horizon).
		Int("assets", n).
		Uint64("seed", seed).
		Msg("Starting portfolio simulation")
	start := time.Now()

	finals := make([]float64, trials)
	trialVaR := make([]float64, trials)
	trialCVaR := make([]float64, trials)

	chunk := (trials + workers - 1) / workers
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > trials {
			hi = trials
		}
		if lo >= hi {
			continue
		}
		wk := newPathWorker(factor, weights, drift, vol, seed)
		g.Go(func() error {
			for trial := lo; trial < hi; trial++ {
				finals[trial], trialVaR[trial], trialCVaR[trial] = wk.runTrial(trial, horizon, confidence)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sorted := make([]float64, trials)
	copy(sorted, finals)
	sort.Float64s(sorted)

	percentiles := make(map[int]float64, len(percentileLevels))
	for _, p := range percentileLevels {
		percentiles[p] = stat.Quantile(float64(p)/100, stat.Empirical, sorted, nil)
	}

	result := &Result{
		ID:             uuid.New().String(),
		Seed:           seed,
		Trials:         trials,
		HorizonDays:    horizon,
		TerminalMean:   stat.Mean(finals, nil),
		TerminalMedian: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		TerminalStdDev: stat.StdDev(finals, nil),
		VaR:            stat.Mean(trialVaR, nil),
		CVaR:           stat.Mean(trialCVaR, nil),
		Percentiles:    percentiles,
	}

	e.log.Info().
		Str("id", result.ID).
		Float64("terminal_mean", result.TerminalMean).
		Float64("var", result.VaR).
		Float64("cvar", result.CVaR).
		Dur("elapsed", time.Since(start)).
		Msg("Portfolio simulation completed")

	return result, nil
}

func (e *Engine) normalize(req Request) (trials, horizon int, confidence float64, workers int, seed uint64, err error) {
	trials = req.Trials
	if trials == 0 {
		trials = e.fallbackTrials()
	}
	if trials < 0 {
		return 0, 0, 0, 0, 0, fmt.Errorf("trials must be positive, got %d", req.Trials)
	}

	horizon = req.HorizonDays
	if horizon == 0 {
		horizon = DefaultHorizonDays
	}
	if horizon < 0 {
		return 0, 0, 0, 0, 0, fmt.Errorf("horizon must be positive, got %d", req.HorizonDays)
	}

	confidence = req.Confidence
	if confidence == 0 {
		confidence = e.fallbackConfidence()
	}
	if confidence <= 0 || confidence >= 1 {
		return 0, 0, 0, 0, 0, fmt.Errorf("confidence must lie in (0, 1), got %v", req.Confidence)
	}

	workers = req.Workers
	if workers <= 0 {
		workers = e.fallbackWorkers()
	}
	if workers > trials {
		workers = trials
	}

	seed = req.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return trials, horizon, confidence, workers, seed, nil
}

func (e *Engine) fallbackTrials() int {
	if e.defaultTrials > 0 {
		return e.defaultTrials
	}
	return DefaultTrials
}

func (e *Engine) fallbackConfidence() float64 {
	if e.defaultConfidence > 0 {
		return e.defaultConfidence
	}
	return DefaultConfidence
}

func (e *Engine) fallbackWorkers() int {
	if e.defaultWorkers > 0 {
		return e.defaultWorkers
	}
	return runtime.NumCPU()
}

// alignWeights maps the weight vector onto universe order. Symbols absent
// from the map hold weight zero; symbols outside the universe are an error.
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

// correlationFactor returns the lower Cholesky factor L of the correlation
// matrix, so L z has the model's correlation structure for iid z ~ N(0,1).
func correlationFactor(correlation *mat.SymDense) (*mat.TriDense, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(correlation); !ok {
		return nil, fmt.Errorf("correlation matrix is not positive definite")
	}
	factor := new(mat.TriDense)
	chol.LTo(factor)
	return factor, nil
}

// pathWorker holds scratch buffers so trials can run in parallel without
// sharing mutable state. Draws come from a fresh PCG stream per trial,
// keyed by the trial index, which makes the worker decomposition invisible
// in the output.
type pathWorker struct {
	factor  *mat.TriDense
	weights []float64
	drift   []float64
	vol     []float64
	seed    uint64

	z       *mat.VecDense
	shocks  *mat.VecDense
	returns []float64
}

func newPathWorker(factor *mat.TriDense, weights, drift, vol []float64, seed uint64) *pathWorker {
	n := len(weights)
	return &pathWorker{
		factor:  factor,
		weights: weights,
		drift:   drift,
		vol:     vol,
		seed:    seed,
		z:       mat.NewVecDense(n, nil),
		shocks:  mat.NewVecDense(n, nil),
	}
}

// runTrial compounds one portfolio path and returns its terminal value with
// the trial's VaR/CVaR over the realized daily returns.
func (wk *pathWorker) runTrial(trial, horizon int, confidence float64) (final, valueAtRisk, shortfall float64) {
	if cap(wk.returns) < horizon {
		wk.returns = make([]float64, horizon)
	}
	wk.returns = wk.returns[:horizon]

	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(wk.seed, uint64(trial))}
	n := len(wk.weights)
	value := 1.0
	for t := 0; t < horizon; t++ {
		for i := 0; i < n; i++ {
			wk.z.SetVec(i, normal.Rand())
		}
		wk.shocks.MulVec(wk.factor, wk.z)

		r := 0.0
		for i := 0; i < n; i++ {
			r += wk.weights[i] * (wk.drift[i] + wk.vol[i]*wk.shocks.AtVec(i))
		}
		wk.returns[t] = r
		value *= 1 + r
	}

	return value, formulas.CalculateVaR(wk.returns, confidence), formulas.CalculateCVaR(wk.returns, confidence)
}
