package simulation

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// optionDt is the fixed GBM step size in years.
const optionDt = 0.01

// OptionType selects the payoff side.
type OptionType string

const (
	OptionCall OptionType = "call"
	OptionPut  OptionType = "put"
)

// OptionRequest prices a European option on a single underlying by
// simulating geometric Brownian motion paths. Rates and volatility are
// annualized; Maturity is in years.
type OptionRequest struct {
	Type       OptionType
	Spot       float64
	Strike     float64
	RiskFree   float64
	Volatility float64
	Maturity   float64
	Trials     int
	Seed       uint64
	Workers    int
}

// OptionResult is the discounted Monte Carlo price with its standard error.
type OptionResult struct {
	ID       string
	Seed     uint64
	Trials   int
	Steps    int
	Price    float64
	StdError float64
}

// PriceOption simulates GBM paths in log space with drift (r - sigma^2/2)dt
// and diffusion sigma*sqrt(dt)*N(0,1), then discounts the mean payoff.
func (e *Engine) PriceOption(req OptionRequest) (*OptionResult, error) {
	if req.Type != OptionCall && req.Type != OptionPut {
		return nil, fmt.Errorf("unknown option type %q", req.Type)
	}
	if req.Spot <= 0 {
		return nil, fmt.Errorf("spot must be positive, got %v", req.Spot)
	}
	if req.Strike <= 0 {
		return nil, fmt.Errorf("strike must be positive, got %v", req.Strike)
	}
	if req.Volatility < 0 {
		return nil, fmt.Errorf("volatility must not be negative, got %v", req.Volatility)
	}
	if req.Maturity <= 0 {
		return nil, fmt.Errorf("maturity must be positive, got %v", req.Maturity)
	}

	trials := req.Trials
	if trials == 0 {
		trials = e.fallbackTrials()
	}
	if trials < 2 {
		return nil, fmt.Errorf("need at least 2 trials for a standard error, got %d", req.Trials)
	}

	workers := req.Workers
	if workers <= 0 {
		workers = e.fallbackWorkers()
	}
	if workers > trials {
		workers = trials
	}

	seed := req.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	steps := int(math.Round(req.Maturity / optionDt))
	if steps < 1 {
		steps = 1
	}

	e.log.Info().
		Str("type", string(req.Type)).
		Float64("spot", req.Spot).
		Float64("strike", req.Strike).
		Int("trials", trials).
		Int("steps", steps).
		Uint64("seed", seed).
		Msg("Starting option pricing simulation")
	start := time.Now()

	driftStep := (req.RiskFree - 0.5*req.Volatility*req.Volatility) * optionDt
	volStep := req.Volatility * math.Sqrt(optionDt)

	payoffs := make([]float64, trials)
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
		g.Go(func() error {
			for trial := lo; trial < hi; trial++ {
				normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(seed, uint64(trial))}
				logGrowth := 0.0
				for s := 0; s < steps; s++ {
					logGrowth += driftStep + volStep*normal.Rand()
				}
				terminal := req.Spot * math.Exp(logGrowth)
				if req.Type == OptionCall {
					payoffs[trial] = math.Max(terminal-req.Strike, 0)
				} else {
					payoffs[trial] = math.Max(req.Strike-terminal, 0)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	discount := math.Exp(-req.RiskFree * req.Maturity)
	result := &OptionResult{
		ID:       uuid.New().String(),
		Seed:     seed,
		Trials:   trials,
		Steps:    steps,
		Price:    discount * stat.Mean(payoffs, nil),
		StdError: discount * stat.StdDev(payoffs, nil) / math.Sqrt(float64(trials)),
	}

	e.log.Info().
		Str("id", result.ID).
		Float64("price", result.Price).
		Float64("std_error", result.StdError).
		Dur("elapsed", time.Since(start)).
		Msg("Option pricing completed")

	return result, nil
}
