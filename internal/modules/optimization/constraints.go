package optimization

import (
	"errors"
	"fmt"
	"math"
)

// ErrInfeasibleConstraints reports bounds that cannot reach a fully invested
// portfolio after exclusions.
var ErrInfeasibleConstraints = errors.New("infeasible constraints")

// Constraints carries per-symbol weight bounds and an exclusion set. Symbols
// without an entry default to the [0, 1] bound; a zero Constraints value
// constrains nothing. Excluded symbols are pinned to weight 0 regardless of
// any bound entry.
type Constraints struct {
	MinWeights map[string]float64
	MaxWeights map[string]float64
	Excluded   map[string]bool
}

// Bound returns the [min, max] weight bound for a symbol.
func (c Constraints) Bound(symbol string) (float64, float64) {
	if c.Excluded[symbol] {
		return 0, 0
	}
	lo, hi := 0.0, 1.0
	if v, ok := c.MinWeights[symbol]; ok {
		lo = v
	}
	if v, ok := c.MaxWeights[symbol]; ok {
		hi = v
	}
	return lo, hi
}

// Validate checks the constraint set against a symbol list: every bound must
// satisfy 0 <= min <= max <= 1, excluded symbols must not demand a positive
// minimum, and the bounds of the non-excluded symbols must admit a weight
// vector summing to 1.
func (c Constraints) Validate(symbols []string) error {
	if len(symbols) == 0 {
		return fmt.Errorf("no symbols to constrain")
	}

	sumMin := 0.0
	sumMax := 0.0
	for _, symbol := range symbols {
		if c.Excluded[symbol] {
			if min, ok := c.MinWeights[symbol]; ok && min > 0 {
				return fmt.Errorf("%w: %s is excluded but requires minimum weight %.4f", ErrInfeasibleConstraints, symbol, min)
			}
			continue
		}
		lo, hi := c.Bound(symbol)
		if lo < 0 || hi > 1 {
			return fmt.Errorf("%w: bounds [%.4f, %.4f] for %s fall outside [0, 1]", ErrInfeasibleConstraints, lo, hi, symbol)
		}
		if lo > hi {
			return fmt.Errorf("%w: minimum %.4f exceeds maximum %.4f for %s", ErrInfeasibleConstraints, lo, hi, symbol)
		}
		sumMin += lo
		sumMax += hi
	}

	if sumMin > 1+1e-9 {
		return fmt.Errorf("%w: minimum weights sum to %.4f", ErrInfeasibleConstraints, sumMin)
	}
	if sumMax < 1-1e-9 {
		return fmt.Errorf("%w: maximum weights sum to %.4f", ErrInfeasibleConstraints, sumMax)
	}
	return nil
}

// Apply projects a weight vector onto the constraint set: excluded symbols
// drop to zero, every weight is clamped into its bound, and the slack left
// by clamping is redistributed across symbols with remaining capacity so the
// result sums to 1 without pushing any weight back out of bounds. Symbols
// absent from weights start at zero.
func (c Constraints) Apply(symbols []string, weights map[string]float64) (map[string]float64, error) {
	if err := c.Validate(symbols); err != nil {
		return nil, err
	}

	out := make(map[string]float64, len(symbols))
	for _, symbol := range symbols {
		lo, hi := c.Bound(symbol)
		out[symbol] = math.Max(lo, math.Min(hi, weights[symbol]))
	}

	// A single redistribution pass lands exactly on sum 1 when the bounds
	// are feasible; the loop only mops up floating-point drift.
	for iter := 0; iter < len(symbols)+2; iter++ {
		sum := 0.0
		for _, symbol := range symbols {
			sum += out[symbol]
		}
		diff := 1.0 - sum
		if math.Abs(diff) < 1e-12 {
			break
		}

		room := 0.0
		for _, symbol := range symbols {
			lo, hi := c.Bound(symbol)
			if diff > 0 {
				room += hi - out[symbol]
			} else {
				room += out[symbol] - lo
			}
		}
		if room <= 0 {
			return nil, fmt.Errorf("%w: no capacity left to reach a fully invested portfolio", ErrInfeasibleConstraints)
		}

		for _, symbol := range symbols {
			lo, hi := c.Bound(symbol)
			if diff > 0 {
				out[symbol] += diff * (hi - out[symbol]) / room
			} else {
				out[symbol] += diff * (out[symbol] - lo) / room
			}
		}
	}

	return out, nil
}

// boundsFor expands the constraint set into parallel lower and upper bound
// slices in symbol order.
func (c Constraints) boundsFor(symbols []string) (lo, hi []float64) {
	lo = make([]float64, len(symbols))
	hi = make([]float64, len(symbols))
	for i, symbol := range symbols {
		lo[i], hi[i] = c.Bound(symbol)
	}
	return lo, hi
}
