package formulas

import (
	"math"
	"sort"
)

// tailCount returns the number of observations in the loss tail for the
// given confidence level: ceil(n * (1 - confidence)), at least 1, at most n.
func tailCount(n int, confidence float64) int {
	count := int(math.Ceil(float64(n) * (1.0 - confidence)))
	if count < 1 {
		count = 1
	}
	if count > n {
		count = n
	}
	return count
}

// CalculateVaR calculates historical Value at Risk at the specified
// confidence level: the boundary return of the worst (1-confidence) tail.
//
// Args:
//   - returns: Historical returns (negative for losses)
//   - confidence: Confidence level (e.g., 0.95 for 95%)
//
// Returns:
//   - VaR as a return value (negative for losses)
func CalculateVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0.0
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	return sorted[tailCount(len(sorted), confidence)-1]
}

// CalculateCVaR calculates Conditional Value at Risk (expected shortfall) at
// the specified confidence level: the average return in the worst
// (1-confidence) tail. Since the tail average can only be at or below the
// tail boundary, |CVaR| >= |VaR| for loss tails.
//
// Args:
//   - returns: Historical returns (negative for losses)
//   - confidence: Confidence level (e.g., 0.95 for 95%)
//
// Returns:
//   - CVaR as a return value (negative for losses)
func CalculateCVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0.0
	}
	if len(returns) == 1 {
		return returns[0]
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	count := tailCount(len(sorted), confidence)
	sum := 0.0
	for _, r := range sorted[:count] {
		sum += r
	}

	return sum / float64(count)
}

// CalculatePortfolioCVaR aggregates per-symbol CVaRs into a weighted
// portfolio CVaR. This ignores diversification across symbols; simulation
// gives a tighter estimate when the correlation structure matters.
func CalculatePortfolioCVaR(weights map[string]float64, returns map[string][]float64, confidence float64) float64 {
	if len(weights) == 0 {
		return 0.0
	}

	portfolioCVaR := 0.0
	for symbol, weight := range weights {
		rets, ok := returns[symbol]
		if !ok {
			continue
		}
		portfolioCVaR += weight * CalculateCVaR(rets, confidence)
	}

	return portfolioCVaR
}
