package riskmodel

import (
	"fmt"
	"math"
	"time"
)

// PricePoint is a single observation in a price series.
type PricePoint struct {
	Time  time.Time
	Price float64
}

// Series is one asset's ordered price history, oldest first.
type Series struct {
	Symbol string
	Points []PricePoint
}

// AlignSeries converts raw per-asset price histories into aligned price
// slices. Series of different lengths are truncated to the shortest one,
// keeping the most recent observations, so all assets cover the same tail
// window. Empty series are rejected.
func AlignSeries(series []Series) ([]string, map[string][]float64, error) {
	if len(series) == 0 {
		return nil, nil, fmt.Errorf("no price series provided")
	}

	minLen := -1
	for _, s := range series {
		if len(s.Points) == 0 {
			return nil, nil, fmt.Errorf("empty price series for %s", s.Symbol)
		}
		if minLen < 0 || len(s.Points) < minLen {
			minLen = len(s.Points)
		}
	}

	symbols := make([]string, 0, len(series))
	prices := make(map[string][]float64, len(series))
	for _, s := range series {
		symbols = append(symbols, s.Symbol)
		tail := s.Points[len(s.Points)-minLen:]
		out := make([]float64, minLen)
		for i, p := range tail {
			out[i] = p.Price
		}
		prices[s.Symbol] = out
	}

	return symbols, prices, nil
}

// repairMissing fills gaps in a price series using forward-fill, then
// back-fill for leading gaps. NaN and non-positive prices both mark a
// missing observation. The count of points that stayed unfilled (no valid
// price anywhere in the series) is returned alongside.
func repairMissing(prices []float64) ([]float64, int) {
	filled := make([]float64, len(prices))
	copy(filled, prices)

	// First pass: forward-fill (use previous valid value)
	var lastValid float64
	hasLastValid := false
	for i := 0; i < len(filled); i++ {
		if missingPoint(filled[i]) {
			if hasLastValid {
				filled[i] = lastValid
			}
		} else {
			lastValid = filled[i]
			hasLastValid = true
		}
	}

	// Second pass: back-fill (for leading gaps)
	var nextValid float64
	hasNextValid := false
	unfilled := 0
	for i := len(filled) - 1; i >= 0; i-- {
		if missingPoint(filled[i]) {
			if hasNextValid {
				filled[i] = nextValid
			} else {
				unfilled++
			}
		} else {
			nextValid = filled[i]
			hasNextValid = true
		}
	}

	return filled, unfilled
}

// missingPoint treats NaN and non-positive prices as gaps to repair.
func missingPoint(price float64) bool {
	return math.IsNaN(price) || price <= 0
}
