package stattest

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// MannWhitneyU is the rank-based alternative to the t-test. Ties receive
// midranks, and the two-sided p-value comes from the tie-corrected normal
// approximation of U. Both samples must be non-empty.
func (a *Analyzer) MannWhitneyU(x, y []float64) (*TestResult, error) {
	if len(x) == 0 || len(y) == 0 {
		return nil, fmt.Errorf("%w: Mann-Whitney requires non-empty samples, got %d and %d",
			ErrInsufficientSample, len(x), len(y))
	}

	n1, n2 := float64(len(x)), float64(len(y))
	n := n1 + n2

	type obs struct {
		value float64
		first bool
	}
	combined := make([]obs, 0, len(x)+len(y))
	for _, v := range x {
		combined = append(combined, obs{value: v, first: true})
	}
	for _, v := range y {
		combined = append(combined, obs{value: v})
	}
	sort.Slice(combined, func(i, j int) bool { return combined[i].value < combined[j].value })

	// Midranks for tied runs, and the tie-correction term sum(t^3 - t).
	var rankSum1, tieTerm float64
	for i := 0; i < len(combined); {
		j := i
		for j < len(combined) && combined[j].value == combined[i].value {
			j++
		}
		run := float64(j - i)
		midrank := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			if combined[k].first {
				rankSum1 += midrank
			}
		}
		if run > 1 {
			tieTerm += run*run*run - run
		}
		i = j
	}

	u := rankSum1 - n1*(n1+1)/2
	meanU := n1 * n2 / 2
	varU := n1 * n2 / 12 * ((n + 1) - tieTerm/(n*(n-1)))

	result := &TestResult{
		Test:           "Mann-Whitney U",
		Statistic:      u,
		EffectSize:     2*u/(n1*n2) - 1,
		NullHypothesis: "the two samples come from the same distribution",
		AltHypothesis:  "one sample tends to larger values than the other",
	}

	// Every observation tied: the ranks carry no information.
	if varU <= 0 {
		result.PValue = 1
		return a.finish(result), nil
	}

	z := (u - meanU) / math.Sqrt(varU)
	normal := distuv.Normal{Mu: 0, Sigma: 1}
	result.PValue = 2 * normal.CDF(-math.Abs(z))
	return a.finish(result), nil
}
