package stattest

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// OneWayANOVA tests whether the means of two or more groups are equal. It
// needs at least two groups, no empty groups, and enough observations for a
// positive within-group degree of freedom.
func (a *Analyzer) OneWayANOVA(groups ...[]float64) (*TestResult, error) {
	if len(groups) < 2 {
		return nil, fmt.Errorf("%w: ANOVA requires at least 2 groups, got %d",
			ErrInsufficientSample, len(groups))
	}

	total := 0
	for i, group := range groups {
		if len(group) == 0 {
			return nil, fmt.Errorf("%w: ANOVA group %d is empty", ErrInsufficientSample, i)
		}
		total += len(group)
	}

	k := len(groups)
	dfBetween := float64(k - 1)
	dfWithin := float64(total - k)
	if dfWithin < 1 {
		return nil, fmt.Errorf("%w: ANOVA needs more observations than groups, got %d across %d groups",
			ErrInsufficientSample, total, k)
	}

	var grandSum float64
	means := make([]float64, k)
	for i, group := range groups {
		means[i] = stat.Mean(group, nil)
		grandSum += means[i] * float64(len(group))
	}
	grandMean := grandSum / float64(total)

	var ssBetween, ssWithin float64
	for i, group := range groups {
		d := means[i] - grandMean
		ssBetween += float64(len(group)) * d * d
		for _, v := range group {
			w := v - means[i]
			ssWithin += w * w
		}
	}

	msBetween := ssBetween / dfBetween
	msWithin := ssWithin / dfWithin

	result := &TestResult{
		Test:             "one-way ANOVA",
		DegreesOfFreedom: dfBetween,
		NullHypothesis:   "all group means are equal",
		AltHypothesis:    "at least one group mean differs",
	}
	if ssBetween+ssWithin > 0 {
		result.EffectSize = ssBetween / (ssBetween + ssWithin)
	}

	// No within-group spread: identical group means are a perfect null
	// fit, differing means are infinitely strong evidence against it.
	if msWithin == 0 {
		if msBetween == 0 {
			result.Statistic = 0
			result.PValue = 1
		} else {
			result.Statistic = math.Inf(1)
			result.PValue = 0
		}
		return a.finish(result), nil
	}

	f := msBetween / msWithin
	dist := distuv.F{D1: dfBetween, D2: dfWithin}
	result.Statistic = f
	result.PValue = 1 - dist.CDF(f)
	return a.finish(result), nil
}
