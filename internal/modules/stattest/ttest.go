package stattest

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// TTestVariant selects how the two-sample t-test estimates the standard
// error of the mean difference.
type TTestVariant string

const (
	// TTestPooled assumes equal variances and pools them.
	TTestPooled TTestVariant = "pooled"
	// TTestWelch uses separate variances with Welch-Satterthwaite degrees
	// of freedom. This is the default.
	TTestWelch TTestVariant = "welch"
)

// TwoSampleTTest compares the means of two independent samples and returns
// the two-sided result. Each sample needs at least two observations. An
// empty variant defaults to Welch.
func (a *Analyzer) TwoSampleTTest(x, y []float64, variant TTestVariant) (*TestResult, error) {
	if len(x) < 2 || len(y) < 2 {
		return nil, fmt.Errorf("%w: t-test requires at least 2 observations per sample, got %d and %d",
			ErrInsufficientSample, len(x), len(y))
	}
	if variant == "" {
		variant = TTestWelch
	}

	n1, n2 := float64(len(x)), float64(len(y))
	mean1, mean2 := stat.Mean(x, nil), stat.Mean(y, nil)
	var1, var2 := stat.Variance(x, nil), stat.Variance(y, nil)
	diff := mean1 - mean2

	var se, df, pooledSD float64
	switch variant {
	case TTestPooled:
		pooled := ((n1-1)*var1 + (n2-1)*var2) / (n1 + n2 - 2)
		pooledSD = math.Sqrt(pooled)
		se = pooledSD * math.Sqrt(1/n1+1/n2)
		df = n1 + n2 - 2
	case TTestWelch:
		se = math.Sqrt(var1/n1 + var2/n2)
		df = welchSatterthwaite(var1, var2, n1, n2)
		pooledSD = math.Sqrt((var1 + var2) / 2)
	default:
		return nil, fmt.Errorf("unknown t-test variant %q", variant)
	}

	result := &TestResult{
		Test:             fmt.Sprintf("two-sample t-test (%s)", variant),
		DegreesOfFreedom: df,
		NullHypothesis:   "the two samples have equal means",
		AltHypothesis:    "the two samples have different means",
	}

	// Zero spread in both samples: a zero mean difference is perfect
	// agreement, a nonzero one is unambiguous separation.
	if se == 0 {
		if diff == 0 {
			result.Statistic = 0
			result.PValue = 1
		} else {
			result.Statistic = math.Inf(sign(diff))
			result.PValue = 0
		}
		return a.finish(result), nil
	}

	t := diff / se
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	result.Statistic = t
	result.PValue = 2 * dist.CDF(-math.Abs(t))
	if pooledSD > 0 {
		result.EffectSize = diff / pooledSD
	}
	return a.finish(result), nil
}

// welchSatterthwaite approximates the degrees of freedom for unequal
// variances.
func welchSatterthwaite(var1, var2, n1, n2 float64) float64 {
	a, b := var1/n1, var2/n2
	numerator := (a + b) * (a + b)
	denominator := a*a/(n1-1) + b*b/(n2-1)
	if denominator == 0 {
		return n1 + n2 - 2
	}
	return numerator / denominator
}

func sign(v float64) int {
	if v < 0 {
		return -1
	}
	return 1
}
