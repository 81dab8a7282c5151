package stattest

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Power computes the probability that a two-sided two-sample t-test detects
// a standardized effect of the given size with sampleSize observations per
// group, using the normal approximation
//
//	power = Phi(d*sqrt(n/2) - z) + Phi(-d*sqrt(n/2) - z)
//
// where z is the upper alpha/2 normal quantile. A zero effect recovers the
// significance level itself.
func (a *Analyzer) Power(effectSize float64, sampleSize int, alpha float64) (float64, error) {
	if sampleSize < 1 {
		return 0, fmt.Errorf("%w: power analysis requires a positive sample size, got %d",
			ErrInsufficientSample, sampleSize)
	}
	if alpha <= 0 || alpha >= 1 {
		return 0, fmt.Errorf("alpha must be in (0, 1), got %f", alpha)
	}

	normal := distuv.Normal{Mu: 0, Sigma: 1}
	z := normal.Quantile(1 - alpha/2)
	shift := effectSize * math.Sqrt(float64(sampleSize)/2)

	power := normal.CDF(shift-z) + normal.CDF(-shift-z)
	return clamp01(power), nil
}

// SampleSizeForPower searches for the smallest per-group sample size whose
// power reaches the target for the given standardized effect. It fails when
// the effect is zero, since no sample size can then beat the false-positive
// rate.
func (a *Analyzer) SampleSizeForPower(effectSize, targetPower, alpha float64) (int, error) {
	if effectSize == 0 {
		return 0, fmt.Errorf("cannot reach power %f with a zero effect size", targetPower)
	}
	if targetPower <= 0 || targetPower >= 1 {
		return 0, fmt.Errorf("target power must be in (0, 1), got %f", targetPower)
	}

	const maxSampleSize = 1 << 20
	for n := 2; n <= maxSampleSize; n *= 2 {
		power, err := a.Power(effectSize, n, alpha)
		if err != nil {
			return 0, err
		}
		if power < targetPower {
			continue
		}
		// Binary search the first sufficient size in (n/2, n].
		lo, hi := n/2+1, n
		for lo < hi {
			mid := (lo + hi) / 2
			p, err := a.Power(effectSize, mid, alpha)
			if err != nil {
				return 0, err
			}
			if p >= targetPower {
				hi = mid
			} else {
				lo = mid + 1
			}
		}
		return lo, nil
	}
	return 0, fmt.Errorf("no sample size up to %d reaches power %f for effect %f",
		maxSampleSize, targetPower, effectSize)
}
