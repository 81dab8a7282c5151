package formulas

import (
	"math"
	"testing"
)

func TestCalculateVaR(t *testing.T) {
	returns := []float64{-0.10, -0.05, -0.02, 0.0, 0.01, 0.02, 0.03, 0.04, 0.05, 0.06}

	tests := []struct {
		name       string
		returns    []float64
		confidence float64
		want       float64
		tolerance  float64
	}{
		{
			name:       "empty returns",
			returns:    []float64{},
			confidence: 0.95,
			want:       0.0,
			tolerance:  0.0,
		},
		{
			name:       "95 percent takes worst single point",
			returns:    returns,
			confidence: 0.95,
			want:       -0.10,
			tolerance:  0.0001,
		},
		{
			name:       "80 percent takes two-point tail boundary",
			returns:    returns,
			confidence: 0.80,
			want:       -0.05,
			tolerance:  0.0001,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateVaR(tt.returns, tt.confidence)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("CalculateVaR() = %v, want %v (±%v)", got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestCalculateCVaR(t *testing.T) {
	returns := []float64{-0.10, -0.05, -0.02, 0.0, 0.01, 0.02, 0.03, 0.04, 0.05, 0.06}

	tests := []struct {
		name       string
		returns    []float64
		confidence float64
		want       float64
		tolerance  float64
	}{
		{
			name:       "empty returns",
			returns:    []float64{},
			confidence: 0.95,
			want:       0.0,
			tolerance:  0.0,
		},
		{
			name:       "single return",
			returns:    []float64{-0.03},
			confidence: 0.95,
			want:       -0.03,
			tolerance:  0.0,
		},
		{
			name:       "95 percent averages worst single point",
			returns:    returns,
			confidence: 0.95,
			want:       -0.10,
			tolerance:  0.0001,
		},
		{
			name:       "80 percent averages two-point tail",
			returns:    returns,
			confidence: 0.80,
			want:       -0.075, // mean of -0.10 and -0.05
			tolerance:  0.0001,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateCVaR(tt.returns, tt.confidence)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("CalculateCVaR() = %v, want %v (±%v)", got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestCVaRAtLeastAsSevereAsVaR(t *testing.T) {
	returns := []float64{
		-0.12, -0.08, -0.06, -0.04, -0.03, -0.01, 0.0, 0.01,
		0.02, 0.03, 0.04, 0.05, 0.06, 0.07, 0.08, 0.09,
	}

	for _, confidence := range []float64{0.80, 0.90, 0.95, 0.99} {
		vaR := CalculateVaR(returns, confidence)
		cvar := CalculateCVaR(returns, confidence)
		if cvar > vaR {
			t.Errorf("confidence %.2f: CVaR %v is milder than VaR %v", confidence, cvar, vaR)
		}
	}
}

func TestCalculatePortfolioCVaR(t *testing.T) {
	weights := map[string]float64{"AAA": 0.6, "BBB": 0.4}
	returns := map[string][]float64{
		"AAA": {-0.10, 0.01, 0.02, 0.03},
		"BBB": {-0.20, 0.02, 0.04, 0.05},
	}

	// 95% tail of each series is its single worst point.
	got := CalculatePortfolioCVaR(weights, returns, 0.95)
	want := 0.6*(-0.10) + 0.4*(-0.20)
	if math.Abs(got-want) > 0.0001 {
		t.Errorf("CalculatePortfolioCVaR() = %v, want %v", got, want)
	}

	if got := CalculatePortfolioCVaR(map[string]float64{}, returns, 0.95); got != 0.0 {
		t.Errorf("CalculatePortfolioCVaR() with no weights = %v, want 0", got)
	}
}
