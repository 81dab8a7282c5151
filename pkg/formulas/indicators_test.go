package formulas

import (
	"math"
	"testing"
)

func TestCalculateEMA(t *testing.T) {
	// Seeded with SMA(1,2,3,4)=2.5, then one smoothing step with k=2/5:
	// 2.5 + 0.4*(5-2.5) = 3.5.
	got := CalculateEMA([]float64{1, 2, 3, 4, 5}, 4)
	if got == nil {
		t.Fatal("CalculateEMA() = nil, want value")
	}
	if math.Abs(*got-3.5) > 1e-9 {
		t.Errorf("CalculateEMA() = %v, want 3.5", *got)
	}
}

func TestCalculateEMAFallsBackToMean(t *testing.T) {
	got := CalculateEMA([]float64{1, 2, 3}, 5)
	if got == nil {
		t.Fatal("CalculateEMA() = nil, want mean fallback")
	}
	if math.Abs(*got-2.0) > 1e-12 {
		t.Errorf("CalculateEMA() short series = %v, want 2.0", *got)
	}

	if got := CalculateEMA(nil, 5); got != nil {
		t.Errorf("CalculateEMA() on empty series = %v, want nil", *got)
	}
}

func TestCalculateSMA(t *testing.T) {
	got := CalculateSMA([]float64{1, 2, 3, 4}, 4)
	if got == nil {
		t.Fatal("CalculateSMA() = nil, want value")
	}
	if math.Abs(*got-2.5) > 1e-12 {
		t.Errorf("CalculateSMA() = %v, want 2.5", *got)
	}

	if got := CalculateSMA([]float64{1, 2, 3}, 4); got != nil {
		t.Errorf("CalculateSMA() short series = %v, want nil", *got)
	}
}

func TestCalculateRSI(t *testing.T) {
	// Diffs +1, -0.5, +1 over period 2: seed averages are gain 0.5 and
	// loss 0.25, one Wilder step gives gain 0.75 and loss 0.125, so
	// RSI = 100 * 0.75/0.875 = 600/7.
	got := CalculateRSI([]float64{1, 2, 1.5, 2.5}, 2)
	if got == nil {
		t.Fatal("CalculateRSI() = nil, want value")
	}
	if math.Abs(*got-600.0/7.0) > 1e-9 {
		t.Errorf("CalculateRSI() = %v, want %v", *got, 600.0/7.0)
	}
}

func TestCalculateRSIZeroLossConvention(t *testing.T) {
	rising := CalculateRSI([]float64{1, 2, 3, 4, 5}, 3)
	if rising == nil {
		t.Fatal("CalculateRSI() on pure gains = nil, want 100")
	}
	if *rising != 100.0 {
		t.Errorf("CalculateRSI() on pure gains = %v, want 100", *rising)
	}

	flat := CalculateRSI([]float64{5, 5, 5, 5, 5}, 3)
	if flat == nil {
		t.Fatal("CalculateRSI() on a flat series = nil, want 100")
	}
	if *flat != 100.0 {
		t.Errorf("CalculateRSI() on a flat series = %v, want 100", *flat)
	}
}

func TestCalculateRSIInsufficientData(t *testing.T) {
	if got := CalculateRSI([]float64{1, 2}, 2); got != nil {
		t.Errorf("CalculateRSI() with too few closes = %v, want nil", *got)
	}
}
