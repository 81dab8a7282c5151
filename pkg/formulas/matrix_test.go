package formulas

import (
	"math"
	"testing"
)

func TestCorrelationMatrixFromCovariance(t *testing.T) {
	t.Run("two asset matrix", func(t *testing.T) {
		cov := [][]float64{
			{4.0, 2.0},
			{2.0, 9.0},
		}

		corr, err := CorrelationMatrixFromCovariance(cov)
		if err != nil {
			t.Fatalf("CorrelationMatrixFromCovariance() error = %v", err)
		}

		if corr[0][0] != 1.0 || corr[1][1] != 1.0 {
			t.Errorf("diagonal = %v, %v, want exactly 1", corr[0][0], corr[1][1])
		}

		want := 2.0 / (2.0 * 3.0)
		if math.Abs(corr[0][1]-want) > 1e-12 {
			t.Errorf("corr[0][1] = %v, want %v", corr[0][1], want)
		}
		if corr[0][1] != corr[1][0] {
			t.Errorf("correlation not symmetric: %v vs %v", corr[0][1], corr[1][0])
		}
	})

	t.Run("empty matrix rejected", func(t *testing.T) {
		if _, err := CorrelationMatrixFromCovariance([][]float64{}); err == nil {
			t.Error("expected error for empty matrix")
		}
	})

	t.Run("non-square matrix rejected", func(t *testing.T) {
		if _, err := CorrelationMatrixFromCovariance([][]float64{{1.0, 0.5}}); err == nil {
			t.Error("expected error for non-square matrix")
		}
	})

	t.Run("zero variance rejected", func(t *testing.T) {
		cov := [][]float64{
			{0.0, 0.0},
			{0.0, 1.0},
		}
		if _, err := CorrelationMatrixFromCovariance(cov); err == nil {
			t.Error("expected error for zero variance on diagonal")
		}
	})
}

func TestCorrelationToDistance(t *testing.T) {
	corr := [][]float64{
		{1.0, 1.0, 0.0, -1.0},
		{1.0, 1.0, 0.0, -1.0},
		{0.0, 0.0, 1.0, 0.0},
		{-1.0, -1.0, 0.0, 1.0},
	}

	dist := CorrelationToDistance(corr)

	tests := []struct {
		i, j int
		want float64
	}{
		{0, 0, 0.0},            // self distance
		{0, 1, 0.0},            // perfect correlation
		{0, 2, math.Sqrt(2.0)}, // uncorrelated
		{0, 3, 2.0},            // perfect anti-correlation
	}

	for _, tt := range tests {
		if math.Abs(dist[tt.i][tt.j]-tt.want) > 1e-12 {
			t.Errorf("dist[%d][%d] = %v, want %v", tt.i, tt.j, dist[tt.i][tt.j], tt.want)
		}
	}
}

func TestInverseVarianceWeights(t *testing.T) {
	tests := []struct {
		name      string
		variances []float64
		want      []float64
		tolerance float64
	}{
		{
			name:      "low variance gets high weight",
			variances: []float64{4.0, 1.0},
			want:      []float64{0.2, 0.8},
			tolerance: 1e-12,
		},
		{
			name:      "equal variances give equal weights",
			variances: []float64{2.0, 2.0, 2.0, 2.0},
			want:      []float64{0.25, 0.25, 0.25, 0.25},
			tolerance: 1e-12,
		},
		{
			name:      "all zero variances fall back to equal weights",
			variances: []float64{0.0, 0.0},
			want:      []float64{0.5, 0.5},
			tolerance: 1e-12,
		},
		{
			name:      "zero variance asset excluded",
			variances: []float64{1.0, 0.0},
			want:      []float64{1.0, 0.0},
			tolerance: 1e-12,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InverseVarianceWeights(tt.variances)
			if len(got) != len(tt.want) {
				t.Fatalf("InverseVarianceWeights() length = %d, want %d", len(got), len(tt.want))
			}
			sum := 0.0
			for i := range got {
				sum += got[i]
				if math.Abs(got[i]-tt.want[i]) > tt.tolerance {
					t.Errorf("weights[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
			if math.Abs(sum-1.0) > 1e-9 {
				t.Errorf("weights sum = %v, want 1", sum)
			}
		})
	}
}
