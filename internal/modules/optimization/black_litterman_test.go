package optimization

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarketEquilibrium(t *testing.T) {
	model := testModel(t, []string{"AAA", "BBB"}, [][]float64{
		{0.04, 0.01},
		{0.01, 0.09},
	}, nil)
	bl := NewBlackLitterman(zerolog.Nop())

	t.Run("equal weights by default", func(t *testing.T) {
		prior, err := bl.MarketEquilibrium(model, nil)
		require.NoError(t, err)
		// pi = 2.5 * Sigma * (0.5, 0.5)
		assert.InDelta(t, 0.0625, prior["AAA"], 1e-12)
		assert.InDelta(t, 0.125, prior["BBB"], 1e-12)
	})

	t.Run("market weights are normalized", func(t *testing.T) {
		prior, err := bl.MarketEquilibrium(model, map[string]float64{"AAA": 3, "BBB": 1})
		require.NoError(t, err)
		assert.InDelta(t, 0.08125, prior["AAA"], 1e-12)
		assert.InDelta(t, 0.075, prior["BBB"], 1e-12)
	})

	t.Run("non-positive total weight rejected", func(t *testing.T) {
		_, err := bl.MarketEquilibrium(model, map[string]float64{"AAA": 0, "BBB": 0})
		assert.Error(t, err)
	})
}

func TestPosteriorReturnsDiagonal(t *testing.T) {
	model := testModel(t, []string{"AAA", "BBB"}, [][]float64{
		{0.04, 0.01},
		{0.01, 0.09},
	}, nil)
	bl := NewBlackLitterman(zerolog.Nop())

	t.Run("blends view and prior by confidence", func(t *testing.T) {
		views := []View{{Symbol: "AAA", Return: 0.10, Confidence: 0.6}}
		posterior, err := bl.PosteriorReturns(model, views, nil, BlendDiagonal)
		require.NoError(t, err)
		// 0.6*0.10 + 0.4*0.0625
		assert.InDelta(t, 0.085, posterior["AAA"], 1e-12)
		assert.InDelta(t, 0.125, posterior["BBB"], 1e-12)
	})

	t.Run("empty mode defaults to diagonal", func(t *testing.T) {
		views := []View{{Symbol: "AAA", Return: 0.10, Confidence: 1}}
		posterior, err := bl.PosteriorReturns(model, views, nil, "")
		require.NoError(t, err)
		assert.InDelta(t, 0.10, posterior["AAA"], 1e-12)
	})

	t.Run("no views returns the prior untouched", func(t *testing.T) {
		posterior, err := bl.PosteriorReturns(model, nil, nil, BlendDiagonal)
		require.NoError(t, err)
		assert.InDelta(t, 0.0625, posterior["AAA"], 1e-12)
		assert.InDelta(t, 0.125, posterior["BBB"], 1e-12)
	})

	t.Run("relative views rejected in diagonal mode", func(t *testing.T) {
		views := []View{{Type: ViewTypeRelative, Symbol1: "AAA", Symbol2: "BBB", Return: 0.02, Confidence: 0.5}}
		_, err := bl.PosteriorReturns(model, views, nil, BlendDiagonal)
		assert.Error(t, err)
	})
}

func TestPosteriorReturnsValidation(t *testing.T) {
	model := testModel(t, []string{"AAA", "BBB"}, [][]float64{
		{0.04, 0.01},
		{0.01, 0.09},
	}, nil)
	bl := NewBlackLitterman(zerolog.Nop())

	cases := []struct {
		name string
		view View
	}{
		{"confidence above one", View{Symbol: "AAA", Return: 0.1, Confidence: 1.5}},
		{"negative confidence", View{Symbol: "AAA", Return: 0.1, Confidence: -0.1}},
		{"unknown symbol", View{Symbol: "ZZZ", Return: 0.1, Confidence: 0.5}},
		{"relative view missing second symbol", View{Type: ViewTypeRelative, Symbol1: "AAA", Return: 0.1, Confidence: 0.5}},
		{"relative view on the same symbol", View{Type: ViewTypeRelative, Symbol1: "AAA", Symbol2: "AAA", Return: 0.1, Confidence: 0.5}},
		{"unknown view type", View{Type: ViewType("directional"), Symbol: "AAA", Return: 0.1, Confidence: 0.5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := bl.PosteriorReturns(model, []View{tc.view}, nil, BlendBayesian)
			assert.Error(t, err)
		})
	}

	t.Run("unknown blend mode", func(t *testing.T) {
		_, err := bl.PosteriorReturns(model, nil, nil, BlendMode("half"))
		assert.Error(t, err)
	})
}

func TestPosteriorReturnsBayesian(t *testing.T) {
	model := testModel(t, []string{"AAA", "BBB"}, [][]float64{
		{0.04, 0.01},
		{0.01, 0.09},
	}, nil)
	bl := NewBlackLitterman(zerolog.Nop())

	t.Run("zero confidence keeps the prior", func(t *testing.T) {
		views := []View{{Symbol: "AAA", Return: 0.50, Confidence: 0}}
		posterior, err := bl.PosteriorReturns(model, views, nil, BlendBayesian)
		require.NoError(t, err)
		assert.InDelta(t, 0.0625, posterior["AAA"], 1e-9)
		assert.InDelta(t, 0.125, posterior["BBB"], 1e-9)
	})

	t.Run("full confidence pins the views", func(t *testing.T) {
		views := []View{
			{Symbol: "AAA", Return: 0.10, Confidence: 1},
			{Symbol: "BBB", Return: 0.15, Confidence: 1},
		}
		posterior, err := bl.PosteriorReturns(model, views, nil, BlendBayesian)
		require.NoError(t, err)
		assert.InDelta(t, 0.10, posterior["AAA"], 1e-3)
		assert.InDelta(t, 0.15, posterior["BBB"], 1e-3)
	})

	t.Run("partial confidence lands between prior and view", func(t *testing.T) {
		views := []View{{Symbol: "AAA", Return: 0.20, Confidence: 0.5}}
		posterior, err := bl.PosteriorReturns(model, views, nil, BlendBayesian)
		require.NoError(t, err)
		assert.Greater(t, posterior["AAA"], 0.0625)
		assert.Less(t, posterior["AAA"], 0.20)
	})

	t.Run("relative view shifts the spread", func(t *testing.T) {
		views := []View{{Type: ViewTypeRelative, Symbol1: "AAA", Symbol2: "BBB", Return: 0.05, Confidence: 1}}
		posterior, err := bl.PosteriorReturns(model, views, nil, BlendBayesian)
		require.NoError(t, err)
		assert.InDelta(t, 0.05, posterior["AAA"]-posterior["BBB"], 5e-3)
	})
}
