package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFeatureMode(t *testing.T) {
	tests := map[string]FeatureMode{
		"":                  ModeCorrelation,
		"correlation":       ModeCorrelation,
		"return_volatility": ModeReturnVolatility,
		"Return":            ModeReturn,
		"vol":               ModeVolatility,
	}
	for in, want := range tests {
		got, err := ParseFeatureMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFeatureMode("kmeans")
	assert.Error(t, err)

	out, err := json.Marshal(ClusterResult{Mode: ModeReturnVolatility})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"mode":"return_volatility"`)
}

func TestFactorDecomposition_TruncateAndCumulate(t *testing.T) {
	f := &FactorDecomposition{
		Tickers:                []string{"A", "B"},
		Components:             []string{"PC1", "PC2"},
		Loadings:               map[string][]float64{"A": {0.7, 0.7}, "B": {0.7, -0.7}},
		ExplainedVarianceRatio: []float64{0.9, 0.1},
		CumulativeVariance:     []float64{0.9, 1.0},
		DefaultComponents:      1,
		Projected:              [][]float64{{1, 2}, {3, 4}, {-1, 0}},
	}

	cum := f.CumulativeProjected()
	assert.Equal(t, [][]float64{{1, 2}, {4, 6}, {3, 6}}, cum)

	tr, err := f.Truncate(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"PC1"}, tr.Components)
	assert.Equal(t, []float64{0.7}, tr.Loadings["B"])
	assert.Equal(t, [][]float64{{1}, {3}, {-1}}, tr.Projected)

	_, err = f.Truncate(3)
	assert.Error(t, err)
	_, err = f.Truncate(0)
	assert.Error(t, err)
}

func TestFactorDecomposition_DatesJSON(t *testing.T) {
	f := FactorDecomposition{
		Dates: DateList{time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)},
	}
	out, err := json.Marshal(f)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"dates":["2024-03-01","2024-03-04"]`)

	var back FactorDecomposition
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, f.Dates, back.Dates)

	assert.Error(t, json.Unmarshal([]byte(`{"dates":["March 1"]}`), &back))
}

func TestCorrelationMatrix_Get(t *testing.T) {
	c := &CorrelationMatrix{Tickers: []string{"A", "B"}, Values: [][]float64{{1, 0.3}, {0.3, 1}}}
	v, ok := c.Get("B", "A")
	require.True(t, ok)
	assert.Equal(t, 0.3, v)
	_, ok = c.Get("A", "Z")
	assert.False(t, ok)
}

func TestAttributionReport_Ordered(t *testing.T) {
	r := &AttributionReport{
		Records: map[string]*AttributionRecord{"B": {Ticker: "B"}, "A": {Ticker: "A"}},
		Order:   []string{"B", "A"},
	}
	got := r.Ordered()
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[0].Ticker)
}
