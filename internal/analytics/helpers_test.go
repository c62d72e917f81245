package analytics

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/prism/internal/models"
)

var nan = math.NaN()

func day(i int) time.Time {
	return time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func days(n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = day(i)
	}
	return out
}

func table(t *testing.T, tickers []string, cols ...[]float64) *models.PriceTable {
	t.Helper()
	require.Len(t, cols, len(tickers))
	close := make(map[string][]float64, len(tickers))
	for i, tk := range tickers {
		close[tk] = cols[i]
	}
	pt, err := models.NewPriceTable(days(len(cols[0])), tickers, close)
	require.NoError(t, err)
	return pt
}

func holdings(shares map[string]float64, order ...string) models.Holdings {
	hs := make(models.Holdings, 0, len(order))
	for _, t := range order {
		hs = append(hs, models.Holding{Ticker: t, Shares: shares[t]})
	}
	return hs
}

// randomWalk returns a positive geometric random walk starting at start.
func randomWalk(rng *rand.Rand, n int, start, vol float64) []float64 {
	out := make([]float64, n)
	out[0] = start
	for i := 1; i < n; i++ {
		out[i] = out[i-1] * math.Exp(rng.NormFloat64()*vol)
	}
	return out
}

// fixturePanel builds a panel of four correlated random walks.
func fixturePanel(t *testing.T, n int) *models.ValuationPanel {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	market := make([]float64, n)
	for i := range market {
		market[i] = rng.NormFloat64() * 0.01
	}
	build := func(beta, idio, start float64) []float64 {
		out := make([]float64, n)
		out[0] = start
		for i := 1; i < n; i++ {
			out[i] = out[i-1] * math.Exp(beta*market[i]+rng.NormFloat64()*idio)
		}
		return out
	}
	tickers := []string{"SPY", "QQQ", "XLE", "TLT"}
	pt := table(t, tickers,
		build(1.0, 0.002, 400),
		build(1.3, 0.004, 350),
		build(0.6, 0.012, 90),
		build(-0.3, 0.006, 95),
	)
	panel, err := ComputePanel(holdings(map[string]float64{"SPY": 10, "QQQ": 12, "XLE": 30, "TLT": 25}, tickers...), pt)
	require.NoError(t, err)
	return panel
}

// lateListingPanel holds three fully priced tickers plus NEW, which is
// priced only on the last date.
func lateListingPanel(t *testing.T, n int) *models.ValuationPanel {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	listing := make([]float64, n)
	for i := range listing {
		listing[i] = nan
	}
	listing[n-1] = 25
	tickers := []string{"AAPL", "MSFT", "XLE", "NEW"}
	pt := table(t, tickers,
		randomWalk(rng, n, 180, 0.015),
		randomWalk(rng, n, 320, 0.012),
		randomWalk(rng, n, 90, 0.02),
		listing,
	)
	panel, err := ComputePanel(holdings(map[string]float64{"AAPL": 50, "MSFT": 20, "XLE": 100, "NEW": 40}, tickers...), pt)
	require.NoError(t, err)
	return panel
}
