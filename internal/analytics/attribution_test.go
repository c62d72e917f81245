package analytics

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/prism/internal/models"
)

func TestAttribute_TickerIdenticalToPortfolio(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	pt := table(t, []string{"AAPL"}, randomWalk(rng, 80, 180, 0.015))
	panel, err := ComputePanel(holdings(map[string]float64{"AAPL": 40}, "AAPL"), pt)
	require.NoError(t, err)

	report, err := Attribute(panel, DefaultOptions())
	require.NoError(t, err)
	require.Contains(t, report.Records, "AAPL")

	rec := report.Records["AAPL"]
	assert.InDelta(t, 1.0, rec.Beta, 1e-9)
	assert.InDelta(t, 0.0, rec.Alpha, 1e-9)
	assert.InDelta(t, 1.0, rec.RSquared, 1e-9)
	assert.InDelta(t, 0.0, rec.PerfError, 1e-9)
	assert.InDelta(t, 0.0, rec.VolError, 1e-9)
	assert.InDelta(t, 0.0, rec.ExcessReturn, 1e-12)
	assert.True(t, rec.Significant)
	assert.Equal(t, 79, rec.Observations)
}

func TestAttribute_DecompositionCloses(t *testing.T) {
	panel := fixturePanel(t, 250)
	report, err := Attribute(panel, Options{TradingDays: 252, MinObservations: 3, SignificanceLevel: 0.05})
	require.NoError(t, err)
	require.Equal(t, []string{"SPY", "QQQ", "XLE", "TLT"}, report.Order)
	assert.Empty(t, report.Skipped)

	for _, rec := range report.Ordered() {
		sum := rec.PerfFromPortfolio + rec.PerfFromBeta + rec.PerfFromAlpha + rec.PerfError
		assert.InDelta(t, rec.TotalReturn, sum, 1e-6, rec.Ticker)

		vol := rec.VolFromPortfolio + rec.VolFromBeta + rec.VolError
		assert.InDelta(t, rec.Volatility, vol, 1e-9, rec.Ticker)

		assert.InDelta(t, rec.DailyAlpha*252, rec.Alpha, 1e-12)
		assert.InDelta(t, rec.DailyAlpha*float64(rec.Observations), rec.PeriodAlpha, 1e-12)
		assert.GreaterOrEqual(t, rec.PValue, 0.0)
		assert.LessOrEqual(t, rec.PValue, 1.0)
		assert.Equal(t, rec.PValue < 0.05, rec.Significant)
	}

	assert.Greater(t, report.Records["QQQ"].Beta, report.Records["SPY"].Beta)
	assert.Less(t, report.Records["TLT"].Beta, 0.0)
}

func TestAttribute_SkipsShortSeries(t *testing.T) {
	pt := table(t, []string{"A", "B", "IPO"},
		[]float64{10, 11, 10.5, 11.2, 11.0, 11.4},
		[]float64{20, 21, 20.4, 22, 21.5, 21.9},
		[]float64{nan, nan, nan, 5, 5.2, 5.1},
	)
	hs := models.Holdings{{Ticker: "A", Shares: 1}, {Ticker: "B", Shares: 2}, {Ticker: "IPO", Shares: 0}}
	panel, err := ComputePanel(hs, pt)
	require.NoError(t, err)

	report, err := Attribute(panel, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, report.Order)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "IPO", report.Skipped[0].Ticker)
	assert.Equal(t, models.DiagInsufficientObservations, report.Skipped[0].Code)
	assert.Contains(t, report.Skipped[0].Message, "2 aligned observations")
}

func TestAttribute_LateListingLeavesAggregateIntact(t *testing.T) {
	panel := lateListingPanel(t, 60)

	report, err := Attribute(panel, DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, report.Records, 3)
	assert.ElementsMatch(t, []string{"AAPL", "MSFT", "XLE"}, report.Order)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "NEW", report.Skipped[0].Ticker)
	for _, tk := range report.Order {
		assert.Equal(t, 59, report.Records[tk].Observations, tk)
	}
}

func TestAttribute_DegenerateRegressor(t *testing.T) {
	pt := table(t, []string{"UP", "DOWN"}, []float64{100, 110, 90, 100}, []float64{100, 90, 110, 100})
	panel, err := ComputePanel(holdings(map[string]float64{"UP": 1, "DOWN": 1}, "UP", "DOWN"), pt)
	require.NoError(t, err)

	report, err := Attribute(panel, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, report.Records)
	require.Len(t, report.Skipped, 2)
	assert.Equal(t, models.DiagDegenerateRegressor, report.Skipped[0].Code)
}

func TestAttribute_ConstantTicker(t *testing.T) {
	pt := table(t, []string{"CASH", "AAPL"}, []float64{1, 1, 1, 1, 1}, []float64{100, 102, 99, 103, 101})
	panel, err := ComputePanel(holdings(map[string]float64{"CASH": 100, "AAPL": 10}, "CASH", "AAPL"), pt)
	require.NoError(t, err)

	report, err := Attribute(panel, DefaultOptions())
	require.NoError(t, err)
	rec := report.Records["CASH"]
	require.NotNil(t, rec)
	assert.InDelta(t, 0.0, rec.Beta, 1e-12)
	assert.Equal(t, 0.0, rec.RSquared)
	assert.False(t, rec.FStatistic.Valid)
	assert.False(t, rec.Significant)
}

func TestAttribute_RequiresAggregate(t *testing.T) {
	panel := models.NewValuationPanel([]string{"A"}, days(3))
	_, err := Attribute(panel, DefaultOptions())
	var alignErr *DataAlignmentError
	assert.True(t, errors.As(err, &alignErr))
}

func TestOptions_Defaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, DefaultOptions(), o)

	o = Options{TradingDays: 260, MinObservations: 10, SignificanceLevel: 0.01}.withDefaults()
	assert.Equal(t, 260, o.TradingDays)
	assert.Equal(t, 10, o.MinObservations)
	assert.Equal(t, 0.01, o.SignificanceLevel)
}
