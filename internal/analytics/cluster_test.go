package analytics

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/prism/internal/models"
)

func TestCorrelation_SymmetricUnitDiagonal(t *testing.T) {
	panel := fixturePanel(t, 200)
	m, err := LogReturnMatrix(panel, nil)
	require.NoError(t, err)
	assert.NotContains(t, m.Tickers, models.PortfolioTicker)

	for _, subset := range [][]string{nil, {"SPY", "QQQ"}, {"XLE", "TLT", "SPY"}} {
		sub := m
		if subset != nil {
			sub = m.Subset(subset)
		}
		corr, err := Correlation(sub)
		require.NoError(t, err)

		n := len(sub.Tickers)
		for i := 0; i < n; i++ {
			assert.Equal(t, 1.0, corr.Values[i][i])
			for j := 0; j < n; j++ {
				assert.Equal(t, corr.Values[i][j], corr.Values[j][i])
				assert.GreaterOrEqual(t, corr.Values[i][j], -1.0)
				assert.LessOrEqual(t, corr.Values[i][j], 1.0)
			}
		}
	}

	corr, err := Correlation(m)
	require.NoError(t, err)
	spyQQQ, _ := corr.Get("SPY", "QQQ")
	spyTLT, _ := corr.Get("SPY", "TLT")
	assert.Greater(t, spyQQQ, 0.8)
	assert.Less(t, spyTLT, 0.0)
}

func TestCorrelation_Degenerate(t *testing.T) {
	pt := table(t, []string{"A", "FLAT"}, []float64{1, 2, 1.5, 1.8}, []float64{5, 5, 5, 5})
	panel, err := ComputePanel(holdings(map[string]float64{"A": 1, "FLAT": 1}, "A", "FLAT"), pt)
	require.NoError(t, err)
	m, err := LogReturnMatrix(panel, nil)
	require.NoError(t, err)

	corr, err := Correlation(m)
	require.NoError(t, err)
	assert.Equal(t, 0.0, corr.Values[0][1])
	require.Len(t, corr.Diagnostics, 1)
	assert.Equal(t, "FLAT", corr.Diagnostics[0].Ticker)

	_, err = Correlation(m.Subset([]string{"A"}))
	var assetsErr *InsufficientAssetsError
	require.True(t, errors.As(err, &assetsErr))
	assert.Equal(t, 1, assetsErr.Have)
}

func TestLogReturnMatrix_UnknownTicker(t *testing.T) {
	panel := fixturePanel(t, 10)
	_, err := LogReturnMatrix(panel, []string{"SPY", "NOPE"})
	assert.True(t, errors.Is(err, ErrUnknownTicker))

	m, err := LogReturnMatrix(panel, []string{"XLE", models.PortfolioTicker})
	require.NoError(t, err)
	assert.Equal(t, []string{"XLE"}, m.Tickers)
}

func TestFilterTickers(t *testing.T) {
	hs := models.Holdings{{Ticker: "XLK", Sector: "Tech"}, {Ticker: "XLE", Sector: "Energy"}, {Ticker: "VGT", Sector: "Tech"}}
	assert.Equal(t, []string{"XLK", "VGT"}, FilterTickers(hs, []string{"Tech"}))
	assert.Equal(t, []string{"XLK", "XLE", "VGT"}, FilterTickers(hs, nil))
}

func TestAverageLinkage_KnownTree(t *testing.T) {
	// points on a line at 0, 1, 5, 6
	pos := []float64{0, 1, 5, 6}
	dist := make([][]float64, 4)
	for i := range dist {
		dist[i] = make([]float64, 4)
		for j := range dist[i] {
			d := pos[i] - pos[j]
			if d < 0 {
				d = -d
			}
			dist[i][j] = d
		}
	}

	cond := Condensed(dist)
	assert.Equal(t, []float64{1, 5, 6, 4, 5, 1}, cond)

	linkage, err := AverageLinkage(cond, 4)
	require.NoError(t, err)
	require.Len(t, linkage, 3)
	assert.Equal(t, models.Merge{Left: 0, Right: 1, Distance: 1, Size: 2}, linkage[0])
	assert.Equal(t, models.Merge{Left: 2, Right: 3, Distance: 1, Size: 2}, linkage[1])
	assert.Equal(t, 4, linkage[2].Left)
	assert.Equal(t, 5, linkage[2].Right)
	assert.InDelta(t, 5.0, linkage[2].Distance, 1e-12)

	labels, err := CutMaxClusters(linkage, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 2, 2}, labels)

	labels, err = CutMaxClusters(linkage, 4, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 2, 3}, labels)

	_, err = CutMaxClusters(linkage, 4, 0)
	assert.True(t, errors.Is(err, ErrInvalidClusterCount))
}

func TestAverageLinkage_RejectsBadInput(t *testing.T) {
	_, err := AverageLinkage([]float64{1, 2}, 3)
	assert.Error(t, err, "length does not match point count")
	_, err = AverageLinkage([]float64{math.NaN()}, 2)
	assert.Error(t, err)
	_, err = AverageLinkage(nil, 0)
	assert.Error(t, err)

	linkage, err := AverageLinkage(nil, 1)
	require.NoError(t, err)
	assert.Empty(t, linkage)
}

func TestCluster_SingletonsAndSingleCluster(t *testing.T) {
	panel := fixturePanel(t, 150)
	m, err := LogReturnMatrix(panel, nil)
	require.NoError(t, err)
	n := len(m.Tickers)

	for _, mode := range []models.FeatureMode{models.ModeCorrelation, models.ModeReturnVolatility, models.ModeReturn, models.ModeVolatility} {
		all, err := Cluster(m, n, mode, nil)
		require.NoError(t, err, mode.String())
		require.Len(t, all.Groups, n)
		for _, g := range all.Groups {
			assert.True(t, g.Singleton)
		}
		seen := map[int]bool{}
		for _, label := range all.Assignment {
			seen[label] = true
		}
		assert.Len(t, seen, n)

		one, err := Cluster(m, 1, mode, nil)
		require.NoError(t, err)
		require.Len(t, one.Groups, 1)
		assert.Equal(t, m.Tickers, one.Groups[0].Tickers)
		for _, label := range one.Assignment {
			assert.Equal(t, 1, label)
		}
	}
}

func TestCluster_MonotoneInK(t *testing.T) {
	panel := fixturePanel(t, 150)
	m, err := LogReturnMatrix(panel, nil)
	require.NoError(t, err)

	prev := map[string]int(nil)
	for k := 1; k <= len(m.Tickers); k++ {
		res, err := Cluster(m, k, models.ModeCorrelation, nil)
		require.NoError(t, err)
		require.Len(t, res.Groups, k)
		assert.Len(t, res.Linkage, len(m.Tickers)-1)

		if prev != nil {
			// each finer cluster sits inside exactly one coarser cluster
			parentOf := map[int]int{}
			for tk, label := range res.Assignment {
				if p, ok := parentOf[label]; ok {
					assert.Equal(t, p, prev[tk])
				}
				parentOf[label] = prev[tk]
			}
		}
		prev = res.Assignment
	}

	// the two equity index trackers are the closest pair
	res, err := Cluster(m, 3, models.ModeCorrelation, nil)
	require.NoError(t, err)
	assert.Equal(t, res.Assignment["SPY"], res.Assignment["QQQ"])
}

func TestCluster_Errors(t *testing.T) {
	panel := fixturePanel(t, 30)
	m, err := LogReturnMatrix(panel, nil)
	require.NoError(t, err)

	_, err = Cluster(m, 0, models.ModeCorrelation, nil)
	assert.True(t, errors.Is(err, ErrInvalidClusterCount))
	_, err = Cluster(m, 5, models.ModeCorrelation, nil)
	assert.True(t, errors.Is(err, ErrInvalidClusterCount))
	assert.Equal(t, CodeInvalidClusters, ErrorCode(err))

	_, err = Cluster(m.Subset([]string{"SPY"}), 1, models.ModeCorrelation, nil)
	var assetsErr *InsufficientAssetsError
	assert.True(t, errors.As(err, &assetsErr))
}

func TestCluster_WinnerByExpenseRatio(t *testing.T) {
	panel := fixturePanel(t, 100)
	m, err := LogReturnMatrix(panel, nil)
	require.NoError(t, err)

	er := func(v float64) *float64 { return &v }
	hs := models.Holdings{
		{Ticker: "SPY", ExpenseRatio: er(0.0945), AUM: er(500)},
		{Ticker: "QQQ", ExpenseRatio: er(0.20)},
		{Ticker: "XLE", ExpenseRatio: er(0.0945), AUM: er(900)},
		{Ticker: "TLT"},
	}

	res, err := Cluster(m, 1, models.ModeCorrelation, hs)
	require.NoError(t, err)
	assert.Equal(t, "XLE", res.Groups[0].Winner, "tie on expense ratio goes to larger AUM")

	res, err = Cluster(m.Subset([]string{"QQQ", "TLT"}), 2, models.ModeCorrelation, hs)
	require.NoError(t, err)
	var noER int
	for _, d := range res.Diagnostics {
		if d.Code == models.DiagNoExpenseRatio {
			noER++
		}
	}
	assert.Equal(t, 1, noER)
}

func TestCluster_DropsShortSeries(t *testing.T) {
	pt := table(t, []string{"A", "B", "C"},
		[]float64{10, 11, 10.5, 11.2, 11.0},
		[]float64{20, 21, 20.4, 22, 21.5},
		[]float64{nan, nan, nan, nan, 5},
	)
	panel, err := ComputePanel(holdings(map[string]float64{"A": 1, "B": 1, "C": 1}, "A", "B", "C"), pt)
	require.NoError(t, err)
	m, err := LogReturnMatrix(panel, nil)
	require.NoError(t, err)

	res, err := Cluster(m, 2, models.ModeCorrelation, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, res.Tickers)
	require.NotEmpty(t, res.Diagnostics)
	assert.Equal(t, "C", res.Diagnostics[0].Ticker)
	assert.Equal(t, models.DiagInsufficientData, res.Diagnostics[0].Code)
}
