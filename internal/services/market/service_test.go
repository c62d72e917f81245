package market

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/prism/internal/common"
	"github.com/bobmcallan/prism/internal/interfaces"
	"github.com/bobmcallan/prism/internal/models"
)

// --- mock EODHD client ---

type mockEODHDClient struct {
	bars         map[string][]models.EODBar
	fundamentals map[string]*models.Fundamentals
	eodCalls     map[string]int
	fundCalls    int
	lastParams   interfaces.EODParams
}

func newMockEODHD() *mockEODHDClient {
	return &mockEODHDClient{
		bars:         make(map[string][]models.EODBar),
		fundamentals: make(map[string]*models.Fundamentals),
		eodCalls:     make(map[string]int),
	}
}

func (m *mockEODHDClient) GetEOD(ctx context.Context, ticker string, opts ...interfaces.EODOption) (*models.EODResponse, error) {
	m.eodCalls[ticker]++
	params := interfaces.EODParams{}
	for _, opt := range opts {
		opt(&params)
	}
	m.lastParams = params

	bars, ok := m.bars[ticker]
	if !ok {
		return nil, fmt.Errorf("ticker %s not found", ticker)
	}
	return &models.EODResponse{Data: bars}, nil
}

func (m *mockEODHDClient) GetFundamentals(ctx context.Context, ticker string) (*models.Fundamentals, error) {
	m.fundCalls++
	f, ok := m.fundamentals[ticker]
	if !ok {
		return nil, fmt.Errorf("fundamentals for %s not found", ticker)
	}
	cp := *f
	return &cp, nil
}

func d(day int) time.Time {
	return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)
}

func bar(day int, adj float64) models.EODBar {
	return models.EODBar{Date: d(day), Close: adj + 1, AdjClose: adj}
}

func TestFetchPriceTable_AlignsOnDateUnion(t *testing.T) {
	client := newMockEODHD()
	client.bars["AAPL.US"] = []models.EODBar{bar(2, 100), bar(3, 101), bar(5, 103)}
	client.bars["BHP.AU"] = []models.EODBar{bar(2, 40), bar(4, 41), {Date: d(5), Close: 42}}

	svc := NewService(client, common.NewSilentLogger())
	pt, err := svc.FetchPriceTable(context.Background(), []string{"AAPL", "BHP.AU"}, d(1), d(31))
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "BHP.AU"}, pt.Tickers)
	assert.Equal(t, []time.Time{d(2), d(3), d(4), d(5)}, pt.Dates)

	aapl := pt.Column("AAPL")
	assert.Equal(t, 100.0, aapl[0])
	assert.True(t, math.IsNaN(aapl[2]))

	bhp := pt.Column("BHP.AU")
	assert.True(t, math.IsNaN(bhp[1]))
	assert.Equal(t, 42.0, bhp[3], "falls back to close when adjusted close is absent")

	assert.Equal(t, "a", client.lastParams.Order)
	assert.Equal(t, d(1), client.lastParams.From)
}

func TestFetchHoldingPrices_UsesExchange(t *testing.T) {
	client := newMockEODHD()
	client.bars["BHP.AU"] = []models.EODBar{bar(2, 40), bar(3, 41)}

	svc := NewService(client, common.NewSilentLogger())
	pt, err := svc.FetchHoldingPrices(context.Background(), models.Holdings{{Ticker: "BHP", Exchange: "ASX", Shares: 1}}, d(1), d(31))
	require.NoError(t, err)
	assert.Equal(t, []string{"BHP"}, pt.Tickers)
	assert.Equal(t, []float64{40, 41}, pt.Column("BHP"))
}

func TestFetchPriceTable_CachesHistory(t *testing.T) {
	client := newMockEODHD()
	client.bars["SPY.US"] = []models.EODBar{bar(2, 400), bar(3, 401)}

	svc := NewService(client, common.NewSilentLogger())
	for i := 0; i < 3; i++ {
		_, err := svc.FetchPriceTable(context.Background(), []string{"SPY"}, d(1), d(31))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, client.eodCalls["SPY.US"])

	_, err := svc.FetchPriceTable(context.Background(), []string{"SPY"}, d(2), d(31))
	require.NoError(t, err)
	assert.Equal(t, 2, client.eodCalls["SPY.US"], "different range is a different cache entry")
}

func TestFetchPriceTable_Errors(t *testing.T) {
	client := newMockEODHD()
	client.bars["EMPTY.US"] = nil
	svc := NewService(client, common.NewSilentLogger())

	_, err := svc.FetchPriceTable(context.Background(), nil, d(1), d(2))
	assert.Error(t, err)

	_, err = svc.FetchPriceTable(context.Background(), []string{"NOPE"}, d(1), d(2))
	assert.ErrorContains(t, err, "NOPE")

	_, err = svc.FetchPriceTable(context.Background(), []string{"EMPTY"}, d(1), d(2))
	assert.Error(t, err)

	_, err = svc.FetchPriceTable(context.Background(), []string{"AAPL"}, d(5), d(2))
	assert.ErrorContains(t, err, "invalid range")
}

func TestEnrichHoldings(t *testing.T) {
	client := newMockEODHD()
	client.fundamentals["SPY.US"] = &models.Fundamentals{
		Name: "SPDR S&P 500", Sector: "Large Blend", IsETF: true, ExpenseRatio: 0.0945, TotalAssets: 5e11,
		LastUpdated: time.Now(),
	}
	client.fundamentals["AAPL.US"] = &models.Fundamentals{
		Name: "Apple Inc", Sector: "Technology", MarketCap: 3e12, LastUpdated: time.Now(),
	}

	own := 0.5
	holdings := models.Holdings{
		{Ticker: "SPY", Shares: 10},
		{Ticker: "AAPL", Shares: 5, Sector: "Tech", ExpenseRatio: &own},
		{Ticker: "GONE", Shares: 1},
	}

	svc := NewService(client, common.NewSilentLogger())
	out, diags := svc.EnrichHoldings(context.Background(), holdings)
	require.Len(t, out, 3)

	assert.Equal(t, "SPDR S&P 500", out[0].Name)
	assert.Equal(t, "Large Blend", out[0].Sector)
	require.NotNil(t, out[0].ExpenseRatio)
	assert.Equal(t, 0.0945, *out[0].ExpenseRatio)
	require.NotNil(t, out[0].AUM)
	assert.Equal(t, 5e11, *out[0].AUM)

	assert.Equal(t, "Tech", out[1].Sector, "existing values are kept")
	assert.Equal(t, 0.5, *out[1].ExpenseRatio)
	assert.Equal(t, 3e12, *out[1].AUM)

	require.Len(t, diags, 1)
	assert.Equal(t, "GONE", diags[0].Ticker)
	assert.Equal(t, models.DiagFetchFailed, diags[0].Code)

	assert.Nil(t, holdings[0].ExpenseRatio, "input holdings are not mutated")

	calls := client.fundCalls
	svc.EnrichHoldings(context.Background(), holdings[:1])
	assert.Equal(t, calls, client.fundCalls, "fresh fundamentals come from cache")
}
