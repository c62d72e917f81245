package csvfile

import (
	"bytes"
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/prism/internal/common"
	"github.com/bobmcallan/prism/internal/models"
)

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	require.NoError(t, err)
	return rows
}

func TestReadHoldings(t *testing.T) {
	in := `Ticker,Shares,Sector,Name,Expense Ratio,AUM,Ignored
SPY,10,Equity,SPDR S&P 500,0.0945,"500,000",x
TLT,"1,250.5",Bonds,,,,

IVV,5,Equity,iShares Core,0.03,,`

	hs, err := ReadHoldings(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, hs, 3)

	assert.Equal(t, "SPY", hs[0].Ticker)
	assert.Equal(t, 10.0, hs[0].Shares)
	require.NotNil(t, hs[0].ExpenseRatio)
	assert.InDelta(t, 0.0945, *hs[0].ExpenseRatio, 1e-12)
	require.NotNil(t, hs[0].AUM)
	assert.Equal(t, 500000.0, *hs[0].AUM)

	assert.Equal(t, 1250.5, hs[1].Shares)
	assert.Nil(t, hs[1].ExpenseRatio)
	assert.Equal(t, "Bonds", hs[1].Sector)

	assert.Equal(t, []string{"SPY", "TLT", "IVV"}, hs.Tickers())
}

func TestReadHoldings_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"missing shares column", "ticker,sector\nSPY,Equity\n"},
		{"bad shares", "ticker,shares\nSPY,ten\n"},
		{"duplicate ticker", "ticker,shares\nSPY,1\nSPY,2\n"},
		{"reserved ticker", "ticker,shares\nPortfolio,1\n"},
		{"negative shares", "ticker,shares\nSPY,-1\n"},
		{"empty input", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadHoldings(strings.NewReader(tt.in))
			assert.Error(t, err)
		})
	}
}

func TestReadPriceTable(t *testing.T) {
	in := `Date,AAPL,MSFT
2024-01-02,100,200
2024-01-03,,205
2024-01-04,101.5,210
`
	pt, err := ReadPriceTable(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "MSFT"}, pt.Tickers)
	require.Len(t, pt.Dates, 3)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), pt.Dates[1])

	aapl := pt.Column("AAPL")
	assert.Equal(t, 100.0, aapl[0])
	assert.True(t, math.IsNaN(aapl[1]))
	assert.Equal(t, 101.5, aapl[2])
	assert.Equal(t, 2, pt.Observed("AAPL"))
	assert.Equal(t, 3, pt.Observed("MSFT"))
}

func TestWritePriceTable_ReadsBack(t *testing.T) {
	in := "Date,AAPL,MSFT\n2024-01-02,100,200\n2024-01-03,,205\n"
	pt, err := ReadPriceTable(strings.NewReader(in))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WritePriceTable(&buf, pt))
	assert.Equal(t, in, buf.String())
}

func TestReadPriceTable_Errors(t *testing.T) {
	_, err := ReadPriceTable(strings.NewReader("Ticker,AAPL\n2024-01-02,1\n"))
	assert.Error(t, err, "first column must be Date")

	_, err = ReadPriceTable(strings.NewReader("Date,AAPL\nyesterday,1\n"))
	assert.Error(t, err)

	_, err = ReadPriceTable(strings.NewReader("Date,AAPL\n2024-01-02,abc\n"))
	assert.Error(t, err)

	_, err = ReadPriceTable(strings.NewReader("Date,AAPL\n2024-01-02,1,2\n"))
	assert.Error(t, err, "ragged rows are rejected")
}

func TestWritePanel(t *testing.T) {
	d1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	panel := models.NewValuationPanel([]string{"AAPL", models.PortfolioTicker}, []time.Time{d1, d2})
	panel.Set("AAPL", d1, models.PanelRow{Close: models.Float(100), Value: models.Float(1000), PnL: models.Float(0), LogRet: models.Float(0), CumRet: models.Float(0)})
	panel.Set("AAPL", d2, models.PanelRow{Close: models.Float(101)})
	panel.Set(models.PortfolioTicker, d1, models.PanelRow{Value: models.Float(1000)})

	var buf bytes.Buffer
	require.NoError(t, WritePanel(&buf, panel))

	rows := readCSV(t, buf.Bytes())
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"Ticker", "Date", "close", "value", "pnl", "logret", "cumret"}, rows[0])
	assert.Equal(t, []string{"AAPL", "2024-01-02", "100", "1000", "0", "0", "0"}, rows[1])
	assert.Equal(t, []string{"AAPL", "2024-01-03", "101", "", "", "", ""}, rows[2])
	assert.Equal(t, []string{"Portfolio", "2024-01-02", "", "1000", "", "", ""}, rows[3])
}

func TestWriteCorrelationAndClusters(t *testing.T) {
	corr := &models.CorrelationMatrix{
		Tickers: []string{"A", "B"},
		Values:  [][]float64{{1, 0.5}, {0.5, 1}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCorrelation(&buf, corr))
	rows := readCSV(t, buf.Bytes())
	assert.Equal(t, []string{"", "A", "B"}, rows[0])
	assert.Equal(t, []string{"B", "0.5", "1"}, rows[2])

	res := &models.ClusterResult{
		Groups: []models.ClusterGroup{
			{ID: 0, Tickers: []string{"A", "B"}, Size: 2, AvgAnnualReturn: 0.1, AvgAnnualVolatility: 0.2, Winner: "B"},
			{ID: 1, Tickers: []string{"C"}, Size: 1, Singleton: true},
		},
	}
	buf.Reset()
	require.NoError(t, WriteClusters(&buf, res))
	rows = readCSV(t, buf.Bytes())
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"A", "0", "2", "0.1", "0.2", "false", "ok", ""}, rows[1])
	assert.Equal(t, "true", rows[2][5])
	assert.Equal(t, "1", rows[3][1])
}

func TestWriteLoadingsAndAttribution(t *testing.T) {
	f := &models.FactorDecomposition{
		Tickers:                []string{"A", "B"},
		Components:             []string{"PC1", "PC2"},
		Loadings:               map[string][]float64{"A": {0.7, 0.1}, "B": {0.6, -0.2}},
		ExplainedVarianceRatio: []float64{0.75, 0.25},
		CumulativeVariance:     []float64{0.75, 1},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteLoadings(&buf, f))
	rows := readCSV(t, buf.Bytes())
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"Ticker", "PC1", "PC2"}, rows[0])
	assert.Equal(t, []string{"B", "0.6", "-0.2"}, rows[2])
	assert.Equal(t, []string{"cumulative_variance", "0.75", "1"}, rows[4])

	report := &models.AttributionReport{
		Records: map[string]*models.AttributionRecord{
			"A": {Ticker: "A", Beta: 1, RSquared: 1, PValue: 0, Significant: true, Observations: 10},
		},
		Order: []string{"A"},
	}
	buf.Reset()
	require.NoError(t, WriteAttribution(&buf, report))
	rows = readCSV(t, buf.Bytes())
	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[1][0])
	assert.Equal(t, "", rows[1][4], "null F statistic is an empty cell")
	assert.Equal(t, "true", rows[1][6])
	assert.Equal(t, "ok", rows[1][len(rows[1])-2])
}

func TestWriteFactorSeries(t *testing.T) {
	f := &models.FactorDecomposition{
		Components: []string{"PC1", "PC2"},
		Dates:      models.DateList{time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)},
		Projected:  [][]float64{{1, -0.5}, {0.5, 0.25}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteFactorSeries(&buf, f))
	rows := readCSV(t, buf.Bytes())
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Date", "PC1", "PC2"}, rows[0])
	assert.Equal(t, []string{"2024-01-04", "1.5", "-0.25"}, rows[2])

	f.Dates = f.Dates[:1]
	assert.Error(t, WriteFactorSeries(&buf, f))
}

func TestWriteAttribution_ListsSkippedTickers(t *testing.T) {
	report := &models.AttributionReport{
		Records: map[string]*models.AttributionRecord{
			"AAPL": {Ticker: "AAPL", Beta: 1.1, Observations: 59},
		},
		Order: []string{"AAPL"},
		Skipped: []models.Diagnostic{
			{Ticker: "NEW", Code: models.DiagInsufficientObservations, Message: "regression needs 3 aligned observations"},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteAttribution(&buf, report))
	assert.Contains(t, buf.String(), "NEW")

	rows := readCSV(t, buf.Bytes())
	require.Len(t, rows, 3)
	header := rows[0]
	assert.Equal(t, []string{"status", "reason"}, header[len(header)-2:])
	skipped := rows[2]
	require.Len(t, skipped, len(header))
	assert.Equal(t, "NEW", skipped[0])
	assert.Equal(t, "", skipped[2], "skipped tickers carry no beta")
	assert.Equal(t, models.DiagInsufficientObservations, skipped[len(skipped)-2])
	assert.Equal(t, "regression needs 3 aligned observations", skipped[len(skipped)-1])
}

func TestWriteClusters_ListsDroppedTickers(t *testing.T) {
	res := &models.ClusterResult{
		Groups: []models.ClusterGroup{
			{ID: 0, Tickers: []string{"AAPL", "MSFT"}, Size: 2, Winner: "AAPL"},
		},
		Diagnostics: []models.Diagnostic{
			{Ticker: "NEW", Code: models.DiagInsufficientData, Message: "NEW: 0 returns, need 2"},
			{Ticker: "AAPL", Code: models.DiagZeroVariance, Message: "flat"},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteClusters(&buf, res))
	rows := readCSV(t, buf.Bytes())
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"NEW", "", "", "", "", "", models.DiagInsufficientData, "NEW: 0 returns, need 2"}, rows[3])
}

func TestStoreWriteRaw(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(common.NewSilentLogger(), filepath.Join(dir, "export"))
	require.NoError(t, err)

	path, err := store.WriteRaw("abc123", "../panel.csv", []byte("x,y\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "export", "abc123", "__panel.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x,y\n", string(data))

	entries, err := os.ReadDir(filepath.Join(dir, "export", "abc123"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}
