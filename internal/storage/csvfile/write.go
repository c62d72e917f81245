package csvfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/bobmcallan/prism/internal/models"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// formatNull writes an empty cell for a null value.
func formatNull(v models.NullFloat64) string {
	if !v.Valid {
		return ""
	}
	return formatFloat(v.Float64)
}

func writeAll(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WritePriceTable writes the wide price table ReadPriceTable accepts: a
// Date column then one column per ticker, missing prices left empty.
func WritePriceTable(w io.Writer, prices *models.PriceTable) error {
	rows := [][]string{append([]string{"Date"}, prices.Tickers...)}
	for i, d := range prices.Dates {
		row := []string{d.Format(models.DateLayout)}
		for _, t := range prices.Tickers {
			row = append(row, formatNull(models.NewNullFloat64(prices.Close[t][i])))
		}
		rows = append(rows, row)
	}
	return writeAll(w, rows)
}

// WritePanel writes the valuation panel in tall form, one row per
// (ticker, date).
func WritePanel(w io.Writer, panel *models.ValuationPanel) error {
	rows := [][]string{{"Ticker", "Date", "close", "value", "pnl", "logret", "cumret"}}
	for _, r := range panel.Rows() {
		rows = append(rows, []string{
			r.Ticker,
			r.Date.Format(models.DateLayout),
			formatNull(r.Close),
			formatNull(r.Value),
			formatNull(r.PnL),
			formatNull(r.LogRet),
			formatNull(r.CumRet),
		})
	}
	return writeAll(w, rows)
}

// WriteAttribution writes one row per attributed ticker in report order,
// then one row per skipped ticker with empty metrics and the skip reason.
func WriteAttribution(w io.Writer, report *models.AttributionReport) error {
	header := []string{
		"Ticker", "alpha", "beta", "r_squared", "f_statistic", "p_value", "significant", "observations",
		"total_return", "portfolio_return", "excess_return",
		"perf_from_portfolio", "perf_from_beta", "perf_from_alpha", "perf_error",
		"volatility", "portfolio_volatility", "vol_from_portfolio", "vol_from_beta", "vol_error",
		"status", "reason",
	}
	rows := [][]string{header}
	for _, r := range report.Ordered() {
		rows = append(rows, []string{
			r.Ticker,
			formatFloat(r.Alpha),
			formatFloat(r.Beta),
			formatFloat(r.RSquared),
			formatNull(r.FStatistic),
			formatFloat(r.PValue),
			strconv.FormatBool(r.Significant),
			strconv.Itoa(r.Observations),
			formatFloat(r.TotalReturn),
			formatFloat(r.PortfolioReturn),
			formatFloat(r.ExcessReturn),
			formatFloat(r.PerfFromPortfolio),
			formatFloat(r.PerfFromBeta),
			formatFloat(r.PerfFromAlpha),
			formatFloat(r.PerfError),
			formatFloat(r.Volatility),
			formatFloat(r.PortfolioVolatility),
			formatFloat(r.VolFromPortfolio),
			formatFloat(r.VolFromBeta),
			formatFloat(r.VolError),
			statusOK,
			"",
		})
	}
	for _, d := range report.Skipped {
		rows = append(rows, skippedRow(len(header), d))
	}
	return writeAll(w, rows)
}

// WriteLoadings writes the PCA loadings (ticker rows, component columns)
// followed by the explained variance ratios.
func WriteLoadings(w io.Writer, f *models.FactorDecomposition) error {
	header := append([]string{"Ticker"}, f.Components...)
	rows := [][]string{header}
	for _, t := range f.Tickers {
		row := []string{t}
		for _, v := range f.Loadings[t] {
			row = append(row, formatFloat(v))
		}
		rows = append(rows, row)
	}

	ratio := []string{"explained_variance_ratio"}
	for _, v := range f.ExplainedVarianceRatio {
		ratio = append(ratio, formatFloat(v))
	}
	cumulative := []string{"cumulative_variance"}
	for _, v := range f.CumulativeVariance {
		cumulative = append(cumulative, formatFloat(v))
	}
	rows = append(rows, ratio, cumulative)
	return writeAll(w, rows)
}

// WriteFactorSeries writes the cumulative projection onto each component,
// one row per complete observation date.
func WriteFactorSeries(w io.Writer, f *models.FactorDecomposition) error {
	cum := f.CumulativeProjected()
	if len(cum) != len(f.Dates) {
		return fmt.Errorf("decomposition has %d dates for %d projections", len(f.Dates), len(cum))
	}
	rows := [][]string{append([]string{"Date"}, f.Components...)}
	for i, proj := range cum {
		row := []string{f.Dates[i].Format(models.DateLayout)}
		for _, v := range proj {
			row = append(row, formatFloat(v))
		}
		rows = append(rows, row)
	}
	return writeAll(w, rows)
}

// WriteCorrelation writes the square matrix with ticker labels.
func WriteCorrelation(w io.Writer, c *models.CorrelationMatrix) error {
	rows := [][]string{append([]string{""}, c.Tickers...)}
	for i, t := range c.Tickers {
		row := []string{t}
		for _, v := range c.Values[i] {
			row = append(row, formatFloat(v))
		}
		rows = append(rows, row)
	}
	return writeAll(w, rows)
}

// WriteClusters writes one row per ticker with its cluster and the cluster
// summary statistics. Tickers left out of clustering follow with their
// diagnostic code as status.
func WriteClusters(w io.Writer, res *models.ClusterResult) error {
	header := []string{"Ticker", "cluster", "cluster_size", "avg_annual_return", "avg_annual_volatility", "winner", "status", "reason"}
	rows := [][]string{header}
	clustered := make(map[string]bool)
	for _, g := range res.Groups {
		for _, t := range g.Tickers {
			clustered[t] = true
			rows = append(rows, []string{
				t,
				strconv.Itoa(g.ID),
				strconv.Itoa(g.Size),
				formatFloat(g.AvgAnnualReturn),
				formatFloat(g.AvgAnnualVolatility),
				strconv.FormatBool(g.Winner == t),
				statusOK,
				"",
			})
		}
	}
	for _, d := range res.Diagnostics {
		if d.Ticker == "" || clustered[d.Ticker] {
			continue
		}
		clustered[d.Ticker] = true
		rows = append(rows, skippedRow(len(header), d))
	}
	return writeAll(w, rows)
}

const statusOK = "ok"

// skippedRow is a row of width cells carrying only the ticker and the
// diagnostic in the last two columns.
func skippedRow(width int, d models.Diagnostic) []string {
	row := make([]string, width)
	row[0] = d.Ticker
	row[width-2] = d.Code
	row[width-1] = d.Message
	return row
}
