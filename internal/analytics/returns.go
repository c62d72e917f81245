// Package analytics implements the return and risk engines: the valuation
// panel, correlation clustering, factor decomposition and attribution.
package analytics

import (
	"errors"
	"fmt"
	"math"

	"github.com/bobmcallan/prism/internal/models"
)

// ComputePanel derives the tall valuation panel from holdings and prices.
// Share counts are held constant over the window.
func ComputePanel(holdings models.Holdings, prices *models.PriceTable) (*models.ValuationPanel, error) {
	if err := checkAlignment(holdings, prices); err != nil {
		return nil, err
	}

	n := len(prices.Dates)
	tickers := append(holdings.Tickers(), models.PortfolioTicker)
	panel := models.NewValuationPanel(tickers, prices.Dates)

	portfolio := make([]float64, n)
	contributors := 0
	for _, h := range holdings {
		closes := prices.Column(h.Ticker)
		value := make([]float64, n)
		for i, c := range closes {
			value[i] = h.Shares * c
		}

		basis := value
		if h.Shares == 0 {
			basis = closes
			panel.Diagnose(models.Diagnostic{
				Ticker:  h.Ticker,
				Code:    models.DiagZeroShares,
				Message: "zero shares held; returns follow the close price",
			})
		}
		if missing := n - prices.Observed(h.Ticker); missing > 0 {
			panel.Diagnose(models.Diagnostic{
				Ticker:  h.Ticker,
				Code:    models.DiagMissingPrices,
				Message: fmt.Sprintf("%d of %d prices missing", missing, n),
			})
		}

		writeSeries(panel, h.Ticker, closes, value, basis)

		switch {
		case h.Shares == 0:
		case priced(value) < 2:
			// A ticker without returns would null the aggregate on every other date.
			panel.Diagnose(models.Diagnostic{
				Ticker:  h.Ticker,
				Code:    models.DiagExcludedFromPortfolio,
				Message: "fewer than two priced observations; left out of the Portfolio aggregate",
			})
		default:
			contributors++
			for i, v := range value {
				portfolio[i] += v // NaN propagates: a partial sum would mis-state the aggregate
			}
		}
	}

	nan := make([]float64, n)
	for i := range nan {
		nan[i] = math.NaN()
	}
	if contributors == 0 {
		portfolio = nan
	}
	writeSeries(panel, models.PortfolioTicker, nan, portfolio, portfolio)

	return panel, nil
}

// writeSeries fills one ticker's rows. Returns are taken on basis, which is
// the value series except for zero-share holdings.
func writeSeries(panel *models.ValuationPanel, ticker string, closes, value, basis []float64) {
	logret, cumret, observed := compound(basis)
	if observed < 2 {
		err := &InsufficientDataError{Ticker: ticker, Have: observed, Need: 2, Reason: "priced observations"}
		panel.Diagnose(diagnosticFrom(ticker, models.DiagInsufficientData, err))
	}

	first := math.NaN()
	for _, v := range value {
		if !math.IsNaN(v) {
			first = v
			break
		}
	}

	for i, d := range panel.Dates {
		panel.Set(ticker, d, models.PanelRow{
			Close:  models.NewNullFloat64(closes[i]),
			Value:  models.NewNullFloat64(value[i]),
			PnL:    models.NewNullFloat64(value[i] - first),
			LogRet: models.NewNullFloat64(logret[i]),
			CumRet: models.NewNullFloat64(cumret[i]),
		})
	}
}

// priced counts the positive finite observations of a series.
func priced(series []float64) int {
	count := 0
	for _, v := range series {
		if v > 0 && !math.IsInf(v, 0) {
			count++
		}
	}
	return count
}

// compound returns log and cumulative returns of a series (NaN = missing).
// A gap is spanned by the next observation so compounding stays exact. The
// first observation's cumulative return is exactly 0. Series with fewer than
// two positive observations yield no returns at all.
func compound(basis []float64) (logret, cumret []float64, observed int) {
	n := len(basis)
	logret = make([]float64, n)
	cumret = make([]float64, n)
	for i := range basis {
		logret[i], cumret[i] = math.NaN(), math.NaN()
	}
	observed = priced(basis)
	if observed < 2 {
		return logret, cumret, observed
	}

	prev := math.NaN()
	sum := 0.0
	for i, v := range basis {
		if !(v > 0) || math.IsInf(v, 0) {
			continue
		}
		if math.IsNaN(prev) {
			cumret[i] = 0
		} else {
			logret[i] = math.Log(v / prev)
			sum += logret[i]
			cumret[i] = math.Exp(sum) - 1
		}
		prev = v
	}
	return logret, cumret, observed
}

func checkAlignment(holdings models.Holdings, prices *models.PriceTable) error {
	if prices == nil || len(prices.Dates) == 0 {
		return &DataAlignmentError{Reason: "empty date index"}
	}
	if len(holdings) == 0 {
		return &DataAlignmentError{Reason: "no holdings"}
	}
	if err := holdings.Validate(); err != nil {
		var he *models.HoldingError
		if errors.As(err, &he) {
			return &DataAlignmentError{Ticker: he.Ticker, Reason: he.Reason}
		}
		return &DataAlignmentError{Reason: err.Error()}
	}

	for i := 1; i < len(prices.Dates); i++ {
		prev, cur := prices.Dates[i-1], prices.Dates[i]
		switch {
		case cur.Equal(prev):
			return &DataAlignmentError{Date: cur, Reason: "duplicate date"}
		case cur.Before(prev):
			return &DataAlignmentError{Date: cur, Reason: "dates not in increasing order"}
		}
	}

	for _, h := range holdings {
		if !prices.Has(h.Ticker) {
			return &DataAlignmentError{Ticker: h.Ticker, Reason: "not present in price table"}
		}
		col := prices.Column(h.Ticker)
		if len(col) != len(prices.Dates) {
			return &DataAlignmentError{Ticker: h.Ticker, Reason: fmt.Sprintf("%d prices for %d dates", len(col), len(prices.Dates))}
		}
		for i, p := range col {
			if math.IsNaN(p) {
				continue
			}
			if p <= 0 || math.IsInf(p, 0) {
				return &NonPositivePriceError{Ticker: h.Ticker, Date: prices.Dates[i], Price: p}
			}
		}
	}
	return nil
}
