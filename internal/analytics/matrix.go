package analytics

import (
	"fmt"
	"math"
	"time"

	"github.com/bobmcallan/prism/internal/models"
)

// DefaultTradingDays is the number of daily observations per year.
const DefaultTradingDays = 252

// ReturnMatrix is a wide date × ticker matrix of log returns. NaN marks a
// missing return.
type ReturnMatrix struct {
	Tickers     []string
	Dates       []time.Time
	Data        [][]float64 // [date][ticker]
	TradingDays int         // observations per year used to annualise
}

// LogReturnMatrix slices the panel's log returns for tickers. A nil or empty
// selection takes the whole universe; Portfolio is never included.
func LogReturnMatrix(panel *models.ValuationPanel, tickers []string) (*ReturnMatrix, error) {
	if len(tickers) == 0 {
		tickers = panel.Universe()
	}

	selected := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if t == models.PortfolioTicker {
			continue
		}
		if !panel.HasTicker(t) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTicker, t)
		}
		selected = append(selected, t)
	}

	m := &ReturnMatrix{
		Tickers:     selected,
		Dates:       panel.Dates,
		Data:        make([][]float64, len(panel.Dates)),
		TradingDays: DefaultTradingDays,
	}
	cols := make([][]float64, len(selected))
	for j, t := range selected {
		cols[j] = panel.Values(t, models.FieldLogRet)
	}
	for i := range panel.Dates {
		row := make([]float64, len(selected))
		for j := range selected {
			row[j] = cols[j][i]
		}
		m.Data[i] = row
	}
	return m, nil
}

// FilterTickers returns the tickers of holdings in the given sectors, in
// holdings order. No sectors selects everything.
func FilterTickers(holdings models.Holdings, sectors []string) []string {
	return holdings.FilterBySector(sectors...).Tickers()
}

// Column returns the returns of ticker j in date order.
func (m *ReturnMatrix) Column(j int) []float64 {
	out := make([]float64, len(m.Data))
	for i, row := range m.Data {
		out[i] = row[j]
	}
	return out
}

// Usable splits the tickers into those with at least two returns and a
// diagnostic for each of the rest.
func (m *ReturnMatrix) Usable() ([]string, []models.Diagnostic) {
	var usable []string
	var dropped []models.Diagnostic
	for j, t := range m.Tickers {
		if have := len(finite(m.Column(j))); have < 2 {
			err := &InsufficientDataError{Ticker: t, Have: have, Need: 2, Reason: "returns"}
			dropped = append(dropped, diagnosticFrom(t, models.DiagInsufficientData, err))
			continue
		}
		usable = append(usable, t)
	}
	return usable, dropped
}

// CompleteRows returns the rows (and their dates) with no missing return.
func (m *ReturnMatrix) CompleteRows() ([][]float64, []time.Time) {
	var rows [][]float64
	var dates []time.Time
	for i, row := range m.Data {
		complete := len(row) > 0
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				complete = false
				break
			}
		}
		if complete {
			rows = append(rows, row)
			dates = append(dates, m.Dates[i])
		}
	}
	return rows, dates
}

// Subset keeps the named tickers, preserving the matrix order.
func (m *ReturnMatrix) Subset(tickers []string) *ReturnMatrix {
	keep := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		keep[t] = true
	}
	var idx []int
	out := &ReturnMatrix{Dates: m.Dates, TradingDays: m.TradingDays, Data: make([][]float64, len(m.Data))}
	for j, t := range m.Tickers {
		if keep[t] {
			idx = append(idx, j)
			out.Tickers = append(out.Tickers, t)
		}
	}
	for i, row := range m.Data {
		r := make([]float64, len(idx))
		for k, j := range idx {
			r[k] = row[j]
		}
		out.Data[i] = r
	}
	return out
}

func (m *ReturnMatrix) tradingDays() int {
	if m.TradingDays > 0 {
		return m.TradingDays
	}
	return DefaultTradingDays
}
