package models

import (
	"fmt"
	"math"
	"time"
)

// NormalizeDate truncates t to midnight UTC of its calendar day.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// PriceTable is a date-indexed matrix of adjusted close prices. A missing
// observation is NaN.
type PriceTable struct {
	Dates   []time.Time          `json:"dates"`
	Tickers []string             `json:"tickers"`
	Close   map[string][]float64 `json:"-"`
}

// NewPriceTable builds a table after checking every column matches the date
// index length. Dates are normalised to UTC midnight; ordering is checked by
// the return engine, which reports the offending date.
func NewPriceTable(dates []time.Time, tickers []string, close map[string][]float64) (*PriceTable, error) {
	normalized := make([]time.Time, len(dates))
	for i, d := range dates {
		normalized[i] = NormalizeDate(d)
	}

	cols := make(map[string][]float64, len(tickers))
	for _, t := range tickers {
		col, ok := close[t]
		if !ok {
			return nil, fmt.Errorf("price table: no column for ticker %s", t)
		}
		if len(col) != len(dates) {
			return nil, fmt.Errorf("price table: ticker %s has %d prices for %d dates", t, len(col), len(dates))
		}
		if _, dup := cols[t]; dup {
			return nil, fmt.Errorf("price table: duplicate column %s", t)
		}
		cols[t] = append([]float64(nil), col...)
	}

	return &PriceTable{
		Dates:   normalized,
		Tickers: append([]string(nil), tickers...),
		Close:   cols,
	}, nil
}

// Has reports whether the table carries a column for ticker.
func (p *PriceTable) Has(ticker string) bool {
	_, ok := p.Close[ticker]
	return ok
}

// Column returns the price column for ticker, or nil.
func (p *PriceTable) Column(ticker string) []float64 {
	return p.Close[ticker]
}

// Observed counts the non-missing prices for ticker.
func (p *PriceTable) Observed(ticker string) int {
	n := 0
	for _, v := range p.Close[ticker] {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Len returns the number of dates.
func (p *PriceTable) Len() int {
	return len(p.Dates)
}

// priceTableJSON is the wire form; NaN becomes null.
type priceTableJSON struct {
	Dates  []string                 `json:"dates"`
	Prices map[string][]NullFloat64 `json:"prices"`
	Order  []string                 `json:"tickers,omitempty"`
}

// MarshalJSON encodes dates as YYYY-MM-DD and missing prices as null.
func (p *PriceTable) MarshalJSON() ([]byte, error) {
	out := priceTableJSON{
		Dates:  make([]string, len(p.Dates)),
		Prices: make(map[string][]NullFloat64, len(p.Tickers)),
		Order:  p.Tickers,
	}
	for i, d := range p.Dates {
		out.Dates[i] = d.Format(DateLayout)
	}
	for _, t := range p.Tickers {
		col := p.Close[t]
		vals := make([]NullFloat64, len(col))
		for i, v := range col {
			vals[i] = NewNullFloat64(v)
		}
		out.Prices[t] = vals
	}
	return marshalJSON(out)
}

// UnmarshalJSON accepts the MarshalJSON form. Ticker order defaults to the
// sorted price keys when "tickers" is absent.
func (p *PriceTable) UnmarshalJSON(data []byte) error {
	var in priceTableJSON
	if err := unmarshalJSON(data, &in); err != nil {
		return err
	}
	dates := make([]time.Time, len(in.Dates))
	for i, s := range in.Dates {
		d, err := ParseDate(s)
		if err != nil {
			return fmt.Errorf("price table: %w", err)
		}
		dates[i] = d
	}
	order := in.Order
	if len(order) == 0 {
		order = sortedKeys(in.Prices)
	}
	close := make(map[string][]float64, len(in.Prices))
	for t, vals := range in.Prices {
		col := make([]float64, len(vals))
		for i, v := range vals {
			col[i] = v.OrNaN()
		}
		close[t] = col
	}
	table, err := NewPriceTable(dates, order, close)
	if err != nil {
		return err
	}
	*p = *table
	return nil
}
