// Package csvfile reads analysis inputs from CSV and writes export tables.
package csvfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/prism/internal/models"
)

// Holdings columns. ticker and shares are required; the rest are optional.
const (
	colTicker       = "ticker"
	colShares       = "shares"
	colSector       = "sector"
	colName         = "name"
	colExchange     = "exchange"
	colExpenseRatio = "expense_ratio"
	colAUM          = "aum"
)

// ReadHoldings parses a holdings CSV with a header row. Column names are
// matched case-insensitively; unknown columns are ignored.
func ReadHoldings(r io.Reader) (models.Holdings, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read holdings header: %w", err)
	}
	idx := headerIndex(header)
	for _, required := range []string{colTicker, colShares} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("holdings: missing required column %q", required)
		}
	}

	var holdings models.Holdings
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("holdings line %d: %w", line, err)
		}
		if blank(rec) {
			continue
		}

		h := models.Holding{
			Ticker:   strings.TrimSpace(field(rec, idx, colTicker)),
			Sector:   strings.TrimSpace(field(rec, idx, colSector)),
			Name:     strings.TrimSpace(field(rec, idx, colName)),
			Exchange: strings.TrimSpace(field(rec, idx, colExchange)),
		}
		shares, err := parseNumber(field(rec, idx, colShares))
		if err != nil {
			return nil, fmt.Errorf("holdings line %d: shares: %w", line, err)
		}
		h.Shares = shares

		if h.ExpenseRatio, err = parseOptional(field(rec, idx, colExpenseRatio)); err != nil {
			return nil, fmt.Errorf("holdings line %d: expense_ratio: %w", line, err)
		}
		if h.AUM, err = parseOptional(field(rec, idx, colAUM)); err != nil {
			return nil, fmt.Errorf("holdings line %d: aum: %w", line, err)
		}
		holdings = append(holdings, h)
	}

	if err := holdings.Validate(); err != nil {
		return nil, err
	}
	return holdings, nil
}

// ReadPriceTable parses a wide price CSV: a Date column followed by one
// column per ticker. An empty cell is a missing observation.
func ReadPriceTable(r io.Reader) (*models.PriceTable, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read prices header: %w", err)
	}
	if len(header) < 2 || !strings.EqualFold(strings.TrimSpace(header[0]), "date") {
		return nil, fmt.Errorf("prices: first column must be Date followed by at least one ticker")
	}

	tickers := make([]string, len(header)-1)
	for i, h := range header[1:] {
		tickers[i] = strings.TrimSpace(h)
	}

	var dates []time.Time
	close := make(map[string][]float64, len(tickers))
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("prices line %d: %w", line, err)
		}
		if blank(rec) {
			continue
		}

		d, err := models.ParseDate(strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("prices line %d: %w", line, err)
		}
		dates = append(dates, d)

		for i, t := range tickers {
			cell := strings.TrimSpace(rec[i+1])
			if cell == "" {
				close[t] = append(close[t], math.NaN())
				continue
			}
			v, err := parseNumber(cell)
			if err != nil {
				return nil, fmt.Errorf("prices line %d, %s: %w", line, t, err)
			}
			close[t] = append(close[t], v)
		}
	}

	for _, t := range tickers {
		if close[t] == nil {
			close[t] = []float64{}
		}
	}
	return models.NewPriceTable(dates, tickers, close)
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.ReplaceAll(key, " ", "_")
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

func field(rec []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// parseNumber accepts thousands separators ("1,250.5").
func parseNumber(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	return strconv.ParseFloat(s, 64)
}

func parseOptional(s string) (*float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	v, err := parseNumber(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
