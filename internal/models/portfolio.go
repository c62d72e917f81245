// Package models defines data structures for Prism
package models

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// PortfolioTicker is the synthetic panel ticker holding the aggregate series.
const PortfolioTicker = "Portfolio"

// EodhExchange maps exchange names (e.g. "NYSE", "ASX") to EODHD exchange
// codes (e.g. "US", "AU"). Returns "US" for empty exchanges.
func EodhExchange(exchange string) string {
	switch strings.ToUpper(exchange) {
	case "NYSE", "NASDAQ", "US", "BATS", "AMEX", "ARCA", "":
		return "US"
	case "ASX", "AU":
		return "AU"
	case "LSE", "LON":
		return "LSE"
	default:
		return exchange
	}
}

// Holding represents one portfolio position. Shares are held constant over
// the analysis window.
type Holding struct {
	Ticker       string   `json:"ticker"`
	Shares       float64  `json:"shares"`
	Sector       string   `json:"sector,omitempty"`
	Name         string   `json:"name,omitempty"`
	Exchange     string   `json:"exchange,omitempty"`
	ExpenseRatio *float64 `json:"expense_ratio,omitempty"`
	AUM          *float64 `json:"aum,omitempty"`
}

// EODHDTicker returns the full EODHD-format ticker (e.g. "AAPL.US").
// Tickers that already carry an exchange suffix are returned unchanged.
func (h Holding) EODHDTicker() string {
	if strings.Contains(h.Ticker, ".") {
		return h.Ticker
	}
	return h.Ticker + "." + EodhExchange(h.Exchange)
}

// HoldingError describes why a holdings list is structurally invalid.
type HoldingError struct {
	Index  int
	Ticker string
	Reason string
}

func (e *HoldingError) Error() string {
	if e.Ticker == "" {
		return fmt.Sprintf("holding %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("holding %d (%s): %s", e.Index, e.Ticker, e.Reason)
}

// Holdings is an ordered list of positions. The order defines the universe
// order of every derived output.
type Holdings []Holding

// Validate rejects empty or duplicate tickers and negative or non-finite share counts.
func (hs Holdings) Validate() error {
	seen := make(map[string]bool, len(hs))
	for i, h := range hs {
		ticker := strings.TrimSpace(h.Ticker)
		switch {
		case ticker == "":
			return &HoldingError{Index: i, Reason: "empty ticker"}
		case ticker == PortfolioTicker:
			return &HoldingError{Index: i, Ticker: ticker, Reason: "ticker name is reserved for the aggregate series"}
		case seen[ticker]:
			return &HoldingError{Index: i, Ticker: ticker, Reason: "duplicate ticker"}
		case math.IsNaN(h.Shares) || math.IsInf(h.Shares, 0):
			return &HoldingError{Index: i, Ticker: ticker, Reason: "shares must be finite"}
		case h.Shares < 0:
			return &HoldingError{Index: i, Ticker: ticker, Reason: fmt.Sprintf("negative shares %g", h.Shares)}
		}
		seen[ticker] = true
	}
	return nil
}

// Tickers returns the tickers in holdings order.
func (hs Holdings) Tickers() []string {
	out := make([]string, len(hs))
	for i, h := range hs {
		out[i] = h.Ticker
	}
	return out
}

// Sectors returns the sorted distinct non-empty sectors.
func (hs Holdings) Sectors() []string {
	set := make(map[string]bool)
	for _, h := range hs {
		if h.Sector != "" {
			set[h.Sector] = true
		}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Find returns the holding for ticker.
func (hs Holdings) Find(ticker string) (Holding, bool) {
	for _, h := range hs {
		if h.Ticker == ticker {
			return h, true
		}
	}
	return Holding{}, false
}

// FilterBySector keeps holdings in any of the given sectors, preserving order.
// An empty selection keeps everything.
func (hs Holdings) FilterBySector(sectors ...string) Holdings {
	if len(sectors) == 0 {
		return hs
	}
	want := make(map[string]bool, len(sectors))
	for _, s := range sectors {
		want[strings.ToLower(strings.TrimSpace(s))] = true
	}
	var out Holdings
	for _, h := range hs {
		if want[strings.ToLower(h.Sector)] {
			out = append(out, h)
		}
	}
	return out
}
