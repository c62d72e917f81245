package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

// DateLayout is the wire and CSV date format.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date (or RFC 3339 timestamp) to UTC midnight.
func ParseDate(s string) (time.Time, error) {
	if d, err := time.Parse(DateLayout, s); err == nil {
		return d, nil
	}
	d, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return NormalizeDate(d), nil
}

// DateList is a date index that encodes as YYYY-MM-DD strings.
type DateList []time.Time

func (d DateList) MarshalJSON() ([]byte, error) {
	out := make([]string, len(d))
	for i, t := range d {
		out[i] = t.Format(DateLayout)
	}
	return json.Marshal(out)
}

func (d *DateList) UnmarshalJSON(data []byte) error {
	var in []string
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	out := make(DateList, len(in))
	for i, s := range in {
		t, err := ParseDate(s)
		if err != nil {
			return err
		}
		out[i] = t
	}
	*d = out
	return nil
}

// NullFloat64 is a float that may be absent. Invalid or non-finite values
// encode as JSON null.
type NullFloat64 struct {
	Float64 float64
	Valid   bool
}

// NewNullFloat64 wraps v, treating NaN and ±Inf as null.
func NewNullFloat64(v float64) NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NullFloat64{}
	}
	return NullFloat64{Float64: v, Valid: true}
}

// Float returns a valid value.
func Float(v float64) NullFloat64 {
	return NullFloat64{Float64: v, Valid: true}
}

// OrNaN returns the value, or NaN when null.
func (n NullFloat64) OrNaN() float64 {
	if !n.Valid {
		return math.NaN()
	}
	return n.Float64
}

func (n NullFloat64) MarshalJSON() ([]byte, error) {
	if !n.Valid || math.IsNaN(n.Float64) || math.IsInf(n.Float64, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float64)
}

func (n *NullFloat64) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*n = NullFloat64{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = NewNullFloat64(v)
	return nil
}

// Field selects one column of the valuation panel.
type Field int

const (
	FieldClose Field = iota
	FieldValue
	FieldPnL
	FieldLogRet
	FieldCumRet
)

// Fields lists every panel column in export order.
var Fields = []Field{FieldClose, FieldValue, FieldPnL, FieldLogRet, FieldCumRet}

func (f Field) String() string {
	switch f {
	case FieldClose:
		return "close"
	case FieldValue:
		return "value"
	case FieldPnL:
		return "pnl"
	case FieldLogRet:
		return "logret"
	case FieldCumRet:
		return "cumret"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

// ParseField maps a column name to its Field.
func ParseField(s string) (Field, error) {
	for _, f := range Fields {
		if f.String() == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown panel field %q", s)
}

// PanelKey is the composite (ticker, date) key of the tall panel.
type PanelKey struct {
	Ticker string
	Date   time.Time
}

// PanelRow holds the derived columns for one (ticker, date).
type PanelRow struct {
	Close  NullFloat64 `json:"close"`
	Value  NullFloat64 `json:"value"`
	PnL    NullFloat64 `json:"pnl"`
	LogRet NullFloat64 `json:"logret"`
	CumRet NullFloat64 `json:"cumret"`
}

// Get returns the column selected by f.
func (r PanelRow) Get(f Field) NullFloat64 {
	switch f {
	case FieldClose:
		return r.Close
	case FieldValue:
		return r.Value
	case FieldPnL:
		return r.PnL
	case FieldLogRet:
		return r.LogRet
	case FieldCumRet:
		return r.CumRet
	}
	return NullFloat64{}
}

// PanelRecord is one flattened panel row.
type PanelRecord struct {
	Ticker string    `json:"ticker"`
	Date   time.Time `json:"date"`
	PanelRow
}

// Diagnostic codes for degenerate inputs that are recovered locally.
const (
	DiagInsufficientData         = "insufficient_data"
	DiagInsufficientObservations = "insufficient_observations"
	DiagZeroShares               = "zero_shares"
	DiagZeroVariance             = "zero_variance"
	DiagDegenerateRegressor      = "degenerate_regressor"
	DiagSingleMemberCluster      = "single_member_cluster"
	DiagNoExpenseRatio           = "no_expense_ratio"
	DiagMissingPrices            = "missing_prices"
	DiagFetchFailed              = "fetch_failed"
	DiagExcludedFromPortfolio    = "excluded_from_portfolio"
)

// Diagnostic records a degenerate but valid situation alongside a result.
type Diagnostic struct {
	Ticker  string `json:"ticker,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValuationPanel is the tall (ticker, date) panel derived from holdings and
// prices. Tickers lists the universe in holdings order followed by the
// synthetic Portfolio ticker.
type ValuationPanel struct {
	Tickers     []string
	Dates       []time.Time
	Diagnostics []Diagnostic

	rows map[PanelKey]PanelRow
}

// NewValuationPanel returns an empty panel over the given index.
func NewValuationPanel(tickers []string, dates []time.Time) *ValuationPanel {
	return &ValuationPanel{
		Tickers: append([]string(nil), tickers...),
		Dates:   append([]time.Time(nil), dates...),
		rows:    make(map[PanelKey]PanelRow, len(tickers)*len(dates)),
	}
}

// Set stores the row for (ticker, date).
func (p *ValuationPanel) Set(ticker string, date time.Time, row PanelRow) {
	p.rows[PanelKey{Ticker: ticker, Date: date}] = row
}

// Row returns the row for (ticker, date).
func (p *ValuationPanel) Row(ticker string, date time.Time) (PanelRow, bool) {
	r, ok := p.rows[PanelKey{Ticker: ticker, Date: NormalizeDate(date)}]
	return r, ok
}

// HasTicker reports whether ticker is part of the panel.
func (p *ValuationPanel) HasTicker(ticker string) bool {
	for _, t := range p.Tickers {
		if t == ticker {
			return true
		}
	}
	return false
}

// Series returns one column for ticker in date order.
func (p *ValuationPanel) Series(ticker string, f Field) []NullFloat64 {
	out := make([]NullFloat64, len(p.Dates))
	for i, d := range p.Dates {
		out[i] = p.rows[PanelKey{Ticker: ticker, Date: d}].Get(f)
	}
	return out
}

// Values returns one column for ticker with nulls as NaN.
func (p *ValuationPanel) Values(ticker string, f Field) []float64 {
	out := make([]float64, len(p.Dates))
	for i, d := range p.Dates {
		out[i] = p.rows[PanelKey{Ticker: ticker, Date: d}].Get(f).OrNaN()
	}
	return out
}

// Last returns the last valid value of a column.
func (p *ValuationPanel) Last(ticker string, f Field) NullFloat64 {
	for i := len(p.Dates) - 1; i >= 0; i-- {
		if v := p.rows[PanelKey{Ticker: ticker, Date: p.Dates[i]}].Get(f); v.Valid {
			return v
		}
	}
	return NullFloat64{}
}

// Rows returns every row in ticker-major, date-minor order.
func (p *ValuationPanel) Rows() []PanelRecord {
	out := make([]PanelRecord, 0, len(p.Tickers)*len(p.Dates))
	for _, t := range p.Tickers {
		for _, d := range p.Dates {
			out = append(out, PanelRecord{Ticker: t, Date: d, PanelRow: p.rows[PanelKey{Ticker: t, Date: d}]})
		}
	}
	return out
}

// Universe returns the real tickers, excluding Portfolio.
func (p *ValuationPanel) Universe() []string {
	out := make([]string, 0, len(p.Tickers))
	for _, t := range p.Tickers {
		if t != PortfolioTicker {
			out = append(out, t)
		}
	}
	return out
}

// Diagnose appends a diagnostic.
func (p *ValuationPanel) Diagnose(d Diagnostic) {
	p.Diagnostics = append(p.Diagnostics, d)
}

type panelJSON struct {
	Tickers     []string      `json:"tickers"`
	Dates       []string      `json:"dates"`
	Rows        []panelRowOut `json:"rows"`
	Diagnostics []Diagnostic  `json:"diagnostics,omitempty"`
}

type panelRowOut struct {
	Ticker string `json:"ticker"`
	Date   string `json:"date"`
	PanelRow
}

// MarshalJSON encodes the panel in tall form.
func (p *ValuationPanel) MarshalJSON() ([]byte, error) {
	out := panelJSON{
		Tickers:     p.Tickers,
		Dates:       make([]string, len(p.Dates)),
		Diagnostics: p.Diagnostics,
	}
	for i, d := range p.Dates {
		out.Dates[i] = d.Format(DateLayout)
	}
	for _, r := range p.Rows() {
		out.Rows = append(out.Rows, panelRowOut{Ticker: r.Ticker, Date: r.Date.Format(DateLayout), PanelRow: r.PanelRow})
	}
	return json.Marshal(out)
}

func marshalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func unmarshalJSON(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
