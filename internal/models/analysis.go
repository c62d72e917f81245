package models

import (
	"fmt"
	"strings"
)

// CorrelationMatrix is a symmetric Pearson correlation matrix in ticker order.
type CorrelationMatrix struct {
	Tickers     []string     `json:"tickers"`
	Values      [][]float64  `json:"values"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Get returns the correlation between two tickers.
func (c *CorrelationMatrix) Get(a, b string) (float64, bool) {
	i, j := indexOf(c.Tickers, a), indexOf(c.Tickers, b)
	if i < 0 || j < 0 {
		return 0, false
	}
	return c.Values[i][j], true
}

// Merge is one agglomeration step. Leaves are 0..n-1; the cluster formed by
// step i has id n+i.
type Merge struct {
	Left     int     `json:"left"`
	Right    int     `json:"right"`
	Distance float64 `json:"distance"`
	Size     int     `json:"size"`
}

// Linkage is the full merge history of n leaves (n-1 merges).
type Linkage []Merge

// FeatureMode selects the dissimilarity used for clustering.
type FeatureMode int

const (
	// ModeCorrelation clusters on 1 - Pearson correlation of log returns.
	ModeCorrelation FeatureMode = iota
	// ModeReturnVolatility clusters on standardised annualised return and volatility.
	ModeReturnVolatility
	ModeReturn
	ModeVolatility
)

func (m FeatureMode) String() string {
	switch m {
	case ModeCorrelation:
		return "correlation"
	case ModeReturnVolatility:
		return "return_volatility"
	case ModeReturn:
		return "return"
	case ModeVolatility:
		return "volatility"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseFeatureMode maps a mode name to its FeatureMode. Empty means correlation.
func ParseFeatureMode(s string) (FeatureMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "correlation", "corr":
		return ModeCorrelation, nil
	case "return_volatility", "return+volatility", "mix":
		return ModeReturnVolatility, nil
	case "return":
		return ModeReturn, nil
	case "volatility", "vol":
		return ModeVolatility, nil
	}
	return 0, fmt.Errorf("unknown cluster mode %q", s)
}

func (m FeatureMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// ClusterGroup is one flat cluster.
type ClusterGroup struct {
	ID                  int      `json:"id"`
	Tickers             []string `json:"tickers"`
	Size                int      `json:"size"`
	Singleton           bool     `json:"singleton"`
	AvgAnnualReturn     float64  `json:"avg_annual_return"`
	AvgAnnualVolatility float64  `json:"avg_annual_volatility"`
	Winner              string   `json:"winner,omitempty"` // lowest expense ratio
}

// ClusterResult is a flat clustering cut from a linkage.
type ClusterResult struct {
	Mode        FeatureMode    `json:"mode"`
	Requested   int            `json:"requested"`
	Tickers     []string       `json:"tickers"`
	Assignment  map[string]int `json:"assignment"`
	Groups      []ClusterGroup `json:"groups"`
	Linkage     Linkage        `json:"linkage"`
	Diagnostics []Diagnostic   `json:"diagnostics,omitempty"`
}

// FactorDecomposition is a principal-component decomposition of standardised
// log returns. Component signs are arbitrary.
type FactorDecomposition struct {
	Tickers                []string             `json:"tickers"`
	Components             []string             `json:"components"`
	Loadings               map[string][]float64 `json:"loadings"`
	ExplainedVarianceRatio []float64            `json:"explained_variance_ratio"`
	CumulativeVariance     []float64            `json:"cumulative_variance"`
	DefaultComponents      int                  `json:"default_components"`
	Dates                  DateList             `json:"dates"`
	Projected              [][]float64          `json:"projected"` // [date][component]
	Observations           int                  `json:"observations"`
	Diagnostics            []Diagnostic         `json:"diagnostics,omitempty"`
}

// Truncate returns a copy keeping the first k components.
func (f *FactorDecomposition) Truncate(k int) (*FactorDecomposition, error) {
	if k < 1 || k > len(f.Components) {
		return nil, fmt.Errorf("component count %d outside [1, %d]", k, len(f.Components))
	}
	out := &FactorDecomposition{
		Tickers:                f.Tickers,
		Components:             f.Components[:k],
		Loadings:               make(map[string][]float64, len(f.Loadings)),
		ExplainedVarianceRatio: f.ExplainedVarianceRatio[:k],
		CumulativeVariance:     f.CumulativeVariance[:k],
		DefaultComponents:      min(f.DefaultComponents, k),
		Dates:                  f.Dates,
		Projected:              make([][]float64, len(f.Projected)),
		Observations:           f.Observations,
		Diagnostics:            f.Diagnostics,
	}
	for t, l := range f.Loadings {
		out.Loadings[t] = l[:k]
	}
	for i, row := range f.Projected {
		out.Projected[i] = row[:k]
	}
	return out, nil
}

// CumulativeProjected returns the running sum of each component series.
func (f *FactorDecomposition) CumulativeProjected() [][]float64 {
	out := make([][]float64, len(f.Projected))
	var running []float64
	for i, row := range f.Projected {
		if running == nil {
			running = make([]float64, len(row))
		}
		out[i] = make([]float64, len(row))
		for j, v := range row {
			running[j] += v
			out[i][j] = running[j]
		}
	}
	return out
}

// AttributionRecord is the OLS attribution of one ticker against the portfolio.
// PerfFromPortfolio + PerfFromBeta + PerfFromAlpha + PerfError = TotalReturn.
type AttributionRecord struct {
	Ticker       string      `json:"ticker"`
	Alpha        float64     `json:"alpha"` // annualised
	DailyAlpha   float64     `json:"daily_alpha"`
	PeriodAlpha  float64     `json:"period_alpha"`
	Beta         float64     `json:"beta"`
	RSquared     float64     `json:"r_squared"`
	FStatistic   NullFloat64 `json:"f_statistic"` // null for a perfect fit
	PValue       float64     `json:"p_value"`
	Significant  bool        `json:"significant"`
	Observations int         `json:"observations"`

	TotalReturn       float64 `json:"total_return"`
	PortfolioReturn   float64 `json:"portfolio_return"`
	ExcessReturn      float64 `json:"excess_return"`
	PerfFromPortfolio float64 `json:"perf_from_portfolio"`
	PerfFromBeta      float64 `json:"perf_from_beta"`
	PerfFromAlpha     float64 `json:"perf_from_alpha"`
	PerfError         float64 `json:"perf_error"`

	Volatility          float64 `json:"volatility"`
	PortfolioVolatility float64 `json:"portfolio_volatility"`
	VolFromPortfolio    float64 `json:"vol_from_portfolio"`
	VolFromBeta         float64 `json:"vol_from_beta"`
	VolError            float64 `json:"vol_error"`
}

// AttributionReport holds attribution for every ticker with a valid
// regression; omitted tickers are listed in Skipped.
type AttributionReport struct {
	Records map[string]*AttributionRecord `json:"records"`
	Order   []string                      `json:"order"`
	Skipped []Diagnostic                  `json:"skipped,omitempty"`
}

// Ordered returns the records in universe order.
func (r *AttributionReport) Ordered() []*AttributionRecord {
	out := make([]*AttributionRecord, 0, len(r.Order))
	for _, t := range r.Order {
		out = append(out, r.Records[t])
	}
	return out
}

// RiskReturnPoint is the annualised volatility and total return of one series.
type RiskReturnPoint struct {
	Ticker      string  `json:"ticker"`
	Volatility  float64 `json:"volatility"`
	TotalReturn float64 `json:"total_return"`
}

// FrontierPoint is one weight on the two-asset hedge line.
type FrontierPoint struct {
	Weight      float64 `json:"weight"`      // weight of the ticker sleeve
	NetExposure float64 `json:"net_exposure"` // effective ticker weight in the combined book
	Return      float64 `json:"return"`
	Volatility  float64 `json:"volatility"`
}

// HedgeFrontier traces risk and return of shorting a ticker against the
// portfolio that already holds it.
type HedgeFrontier struct {
	Ticker       string          `json:"ticker"`
	FinalWeight  float64         `json:"final_weight"`
	ShortWeight  float64         `json:"short_weight"`
	Correlation  float64         `json:"correlation"`
	Points       []FrontierPoint `json:"points"`
	ZeroExposure FrontierPoint   `json:"zero_exposure"`
	// Excess is the ticker's cumulative return minus the portfolio's, per date.
	Dates  DateList      `json:"dates"`
	Excess []NullFloat64 `json:"excess_returns"`
}

// RiskScore is the risk-adjusted total return of one series.
type RiskScore struct {
	Ticker             string      `json:"ticker"`
	RiskAdjusted       NullFloat64 `json:"risk_adjusted"`
	RiskAdjustedLinear NullFloat64 `json:"risk_adjusted_linear"`
	Probability        NullFloat64 `json:"probability"`
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
