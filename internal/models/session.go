package models

import "time"

// Session is one immutable analysis context: the inputs and the panel
// computed from them. Any change to the inputs means a new session.
type Session struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Holdings  Holdings        `json:"holdings"`
	Prices    *PriceTable     `json:"prices"`
	Panel     *ValuationPanel `json:"-"`
}

// SessionSummary is the lightweight view of a session.
type SessionSummary struct {
	ID          string       `json:"id"`
	CreatedAt   time.Time    `json:"created_at"`
	Tickers     []string     `json:"tickers"`
	Sectors     []string     `json:"sectors"`
	From        string       `json:"from"`
	To          string       `json:"to"`
	Dates       int          `json:"dates"`
	Value       NullFloat64  `json:"portfolio_value"`
	TotalReturn NullFloat64  `json:"portfolio_return"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Summary describes the session without its full panel.
func (s *Session) Summary() SessionSummary {
	sum := SessionSummary{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		Tickers:   s.Holdings.Tickers(),
		Sectors:   s.Holdings.Sectors(),
	}
	if s.Panel == nil {
		return sum
	}
	if n := len(s.Panel.Dates); n > 0 {
		sum.From = s.Panel.Dates[0].Format(DateLayout)
		sum.To = s.Panel.Dates[n-1].Format(DateLayout)
		sum.Dates = n
	}
	sum.Value = s.Panel.Last(PortfolioTicker, FieldValue)
	sum.TotalReturn = s.Panel.Last(PortfolioTicker, FieldCumRet)
	sum.Diagnostics = s.Panel.Diagnostics
	return sum
}

// AnalysisResult carries the output of one engine run. Exactly one result
// field is set.
type AnalysisResult struct {
	Engine      string               `json:"engine"`
	SessionID   string               `json:"session_id"`
	Tickers     []string             `json:"tickers"`
	Correlation *CorrelationMatrix   `json:"correlation,omitempty"`
	Clusters    *ClusterResult       `json:"clusters,omitempty"`
	Factors     *FactorDecomposition `json:"factors,omitempty"`
	Attribution *AttributionReport   `json:"attribution,omitempty"`
	Frontier    *HedgeFrontier       `json:"frontier,omitempty"`
	Scores      []RiskScore          `json:"scores,omitempty"`
	RiskReturn  []RiskReturnPoint    `json:"risk_return,omitempty"`
}
