package server

import (
	"net/http"
	"strings"

	"github.com/bobmcallan/prism/internal/models"
)

type newsRequest struct {
	Ticker          string   `json:"ticker"`
	TickerReturn    *float64 `json:"ticker_return,omitempty"`
	BenchmarkReturn *float64 `json:"benchmark_return,omitempty"`
	SessionID       string   `json:"session_id,omitempty"`
	Benchmark       string   `json:"benchmark,omitempty"` // defaults to the portfolio
}

type profileRequest struct {
	Ticker    string `json:"ticker"`
	Name      string `json:"name,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// handleNewsInsight explains a ticker's performance against a benchmark.
// Returns come from the body or, with session_id, from the session's panel.
func (s *Server) handleNewsInsight(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req newsRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	req.Ticker = strings.TrimSpace(req.Ticker)
	if req.Ticker == "" {
		WriteError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	ctx := r.Context()
	var tickerReturn, benchmarkReturn float64
	switch {
	case req.SessionID != "":
		session, err := s.app.AnalysisService.GetSession(ctx, req.SessionID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		benchmark := req.Benchmark
		if benchmark == "" {
			benchmark = models.PortfolioTicker
		}
		tr, ok := totalReturn(session, req.Ticker)
		if !ok {
			WriteErrorWithCode(w, http.StatusNotFound, "no return for ticker "+req.Ticker, "unknown_ticker")
			return
		}
		br, ok := totalReturn(session, benchmark)
		if !ok {
			WriteErrorWithCode(w, http.StatusNotFound, "no return for benchmark "+benchmark, "unknown_ticker")
			return
		}
		tickerReturn, benchmarkReturn = tr, br
	case req.TickerReturn != nil && req.BenchmarkReturn != nil:
		tickerReturn, benchmarkReturn = *req.TickerReturn, *req.BenchmarkReturn
	default:
		WriteError(w, http.StatusBadRequest, "ticker_return and benchmark_return, or session_id, are required")
		return
	}

	insight, err := s.app.InsightService.SummarizeNews(ctx, req.Ticker, tickerReturn, benchmarkReturn)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, insight)
}

// totalReturn is the last valid cumulative return of a panel series.
func totalReturn(session *models.Session, ticker string) (float64, bool) {
	if !session.Panel.HasTicker(ticker) {
		return 0, false
	}
	v := session.Panel.Last(ticker, models.FieldCumRet)
	return v.Float64, v.Valid
}

// handleFundProfile describes a fund's mandate.
func (s *Server) handleFundProfile(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req profileRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	req.Ticker = strings.TrimSpace(req.Ticker)
	if req.Ticker == "" {
		WriteError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	ctx := r.Context()
	if req.Name == "" && req.SessionID != "" {
		session, err := s.app.AnalysisService.GetSession(ctx, req.SessionID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if h, ok := session.Holdings.Find(req.Ticker); ok {
			req.Name = h.Name
		}
	}

	insight, err := s.app.InsightService.ProfileFund(ctx, req.Ticker, req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, insight)
}
