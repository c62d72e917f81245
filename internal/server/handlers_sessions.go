package server

import (
	"net/http"
	"strings"

	"github.com/bobmcallan/prism/internal/analytics"
	"github.com/bobmcallan/prism/internal/interfaces"
	"github.com/bobmcallan/prism/internal/models"
)

type fetchRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type createSessionRequest struct {
	Holdings models.Holdings   `json:"holdings"`
	Prices   *models.PriceTable `json:"prices,omitempty"`
	Fetch    *fetchRange        `json:"fetch,omitempty"`
	Enrich   bool               `json:"enrich,omitempty"`
}

type createSessionResponse struct {
	models.SessionSummary
	Enrichment []models.Diagnostic `json:"enrichment,omitempty"`
}

// handleSessions serves POST (create) and GET (list) on /api/sessions.
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sessions := s.app.Sessions.List()
		out := make([]models.SessionSummary, len(sessions))
		for i, sess := range sessions {
			out[i] = sess.Summary()
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"sessions": out})
	case http.MethodPost:
		s.handleSessionCreate(w, r)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if len(req.Holdings) == 0 {
		WriteError(w, http.StatusBadRequest, "holdings are required")
		return
	}
	if req.Prices == nil && req.Fetch == nil {
		WriteError(w, http.StatusBadRequest, "either prices or a fetch range is required")
		return
	}
	if err := req.Holdings.Validate(); err != nil {
		writeServiceError(w, err)
		return
	}

	ctx := r.Context()
	if (req.Fetch != nil || req.Enrich) && s.app.MarketService == nil {
		WriteErrorWithCode(w, http.StatusServiceUnavailable, "market data unavailable: no EODHD API key configured", "market_unavailable")
		return
	}

	var enrichment []models.Diagnostic
	holdings := req.Holdings
	if req.Enrich {
		holdings, enrichment = s.app.MarketService.EnrichHoldings(ctx, holdings)
	}

	prices := req.Prices
	if prices == nil {
		from, err := models.ParseDate(req.Fetch.From)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "fetch.from: "+err.Error())
			return
		}
		to, err := models.ParseDate(req.Fetch.To)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "fetch.to: "+err.Error())
			return
		}
		prices, err = s.app.MarketService.FetchHoldingPrices(ctx, holdings, from, to)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Price fetch failed")
			WriteErrorWithCode(w, http.StatusBadGateway, err.Error(), "fetch_failed")
			return
		}
	}

	session, err := s.app.AnalysisService.NewSession(ctx, holdings, prices)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, createSessionResponse{
		SessionSummary: session.Summary(),
		Enrichment:     enrichment,
	})
}

// routeSessions dispatches /api/sessions/{id}[/...] to the session and
// engine handlers.
func (s *Server) routeSessions(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/sessions/"), "/")
	if rest == "" {
		WriteError(w, http.StatusNotFound, "session id is required")
		return
	}
	parts := strings.SplitN(rest, "/", 3)
	id := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.handleSessionGet(w, r, id)
		case http.MethodDelete:
			s.handleSessionDelete(w, r, id)
		default:
			RequireMethod(w, r, http.MethodGet, http.MethodDelete)
		}
		return
	}

	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	session, err := s.app.AnalysisService.GetSession(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	action, arg := parts[1], ""
	if len(parts) == 3 {
		arg = parts[2]
	}

	switch action {
	case "panel":
		WriteJSON(w, http.StatusOK, session.Panel)
	case "frontier":
		if arg == "" {
			WriteError(w, http.StatusBadRequest, "frontier requires a ticker")
			return
		}
		s.runEngine(w, r, session, analytics.EngineFrontier, arg)
	case "run":
		kind, err := analytics.ParseEngineKind(arg)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		s.runEngine(w, r, session, kind, r.URL.Query().Get("ticker"))
	case "export":
		s.handleExport(w, r, session, arg)
	case "charts":
		s.handleChart(w, r, session, arg)
	default:
		kind, err := analytics.ParseEngineKind(action)
		if err != nil || arg != "" {
			WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		s.runEngine(w, r, session, kind, "")
	}
}

func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request, id string) {
	session, err := s.app.AnalysisService.GetSession(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, session.Summary())
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request, id string) {
	if !s.app.Sessions.Delete(id) {
		WriteErrorWithCode(w, http.StatusNotFound, "session not found", "session_not_found")
		return
	}
	s.logger.Info().Str("session", id).Msg("Session deleted")
	w.WriteHeader(http.StatusNoContent)
}

// runEngine runs one engine with parameters taken from the query string.
func (s *Server) runEngine(w http.ResponseWriter, r *http.Request, session *models.Session, kind analytics.EngineKind, ticker string) {
	opts, err := exportOptionsFromQuery(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.app.AnalysisService.Run(r.Context(), session, interfaces.AnalysisRequest{
		Engine:     kind,
		Filter:     opts.Filter,
		Clusters:   opts.Clusters,
		Mode:       opts.Mode,
		Components: opts.Components,
		Ticker:     ticker,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}
