package server

import (
	"net/http"
	"time"

	"github.com/bobmcallan/prism/internal/common"
)

// registerRoutes sets up all HTTP routes on the given mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	// Sessions and engines
	mux.HandleFunc("/api/sessions", s.handleSessions)
	mux.HandleFunc("/api/sessions/", s.routeSessions)

	// Insights
	mux.HandleFunc("/api/insights/news", s.handleNewsInsight)
	mux.HandleFunc("/api/insights/profile", s.handleFundProfile)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version":  common.GetVersion(),
		"build":    common.GetBuild(),
		"commit":   common.GetGitCommit(),
		"uptime":   time.Since(s.app.StartupTime).Round(time.Second).String(),
		"sessions": len(s.app.Sessions.List()),
		"market":   s.app.MarketService != nil,
		"insights": s.app.InsightService.Available(),
	})
}

// handleShutdown triggers a graceful server shutdown. Only available outside production.
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")
	WriteJSON(w, http.StatusOK, map[string]string{"status": "shutting down"})

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond) // let the response flush
			select {
			case s.shutdownChan <- struct{}{}:
			default:
			}
		}()
	}
}
