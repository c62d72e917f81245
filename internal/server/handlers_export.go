package server

import (
	"net/http"
	"strings"

	"github.com/bobmcallan/prism/internal/models"
	"github.com/bobmcallan/prism/internal/services/analysis"
)

func isListed(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// handleExport serves /api/sessions/{id}/export/{name}.csv
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, session *models.Session, file string) {
	name := strings.TrimSuffix(strings.ToLower(file), ".csv")
	if !isListed(analysis.ExportNames, name) {
		WriteError(w, http.StatusNotFound, "unknown export "+file)
		return
	}
	opts, err := exportOptionsFromQuery(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := s.app.AnalysisService.ExportCSV(r.Context(), session, name, opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// handleChart serves /api/sessions/{id}/charts/{name}.png
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request, session *models.Session, file string) {
	name := strings.TrimSuffix(strings.ToLower(file), ".png")
	if !isListed(analysis.ChartNames, name) {
		WriteError(w, http.StatusNotFound, "unknown chart "+file)
		return
	}
	opts, err := exportOptionsFromQuery(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := s.app.AnalysisService.Chart(r.Context(), session, name, opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
