package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/bobmcallan/prism/internal/analytics"
	"github.com/bobmcallan/prism/internal/interfaces"
	"github.com/bobmcallan/prism/internal/models"
	"github.com/bobmcallan/prism/internal/services/analysis"
	"github.com/bobmcallan/prism/internal/services/insight"
)

// maxBodyBytes bounds request bodies; price tables for a few dozen tickers
// over a decade fit comfortably.
const maxBodyBytes = 16 << 20

// ErrorResponse is the standard error format for REST API responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// WriteErrorWithCode writes a JSON error response with an error code.
func WriteErrorWithCode(w http.ResponseWriter, statusCode int, message, code string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// writeServiceError maps an engine or service error onto a status and code.
func writeServiceError(w http.ResponseWriter, err error) {
	code := analytics.ErrorCode(err)
	switch code {
	case analytics.CodeDataAlignment, analytics.CodeNonPositivePrice,
		analytics.CodeInsufficientAssets, analytics.CodeInsufficientData:
		WriteErrorWithCode(w, http.StatusUnprocessableEntity, err.Error(), code)
		return
	case analytics.CodeUnknownTicker, analytics.CodeUnknownEngine:
		WriteErrorWithCode(w, http.StatusNotFound, err.Error(), code)
		return
	case analytics.CodeInvalidClusters:
		WriteErrorWithCode(w, http.StatusBadRequest, err.Error(), code)
		return
	}

	var holdingErr *models.HoldingError
	switch {
	case errors.Is(err, analysis.ErrSessionNotFound):
		WriteErrorWithCode(w, http.StatusNotFound, err.Error(), "session_not_found")
	case errors.Is(err, insight.ErrInsightsUnavailable):
		WriteErrorWithCode(w, http.StatusServiceUnavailable, err.Error(), "insights_unavailable")
	case errors.As(err, &holdingErr):
		WriteErrorWithCode(w, http.StatusBadRequest, err.Error(), "invalid_holdings")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

// RequireMethod validates the HTTP method and returns true if it matches.
// If it doesn't match, it writes a 405 response and returns false.
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// DecodeJSON reads and decodes JSON from the request body into v.
// Returns false and writes a 400 error if decoding fails.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil {
		WriteError(w, http.StatusBadRequest, "Request body is required")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

// splitList splits a comma-separated query value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// filterFromQuery reads ?sectors= and ?tickers= into a filter.
func filterFromQuery(r *http.Request) interfaces.Filter {
	q := r.URL.Query()
	return interfaces.Filter{
		Sectors: splitList(q.Get("sectors")),
		Tickers: splitList(q.Get("tickers")),
	}
}

// intQuery parses an optional non-negative integer query parameter.
func intQuery(r *http.Request, name string) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	return n, nil
}

// exportOptionsFromQuery collects the engine parameters shared by the
// engine, export and chart routes.
func exportOptionsFromQuery(r *http.Request) (analysis.ExportOptions, error) {
	opts := analysis.ExportOptions{Filter: filterFromQuery(r)}
	var err error
	if opts.Clusters, err = intQuery(r, "n"); err != nil {
		return opts, err
	}
	if opts.Components, err = intQuery(r, "components"); err != nil {
		return opts, err
	}
	if opts.Mode, err = models.ParseFeatureMode(r.URL.Query().Get("mode")); err != nil {
		return opts, err
	}
	return opts, nil
}
