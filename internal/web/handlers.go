package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"candlecast/internal/analyzer"
	"candlecast/internal/store"
	"candlecast/internal/symbols"
	"candlecast/pkg/model"
)

// ScanRequest is the POST /api/scan body.
type ScanRequest struct {
	Universe string   `json:"universe,omitempty"`
	Symbols  []string `json:"symbols,omitempty"`
}

// MatchesResponse pairs the matches with their aggregate report.
type MatchesResponse struct {
	Symbol  string                  `json:"symbol"`
	Matches []model.HistoricalMatch `json:"matches"`
	Report  model.MatchReport       `json:"report"`
}

// handleAnalyze serves GET /api/analyze/{symbol}.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "use GET")
		return
	}

	symbol := pathSymbol(r.URL.Path, "/api/analyze/")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	analysis, err := s.analyzer.AnalyzeSetup(r.Context(), symbol)
	if err != nil {
		writePipelineError(w, symbol, err)
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}

// handleMatches serves GET /api/matches/{symbol}.
func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "use GET")
		return
	}

	symbol := pathSymbol(r.URL.Path, "/api/matches/")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	matches, err := s.matcher.FindMatches(r.Context(), symbol)
	if err != nil {
		writePipelineError(w, symbol, err)
		return
	}

	writeJSON(w, http.StatusOK, MatchesResponse{
		Symbol:  symbol,
		Matches: matches,
		Report:  s.matcher.Report(matches),
	})
}

// handleScan serves POST /api/scan: a synchronous scan of the requested
// universe or symbol list.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}

	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	syms := req.Symbols
	if len(syms) == 0 {
		universe := symbols.Universe(req.Universe)
		if req.Universe == "" {
			universe = symbols.UniverseLargeCap
		}
		syms = symbols.GetUniverse(universe)
		if syms == nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown universe %q", req.Universe))
			return
		}
	}

	result, err := s.scanner.Scan(r.Context(), syms)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("scan failed: %v", err))
		return
	}

	if s.store != nil {
		if err := s.store.RecordScanRun("manual", result); err != nil {
			log.Printf("[ERROR] recording scan run: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, result)
}

// handleOpportunities serves GET /api/opportunities from the scheduler
// cache.
func (s *Server) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "use GET")
		return
	}
	if s.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "background scanning is not running")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	writeJSON(w, http.StatusOK, s.scheduler.TopOpportunities(limit))
}

// handleOverview serves GET /api/overview: scheduler state plus recent
// persisted scan runs.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "use GET")
		return
	}
	if s.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "background scanning is not running")
		return
	}

	type overviewResponse struct {
		Scheduler  interface{}     `json:"scheduler"`
		RecentRuns []store.ScanRun `json:"recent_runs,omitempty"`
	}

	resp := overviewResponse{Scheduler: s.scheduler.GetOverview()}
	if s.store != nil {
		runs, err := s.store.RecentScanRuns(10)
		if err != nil {
			log.Printf("[ERROR] listing scan runs: %v", err)
		} else {
			resp.RecentRuns = runs
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleJournal serves GET and POST /api/journal.
func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence is not configured")
		return
	}

	switch r.Method {
	case http.MethodGet:
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		entries, err := s.store.ListJournal(limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list journal")
			return
		}
		if entries == nil {
			entries = []store.JournalEntry{}
		}
		writeJSON(w, http.StatusOK, entries)

	case http.MethodPost:
		var entry store.JournalEntry
		if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if entry.Symbol == "" {
			writeError(w, http.StatusBadRequest, "symbol is required")
			return
		}
		saved, err := s.store.AddJournalEntry(entry)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to save entry")
			return
		}
		writeJSON(w, http.StatusCreated, saved)

	default:
		writeError(w, http.StatusMethodNotAllowed, "use GET or POST")
	}
}

// handleStocks serves GET /api/stocks.
func (s *Server) handleStocks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "use GET")
		return
	}
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence is not configured")
		return
	}

	onlyTracked := r.URL.Query().Get("tracked") == "true"
	stocks, err := s.store.ListStocks(onlyTracked)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list stocks")
		return
	}
	if stocks == nil {
		stocks = []store.TrackedStock{}
	}
	writeJSON(w, http.StatusOK, stocks)
}

// handleStockTrack serves POST /api/stocks/{symbol}/track.
func (s *Server) handleStockTrack(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence is not configured")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/stocks/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != "track" || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	symbol := strings.ToUpper(parts[0])

	var body struct {
		Tracked *bool `json:"tracked"`
	}
	tracked := true
	if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Tracked != nil {
		tracked = *body.Tracked
	}

	if err := s.store.SetTracked(symbol, tracked); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update tracking")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":  symbol,
		"tracked": tracked,
	})
}

// writePipelineError maps the analyzer's error taxonomy to JSON: no
// data and filtered symbols are user-facing 4xx messages, anything else
// is a transient upstream problem.
func writePipelineError(w http.ResponseWriter, symbol string, err error) {
	switch {
	case errors.Is(err, analyzer.ErrNoData):
		writeError(w, http.StatusNotFound,
			fmt.Sprintf("no data found for %s, is the ticker correct?", symbol))
	case errors.Is(err, analyzer.ErrFiltered):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		log.Printf("[ERROR] pipeline: %s: %v", symbol, err)
		writeError(w, http.StatusBadGateway,
			fmt.Sprintf("market data temporarily unavailable for %s", symbol))
	}
}

func pathSymbol(path, prefix string) string {
	symbol := strings.TrimPrefix(path, prefix)
	symbol = strings.Trim(symbol, "/")
	return strings.ToUpper(symbol)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[ERROR] encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
