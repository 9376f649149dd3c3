package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"candlecast/internal/analyzer"
	"candlecast/internal/config"
	"candlecast/internal/history"
	"candlecast/internal/scanner"
	"candlecast/internal/scheduler"
	"candlecast/internal/store"
)

// Server is the JSON API server. Every pipeline failure is rendered as
// a 4xx {"error": ...} payload; 500s are reserved for storage faults.
type Server struct {
	config    *config.Config
	analyzer  *analyzer.Analyzer
	matcher   *history.Matcher
	scanner   *scanner.Scanner
	scheduler *scheduler.Scheduler
	store     *store.Store
	srv       *http.Server
}

// NewServer creates a new web server. scheduler and store may be nil;
// the endpoints that need them then report unavailable.
func NewServer(cfg *config.Config, a *analyzer.Analyzer, m *history.Matcher, sc *scanner.Scanner, sched *scheduler.Scheduler, st *store.Store) *Server {
	return &Server{
		config:    cfg,
		analyzer:  a,
		matcher:   m,
		scanner:   sc,
		scheduler: sched,
		store:     st,
	}
}

// Start starts the web server on the configured port.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/auth/token", s.handleToken)
	mux.HandleFunc("/api/analyze/", s.authRequired(s.handleAnalyze))
	mux.HandleFunc("/api/matches/", s.authRequired(s.handleMatches))
	mux.HandleFunc("/api/scan", s.authRequired(s.handleScan))
	mux.HandleFunc("/api/opportunities", s.authRequired(s.handleOpportunities))
	mux.HandleFunc("/api/overview", s.authRequired(s.handleOverview))
	mux.HandleFunc("/api/journal", s.authRequired(s.handleJournal))
	mux.HandleFunc("/api/stocks", s.authRequired(s.handleStocks))
	mux.HandleFunc("/api/stocks/", s.authRequired(s.handleStockTrack))

	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Web.Port),
		Handler:      corsMiddleware(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("[INFO] API listening at http://localhost:%d", s.config.Web.Port)

	return s.srv.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers for local development
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
