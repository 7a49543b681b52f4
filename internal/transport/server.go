package transport

import (
	"compgraph/internal/core/app"
	"compgraph/internal/core/config"
	"compgraph/internal/core/errors"
	"compgraph/internal/data/history"
	"compgraph/internal/engine/session"
	"compgraph/internal/shared/util"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Analyzer is the application surface the HTTP server drives.
type Analyzer interface {
	Prepare(req app.AnalyzeRequest) (app.Job, error)
	Analyze(ctx context.Context, job app.Job, emit func(session.Event) error) error
	HistoryEnabled() bool
	History(ctx context.Context, repo string, limit int) ([]history.Run, error)
}

type Server struct {
	cfg         config.Server
	analyzer    Analyzer
	logger      *slog.Logger
	limiter     *util.LimiterRegistry
	metricsPath string
	server      *http.Server
}

func NewServer(cfg *config.Config, analyzer Analyzer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg.Server,
		analyzer: analyzer,
		logger:   logger,
	}
	if cfg.RateLimit.Enabled {
		// RPM to tokens per second.
		perSecond := float64(cfg.RateLimit.RequestsPerMinute) / 60.0
		s.limiter = util.NewLimiterRegistry(perSecond, cfg.RateLimit.Burst, 10*time.Minute)
	}
	if cfg.Observability.MetricsOn() {
		s.metricsPath = cfg.Observability.MetricsPath
	}
	return s
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/analyze", s.handleAnalyze)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/healthz", s.handleHealth)
	if s.metricsPath != "" {
		mux.Handle(s.metricsPath, promhttp.Handler())
	}
	return mux
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "address", s.cfg.Address)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return s.Stop()
	}
}

func (s *Server) Stop() error {
	if s.limiter != nil {
		s.limiter.Close()
	}
	if s.server == nil {
		return nil
	}
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) setCORS(w http.ResponseWriter, methods string) {
	w.Header().Set("Access-Control-Allow-Origin", s.cfg.AllowedOrigin)
	w.Header().Set("Access-Control-Allow-Methods", methods)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Expose-Headers", "X-Session-ID")
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.setCORS(w, "GET, OPTIONS")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	runs, err := s.analyzer.History(r.Context(), r.URL.Query().Get("repo"), limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"history": s.analyzer.HistoryEnabled(),
	})
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeError(w, status, errors.Message(err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
