package transport

import (
	"compgraph/internal/core/app"
	"compgraph/internal/engine/session"
	"compgraph/internal/shared/observability"
	"compgraph/internal/shared/util"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxRequestBody = 64 << 10

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	s.setCORS(w, "POST, OPTIONS")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if s.limiter != nil {
		ip := util.GetClientIP(r)
		if ok, wait := s.limiter.Admit(ip); !ok {
			observability.RateLimitedTotal.Inc()
			s.logger.Debug("analysis request rate limited", "ip", ip, "retry_in", wait)
			w.Header().Set("Retry-After", util.RetryAfterSeconds(wait))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
	}

	var req app.AnalyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	job, err := s.analyzer.Prepare(req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("X-Session-ID", job.ID)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	logger := s.logger.With("session", job.ID, "repo", job.Repository.Key(), "branch", job.Repository.Branch)
	logger.Info("analysis started", "ip", util.GetClientIP(r))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, done := session.Stream(ctx, func(ctx context.Context, emit func(session.Event) error) error {
		return s.analyzer.Analyze(ctx, job, emit)
	})

	keepAlive := s.cfg.KeepAlive
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				if err := <-done; err != nil && !session.IsDeliveryFailure(err) {
					logger.Info("analysis ended with error", "error", err)
				}
				return
			}
			if err := writeEvent(w, ev); err != nil {
				logger.Debug("client write failed", "error", err)
				cancel()
				<-done
				return
			}
			flusher.Flush()
			if session.IsTerminal(ev) {
				logger.Debug("analysis finished", "outcome", string(ev.EventType()))
			}
		case <-ticker.C:
			if _, err := io.WriteString(w, ":\n\n"); err != nil {
				cancel()
				<-done
				return
			}
			flusher.Flush()
		case <-ctx.Done():
			<-done
			return
		}
	}
}

// writeEvent frames one event as "data: <json>\n\n".
func writeEvent(w io.Writer, ev session.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
