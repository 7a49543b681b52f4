package main

import (
	"compgraph/internal/core/app"
	"compgraph/internal/core/config"
	"compgraph/internal/data/cache"
	"compgraph/internal/data/github"
	"compgraph/internal/data/history"
	"compgraph/internal/engine/session"
	"context"
	"encoding/json"
	"io"
	"log/slog"
)

// buildApp wires the GitHub source, result cache and history store into an
// App. The returned func releases what was opened.
func buildApp(cfg *config.Config, logger *slog.Logger) (*app.App, func(), error) {
	deps := app.Dependencies{
		Source: github.NewClient(cfg.GitHub, logger),
		Logger: logger,
	}
	if cfg.Cache.IsEnabled() {
		deps.Cache = cache.New(cfg.Cache.Size, cfg.Cache.TTL)
	}

	closer := func() {}
	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path)
		switch {
		case err == nil:
			deps.History = store
			logger.Info("recording analysis history", "path", store.Path())
			closer = func() {
				if err := store.Close(); err != nil {
					logger.Warn("failed to close history store", "error", err)
				}
			}
		case history.IsCorruptError(err):
			logger.Warn("history store is corrupt; continuing without history", "path", cfg.History.Path, "error", err)
		default:
			return nil, nil, err
		}
	}
	if cfg.GitHub.ResolveToken() == "" {
		logger.Info("no GitHub token configured; unauthenticated API limits apply", "token_env", cfg.GitHub.TokenEnv)
	}

	a, err := app.New(cfg, deps)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return a, closer, nil
}

type oneShot interface {
	Prepare(req app.AnalyzeRequest) (app.Job, error)
	Analyze(ctx context.Context, job app.Job, emit func(session.Event) error) error
}

// runOnce analyzes one repository and writes every event as a JSON line.
func runOnce(ctx context.Context, a oneShot, repoURL, branch string, out io.Writer) error {
	job, err := a.Prepare(app.AnalyzeRequest{RepoURL: repoURL, Branch: branch})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	return a.Analyze(ctx, job, func(ev session.Event) error {
		return enc.Encode(ev)
	})
}
