package app

import (
	"compgraph/internal/core/config"
	"compgraph/internal/core/errors"
	"compgraph/internal/core/ports"
	"compgraph/internal/data/cache"
	"compgraph/internal/data/history"
	"compgraph/internal/engine/component"
	"compgraph/internal/engine/session"
	"compgraph/internal/shared/observability"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const historyWriteTimeout = 5 * time.Second

// Dependencies are the collaborators App drives. Cache and History may be nil.
type Dependencies struct {
	Source  ports.RepositorySource
	Cache   ports.ResultCache
	History ports.HistoryStore
	Logger  *slog.Logger
}

// AnalyzeRequest is the inbound analysis trigger.
type AnalyzeRequest struct {
	RepoURL string `json:"repoUrl"`
	Branch  string `json:"branch,omitempty"`
	NoCache bool   `json:"noCache,omitempty"`
}

// Job is a validated request ready to run.
type Job struct {
	ID         string
	Repository ports.Repository
	NoCache    bool
}

// settings is the slice of config a new session reads; it is swapped
// atomically on reload and never mutated in place.
type settings struct {
	defaultBranch string
	cacheEnabled  bool
	opts          session.Options
}

type App struct {
	source  ports.RepositorySource
	cache   ports.ResultCache
	history ports.HistoryStore
	logger  *slog.Logger

	mu       sync.RWMutex
	settings settings
}

func New(cfg *config.Config, deps Dependencies) (*App, error) {
	if deps.Source == nil {
		return nil, fmt.Errorf("repository source is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	a := &App{
		source:  deps.Source,
		cache:   deps.Cache,
		history: deps.History,
		logger:  deps.Logger,
	}
	if err := a.ApplyConfig(cfg); err != nil {
		return nil, err
	}
	return a, nil
}

// ApplyConfig swaps the analysis settings used by sessions started afterwards.
// Running sessions keep the settings they started with.
func (a *App) ApplyConfig(cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	ex, err := component.NewExclusions(cfg.Analysis.ExcludeGlobs)
	if err != nil {
		return errors.Wrap(err, errors.CodeValidationError, "compile analysis.exclude_globs")
	}

	next := settings{
		defaultBranch: cfg.Analysis.DefaultBranch,
		cacheEnabled:  cfg.Cache.IsEnabled() && a.cache != nil,
		opts: session.Options{
			MaxFiles:       cfg.Analysis.MaxFiles,
			Exclusions:     ex,
			IncludeContent: cfg.Analysis.IncludeContent,
		},
	}

	a.mu.Lock()
	a.settings = next
	a.mu.Unlock()
	return nil
}

func (a *App) current() settings {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.settings
}

// Prepare validates req and resolves the branch. It is called before any
// streaming so validation failures can be answered synchronously.
func (a *App) Prepare(req AnalyzeRequest) (Job, error) {
	repo, err := ParseRepoURL(req.RepoURL)
	if err != nil {
		return Job{}, err
	}
	if b := strings.TrimSpace(req.Branch); b != "" {
		repo.Branch = b
	}
	if repo.Branch == "" {
		repo.Branch = a.current().defaultBranch
	}
	if err := ValidateBranch(repo.Branch); err != nil {
		return Job{}, err
	}
	return Job{ID: uuid.NewString(), Repository: repo, NoCache: req.NoCache}, nil
}

// Analyze runs job, replaying a cached result when one exists. Events reach
// emit in session order. The returned error is the session's error; a
// consumer that went away yields a session.DeliveryError.
func (a *App) Analyze(ctx context.Context, job Job, emit func(session.Event) error) error {
	s := a.current()
	repo := job.Repository
	ctx, span := observability.Tracer.Start(ctx, "app.Analyze", trace.WithAttributes(
		attribute.String("session.id", job.ID),
		attribute.String("repo", repo.Key()),
		attribute.String("branch", repo.Branch),
	))
	defer span.End()

	key := cache.Key(repo.Key(), repo.Branch)
	if s.cacheEnabled && !job.NoCache {
		if entry, ok := a.cache.Get(key); ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return a.replay(ctx, job, entry, emit)
		}
	}

	started := time.Now().UTC()
	ctrl := session.NewController(a.source, s.opts, a.logger)
	res, err := ctrl.Run(ctx, session.Request{ID: job.ID, Repository: repo}, emit)

	switch {
	case !s.cacheEnabled:
	case err == nil:
		a.cache.Put(key, cache.Entry{
			Files:         res.Files,
			Components:    res.Components,
			TotalFiles:    res.Candidates,
			AnalyzedFiles: len(res.Components),
		})
	case !session.IsDeliveryFailure(err):
		// the branch can no longer be read; stop replaying what it used to hold
		if a.cache.Invalidate(key) {
			a.logger.Info("dropped cached analysis after failed refresh", "session", job.ID, "repo", repo.Key(), "branch", repo.Branch)
		}
	}

	run := history.Run{
		ID:            job.ID,
		Repo:          historyKey(repo.Key()),
		Branch:        repo.Branch,
		StartedAt:     started,
		Duration:      res.Duration,
		Status:        session.Outcome(err),
		TotalFiles:    res.Candidates,
		AnalyzedFiles: len(res.Components),
		SkippedFiles:  len(res.Skipped),
		Counts:        typeCounts(res.Components),
	}
	if err != nil && !session.IsDeliveryFailure(err) {
		run.Error = errors.Message(err)
	}
	a.record(ctx, run)
	return err
}

func (a *App) replay(ctx context.Context, job Job, entry cache.Entry, emit func(session.Event) error) error {
	repo := job.Repository
	events := []session.Event{
		session.NewStatus(fmt.Sprintf("Loaded cached analysis for %s", repo)),
		session.NewFiles(entry.Files),
		session.NewComplete(entry.Components, entry.TotalFiles, entry.AnalyzedFiles),
	}
	for _, ev := range events {
		if err := emit(ev); err != nil {
			return &session.DeliveryError{Err: err}
		}
	}
	observability.SessionsTotal.WithLabelValues("cached").Inc()
	a.logger.Info("served cached analysis", "session", job.ID, "repo", repo.Key(), "branch", repo.Branch, "stored_at", entry.StoredAt)

	a.record(ctx, history.Run{
		ID:            job.ID,
		Repo:          historyKey(repo.Key()),
		Branch:        repo.Branch,
		StartedAt:     time.Now().UTC(),
		Status:        history.StatusComplete,
		Cached:        true,
		TotalFiles:    entry.TotalFiles,
		AnalyzedFiles: entry.AnalyzedFiles,
		Counts:        typeCounts(entry.Components),
	})
	return nil
}

func (a *App) record(ctx context.Context, run history.Run) {
	if a.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyWriteTimeout)
	defer cancel()
	if _, err := a.history.SaveRun(ctx, run); err != nil {
		a.logger.Warn("failed to record analysis history", "session", run.ID, "repo", run.Repo, "error", err)
		return
	}
	a.logger.Debug("recorded analysis", "session", run.ID, "status", run.Status, "components", run.Counts.Total())
}

// HistoryEnabled reports whether runs are being recorded.
func (a *App) HistoryEnabled() bool {
	return a.history != nil
}

// History lists recorded runs, newest first. repo may be "owner/name", a
// GitHub URL, or empty for every repository.
func (a *App) History(ctx context.Context, repo string, limit int) ([]history.Run, error) {
	if a.history == nil {
		return nil, errors.New(errors.CodeNotFound, "history is disabled")
	}
	repo = strings.TrimSpace(repo)
	if strings.Contains(repo, "github.com") {
		r, err := ParseRepoURL(repo)
		if err != nil {
			return nil, err
		}
		repo = r.Key()
	}
	runs, err := a.history.ListRuns(ctx, historyKey(repo), limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "list history")
	}
	return runs, nil
}

func historyKey(repo string) string {
	return strings.ToLower(repo)
}

func typeCounts(components []component.ComponentMetadata) history.TypeCounts {
	counts := component.CountByType(components)
	return history.TypeCounts{
		Pages:      counts[component.TypePage],
		Layouts:    counts[component.TypeLayout],
		Components: counts[component.TypeComponent],
		Hooks:      counts[component.TypeHook],
		Utilities:  counts[component.TypeUtility],
		Contexts:   counts[component.TypeContext],
	}
}
