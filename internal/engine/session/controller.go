// Package session runs one repository analysis as a sequential pipeline and
// reports it as an ordered stream of events.
package session

import (
	domainerrors "compgraph/internal/core/errors"
	"compgraph/internal/core/ports"
	"compgraph/internal/engine/component"
	"compgraph/internal/shared/observability"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Session outcomes, used as metric labels and history status.
const (
	OutcomeComplete  = "complete"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// Reasons a candidate file produced no component.
const (
	SkipFetch      = "fetch"
	SkipIneligible = "ineligible"
	SkipExtract    = "extract"
)

type Options struct {
	MaxFiles       int
	Exclusions     *component.Exclusions
	IncludeContent bool
}

type Request struct {
	ID         string
	Repository ports.Repository
}

type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// Result summarizes a finished or abandoned session.
type Result struct {
	ID         string
	State      State
	Files      []component.RepositoryFile
	Candidates int
	Components []component.ComponentMetadata
	Skipped    []SkippedFile
	Duration   time.Duration
}

// DeliveryError means the consumer stopped accepting events.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string { return "event delivery: " + e.Err.Error() }
func (e *DeliveryError) Unwrap() error { return e.Err }

// IsDeliveryFailure reports whether err ended a session because the consumer went away.
func IsDeliveryFailure(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de)
}

// Outcome maps Run's error onto a session outcome.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeComplete
	case IsDeliveryFailure(err):
		return OutcomeCancelled
	default:
		return OutcomeFailed
	}
}

type Controller struct {
	source ports.RepositorySource
	opts   Options
	logger *slog.Logger
}

func NewController(source ports.RepositorySource, opts Options, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = component.DefaultMaxFiles
	}
	return &Controller{source: source, opts: opts, logger: logger}
}

// Run drives one session, handing every event to emit in order. Each file is
// fetched, extracted and emitted before the next one starts. An emit error
// stops the session without further writes and is returned as a
// *DeliveryError. A tree fetch failure emits a single error event and is
// returned as is. Per-file failures are only recorded in Result.Skipped.
func (c *Controller) Run(ctx context.Context, req Request, emit func(Event) error) (Result, error) {
	started := time.Now()
	repo := req.Repository
	ctx, span := observability.Tracer.Start(ctx, "session.Run", trace.WithAttributes(
		attribute.String("session.id", req.ID),
		attribute.String("repo", repo.Key()),
		attribute.String("branch", repo.Branch),
	))
	defer span.End()

	observability.ActiveSessions.Inc()
	defer observability.ActiveSessions.Dec()

	logger := c.logger.With("session", req.ID, "repo", repo.Key(), "branch", repo.Branch)
	m := &machine{state: StateInit}
	res := Result{ID: req.ID, State: StateInit}

	send := func(ev Event) error {
		if err := emit(ev); err != nil {
			return &DeliveryError{Err: err}
		}
		return nil
	}
	finish := func(err error) (Result, error) {
		outcome := Outcome(err)
		res.State = m.state
		res.Duration = time.Since(started)
		observability.SessionsTotal.WithLabelValues(outcome).Inc()
		observability.SessionDuration.Observe(res.Duration.Seconds())
		span.SetAttributes(attribute.String("outcome", outcome))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		if outcome == OutcomeCancelled {
			logger.Info("session abandoned by consumer", "state", m.state)
		}
		return res, err
	}

	if err := send(NewStatus(fmt.Sprintf("Fetching repository structure for %s...", repo))); err != nil {
		return finish(err)
	}

	m.to(StateFetchingTree)
	tree, err := c.source.FetchTree(ctx, repo.Owner, repo.Name, repo.Branch)
	if err != nil {
		m.to(StateFailed)
		if ctx.Err() != nil {
			return finish(&DeliveryError{Err: ctx.Err()})
		}
		logger.Warn("tree fetch failed", "error", err)
		if sendErr := send(NewError(domainerrors.Message(err))); sendErr != nil {
			logger.Debug("error event not delivered", "error", sendErr)
		}
		return finish(err)
	}

	m.to(StateStreamingFiles)
	res.Files = component.FilterTree(tree, c.opts.Exclusions)
	if err := send(NewFiles(res.Files)); err != nil {
		return finish(err)
	}

	candidates := component.Candidates(tree, c.opts.Exclusions, c.opts.MaxFiles)
	res.Candidates = len(candidates)
	logger.Debug("candidates selected", "tree", len(tree), "listed", len(res.Files), "candidates", len(candidates))
	if err := send(NewStatus(fmt.Sprintf("Found %d files to analyze", len(candidates)))); err != nil {
		return finish(err)
	}

	working := make([]component.ComponentMetadata, 0, len(candidates))
	for i, f := range candidates {
		if err := ctx.Err(); err != nil {
			return finish(&DeliveryError{Err: err})
		}
		if err := send(NewProgress(i+1, len(candidates), f.Path)); err != nil {
			return finish(err)
		}

		meta, skipped := c.processFile(ctx, logger, repo, f.Path)
		if skipped != nil {
			res.Skipped = append(res.Skipped, *skipped)
			continue
		}
		working = append(working, meta)
		if err := send(NewComponent(meta.Clone())); err != nil {
			return finish(err)
		}
	}

	m.to(StateBuildingRelationships)
	component.BuildRelationships(working)
	res.Components = working

	out := make([]component.ComponentMetadata, len(working))
	for i := range working {
		out[i] = working[i].Clone()
	}
	if err := send(NewComplete(out, len(candidates), len(working))); err != nil {
		return finish(err)
	}
	m.to(StateComplete)

	logger.Info("session complete",
		"components", len(working),
		"candidates", len(candidates),
		"skipped", len(res.Skipped),
		"duration", time.Since(started))
	return finish(nil)
}

func (c *Controller) processFile(ctx context.Context, logger *slog.Logger, repo ports.Repository, p string) (component.ComponentMetadata, *SkippedFile) {
	ctx, span := observability.Tracer.Start(ctx, "session.processFile", trace.WithAttributes(attribute.String("path", p)))
	defer span.End()

	content, err := c.source.FetchFileContent(ctx, repo.Owner, repo.Name, p, repo.Branch)
	if err != nil {
		logger.Warn("skipping file, content fetch failed", "path", p, "error", err)
		return skip(span, p, SkipFetch, err)
	}

	started := time.Now()
	meta, err := extractSafely(p, content)
	observability.ExtractionDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		if component.IsNotComponent(err) {
			logger.Debug("skipping file, not a component", "path", p)
			return skip(span, p, SkipIneligible, err)
		}
		logger.Warn("skipping file, extraction failed", "path", p, "error", err)
		return skip(span, p, SkipExtract, err)
	}

	if c.opts.IncludeContent {
		meta.Content = content
	}
	observability.FilesAnalyzedTotal.Inc()
	observability.ComponentsTotal.WithLabelValues(string(meta.Type)).Inc()
	span.SetAttributes(attribute.String("component.type", string(meta.Type)))
	return meta, nil
}

func skip(span trace.Span, p, reason string, err error) (component.ComponentMetadata, *SkippedFile) {
	observability.FilesSkippedTotal.WithLabelValues(reason).Inc()
	span.SetAttributes(attribute.String("skip.reason", reason))
	return component.ComponentMetadata{}, &SkippedFile{Path: p, Reason: reason, Err: err}
}

func extractSafely(p, content string) (meta component.ComponentMetadata, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domainerrors.Newf(domainerrors.CodeInternal, "extractor panic: %v", r)
			err = domainerrors.AddContext(err, domainerrors.CtxPath, p)
		}
	}()
	return component.Extract(p, content)
}

// RunFunc is a session body that reports its events through emit.
type RunFunc func(ctx context.Context, emit func(Event) error) error

// Stream runs fn in its own goroutine and delivers its events on an
// unbuffered channel that is closed when fn returns; fn's error then arrives
// on the second channel. The caller must cancel ctx if it stops reading, so
// the pending send fails and fn ends without touching the remaining files.
func Stream(ctx context.Context, fn RunFunc) (<-chan Event, <-chan error) {
	out := make(chan Event)
	done := make(chan error, 1)
	go func() {
		err := fn(ctx, ChannelEmitter(ctx, out))
		close(out)
		done <- err
	}()
	return out, done
}

// ChannelEmitter sends on out until ctx is done.
func ChannelEmitter(ctx context.Context, out chan<- Event) func(Event) error {
	return func(ev Event) error {
		select {
		case out <- ev:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
