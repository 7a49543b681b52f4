package history

import (
	"compgraph/internal/shared/util"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName   = "sqlite"
	DefaultLimit = 20
	MaxLimit     = 500

	openTimeout  = 10 * time.Second
	lockAttempts = 5
	lockBackoff  = 25 * time.Millisecond
)

const runColumns = `id, repo, branch, started_at_utc, duration_ms, status, error, cached,
  total_files, analyzed_files, skipped_files,
  page_count, layout_count, component_count, hook_count, utility_count, context_count`

// Store persists analysis runs in a single sqlite file. Writes are serialized
// through one connection.
type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

// Open creates the file and its parent directory if needed and migrates the
// schema.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history path must not be empty")
	}
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", path)
	}
	if err := util.EnsureParentDir(path); err != nil {
		return nil, fmt.Errorf("create history directory for %q: %w", path, err)
	}

	db, err := sql.Open(driverName, "file:"+path+"?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open history %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping history %q: %w", path, err)
	}
	if err := EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate history schema %q: %w", path, err)
	}
	return &Store{path: path, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// SaveRun inserts run, or replaces the row with the same ID. A missing ID is
// generated, a zero StartedAt becomes now and an empty Status means complete.
func (s *Store) SaveRun(ctx context.Context, run Run) (Run, error) {
	run.Repo = strings.TrimSpace(run.Repo)
	if run.Repo == "" {
		return run, errors.New("run repo must not be empty")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = StatusComplete
	}

	stmt := `INSERT OR REPLACE INTO analyses (` + runColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	args := []any{
		run.ID, run.Repo, run.Branch,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.Duration.Milliseconds(),
		run.Status, run.Error, run.Cached,
		run.TotalFiles, run.AnalyzedFiles, run.SkippedFiles,
		run.Counts.Pages, run.Counts.Layouts, run.Counts.Components,
		run.Counts.Hooks, run.Counts.Utilities, run.Counts.Contexts,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err := retryLocked(ctx, "save run", func() error {
		_, err := s.db.ExecContext(ctx, stmt, args...)
		return err
	})
	return run, err
}

// ListRuns returns the most recent runs, newest first. An empty repo lists
// every repository. limit 0 means DefaultLimit and anything above MaxLimit is
// clamped.
func (s *Store) ListRuns(ctx context.Context, repo string, limit int) ([]Run, error) {
	limit = clampLimit(limit)

	var (
		where string
		args  []any
	)
	if repo = strings.TrimSpace(repo); repo != "" {
		where = "WHERE repo = ?"
		args = append(args, repo)
	}
	args = append(args, limit)
	query := fmt.Sprintf("SELECT %s FROM analyses %s ORDER BY started_at_utc DESC, id ASC LIMIT ?", runColumns, where)

	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := retryLocked(ctx, "list runs", func() (err error) {
		rows, err = s.db.QueryContext(ctx, query, args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}

func scanRun(rows *sql.Rows) (Run, error) {
	var (
		run     Run
		started string
		ms      int64
	)
	err := rows.Scan(
		&run.ID, &run.Repo, &run.Branch, &started, &ms,
		&run.Status, &run.Error, &run.Cached,
		&run.TotalFiles, &run.AnalyzedFiles, &run.SkippedFiles,
		&run.Counts.Pages, &run.Counts.Layouts, &run.Counts.Components,
		&run.Counts.Hooks, &run.Counts.Utilities, &run.Counts.Contexts,
	)
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return Run{}, fmt.Errorf("parse started_at %q: %w", started, err)
	}
	run.StartedAt = ts.UTC()
	run.Duration = time.Duration(ms) * time.Millisecond
	return run, nil
}

// retryLocked re-runs fn while sqlite reports a lock, backing off linearly.
func retryLocked(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= lockAttempts; attempt++ {
		if err = fn(); err == nil || !isLockError(err) {
			break
		}
		if attempt == lockAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(time.Duration(attempt) * lockBackoff):
		}
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func isLockError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "sqlite_busy")
}

// IsCorruptError reports whether err looks like an unreadable database file.
func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database")
}
