package history

import (
	"context"
	"database/sql"
	"fmt"
)

// Each step runs in its own transaction together with its version row.
var migrations = map[int]string{
	1: `
CREATE TABLE IF NOT EXISTS analyses (
  id TEXT PRIMARY KEY,
  repo TEXT NOT NULL,
  branch TEXT NOT NULL,
  started_at_utc TEXT NOT NULL,
  duration_ms INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL,
  error TEXT NOT NULL DEFAULT '',
  cached INTEGER NOT NULL DEFAULT 0,
  total_files INTEGER NOT NULL DEFAULT 0,
  analyzed_files INTEGER NOT NULL DEFAULT 0,
  skipped_files INTEGER NOT NULL DEFAULT 0,
  page_count INTEGER NOT NULL DEFAULT 0,
  layout_count INTEGER NOT NULL DEFAULT 0,
  component_count INTEGER NOT NULL DEFAULT 0,
  hook_count INTEGER NOT NULL DEFAULT 0,
  utility_count INTEGER NOT NULL DEFAULT 0,
  context_count INTEGER NOT NULL DEFAULT 0,
  created_at_utc TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
);
CREATE INDEX IF NOT EXISTS idx_analyses_repo_started ON analyses(repo, started_at_utc);
`,
}

// EnsureSchema brings db up to SchemaVersion. A database written by a newer
// build is refused rather than downgraded.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	const bookkeeping = `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at_utc TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
);`
	if _, err := db.ExecContext(ctx, bookkeeping); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	row := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`)
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if current > SchemaVersion {
		return fmt.Errorf("history schema version %d is newer than supported version %d", current, SchemaVersion)
	}

	for v := current + 1; v <= SchemaVersion; v++ {
		stmt, ok := migrations[v]
		if !ok {
			return fmt.Errorf("missing history migration %d", v)
		}
		if err := migrate(ctx, db, v, stmt); err != nil {
			return err
		}
	}
	return nil
}

func migrate(ctx context.Context, db *sql.DB, version int, stmt string) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history migration %d: %w", version, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("apply history migration %d: %w", version, err)
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO schema_migrations(version) VALUES (?)`, version); err != nil {
		return fmt.Errorf("record history migration %d: %w", version, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit history migration %d: %w", version, err)
	}
	return nil
}
