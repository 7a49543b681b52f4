package history

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestStore_OpenInitializesSchemaAndSaveList(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)
	first := Run{
		ID:            "run-1",
		Repo:          "vercel/next.js",
		Branch:        "canary",
		StartedAt:     base,
		Duration:      1500 * time.Millisecond,
		Status:        StatusComplete,
		TotalFiles:    10,
		AnalyzedFiles: 8,
		SkippedFiles:  2,
		Counts:        TypeCounts{Pages: 2, Components: 5, Hooks: 1},
	}
	second := Run{
		ID:        "run-2",
		Repo:      "vercel/next.js",
		Branch:    "canary",
		StartedAt: base.Add(time.Hour),
		Status:    StatusFailed,
		Error:     "tree fetch failed",
	}

	if _, err := store.SaveRun(ctx, first); err != nil {
		t.Fatalf("save first run: %v", err)
	}
	if _, err := store.SaveRun(ctx, second); err != nil {
		t.Fatalf("save second run: %v", err)
	}

	got, err := store.ListRuns(ctx, "vercel/next.js", 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(got))
	}
	if got[0].ID != "run-2" || got[1].ID != "run-1" {
		t.Fatalf("expected newest first, got %s then %s", got[0].ID, got[1].ID)
	}
	if got[0].Error != "tree fetch failed" || got[0].Status != StatusFailed {
		t.Fatalf("unexpected failed run: %+v", got[0])
	}
	if got[1].Counts.Total() != 8 || got[1].Duration != 1500*time.Millisecond {
		t.Fatalf("expected counts and duration to roundtrip, got %+v", got[1])
	}
	if !got[1].StartedAt.Equal(base) {
		t.Fatalf("expected started_at %v, got %v", base, got[1].StartedAt)
	}
}

func TestStore_SaveRunUpsertsByID(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	saved, err := store.SaveRun(ctx, Run{Repo: "a/b", Branch: "main", AnalyzedFiles: 1})
	if err != nil {
		t.Fatal(err)
	}
	if saved.ID == "" || saved.StartedAt.IsZero() || saved.Status != StatusComplete {
		t.Fatalf("expected generated defaults, got %+v", saved)
	}

	saved.AnalyzedFiles = 7
	if _, err := store.SaveRun(ctx, saved); err != nil {
		t.Fatal(err)
	}

	rows, err := store.ListRuns(ctx, "a/b", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].AnalyzedFiles != 7 {
		t.Fatalf("expected a single upserted row, got %+v", rows)
	}
}

func TestStore_ListRunsRepoIsolationAndLimit(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if _, err := store.SaveRun(ctx, Run{Repo: "a/one", Branch: "main", StartedAt: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := store.SaveRun(ctx, Run{Repo: "b/two", Branch: "main", StartedAt: base, Cached: true}); err != nil {
		t.Fatal(err)
	}

	limited, err := store.ListRuns(ctx, "a/one", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(limited))
	}

	other, err := store.ListRuns(ctx, "b/two", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 1 || !other[0].Cached {
		t.Fatalf("unexpected b/two rows: %+v", other)
	}

	all, err := store.ListRuns(ctx, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 rows across repos, got %d", len(all))
	}
}

func TestStore_SaveRunRequiresRepo(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := store.SaveRun(context.Background(), Run{Repo: "  "}); err == nil {
		t.Fatal("expected error for empty repo")
	}
}

func TestStore_OpenRejectsDirectoryPath(t *testing.T) {
	_, err := Open(t.TempDir())
	if err == nil {
		t.Fatal("expected open error for directory path")
	}
	if !strings.Contains(err.Error(), "is a directory") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStore_OpenCorruptDBPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	if err := os.WriteFile(path, []byte("this is not sqlite"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(path)
	if err == nil {
		t.Fatal("expected sqlite open error")
	}
	lower := strings.ToLower(err.Error())
	if !strings.Contains(lower, "not a database") && !strings.Contains(lower, "schema") {
		t.Fatalf("expected schema/open error, got: %v", err)
	}
}

func TestEnsureSchema_DetectsNewerVersionDrift(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := store.db.Exec(`INSERT OR REPLACE INTO schema_migrations(version) VALUES (?)`, SchemaVersion+1); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open(driverName, "file:"+path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	err = EnsureSchema(context.Background(), db)
	if err == nil {
		t.Fatal("expected drift error")
	}
	if !strings.Contains(err.Error(), "newer than supported") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnsureSchema_IsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := EnsureSchema(context.Background(), store.db); err != nil {
		t.Fatalf("second migration pass failed: %v", err)
	}
	var applied int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&applied); err != nil {
		t.Fatal(err)
	}
	if applied != SchemaVersion {
		t.Fatalf("expected %d recorded migrations, got %d", SchemaVersion, applied)
	}
	store.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen existing store: %v", err)
	}
	reopened.Close()
}

func TestClampLimit(t *testing.T) {
	cases := map[int]int{
		-1:           DefaultLimit,
		0:            DefaultLimit,
		7:            7,
		MaxLimit:     MaxLimit,
		MaxLimit + 1: MaxLimit,
	}
	for in, want := range cases {
		if got := clampLimit(in); got != want {
			t.Errorf("clampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestRetryLocked(t *testing.T) {
	calls := 0
	err := retryLocked(context.Background(), "op", func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked (5) (SQLITE_BUSY)")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("expected success on third attempt, got err=%v calls=%d", err, calls)
	}

	calls = 0
	err = retryLocked(context.Background(), "op", func() error {
		calls++
		return errors.New("no such table: analyses")
	})
	if err == nil || calls != 1 {
		t.Fatalf("non-lock errors must not be retried, got err=%v calls=%d", err, calls)
	}
	if !strings.HasPrefix(err.Error(), "op: ") {
		t.Fatalf("expected op prefix, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = retryLocked(ctx, "op", func() error { return errors.New("database is locked") })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestIsCorruptError(t *testing.T) {
	if !IsCorruptError(errors.New("database disk image is malformed")) {
		t.Fatal("expected malformed sqlite message to be treated as corrupt")
	}
	if IsCorruptError(nil) {
		t.Fatal("nil is not corrupt")
	}
}
