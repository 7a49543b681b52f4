package ports

import (
	"context"

	"compgraph/internal/data/cache"
	"compgraph/internal/data/history"
	"compgraph/internal/engine/component"
)

// RepositorySource lists and reads files of a hosted repository. FetchTree
// failures end a session; FetchFileContent failures skip a single file.
type RepositorySource interface {
	FetchTree(ctx context.Context, owner, repo, branch string) ([]component.RepositoryFile, error)
	FetchFileContent(ctx context.Context, owner, repo, path, branch string) (string, error)
}

// ResultCache holds completed session results keyed by cache.Key.
type ResultCache interface {
	Get(key string) (cache.Entry, bool)
	Put(key string, entry cache.Entry)
	Invalidate(key string) bool
}

// HistoryStore records finished sessions for the history endpoint.
type HistoryStore interface {
	SaveRun(ctx context.Context, run history.Run) (history.Run, error)
	ListRuns(ctx context.Context, repo string, limit int) ([]history.Run, error)
}

// Repository identifies one branch of a hosted repository.
type Repository struct {
	Owner  string
	Name   string
	Branch string
}

// Key returns "owner/name".
func (r Repository) Key() string {
	return r.Owner + "/" + r.Name
}

func (r Repository) String() string {
	return r.Key() + "@" + r.Branch
}
