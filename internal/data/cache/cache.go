// Package cache keeps completed analysis results so a repeat request for the
// same repository and branch can be answered without running a session.
package cache

import (
	"strings"
	"time"

	"compgraph/internal/engine/component"
	"compgraph/internal/shared/observability"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Entry is a completed session result.
type Entry struct {
	Files         []component.RepositoryFile
	Components    []component.ComponentMetadata
	TotalFiles    int
	AnalyzedFiles int
	StoredAt      time.Time
}

func (e Entry) clone() Entry {
	out := e
	out.Files = append([]component.RepositoryFile{}, e.Files...)
	out.Components = make([]component.ComponentMetadata, len(e.Components))
	for i, c := range e.Components {
		out.Components[i] = c.Clone()
	}
	return out
}

// Key builds the cache key for a repository ("owner/name") and branch.
// Owner and name compare case-insensitively, branches do not.
func Key(repo, branch string) string {
	return strings.ToLower(strings.TrimSpace(repo)) + "@" + strings.TrimSpace(branch)
}

// ResultCache is a size-bounded LRU whose entries expire after a TTL.
type ResultCache struct {
	lru *expirable.LRU[string, Entry]
}

// New creates a cache holding at most size entries for ttl each. A
// non-positive ttl keeps entries until evicted by size.
func New(size int, ttl time.Duration) *ResultCache {
	if size <= 0 {
		size = 1
	}
	return &ResultCache{lru: expirable.NewLRU[string, Entry](size, nil, ttl)}
}

// Get returns a copy of the entry stored under key.
func (c *ResultCache) Get(key string) (Entry, bool) {
	if c == nil {
		return Entry{}, false
	}
	e, ok := c.lru.Get(key)
	if !ok {
		observability.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return Entry{}, false
	}
	observability.CacheLookupsTotal.WithLabelValues("hit").Inc()
	return e.clone(), true
}

// Put stores a copy of e under key.
func (c *ResultCache) Put(key string, e Entry) {
	if c == nil {
		return
	}
	if e.StoredAt.IsZero() {
		e.StoredAt = time.Now().UTC()
	}
	c.lru.Add(key, e.clone())
}

// Invalidate drops key and reports whether it was present.
func (c *ResultCache) Invalidate(key string) bool {
	if c == nil {
		return false
	}
	return c.lru.Remove(key)
}

func (c *ResultCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
