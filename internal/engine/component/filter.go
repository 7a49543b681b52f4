package component

import (
	"path"
	"sort"
	"strings"

	"compgraph/internal/shared/util"

	"github.com/gobwas/glob"
)

// DefaultMaxFiles bounds how many candidates a session extracts.
const DefaultMaxFiles = 100

// ExcludedDirs are path segments whose subtrees are never listed or analyzed.
var ExcludedDirs = []string{"node_modules", ".next", "dist", "build"}

var candidateExtensions = map[string]bool{
	".tsx": true,
	".jsx": true,
	".ts":  true,
	".js":  true,
}

// Exclusions decides whether a path is dropped from the listing. It always
// applies ExcludedDirs and optionally a set of extra glob patterns.
type Exclusions struct {
	patterns []string
	globs    []glob.Glob
}

// NewExclusions compiles extra '/'-separated glob patterns.
func NewExclusions(patterns []string) (*Exclusions, error) {
	ex := &Exclusions{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, err
		}
		ex.patterns = append(ex.patterns, p)
		ex.globs = append(ex.globs, g)
	}
	return ex, nil
}

// Excluded reports whether p is a build artifact or matches an extra pattern.
func (e *Exclusions) Excluded(p string) bool {
	if util.HasSegment(p, ExcludedDirs...) {
		return true
	}
	if e == nil {
		return false
	}
	norm := util.NormalizePatternPath(p)
	for _, g := range e.globs {
		if g.Match(norm) {
			return true
		}
	}
	return false
}

// FilterTree returns the navigable listing: every entry not excluded, in input order.
func FilterTree(files []RepositoryFile, ex *Exclusions) []RepositoryFile {
	out := make([]RepositoryFile, 0, len(files))
	for _, f := range files {
		if ex.Excluded(f.Path) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// IsCandidate reports whether f is a source blob worth classifying.
func IsCandidate(f RepositoryFile, ex *Exclusions) bool {
	if f.Kind != KindBlob {
		return false
	}
	if !candidateExtensions[strings.ToLower(path.Ext(f.Path))] {
		return false
	}
	return !ex.Excluded(f.Path)
}

// Candidates selects source blobs, orders them by Rank (stable for ties) and
// truncates to max. A non-positive max means DefaultMaxFiles.
func Candidates(files []RepositoryFile, ex *Exclusions, max int) []RepositoryFile {
	if max <= 0 {
		max = DefaultMaxFiles
	}
	out := make([]RepositoryFile, 0, len(files))
	for _, f := range files {
		if IsCandidate(f, ex) {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return Rank(out[i].Path) < Rank(out[j].Path)
	})
	if len(out) > max {
		out = out[:max]
	}
	return out
}

// Rank orders candidate paths; lower ranks are extracted first. The first
// matching rule wins.
func Rank(p string) int {
	p = util.NormalizePatternPath(p)
	switch {
	case isAppRouterPage(p):
		return 0
	case isLegacyRouterPage(p):
		return 1
	case isAppRouterLayout(p):
		return 2
	case isBootstrapFile(p):
		return 3
	case isAppRouterSpecial(p):
		return 4
	case util.HasSegment(p, "components"):
		return 5
	case util.HasSegment(p, "hooks"):
		return 6
	case util.HasSegment(p, "context", "contexts"):
		return 7
	case util.HasSegment(p, "lib", "utils"):
		return 8
	case IsConfigFile(p):
		return 9
	default:
		return 10
	}
}
