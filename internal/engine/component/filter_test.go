package component

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blob(p string) RepositoryFile {
	return RepositoryFile{Path: p, Kind: KindBlob, URL: "https://example.test/" + p}
}

func paths(files []RepositoryFile) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Path)
	}
	return out
}

func TestRank(t *testing.T) {
	cases := []struct {
		path string
		rank int
	}{
		{"app/dashboard/page.tsx", 0},
		{"src/app/page.tsx", 0},
		{"pages/about.tsx", 1},
		{"pages/blog/[slug].tsx", 1},
		{"src/pages/index.tsx", 1},
		{"src/components/pages/Hero.tsx", 5},
		{"apps/web/pages/about.tsx", 10},
		{"src/pages/api/users.ts", 10},
		{"app/layout.tsx", 2},
		{"pages/_app.tsx", 3},
		{"pages/_document.tsx", 3},
		{"src/App.tsx", 3},
		{"app/loading.tsx", 4},
		{"app/settings/not-found.tsx", 4},
		{"src/components/Button.tsx", 5},
		{"src/hooks/useAuth.ts", 6},
		{"src/context/ThemeContext.tsx", 7},
		{"src/lib/fetcher.ts", 8},
		{"src/utils/format.ts", 8},
		{"next.config.js", 9},
		{"src/features/Widget.tsx", 10},
		{"pages/api/hello.ts", 10},
	}

	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.rank, Rank(tc.path))
		})
	}
}

func TestFilterTreeExcludesBuildArtifacts(t *testing.T) {
	files := []RepositoryFile{
		blob("src/components/Button.tsx"),
		{Path: "node_modules", Kind: KindTree},
		blob("node_modules/react/index.js"),
		blob(".next/server/app/page.js"),
		blob("dist/bundle.js"),
		blob("packages/ui/build/index.js"),
		{Path: "src/builder", Kind: KindTree},
		blob("src/builder/Tool.tsx"),
		blob("README.md"),
	}

	got := FilterTree(files, nil)
	assert.Equal(t, []string{
		"src/components/Button.tsx",
		"src/builder",
		"src/builder/Tool.tsx",
		"README.md",
	}, paths(got))

	for _, f := range got {
		for _, dir := range ExcludedDirs {
			assert.NotContains(t, strings.Split(f.Path, "/"), dir)
		}
	}
}

func TestExclusionsGlobs(t *testing.T) {
	ex, err := NewExclusions([]string{"**/*.stories.tsx", "examples/**", "  "})
	require.NoError(t, err)

	assert.True(t, ex.Excluded("src/components/Button.stories.tsx"))
	assert.True(t, ex.Excluded("examples/basic/page.tsx"))
	assert.True(t, ex.Excluded("dist/index.js"))
	assert.False(t, ex.Excluded("src/components/Button.tsx"))

	_, err = NewExclusions([]string{"["})
	assert.Error(t, err)
}

func TestCandidatesOrderingAndExtensions(t *testing.T) {
	files := []RepositoryFile{
		blob("src/features/Widget.tsx"),
		blob("src/utils/format.ts"),
		blob("src/components/Card.tsx"),
		blob("styles/globals.css"),
		blob("app/layout.tsx"),
		{Path: "app", Kind: KindTree},
		blob("src/components/Button.jsx"),
		blob("app/page.tsx"),
		blob("node_modules/lib/index.js"),
		blob("scripts/seed.py"),
	}

	got := Candidates(files, nil, 0)
	assert.Equal(t, []string{
		"app/page.tsx",
		"app/layout.tsx",
		"src/components/Card.tsx",
		"src/components/Button.jsx",
		"src/utils/format.ts",
		"src/features/Widget.tsx",
	}, paths(got))

	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, Rank(got[i-1].Path), Rank(got[i].Path))
	}
}

func TestCandidatesCap(t *testing.T) {
	var files []RepositoryFile
	for i := 0; i < 150; i++ {
		files = append(files, blob(fmt.Sprintf("src/features/F%03d.tsx", i)))
	}
	files = append(files, blob("app/page.tsx"))

	got := Candidates(files, nil, 0)
	require.Len(t, got, DefaultMaxFiles)
	assert.Equal(t, "app/page.tsx", got[0].Path, "higher priority files survive truncation")
	assert.Equal(t, "src/features/F000.tsx", got[1].Path, "ties keep listing order")

	assert.Len(t, FilterTree(files, nil), 151, "tree listing keeps files beyond the cap")
	assert.Len(t, Candidates(files, nil, 10), 10)
}
