package util

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizePatternPath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Empty", input: "", expected: ""},
		{name: "Dot", input: ".", expected: ""},
		{name: "Trim", input: "  ./foo/bar  ", expected: "foo/bar"},
		{name: "Relative", input: "foo/../bar", expected: "bar"},
		{name: "Backslashes", input: `src\app\page.tsx`, expected: "src/app/page.tsx"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizePatternPath(tc.input); got != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestHasSegment(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		path     string
		expected bool
	}{
		{name: "NodeModules", path: "node_modules/react/index.js", expected: true},
		{name: "NestedDist", path: "packages/ui/dist/index.js", expected: true},
		{name: "NextDir", path: ".next/server/page.js", expected: true},
		{name: "BuildPrefixOnly", path: "src/builder/Tool.tsx", expected: false},
		{name: "FilenameOnly", path: "src/build.ts", expected: false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := HasSegment(tc.path, "node_modules", ".next", "dist", "build"); got != tc.expected {
				t.Fatalf("expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestStem(t *testing.T) {
	t.Parallel()
	if got := Stem("app/components/Card.tsx"); got != "Card" {
		t.Fatalf("expected Card, got %q", got)
	}
	if got := Stem("next.config.js"); got != "next.config" {
		t.Fatalf("expected next.config, got %q", got)
	}
	if got := Stem(""); got != "" {
		t.Fatalf("expected empty stem, got %q", got)
	}
}

func TestGetClientIP(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("POST", "/api/analyze", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	if got := GetClientIP(r); got != "10.0.0.1" {
		t.Fatalf("expected remote host, got %q", got)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := GetClientIP(r); got != "203.0.113.9" {
		t.Fatalf("expected forwarded address, got %q", got)
	}
}

func TestEnsureParentDir(t *testing.T) {
	t.Parallel()

	target := filepath.Join(t.TempDir(), "nested", "dir", "history.db")
	if err := EnsureParentDir(target); err != nil {
		t.Fatalf("EnsureParentDir failed: %v", err)
	}
	info, err := os.Stat(filepath.Dir(target))
	if err != nil || !info.IsDir() {
		t.Fatalf("expected parent dir to exist, err=%v", err)
	}
}
