package util

import (
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// NormalizePatternPath cleans and normalizes paths for matcher/pattern usage.
func NormalizePatternPath(s string) string {
	trimmed := strings.TrimSpace(strings.ReplaceAll(s, "\\", "/"))
	clean := path.Clean(trimmed)
	if clean == "." {
		return ""
	}
	return strings.TrimPrefix(clean, "./")
}

// PathSegments splits a repository path into its non-empty segments.
func PathSegments(p string) []string {
	p = NormalizePatternPath(p)
	if p == "" {
		return nil
	}
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// HasSegment returns true when any path segment equals one of names exactly.
func HasSegment(p string, names ...string) bool {
	for _, seg := range PathSegments(p) {
		for _, name := range names {
			if seg == name {
				return true
			}
		}
	}
	return false
}

// Stem returns the final path element without its last extension.
func Stem(p string) string {
	base := path.Base(NormalizePatternPath(p))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

// GetClientIP resolves the caller address, preferring proxy headers.
func GetClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return first
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// EnsureParentDir creates the parent directory of path (0755) when missing.
func EnsureParentDir(p string) error {
	dir := filepath.Dir(p)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
