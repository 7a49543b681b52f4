package app

import (
	"compgraph/internal/core/errors"
	"compgraph/internal/core/ports"
	"regexp"
	"strings"
)

var (
	repoURLRe = regexp.MustCompile(`^(?:(?:https?://)?(?:www\.)?github\.com/|git@github\.com:)([A-Za-z0-9](?:[A-Za-z0-9-]{0,38}))/([A-Za-z0-9._-]+?)(?:\.git)?(/[^?#]*)?(?:[?#].*)?$`)
	branchRe  = regexp.MustCompile(`^[^\s~^:?*\[\\]+$`)
)

// ParseRepoURL extracts owner and repository name from a GitHub URL. It
// accepts https, scheme-less and SSH forms, an optional ".git" suffix and
// trailing paths. A "/tree/<branch>" path yields that branch.
func ParseRepoURL(raw string) (ports.Repository, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ports.Repository{}, errors.New(errors.CodeValidationError, "repoUrl is required")
	}

	m := repoURLRe.FindStringSubmatch(raw)
	if m == nil || m[2] == "." || m[2] == ".." {
		err := errors.New(errors.CodeValidationError, "repoUrl must look like https://github.com/<owner>/<repo>")
		return ports.Repository{}, errors.AddContext(err, "repoUrl", raw)
	}

	repo := ports.Repository{Owner: m[1], Name: m[2]}
	if rest := strings.TrimPrefix(m[3], "/"); strings.HasPrefix(rest, "tree/") {
		repo.Branch = strings.TrimSuffix(strings.TrimPrefix(rest, "tree/"), "/")
	}
	return repo, nil
}

// ValidateBranch rejects names git would not accept as a ref.
func ValidateBranch(branch string) error {
	if !branchRe.MatchString(branch) || strings.Contains(branch, "..") ||
		strings.HasPrefix(branch, "/") || strings.HasSuffix(branch, "/") {
		err := errors.New(errors.CodeValidationError, "invalid branch name")
		return errors.AddContext(err, "branch", branch)
	}
	return nil
}
