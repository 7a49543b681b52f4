// Package github reads repository listings and file contents from GitHub.
package github

import (
	"compgraph/internal/core/config"
	domainerrors "compgraph/internal/core/errors"
	"compgraph/internal/core/ports"
	"compgraph/internal/engine/component"
	"compgraph/internal/shared/observability"
	"compgraph/internal/shared/util"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	opTree    = "tree"
	opContent = "content"

	apiVersion = "2022-11-28"
	userAgent  = "compgraph"

	// Bytes of an error body kept for the message.
	maxErrorBody = 4 << 10
)

type Client struct {
	apiBase      string
	rawBase      string
	token        string
	maxFileBytes int64
	http         *http.Client
	limiter      *util.Limiter
	logger       *slog.Logger
}

var _ ports.RepositorySource = (*Client)(nil)

func NewClient(cfg config.GitHub, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		apiBase:      strings.TrimRight(cfg.APIBaseURL, "/"),
		rawBase:      strings.TrimRight(cfg.RawBaseURL, "/"),
		token:        cfg.ResolveToken(),
		maxFileBytes: cfg.MaxFileBytes,
		http:         &http.Client{Timeout: cfg.Timeout},
		limiter:      util.NewLimiter(cfg.RequestsPerSecond, cfg.Burst),
		logger:       logger,
	}
}

type treeResponse struct {
	SHA       string      `json:"sha"`
	Tree      []treeEntry `json:"tree"`
	Truncated bool        `json:"truncated"`
}

type treeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

type apiError struct {
	Message string `json:"message"`
}

// FetchTree lists every entry of branch recursively. Submodule entries are dropped.
func (c *Client) FetchTree(ctx context.Context, owner, repo, branch string) ([]component.RepositoryFile, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1",
		c.apiBase, url.PathEscape(owner), url.PathEscape(repo), escapePath(branch))

	resp, err := c.get(ctx, opTree, u, true)
	if err != nil {
		return nil, withRepo(err, owner, repo)
	}
	defer resp.Body.Close()

	var body treeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		err = domainerrors.Wrap(err, domainerrors.CodeUpstream, "decode repository tree")
		return nil, withRepo(err, owner, repo)
	}
	if body.Truncated {
		c.logger.Warn("repository tree truncated by GitHub", "repo", owner+"/"+repo, "entries", len(body.Tree))
	}

	files := make([]component.RepositoryFile, 0, len(body.Tree))
	for _, e := range body.Tree {
		var kind component.FileKind
		switch e.Type {
		case "blob":
			kind = component.KindBlob
		case "tree":
			kind = component.KindTree
		default:
			continue
		}
		files = append(files, component.RepositoryFile{Path: e.Path, Kind: kind, URL: e.URL})
	}
	return files, nil
}

// FetchFileContent returns the raw text of one file. Files larger than the
// configured byte cap are rejected rather than truncated.
func (c *Client) FetchFileContent(ctx context.Context, owner, repo, path, branch string) (string, error) {
	u := fmt.Sprintf("%s/%s/%s/%s/%s",
		c.rawBase, url.PathEscape(owner), url.PathEscape(repo), escapePath(branch), escapePath(path))

	resp, err := c.get(ctx, opContent, u, false)
	if err != nil {
		return "", domainerrors.AddContext(withRepo(err, owner, repo), domainerrors.CtxPath, path)
	}
	defer resp.Body.Close()

	var r io.Reader = resp.Body
	if c.maxFileBytes > 0 {
		r = io.LimitReader(resp.Body, c.maxFileBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		err = domainerrors.Wrap(err, domainerrors.CodeUpstream, "read file content")
		return "", domainerrors.AddContext(err, domainerrors.CtxPath, path)
	}
	if c.maxFileBytes > 0 && int64(len(data)) > c.maxFileBytes {
		err := domainerrors.Newf(domainerrors.CodeNotSupported, "file exceeds %d bytes", c.maxFileBytes)
		return "", domainerrors.AddContext(err, domainerrors.CtxPath, path)
	}
	return string(data), nil
}

func (c *Client) get(ctx context.Context, op, u string, api bool) (*http.Response, error) {
	ctx, span := observability.Tracer.Start(ctx, "github."+op, trace.WithAttributes(attribute.String("http.url", u)))
	defer span.End()

	if err := c.limiter.Wait(ctx, 1); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "build request")
	}
	req.Header.Set("User-Agent", userAgent)
	if api {
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("X-GitHub-Api-Version", apiVersion)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observability.UpstreamDuration.WithLabelValues(op, "error").Observe(time.Since(started).Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeUpstream, "GitHub request failed")
	}
	observability.UpstreamDuration.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Observe(time.Since(started).Seconds())
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	span.SetStatus(codes.Error, resp.Status)
	return nil, statusError(op, resp)
}

func statusError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	detail := ""
	var body apiError
	if json.Unmarshal(raw, &body) == nil {
		detail = body.Message
	}

	code := domainerrors.CodeUpstream
	var msg string
	switch {
	case isRateLimited(resp):
		code = domainerrors.CodeRateLimited
		msg = "GitHub API rate limit exceeded"
	case resp.StatusCode == http.StatusNotFound && op == opTree:
		msg = "repository or branch not found"
	case resp.StatusCode == http.StatusNotFound:
		msg = "file not found"
	case resp.StatusCode == http.StatusUnauthorized:
		msg = "GitHub rejected the configured token"
	default:
		msg = fmt.Sprintf("GitHub returned %s", resp.Status)
	}
	if detail != "" && code != domainerrors.CodeRateLimited {
		msg = msg + " (" + detail + ")"
	}

	err := domainerrors.New(code, msg)
	err = domainerrors.AddContext(err, domainerrors.CtxStatus, resp.StatusCode)
	return domainerrors.AddContext(err, domainerrors.CtxOperation, op)
}

func isRateLimited(resp *http.Response) bool {
	if resp.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0"
}

func withRepo(err error, owner, repo string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return domainerrors.AddContext(err, domainerrors.CtxRepo, owner+"/"+repo)
}

// escapePath escapes each segment of a slash-separated path.
func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
