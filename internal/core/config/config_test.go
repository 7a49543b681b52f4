package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "compgraph.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	content := `
[server]
address = ":9090"
keep_alive = "15s"

[github]
token = "abc"
timeout = "5s"
requests_per_second = 2.5

[analysis]
default_branch = "develop"
max_files = 40
include_content = true
exclude_globs = ["**/*.stories.tsx", "examples/**"]

[cache]
enabled = false

[history]
enabled = true
path = "state/history.db"

[rate_limit]
enabled = true
requests_per_minute = 12

[log]
level = "debug"
format = "json"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Address != ":9090" {
		t.Errorf("Expected address :9090, got %s", cfg.Server.Address)
	}
	if cfg.Server.KeepAlive != 15*time.Second {
		t.Errorf("Expected keep_alive 15s, got %v", cfg.Server.KeepAlive)
	}
	if cfg.GitHub.ResolveToken() != "abc" {
		t.Errorf("Expected token abc, got %q", cfg.GitHub.ResolveToken())
	}
	if cfg.GitHub.Timeout != 5*time.Second {
		t.Errorf("Expected github timeout 5s, got %v", cfg.GitHub.Timeout)
	}
	if cfg.Analysis.DefaultBranch != "develop" || cfg.Analysis.MaxFiles != 40 || !cfg.Analysis.IncludeContent {
		t.Errorf("Unexpected analysis section: %+v", cfg.Analysis)
	}
	if len(cfg.Analysis.ExcludeGlobs) != 2 {
		t.Errorf("Expected 2 exclude globs, got %v", cfg.Analysis.ExcludeGlobs)
	}
	if cfg.Cache.IsEnabled() {
		t.Error("Expected cache to be disabled")
	}
	if !cfg.History.Enabled || cfg.History.Path != "state/history.db" {
		t.Errorf("Unexpected history section: %+v", cfg.History)
	}
	if !cfg.RateLimit.Enabled || cfg.RateLimit.RequestsPerMinute != 12 || cfg.RateLimit.Burst != 5 {
		t.Errorf("Unexpected rate limit section: %+v", cfg.RateLimit)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Unexpected log section: %+v", cfg.Log)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `version = 1`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Analysis.MaxFiles != 100 {
		t.Errorf("Expected default max_files 100, got %d", cfg.Analysis.MaxFiles)
	}
	if cfg.Analysis.DefaultBranch != "main" {
		t.Errorf("Expected default branch main, got %s", cfg.Analysis.DefaultBranch)
	}
	if cfg.GitHub.APIBaseURL != "https://api.github.com" {
		t.Errorf("Unexpected api base url %s", cfg.GitHub.APIBaseURL)
	}
	if !cfg.Cache.IsEnabled() || cfg.Cache.TTL != 15*time.Minute {
		t.Errorf("Unexpected cache defaults: %+v", cfg.Cache)
	}
	if !cfg.Observability.MetricsOn() || cfg.Observability.MetricsPath != "/metrics" {
		t.Errorf("Unexpected observability defaults: %+v", cfg.Observability)
	}
	if cfg.History.Enabled {
		t.Error("Expected history to be disabled by default")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadError(t *testing.T) {
	_, err := Load("nonexistent.toml")
	if err == nil {
		t.Error("Expected error for nonexistent file")
	}

	_, err = Load(writeConfig(t, "bad = toml = format"))
	if err == nil {
		t.Error("Expected error for malformed TOML")
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "Version", content: "version = 3", wantErr: "unsupported config version"},
		{name: "BadGlob", content: "[analysis]\nexclude_globs = [\"[\"]", wantErr: "exclude_globs[0]"},
		{name: "MaxFiles", content: "[analysis]\nmax_files = 5000", wantErr: "max_files"},
		{name: "APIURL", content: "[github]\napi_base_url = \"not a url\"", wantErr: "api_base_url"},
		{name: "MetricsPath", content: "[observability]\nmetrics_path = \"metrics\"", wantErr: "metrics_path"},
		{name: "LogLevel", content: "[log]\nlevel = \"loud\"", wantErr: "log.level"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			if err == nil {
				t.Fatalf("expected error containing %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("COMPGRAPH_SERVER_ADDRESS", ":7070")
	t.Setenv("COMPGRAPH_ANALYSIS_MAX_FILES", "25")
	t.Setenv("COMPGRAPH_HISTORY_ENABLED", "true")

	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Address != ":7070" {
		t.Errorf("Expected env address override, got %s", cfg.Server.Address)
	}
	if cfg.Analysis.MaxFiles != 25 {
		t.Errorf("Expected env max_files override, got %d", cfg.Analysis.MaxFiles)
	}
	if !cfg.History.Enabled {
		t.Error("Expected env history override")
	}
}

func TestResolveTokenFromEnv(t *testing.T) {
	t.Setenv("COMPGRAPH_TEST_TOKEN", "  from-env ")
	gh := GitHub{TokenEnv: "COMPGRAPH_TEST_TOKEN"}
	if got := gh.ResolveToken(); got != "from-env" {
		t.Fatalf("expected token from env, got %q", got)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("COMPGRAPH_DOTENV_PROBE=loaded\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("COMPGRAPH_DOTENV_PROBE") })

	LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"), path)
	if got := os.Getenv("COMPGRAPH_DOTENV_PROBE"); got != "loaded" {
		t.Fatalf("expected dotenv value, got %q", got)
	}
}
