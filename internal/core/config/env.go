package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads .env style files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			slog.Warn("failed to load env file", "path", p, "error", err)
		}
	}
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: COMPGRAPH_[SECTION]_[KEY] (e.g., COMPGRAPH_SERVER_ADDRESS).
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.Server.Address, "COMPGRAPH_SERVER_ADDRESS")

	setEnvString(&cfg.GitHub.APIBaseURL, "COMPGRAPH_GITHUB_API_BASE_URL")
	setEnvString(&cfg.GitHub.RawBaseURL, "COMPGRAPH_GITHUB_RAW_BASE_URL")
	setEnvDuration(&cfg.GitHub.Timeout, "COMPGRAPH_GITHUB_TIMEOUT")

	setEnvString(&cfg.Analysis.DefaultBranch, "COMPGRAPH_ANALYSIS_DEFAULT_BRANCH")
	setEnvInt(&cfg.Analysis.MaxFiles, "COMPGRAPH_ANALYSIS_MAX_FILES")
	setEnvBool(&cfg.Analysis.IncludeContent, "COMPGRAPH_ANALYSIS_INCLUDE_CONTENT")

	setEnvBool(&cfg.History.Enabled, "COMPGRAPH_HISTORY_ENABLED")
	setEnvString(&cfg.History.Path, "COMPGRAPH_HISTORY_PATH")

	setEnvBool(&cfg.RateLimit.Enabled, "COMPGRAPH_RATE_LIMIT_ENABLED")

	setEnvString(&cfg.Observability.OTLPEndpoint, "COMPGRAPH_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvString(&cfg.Log.Level, "COMPGRAPH_LOG_LEVEL")
}

// ResolveToken returns the configured GitHub token, falling back to the
// environment variable named by token_env.
func (g GitHub) ResolveToken() string {
	if tok := strings.TrimSpace(g.Token); tok != "" {
		return tok
	}
	if g.TokenEnv == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(g.TokenEnv))
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
