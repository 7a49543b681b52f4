package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
)

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateServer(cfg *Config) error {
	if strings.TrimSpace(cfg.Server.Address) == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	return nil
}

func validateGitHub(cfg *Config) error {
	for key, raw := range map[string]string{
		"github.api_base_url": cfg.GitHub.APIBaseURL,
		"github.raw_base_url": cfg.GitHub.RawBaseURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", key, raw)
		}
	}
	if cfg.GitHub.RequestsPerSecond < 0 {
		return fmt.Errorf("github.requests_per_second must be >= 0")
	}
	return nil
}

func validateAnalysis(cfg *Config) error {
	if cfg.Analysis.MaxFiles > 1000 {
		return fmt.Errorf("analysis.max_files must be <= 1000, got %d", cfg.Analysis.MaxFiles)
	}
	for i, pattern := range cfg.Analysis.ExcludeGlobs {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return fmt.Errorf("analysis.exclude_globs[%d] %q is invalid: %w", i, pattern, err)
		}
	}
	return nil
}

func validateCache(cfg *Config) error {
	if cfg.Cache.IsEnabled() && cfg.Cache.Size <= 0 {
		return fmt.Errorf("cache.size must be > 0 when cache is enabled")
	}
	return nil
}

func validateRateLimit(cfg *Config) error {
	if cfg.RateLimit.Enabled && cfg.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("rate_limit.requests_per_minute must be > 0")
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if !strings.HasPrefix(cfg.Observability.MetricsPath, "/") {
		return fmt.Errorf("observability.metrics_path must start with '/', got %q", cfg.Observability.MetricsPath)
	}
	if cfg.Observability.SampleRatio > 1 {
		return fmt.Errorf("observability.sample_ratio must be within (0, 1]")
	}
	return nil
}

func validateLog(cfg *Config) error {
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be one of: text, json")
	}
	return nil
}
