package config

import (
	"strings"
	"time"
)

type Config struct {
	Version       int           `toml:"version"`
	Server        Server        `toml:"server"`
	GitHub        GitHub        `toml:"github"`
	Analysis      Analysis      `toml:"analysis"`
	Cache         Cache         `toml:"cache"`
	History       History       `toml:"history"`
	RateLimit     RateLimit     `toml:"rate_limit"`
	Observability Observability `toml:"observability"`
	Log           Log           `toml:"log"`
}

type Server struct {
	Address           string        `toml:"address"`
	ReadHeaderTimeout time.Duration `toml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `toml:"shutdown_timeout"`
	KeepAlive         time.Duration `toml:"keep_alive"`
	AllowedOrigin     string        `toml:"allowed_origin"`
}

type GitHub struct {
	APIBaseURL        string        `toml:"api_base_url"`
	RawBaseURL        string        `toml:"raw_base_url"`
	Token             string        `toml:"token"`
	TokenEnv          string        `toml:"token_env"`
	Timeout           time.Duration `toml:"timeout"`
	MaxFileBytes      int64         `toml:"max_file_bytes"`
	RequestsPerSecond float64       `toml:"requests_per_second"`
	Burst             int           `toml:"burst"`
}

type Analysis struct {
	DefaultBranch  string   `toml:"default_branch"`
	MaxFiles       int      `toml:"max_files"`
	IncludeContent bool     `toml:"include_content"`
	ExcludeGlobs   []string `toml:"exclude_globs"`
}

type Cache struct {
	Enabled *bool         `toml:"enabled"`
	Size    int           `toml:"size"`
	TTL     time.Duration `toml:"ttl"`
}

type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type RateLimit struct {
	Enabled           bool `toml:"enabled"`
	RequestsPerMinute int  `toml:"requests_per_minute"`
	Burst             int  `toml:"burst"`
}

type Observability struct {
	MetricsEnabled *bool   `toml:"metrics_enabled"`
	MetricsPath    string  `toml:"metrics_path"`
	OTLPEndpoint   string  `toml:"otlp_endpoint"`
	OTLPInsecure   bool    `toml:"otlp_insecure"`
	ServiceName    string  `toml:"service_name"`
	SampleRatio    float64 `toml:"sample_ratio"`
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultConfig returns a config populated with the same defaults Load applies.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Server.Address) == "" {
		cfg.Server.Address = "127.0.0.1:8080"
	}
	if cfg.Server.ReadHeaderTimeout <= 0 {
		cfg.Server.ReadHeaderTimeout = 10 * time.Second
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 5 * time.Second
	}
	if cfg.Server.KeepAlive <= 0 {
		cfg.Server.KeepAlive = 30 * time.Second
	}
	if strings.TrimSpace(cfg.Server.AllowedOrigin) == "" {
		cfg.Server.AllowedOrigin = "*"
	}

	if strings.TrimSpace(cfg.GitHub.APIBaseURL) == "" {
		cfg.GitHub.APIBaseURL = "https://api.github.com"
	}
	if strings.TrimSpace(cfg.GitHub.RawBaseURL) == "" {
		cfg.GitHub.RawBaseURL = "https://raw.githubusercontent.com"
	}
	if strings.TrimSpace(cfg.GitHub.TokenEnv) == "" {
		cfg.GitHub.TokenEnv = "GITHUB_TOKEN"
	}
	if cfg.GitHub.Timeout <= 0 {
		cfg.GitHub.Timeout = 30 * time.Second
	}
	if cfg.GitHub.MaxFileBytes <= 0 {
		cfg.GitHub.MaxFileBytes = 1 << 20
	}
	if cfg.GitHub.Burst <= 0 {
		cfg.GitHub.Burst = 10
	}

	if strings.TrimSpace(cfg.Analysis.DefaultBranch) == "" {
		cfg.Analysis.DefaultBranch = "main"
	}
	if cfg.Analysis.MaxFiles <= 0 {
		cfg.Analysis.MaxFiles = 100
	}

	if cfg.Cache.Enabled == nil {
		enabled := true
		cfg.Cache.Enabled = &enabled
	}
	if cfg.Cache.Size <= 0 {
		cfg.Cache.Size = 64
	}
	if cfg.Cache.TTL <= 0 {
		cfg.Cache.TTL = 15 * time.Minute
	}

	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = "data/state/history.db"
	}

	if cfg.RateLimit.RequestsPerMinute <= 0 {
		cfg.RateLimit.RequestsPerMinute = 30
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 5
	}

	if cfg.Observability.MetricsEnabled == nil {
		enabled := true
		cfg.Observability.MetricsEnabled = &enabled
	}
	if strings.TrimSpace(cfg.Observability.MetricsPath) == "" {
		cfg.Observability.MetricsPath = "/metrics"
	}
	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "compgraph"
	}
	if cfg.Observability.SampleRatio <= 0 {
		cfg.Observability.SampleRatio = 1
	}

	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
	if strings.TrimSpace(cfg.Log.Format) == "" {
		cfg.Log.Format = "text"
	}
}

func (c Cache) IsEnabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}

func (o Observability) MetricsOn() bool {
	if o.MetricsEnabled == nil {
		return true
	}
	return *o.MetricsEnabled
}
