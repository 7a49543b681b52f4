package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	ApplyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate runs every section validator in order.
func Validate(cfg *Config) error {
	for _, check := range []func(*Config) error{
		validateVersion,
		validateServer,
		validateGitHub,
		validateAnalysis,
		validateCache,
		validateRateLimit,
		validateObservability,
		validateLog,
	} {
		if err := check(cfg); err != nil {
			return err
		}
	}
	return nil
}
