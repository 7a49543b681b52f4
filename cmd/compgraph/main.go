package main

import (
	"compgraph/internal/core/config"
	"compgraph/internal/shared/observability"
	"compgraph/internal/transport"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

var (
	configPath = flag.String("config", "./compgraph.toml", "Path to config file")
	analyzeURL = flag.String("analyze", "", "Analyze one repository URL, print events as JSON lines and exit")
	branch     = flag.String("branch", "", "Branch for -analyze (defaults to analysis.default_branch)")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "0.1.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("compgraph v%s\n", VERSION)
		os.Exit(0)
	}

	// Stdout carries events in one-shot mode.
	logOutput := os.Stdout
	if *analyzeURL != "" {
		logOutput = os.Stderr
	}
	slog.SetDefault(newLogger(logOutput, config.Log{Level: "info", Format: "text"}, *verbose))

	config.LoadDotEnv(".env", ".env.local")

	cfg, cfgFile, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := newLogger(logOutput, cfg.Log, *verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingOptions{
		Endpoint:    cfg.Observability.OTLPEndpoint,
		Insecure:    cfg.Observability.OTLPInsecure,
		ServiceName: cfg.Observability.ServiceName,
		SampleRatio: cfg.Observability.SampleRatio,
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	a, closeApp, err := buildApp(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize app", "error", err)
		os.Exit(1)
	}
	defer closeApp()

	if *analyzeURL != "" {
		if err := runOnce(ctx, a, *analyzeURL, *branch, os.Stdout); err != nil {
			logger.Error("analysis failed", "error", err)
			closeApp()
			os.Exit(1)
		}
		return
	}

	if cfgFile != "" {
		watcher := config.NewWatcher(cfgFile, logger, func(next *config.Config) {
			if err := a.ApplyConfig(next); err != nil {
				logger.Warn("ignoring reloaded config", "error", err)
				return
			}
			logger.Info("config reloaded; new sessions use the updated analysis settings")
		})
		if err := watcher.Start(ctx); err != nil {
			logger.Warn("config watcher unavailable", "error", err)
		} else {
			defer watcher.Stop()
		}
	}

	server := transport.NewServer(cfg, a, logger)
	if err := server.Start(ctx); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// loadConfig reads path, falling back to the example file and then to
// built-in defaults when the default path does not exist. It returns the
// file actually loaded, or "" for defaults.
func loadConfig(path string) (*config.Config, string, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, path, nil
	}
	if !errors.Is(err, os.ErrNotExist) || path != "./compgraph.toml" {
		return nil, "", err
	}

	const example = "./compgraph.example.toml"
	if cfg, exErr := config.Load(example); exErr == nil {
		slog.Info("using example config", "path", example)
		return cfg, example, nil
	} else if !errors.Is(exErr, os.ErrNotExist) {
		return nil, "", exErr
	}

	slog.Info("no config file found, using defaults")
	cfg = config.DefaultConfig()
	config.ApplyEnvOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, "", err
	}
	return cfg, "", nil
}
