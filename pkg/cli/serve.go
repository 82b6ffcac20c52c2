package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/getmockd/replayd/pkg/ai"
	"github.com/getmockd/replayd/pkg/capture"
	"github.com/getmockd/replayd/pkg/config"
	"github.com/getmockd/replayd/pkg/engine"
	"github.com/getmockd/replayd/pkg/generator"
	"github.com/getmockd/replayd/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

var (
	serveConfigPath      string
	serveCaptureFile     string
	servePort            int
	serveStrategy        string
	serveMode            string
	serveLogLevel        string
	serveLogFormat       string
	serveAcceptThreshold float64
	serveFallbackStatus  int
	serveCacheCapacity   int
	serveChaosRate       float64
	serveChaosDelayMinMS int
	serveChaosDelayMaxMS int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the replay server",
	Example: `  # Serve a session log with fuzzy matching on the default port
  replayd serve --captures session.json

  # Exact matching on a custom port
  replayd serve --captures session.json --strategy exact --port 9090

  # Full configuration from file
  replayd serve --config replayd.yaml`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "configuration file (YAML or JSON)")
	serveCmd.Flags().StringVar(&serveCaptureFile, "captures", "", "session log to load at startup")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (overrides config)")
	serveCmd.Flags().StringVar(&serveStrategy, "strategy", "", "matching strategy: exact, pattern, fuzzy, semantic")
	serveCmd.Flags().StringVar(&serveMode, "mode", "", "generation mode: static, template, transform, ai, intelligent")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "", "log level: debug, info, warn, error")
	serveCmd.Flags().StringVar(&serveLogFormat, "log-format", "", "log format: text, json")
	serveCmd.Flags().Float64Var(&serveAcceptThreshold, "accept-threshold", 0, "minimum fuzzy score accepted as a match")
	serveCmd.Flags().IntVar(&serveFallbackStatus, "fallback-status", 0, "status served when nothing matches")
	serveCmd.Flags().IntVar(&serveCacheCapacity, "cache-capacity", 0, "match cache size")
	serveCmd.Flags().Float64Var(&serveChaosRate, "chaos-rate", 0, "probability of an injected failure, 0 to 1")
	serveCmd.Flags().IntVar(&serveChaosDelayMinMS, "chaos-delay-min", 0, "minimum injected delay in milliseconds")
	serveCmd.Flags().IntVar(&serveChaosDelayMaxMS, "chaos-delay-max", 0, "maximum injected delay in milliseconds")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadServeConfig()
	if err != nil {
		return err
	}

	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Format: logging.ParseFormat(cfg.LogFormat),
	})

	var store *capture.Store
	if cfg.CaptureFile != "" {
		store, err = capture.LoadFile(cfg.CaptureFile)
		if err != nil {
			return fmt.Errorf("failed to load captures: %w", err)
		}
		log.Info("captures loaded", "file", cfg.CaptureFile, "count", store.Len())
	} else {
		log.Warn("no capture file given, starting with an empty corpus")
	}

	var opts []engine.ServerOption
	opts = append(opts, engine.WithLogger(log))

	aiCfg := &cfg.AI
	if envCfg := ai.ConfigFromEnv(); envCfg != nil {
		aiCfg = envCfg
	}
	if collab, err := ai.NewCollaborator(aiCfg); err == nil {
		opts = append(opts, engine.WithCollaborator(collab))
		log.Info("AI collaborator configured", "provider", collab.Name())
	} else if cfg.Strategy == "semantic" || serveMode == "ai" || serveMode == "intelligent" {
		log.Warn("AI collaborator unavailable, semantic features degrade to fuzzy", "error", err)
	}

	if serveMode != "" {
		mode, err := generator.ParseMode(serveMode)
		if err != nil {
			return err
		}
		opts = append(opts, engine.WithGenerationMode(mode))
	}

	srv := engine.NewServer(cfg, store, opts...)
	if err := srv.Start(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "replayd listening on %s\n", srv.Addr())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Stop(ctx)
}

// loadServeConfig loads the file config (or defaults) and applies flag
// overrides.
func loadServeConfig() (*config.ServerConfig, error) {
	cfg := config.Default()
	if serveConfigPath != "" {
		loaded, err := config.LoadFile(serveConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if serveCaptureFile != "" {
		cfg.CaptureFile = serveCaptureFile
	}
	if servePort != 0 {
		cfg.Port = servePort
	}
	if serveStrategy != "" {
		cfg.Strategy = serveStrategy
	}
	if serveLogLevel != "" {
		cfg.LogLevel = serveLogLevel
	}
	if serveLogFormat != "" {
		cfg.LogFormat = serveLogFormat
	}
	if serveAcceptThreshold != 0 {
		cfg.AcceptThreshold = serveAcceptThreshold
		// The diff threshold tracks the accept threshold upward so a
		// raised bar doesn't invalidate the default diagnostics band.
		if cfg.DiffThreshold < cfg.AcceptThreshold {
			cfg.DiffThreshold = cfg.AcceptThreshold
		}
	}
	if serveFallbackStatus != 0 {
		cfg.FallbackStatus = serveFallbackStatus
	}
	if serveCacheCapacity != 0 {
		cfg.CacheCapacity = serveCacheCapacity
	}
	if serveChaosRate != 0 {
		cfg.Chaos.Enabled = true
		cfg.Chaos.FailureRate = serveChaosRate
	}
	if serveChaosDelayMinMS != 0 || serveChaosDelayMaxMS != 0 {
		cfg.Chaos.Enabled = true
		cfg.Chaos.Delay.MinMS = serveChaosDelayMinMS
		cfg.Chaos.Delay.MaxMS = serveChaosDelayMaxMS
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
