package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"quoterelay/internal/config"
	"quoterelay/internal/creds"
	"quoterelay/internal/feed"
	"quoterelay/internal/ingest"
	"quoterelay/internal/relay"
	"quoterelay/internal/store"
	"quoterelay/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/relay.local.yaml", "path to config file")
	symbolsFlag := flag.String("symbols", "", "comma-separated trade pairs (overrides config)")
	hostFlag := flag.String("host", "", "downstream peer host (overrides config)")
	portFlag := flag.Int("port", 0, "downstream peer port (overrides config)")
	logfileFlag := flag.String("logfile", "", "log file path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Flag overrides, mirroring the daemon's historical CLI surface.
	if *symbolsFlag != "" {
		cfg.Feed.Symbols = strings.Split(*symbolsFlag, ",")
	}
	if *hostFlag != "" {
		cfg.Relay.Host = *hostFlag
	}
	if *portFlag != 0 {
		cfg.Relay.Port = *portFlag
	}
	if *logfileFlag != "" {
		cfg.Logging.File = *logfileFlag
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger, closeLog, err := newLogger(cfg.Logging)
	if err != nil {
		slog.Error("failed to set up logging", "error", err)
		os.Exit(1)
	}
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("starting quote relay",
		"version", version.String(),
		"instance_id", cfg.Instance.ID,
		"symbols", cfg.Feed.Symbols,
		"peer", cfg.Relay.Host,
		"peer_port", cfg.Relay.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Resolve feed credentials; the relay cannot run without them.
	keys, err := loadCredentials(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to resolve credentials", "error", err)
		os.Exit(1)
	}

	feedCfg := feed.DefaultConfig()
	feedCfg.URL = cfg.Feed.URL
	feedCfg.Key = keys.APIKey
	feedCfg.Secret = keys.APISecret
	feedCfg.ReconnectBaseDelay = cfg.Feed.ReconnectBaseDelay
	feedCfg.ReconnectMaxDelay = cfg.Feed.ReconnectMaxDelay
	feedCfg.PingInterval = cfg.Feed.PingInterval
	feedCfg.ReadTimeout = cfg.Feed.ReadTimeout

	relayCfg := relay.Config{
		Host:         cfg.Relay.Host,
		Port:         cfg.Relay.Port,
		DialTimeout:  cfg.Relay.DialTimeout,
		WriteTimeout: cfg.Relay.WriteTimeout,
		PaceDelay:    cfg.Relay.PaceDelay,
	}

	coord := ingest.New(
		ingest.Config{
			Symbols:       cfg.Feed.Symbols,
			StatsInterval: cfg.Ingest.StatsInterval,
		},
		feed.NewClient(feedCfg, logger),
		store.New(),
		relay.NewClient(relayCfg, logger),
		logger,
	)

	if err := coord.Start(ctx); err != nil {
		logger.Error("failed to start coordinator", "error", err)
		os.Exit(1)
	}

	logger.Info("quote relay running")

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := coord.Stop(stopCtx); err != nil {
		logger.Warn("coordinator stop", "error", err)
	}

	logger.Info("quote relay stopped")
}

// newLogger builds the slog logger, directed at the configured log file
// when one is set.
func newLogger(cfg config.LoggingConfig) (*slog.Logger, func(), error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, nil, err
	}

	var out io.Writer = os.Stdout
	closeLog := func() {}

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		out = f
		closeLog = func() { f.Close() }
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: level,
	}))
	return logger, closeLog, nil
}

// loadCredentials opens the credential store, reads the key pair, and
// releases the store.
func loadCredentials(ctx context.Context, cfg *config.RelayConfig, logger *slog.Logger) (creds.Keys, error) {
	credStore, err := creds.Open(cfg.Feed.CredentialDB, cfg.Feed.KeyfilePath)
	if err != nil {
		return creds.Keys{}, err
	}
	defer credStore.Close()

	keys, err := credStore.Credentials(ctx)
	if err != nil {
		return creds.Keys{}, err
	}

	logger.Info("credentials resolved", "db", cfg.Feed.CredentialDB)
	return keys, nil
}
