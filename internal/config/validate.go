package config

import (
	"errors"
	"fmt"
	"log/slog"

	"quoterelay/internal/model"
)

// Validate checks that all required fields are set and values are valid.
func (c *RelayConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Feed.URL == "" {
		return errors.New("feed.url is required")
	}
	if c.Feed.KeyfilePath == "" {
		return errors.New("feed.keyfile_path is required")
	}
	if c.Feed.CredentialDB == "" {
		return errors.New("feed.credential_db is required")
	}
	if _, err := model.NormalizeSymbols(c.Feed.Symbols); err != nil {
		return fmt.Errorf("feed.symbols: %w", err)
	}
	if c.Feed.ReconnectBaseDelay <= 0 || c.Feed.ReconnectMaxDelay <= 0 {
		return errors.New("feed reconnect delays must be positive")
	}
	if c.Feed.ReconnectBaseDelay > c.Feed.ReconnectMaxDelay {
		return errors.New("feed.reconnect_base_delay cannot exceed feed.reconnect_max_delay")
	}

	if c.Relay.Host == "" {
		return errors.New("relay.host is required")
	}
	if c.Relay.Port < 1 || c.Relay.Port > 65535 {
		return fmt.Errorf("relay.port must be between 1 and 65535, got %d", c.Relay.Port)
	}
	if c.Relay.PaceDelay < 0 {
		return errors.New("relay.pace_delay cannot be negative")
	}

	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}

	return nil
}

// SlogLevel parses the configured log level.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	switch l.Level {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", l.Level)
}
