package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultFeedURL            = "wss://stream.data.alpaca.markets/v1beta3/crypto/us"
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 60 * time.Second
	DefaultPingInterval       = 15 * time.Second
	DefaultReadTimeout        = 60 * time.Second
	DefaultRelayHost          = "127.0.0.1"
	DefaultRelayPort          = 65535
	DefaultDialTimeout        = 5 * time.Second
	DefaultWriteTimeout       = 5 * time.Second
	DefaultPaceDelay          = 1 * time.Second
	DefaultStatsInterval      = 1 * time.Minute
	DefaultLogLevel           = "info"
)

// ApplyDefaults fills unset optional fields. Exported because cmd applies
// flag overrides between Load and defaulting.
func (c *RelayConfig) ApplyDefaults() {
	// Feed defaults
	if c.Feed.URL == "" {
		c.Feed.URL = DefaultFeedURL
	}
	if c.Feed.ReconnectBaseDelay == 0 {
		c.Feed.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Feed.ReconnectMaxDelay == 0 {
		c.Feed.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Feed.PingInterval == 0 {
		c.Feed.PingInterval = DefaultPingInterval
	}
	if c.Feed.ReadTimeout == 0 {
		c.Feed.ReadTimeout = DefaultReadTimeout
	}

	// Relay defaults
	if c.Relay.Host == "" {
		c.Relay.Host = DefaultRelayHost
	}
	if c.Relay.Port == 0 {
		c.Relay.Port = DefaultRelayPort
	}
	if c.Relay.DialTimeout == 0 {
		c.Relay.DialTimeout = DefaultDialTimeout
	}
	if c.Relay.WriteTimeout == 0 {
		c.Relay.WriteTimeout = DefaultWriteTimeout
	}
	if c.Relay.PaceDelay == 0 {
		c.Relay.PaceDelay = DefaultPaceDelay
	}

	// Ingest defaults
	if c.Ingest.StatsInterval == 0 {
		c.Ingest.StatsInterval = DefaultStatsInterval
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
}
