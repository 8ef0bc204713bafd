package config

import "time"

// RelayConfig is the root configuration for a relay instance.
type RelayConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Feed     FeedConfig     `yaml:"feed"`
	Relay    PeerConfig     `yaml:"relay"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// InstanceConfig identifies this relay.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// FeedConfig holds upstream stream settings.
type FeedConfig struct {
	URL                string        `yaml:"url"`
	Symbols            []string      `yaml:"symbols"`
	KeyfilePath        string        `yaml:"keyfile_path"`  // Hex AES key for the credential database
	CredentialDB       string        `yaml:"credential_db"` // Path to the credential database
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	PingInterval       time.Duration `yaml:"ping_interval"`
	ReadTimeout        time.Duration `yaml:"read_timeout"`
}

// PeerConfig holds the downstream relay target.
type PeerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PaceDelay    time.Duration `yaml:"pace_delay"`
}

// IngestConfig holds coordinator settings.
type IngestConfig struct {
	StatsInterval time.Duration `yaml:"stats_interval"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	File  string `yaml:"file"`  // Empty = stdout
	Level string `yaml:"level"` // debug, info, warn, error
}
