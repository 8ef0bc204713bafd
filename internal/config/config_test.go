package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

const validYAML = `
instance:
  id: test-relay
feed:
  symbols: [BTC/USD, ETH/USD]
  keyfile_path: /server/credentials/admin.key
  credential_db: /server/database/admin.db
relay:
  host: 10.0.0.5
  port: 9000
`

func TestLoad(t *testing.T) {
	path := writeTempFile(t, validYAML)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-relay" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-relay")
	}
	if len(cfg.Feed.Symbols) != 2 || cfg.Feed.Symbols[0] != "BTC/USD" {
		t.Errorf("Feed.Symbols = %v, want [BTC/USD ETH/USD]", cfg.Feed.Symbols)
	}
	if cfg.Relay.Host != "10.0.0.5" {
		t.Errorf("Relay.Host = %q, want %q", cfg.Relay.Host, "10.0.0.5")
	}
	if cfg.Relay.Port != 9000 {
		t.Errorf("Relay.Port = %d, want 9000", cfg.Relay.Port)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_RELAY_HOST", "192.168.1.20")

	yaml := `
instance:
  id: test-relay
relay:
  host: ${TEST_RELAY_HOST}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Relay.Host != "192.168.1.20" {
		t.Errorf("Relay.Host = %q, want %q", cfg.Relay.Host, "192.168.1.20")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &RelayConfig{}
	cfg.ApplyDefaults()

	if cfg.Feed.URL != DefaultFeedURL {
		t.Errorf("Feed.URL = %q, want default", cfg.Feed.URL)
	}
	if cfg.Relay.Host != "127.0.0.1" {
		t.Errorf("Relay.Host = %q, want 127.0.0.1", cfg.Relay.Host)
	}
	if cfg.Relay.Port != 65535 {
		t.Errorf("Relay.Port = %d, want 65535", cfg.Relay.Port)
	}
	if cfg.Relay.PaceDelay != time.Second {
		t.Errorf("Relay.PaceDelay = %v, want 1s", cfg.Relay.PaceDelay)
	}
	if cfg.Feed.ReconnectBaseDelay != time.Second {
		t.Errorf("Feed.ReconnectBaseDelay = %v, want 1s", cfg.Feed.ReconnectBaseDelay)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *RelayConfig {
		cfg, err := Load(writeTempFile(t, validYAML))
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		cfg.ApplyDefaults()
		return cfg
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*RelayConfig)
	}{
		{"missing instance id", func(c *RelayConfig) { c.Instance.ID = "" }},
		{"no symbols", func(c *RelayConfig) { c.Feed.Symbols = nil }},
		{"bad symbol", func(c *RelayConfig) { c.Feed.Symbols = []string{"BTCUSD"} }},
		{"missing keyfile", func(c *RelayConfig) { c.Feed.KeyfilePath = "" }},
		{"missing credential db", func(c *RelayConfig) { c.Feed.CredentialDB = "" }},
		{"port too large", func(c *RelayConfig) { c.Relay.Port = 70000 }},
		{"port zero", func(c *RelayConfig) { c.Relay.Port = 0 }},
		{"inverted backoff", func(c *RelayConfig) {
			c.Feed.ReconnectBaseDelay = 2 * time.Minute
		}},
		{"bad log level", func(c *RelayConfig) { c.Logging.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
