package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Tracker: TrackerConfig{
			Market:        "XLM/BTC",
			LoopInterval:  5 * time.Minute,
			AlertInterval: time.Hour,
			Duration:      24 * time.Hour,
			DataDir:       "json/cmctracker",
		},
		Storage: StorageConfig{Backend: BackendFile},
		Export:  ExportConfig{MaxDataPoints: 100000},
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Tracker.LoopInterval != 5*time.Minute {
		t.Errorf("loop_interval = %v, want 5m", cfg.Tracker.LoopInterval)
	}
	if cfg.Tracker.AlertInterval != time.Hour {
		t.Errorf("alert_interval = %v, want 1h", cfg.Tracker.AlertInterval)
	}
	if cfg.Tracker.Duration != 24*time.Hour {
		t.Errorf("duration = %v, want 24h", cfg.Tracker.Duration)
	}
	if cfg.Storage.Backend != BackendFile {
		t.Errorf("backend = %q, want file", cfg.Storage.Backend)
	}
	if cfg.Slack.Enabled {
		t.Error("slack should default to disabled")
	}
	if cfg.CoinMarketCap.BaseURL == "" {
		t.Error("coinmarketcap base url should have a default")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"zero loop interval", func(c *Config) { c.Tracker.LoopInterval = 0 }, "loop_interval"},
		{"zero alert interval", func(c *Config) { c.Tracker.AlertInterval = 0 }, "alert_interval"},
		{"negative duration", func(c *Config) { c.Tracker.Duration = -time.Hour }, "duration"},
		{"zero duration ok", func(c *Config) { c.Tracker.Duration = 0 }, ""},
		{"file backend without data dir", func(c *Config) { c.Tracker.DataDir = "" }, "data_dir"},
		{"postgres backend without dsn", func(c *Config) { c.Storage.Backend = BackendPostgres }, "dsn"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "redis" }, "storage.backend"},
		{"slack enabled without token", func(c *Config) {
			c.Slack.Enabled = true
			c.Slack.Channel = "alerts"
		}, "slack.token"},
		{"slack enabled without channel", func(c *Config) {
			c.Slack.Enabled = true
			c.Slack.Token = "xoxb-1"
		}, "slack.channel"},
		{"slack channel id alone suffices", func(c *Config) {
			c.Slack.Enabled = true
			c.Slack.Token = "xoxb-1"
			c.Slack.ChannelID = "C123"
		}, ""},
		{"heartbeat enabled without url", func(c *Config) { c.Heartbeat.Enabled = true }, "ping_url"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error = %v, want mention of %q", err, tc.wantErr)
			}
		})
	}
}

func TestResolveOverrides(t *testing.T) {
	cfg := validConfig()

	if got := cfg.ResolveMarket(""); got != "XLM/BTC" {
		t.Errorf("ResolveMarket fallback = %q", got)
	}
	if got := cfg.ResolveMarket("ETH/USD"); got != "ETH/USD" {
		t.Errorf("ResolveMarket override = %q", got)
	}

	if got := cfg.ResolveMaxPoints(0); got != 100000 {
		t.Errorf("ResolveMaxPoints fallback = %d", got)
	}
	if got := cfg.ResolveMaxPoints(500); got != 500 {
		t.Errorf("ResolveMaxPoints override = %d", got)
	}
}
