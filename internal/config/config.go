package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"cmctracker/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App           AppConfig       `mapstructure:"app"`
	Logging       logging.Config  `mapstructure:"logging"`
	Tracker       TrackerConfig   `mapstructure:"tracker"`
	CoinMarketCap CMCConfig       `mapstructure:"coinmarketcap"`
	Slack         SlackConfig     `mapstructure:"slack"`
	Heartbeat     HeartbeatConfig `mapstructure:"heartbeat"`
	Storage       StorageConfig   `mapstructure:"storage"`
	Export        ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// TrackerConfig governs the session loop.
type TrackerConfig struct {
	Market        string        `mapstructure:"market"`
	LoopInterval  time.Duration `mapstructure:"loop_interval"`
	AlertInterval time.Duration `mapstructure:"alert_interval"`
	Duration      time.Duration `mapstructure:"duration"`
	DataDir       string        `mapstructure:"data_dir"`
	Resume        bool          `mapstructure:"resume"`
}

// CMCConfig covers CoinMarketCap API access.
type CMCConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// SlackConfig describes alert routing.
type SlackConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Token          string        `mapstructure:"token"`
	Channel        string        `mapstructure:"channel"`
	ChannelID      string        `mapstructure:"channel_id"`
	BotUser        string        `mapstructure:"bot_user"`
	BotIcon        string        `mapstructure:"bot_icon"`
	APIBase        string        `mapstructure:"api_base"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// HeartbeatConfig covers the optional liveness reporter.
type HeartbeatConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	PingURL string        `mapstructure:"ping_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StorageConfig selects and parameterises the archive backend.
type StorageConfig struct {
	Backend  string         `mapstructure:"backend"`
	Database DatabaseConfig `mapstructure:"database"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Storage backend names.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CMCTRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "cmctracker")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("tracker.loop_interval", "5m")
	v.SetDefault("tracker.alert_interval", "60m")
	v.SetDefault("tracker.duration", "24h")
	v.SetDefault("tracker.data_dir", "json/cmctracker")
	v.SetDefault("tracker.resume", false)

	v.SetDefault("coinmarketcap.base_url", "https://api.coinmarketcap.com/v2")
	v.SetDefault("coinmarketcap.request_timeout", "10s")
	v.SetDefault("coinmarketcap.user_agent", "cmctracker/1.0")

	v.SetDefault("slack.enabled", false)
	v.SetDefault("slack.api_base", "https://slack.com/api")
	v.SetDefault("slack.request_timeout", "10s")
	v.SetDefault("slack.bot_user", "cmctracker")

	v.SetDefault("heartbeat.enabled", false)
	v.SetDefault("heartbeat.timeout", "10s")

	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.database.max_open_conns", 10)
	v.SetDefault("storage.database.max_idle_conns", 5)
	v.SetDefault("storage.database.conn_max_lifetime", "30m")

	v.SetDefault("export.max_data_points", 100000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values. Fatal
// misconfiguration refuses startup entirely.
func (c *Config) Validate() error {
	if c.Tracker.LoopInterval <= 0 {
		return fmt.Errorf("tracker.loop_interval must be greater than zero")
	}
	if c.Tracker.AlertInterval <= 0 {
		return fmt.Errorf("tracker.alert_interval must be greater than zero")
	}
	if c.Tracker.Duration < 0 {
		return fmt.Errorf("tracker.duration cannot be negative")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}

	switch c.Storage.Backend {
	case BackendFile:
		if c.Tracker.DataDir == "" {
			return fmt.Errorf("tracker.data_dir is required for the file backend")
		}
	case BackendPostgres:
		if c.Storage.Database.DSN == "" {
			return fmt.Errorf("storage.database.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}

	if c.Slack.Enabled {
		if c.Slack.Token == "" {
			return fmt.Errorf("slack.token is required when slack alerts are enabled")
		}
		if c.Slack.Channel == "" && c.Slack.ChannelID == "" {
			return fmt.Errorf("slack.channel or slack.channel_id is required when slack alerts are enabled")
		}
	}

	if c.Heartbeat.Enabled && c.Heartbeat.PingURL == "" {
		return fmt.Errorf("heartbeat.ping_url is required when the heartbeat monitor is enabled")
	}

	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}

// ResolveMarket returns either the CLI override or config default.
func (c *Config) ResolveMarket(override string) string {
	if override != "" {
		return override
	}
	return c.Tracker.Market
}
