package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/newthinker/stockanalyzer/internal/backtest"
	"github.com/newthinker/stockanalyzer/internal/core"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Collectors CollectorsConfig `mapstructure:"collectors"`
	Import     ImportConfig     `mapstructure:"import"`
	Backtest   BacktestConfig   `mapstructure:"backtest"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Notifier   NotifierConfig   `mapstructure:"notifier"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	APIKey      string `mapstructure:"api_key"`
	JobTTLHours int    `mapstructure:"job_ttl_hours"`
	MaxJobs     int    `mapstructure:"max_jobs"`
}

type StorageConfig struct {
	Database   string        `mapstructure:"database"`    // SQLite path; empty keeps data in memory
	MaxResults int           `mapstructure:"max_results"` // In-memory result cap
	Archive    ArchiveConfig `mapstructure:"archive"`
}

type ArchiveConfig struct {
	Type string   `mapstructure:"type"` // "", "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type CollectorsConfig struct {
	Default      string             `mapstructure:"default"`
	AlphaVantage AlphaVantageConfig `mapstructure:"alphavantage"`
	Yahoo        YahooConfig        `mapstructure:"yahoo"`
	Alpaca       AlpacaConfig       `mapstructure:"alpaca"`
}

type AlphaVantageConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type YahooConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
}

type AlpacaConfig struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	BaseURL   string `mapstructure:"base_url"`
}

// ImportConfig paces batch imports.
type ImportConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// BacktestConfig holds the parameter defaults applied to requests that omit them.
type BacktestConfig struct {
	InitialCapital      float64 `mapstructure:"initial_capital"`
	CashReserve         float64 `mapstructure:"cash_reserve"`
	PositionSize        float64 `mapstructure:"position_size"`
	PredictionThreshold float64 `mapstructure:"prediction_threshold"`
	StopLoss            float64 `mapstructure:"stop_loss"`
	TakeProfit          float64 `mapstructure:"take_profit"`
}

// Params converts the defaults to engine parameters.
func (b BacktestConfig) Params() backtest.Params {
	return backtest.Params{
		InitialCapital:      decimal.NewFromFloat(b.InitialCapital),
		CashReserve:         decimal.NewFromFloat(b.CashReserve),
		PositionSize:        decimal.NewFromFloat(b.PositionSize),
		PredictionThreshold: decimal.NewFromFloat(b.PredictionThreshold),
		StopLoss:            decimal.NewFromFloat(b.StopLoss),
		TakeProfit:          decimal.NewFromFloat(b.TakeProfit),
	}
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// NotifierConfig holds outbound event settings.
type NotifierConfig struct {
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// WebhookConfig enables the webhook notifier when URL is set.
type WebhookConfig struct {
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

// Load reads configuration from file on top of Defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("reading config: %w", err))
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unmarshaling config: %w", err))
	}
	cfg.applyEnvFallbacks()

	return cfg, nil
}

// LoadOrDefault loads path, or returns Defaults when path is empty. The
// boolean reports whether a file was read.
func LoadOrDefault(path string) (*Config, bool, error) {
	if path == "" {
		cfg := Defaults()
		cfg.applyEnvFallbacks()
		return cfg, false, nil
	}
	cfg, err := Load(path)
	return cfg, true, err
}

// applyEnvFallbacks fills credentials left empty from the conventional
// provider environment variables.
func (c *Config) applyEnvFallbacks() {
	fallback := func(dst *string, env string) {
		if *dst == "" {
			*dst = os.Getenv(env)
		}
	}
	fallback(&c.Collectors.AlphaVantage.APIKey, "ALPHA_VANTAGE_API_KEY")
	fallback(&c.Collectors.Alpaca.APIKey, "APCA_API_KEY_ID")
	fallback(&c.Collectors.Alpaca.APISecret, "APCA_API_SECRET_KEY")
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			JobTTLHours: 1,
			MaxJobs:     100,
		},
		Storage: StorageConfig{
			Database:   "stockanalyzer.db",
			MaxResults: 1000,
		},
		Collectors: CollectorsConfig{
			Default: "alphavantage",
			Yahoo:   YahooConfig{Enabled: true},
		},
		Import: ImportConfig{
			Interval: 12 * time.Second,
		},
		Backtest: BacktestConfig{
			InitialCapital:      10000,
			CashReserve:         0,
			PositionSize:        1,
			PredictionThreshold: 0.02,
			StopLoss:            0.05,
			TakeProfit:          0.05,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.MaxJobs < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_jobs cannot be negative, got %d", c.Server.MaxJobs))
	}

	switch c.Storage.Archive.Type {
	case "":
	case "localfs":
		if c.Storage.Archive.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("archive path required when archive type is localfs"))
		}
	case "s3":
		if c.Storage.Archive.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required when archive type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown archive type %q", c.Storage.Archive.Type))
	}

	switch c.Collectors.Default {
	case "alphavantage", "yahoo", "alpaca":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown default collector %q", c.Collectors.Default))
	}

	if c.Import.Interval < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("import interval cannot be negative, got %s", c.Import.Interval))
	}

	if err := c.Backtest.Params().Validate(); err != nil {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("backtest defaults: %w", err))
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("metrics path must start with /, got %q", c.Metrics.Path))
	}

	if u := c.Notifier.Webhook.URL; u != "" && !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("webhook url must be http(s), got %q", u))
	}

	return nil
}
