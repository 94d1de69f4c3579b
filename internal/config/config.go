// Package config loads and validates ltd-dasher configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/ltd-dasher/internal/keeper"
	"github.com/JakeFAU/ltd-dasher/internal/logging"
)

// Profiles select a preset of behavior at startup.
const (
	ProfileProduction  = "production"
	ProfileDevelopment = "development"
	ProfileTesting     = "testing"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Profile   string          `mapstructure:"profile"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   logging.Config  `mapstructure:"logging"`
	Keeper    KeeperConfig    `mapstructure:"keeper"`
	Storage   StorageConfig   `mapstructure:"storage"`
	AWS       AWSConfig       `mapstructure:"aws"`
	Fastly    FastlyConfig    `mapstructure:"fastly"`
	Publish   PublishConfig   `mapstructure:"publish"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	History   HistoryConfig   `mapstructure:"history"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Dev       DevConfig       `mapstructure:"dev"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// KeeperConfig configures the catalog API client.
type KeeperConfig struct {
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
	UserAgent         string  `mapstructure:"user_agent"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// StorageConfig selects and configures the object storage backend.
type StorageConfig struct {
	Provider string `mapstructure:"provider"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
	LocalDir string `mapstructure:"local_dir"`
}

// AWSConfig holds the storage credentials.
type AWSConfig struct {
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// FastlyConfig holds the edge cache credentials.
type FastlyConfig struct {
	APIKey    string `mapstructure:"api_key"`
	ServiceID string `mapstructure:"service_id"`
	Endpoint  string `mapstructure:"endpoint"`
}

// PublishConfig controls uploads and purges.
type PublishConfig struct {
	SkipUpload   bool   `mapstructure:"skip_upload"`
	AssetsPrefix string `mapstructure:"assets_prefix"`
}

// NotifyConfig selects where build notifications are sent.
type NotifyConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// HistoryConfig selects where build attempts are recorded.
type HistoryConfig struct {
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
}

// TelemetryConfig toggles OpenTelemetry tracing and picks the span exporter.
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
	Exporter    string `mapstructure:"exporter"`
}

// DevConfig drives the local render and clean commands.
type DevConfig struct {
	BuildDir  string `mapstructure:"build_dir"`
	CacheDir  string `mapstructure:"cache_dir"`
	KeeperURL string `mapstructure:"keeper_url"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LTD_DASHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyProfile()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("profile", ProfileProduction)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 120)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "")
	v.SetDefault("keeper.timeout_seconds", 30)
	v.SetDefault("keeper.user_agent", "ltd-dasher")
	v.SetDefault("keeper.requests_per_second", 0)
	v.SetDefault("keeper.burst", 1)
	v.SetDefault("storage.provider", "s3")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.local_dir", "_build/_bucket")
	v.SetDefault("aws.access_key_id", "")
	v.SetDefault("aws.secret_access_key", "")
	v.SetDefault("fastly.api_key", "")
	v.SetDefault("fastly.service_id", "")
	v.SetDefault("fastly.endpoint", "https://api.fastly.com")
	v.SetDefault("publish.skip_upload", false)
	v.SetDefault("publish.assets_prefix", "_dasher-assets")
	v.SetDefault("notify.provider", "none")
	v.SetDefault("notify.project_id", "")
	v.SetDefault("notify.topic", "")
	v.SetDefault("history.provider", "none")
	v.SetDefault("history.dsn", "")
	v.SetDefault("history.table", "dashboard_builds")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "ltd-dasher")
	v.SetDefault("telemetry.exporter", "none")
	v.SetDefault("dev.build_dir", "_build")
	v.SetDefault("dev.cache_dir", "_build/_cache")
	v.SetDefault("dev.keeper_url", "https://keeper.lsst.codes")
}

func (c *Config) applyProfile() {
	switch c.Profile {
	case ProfileTesting:
		c.Publish.SkipUpload = true
	case ProfileDevelopment:
		c.Logging.Development = true
	}
}

// Validate performs basic sanity checks on required fields.
func (c Config) Validate() error {
	switch c.Profile {
	case ProfileProduction, ProfileDevelopment, ProfileTesting:
	default:
		return fmt.Errorf("unknown profile %q", c.Profile)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("server.request_timeout_seconds must be > 0")
	}
	if c.Keeper.TimeoutSeconds <= 0 {
		return fmt.Errorf("keeper.timeout_seconds must be > 0")
	}
	if c.Keeper.RequestsPerSecond < 0 || c.Keeper.Burst < 0 {
		return fmt.Errorf("keeper.requests_per_second and keeper.burst must be >= 0")
	}
	switch c.Storage.Provider {
	case "s3", "gcs", "memory":
	case "local":
		if strings.TrimSpace(c.Storage.LocalDir) == "" {
			return fmt.Errorf("storage.local_dir is required for the local provider")
		}
	default:
		return fmt.Errorf("unknown storage.provider %q", c.Storage.Provider)
	}
	if strings.TrimSpace(c.Publish.AssetsPrefix) == "" {
		return fmt.Errorf("publish.assets_prefix is required")
	}
	switch c.Notify.Provider {
	case "none", "memory":
	case "pubsub":
		if c.Notify.ProjectID == "" || c.Notify.Topic == "" {
			return fmt.Errorf("notify.project_id and notify.topic are required for pubsub")
		}
	default:
		return fmt.Errorf("unknown notify.provider %q", c.Notify.Provider)
	}
	switch c.History.Provider {
	case "none":
	case "postgres":
		if c.History.DSN == "" {
			return fmt.Errorf("history.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("unknown history.provider %q", c.History.Provider)
	}
	switch c.Telemetry.Exporter {
	case "", "none", "stdout":
	default:
		return fmt.Errorf("unknown telemetry.exporter %q", c.Telemetry.Exporter)
	}
	return nil
}

// RequestTimeout returns the HTTP handler deadline as a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// KeeperClientConfig returns the settings for a Keeper API client.
func (c Config) KeeperClientConfig() keeper.Config {
	return keeper.Config{
		Timeout:           c.KeeperTimeout(),
		UserAgent:         c.Keeper.UserAgent,
		RequestsPerSecond: c.Keeper.RequestsPerSecond,
		Burst:             c.Keeper.Burst,
	}
}

// KeeperTimeout returns the catalog client timeout as a duration.
func (c Config) KeeperTimeout() time.Duration {
	return time.Duration(c.Keeper.TimeoutSeconds) * time.Second
}
