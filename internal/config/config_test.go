package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileProduction {
		t.Fatalf("expected production profile, got %q", cfg.Profile)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Provider != "s3" || cfg.Publish.AssetsPrefix != "_dasher-assets" {
		t.Fatalf("unexpected storage/publish defaults: %+v %+v", cfg.Storage, cfg.Publish)
	}
	if cfg.Fastly.Endpoint != "https://api.fastly.com" {
		t.Fatalf("unexpected fastly endpoint %q", cfg.Fastly.Endpoint)
	}
	if cfg.Publish.SkipUpload {
		t.Fatalf("production profile must not skip uploads")
	}
	if got := cfg.RequestTimeout(); got != 120*time.Second {
		t.Fatalf("expected request timeout 120s, got %v", got)
	}
	if got := cfg.KeeperTimeout(); got != 30*time.Second {
		t.Fatalf("expected keeper timeout 30s, got %v", got)
	}
	if cfg.Dev.KeeperURL != "https://keeper.lsst.codes" || cfg.Dev.CacheDir != "_build/_cache" {
		t.Fatalf("unexpected dev defaults: %+v", cfg.Dev)
	}
	if kc := cfg.KeeperClientConfig(); kc.RequestsPerSecond != 0 || kc.Burst != 1 || kc.UserAgent != "ltd-dasher" {
		t.Fatalf("unexpected keeper client config: %+v", kc)
	}
	if cfg.Telemetry.Enabled || cfg.Telemetry.Exporter != "none" {
		t.Fatalf("unexpected telemetry defaults: %+v", cfg.Telemetry)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
profile: testing
server:
  port: 9090
  request_timeout_seconds: 30
logging:
  level: debug
keeper:
  user_agent: dasher-test
storage:
  provider: gcs
aws:
  access_key_id: key
  secret_access_key: secret
fastly:
  api_key: fkey
  service_id: svc
notify:
  provider: pubsub
  project_id: lsst
  topic: dashboards
history:
  provider: postgres
  dsn: postgres://localhost/dasher
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 || cfg.RequestTimeout() != 30*time.Second {
		t.Fatalf("expected server overrides to apply: %+v", cfg.Server)
	}
	if !cfg.Publish.SkipUpload {
		t.Fatalf("testing profile must force skip_upload")
	}
	if cfg.Logging.Level != "debug" || cfg.Keeper.UserAgent != "dasher-test" {
		t.Fatalf("expected logging/keeper overrides: %+v %+v", cfg.Logging, cfg.Keeper)
	}
	if cfg.AWS.AccessKeyID != "key" || cfg.Fastly.ServiceID != "svc" {
		t.Fatalf("expected credentials to load: %+v %+v", cfg.AWS, cfg.Fastly)
	}
	if cfg.Notify.Topic != "dashboards" || cfg.History.Table != "dashboard_builds" {
		t.Fatalf("expected notify/history config: %+v %+v", cfg.Notify, cfg.History)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("LTD_DASHER_PUBLISH_SKIP_UPLOAD", "true")
	t.Setenv("LTD_DASHER_FASTLY_API_KEY", "from-env")
	t.Setenv("LTD_DASHER_PROFILE", "development")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Publish.SkipUpload || cfg.Fastly.APIKey != "from-env" {
		t.Fatalf("expected env overrides: %+v %+v", cfg.Publish, cfg.Fastly)
	}
	if !cfg.Logging.Development {
		t.Fatalf("development profile must enable development logging")
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Profile: ProfileProduction,
		Server:  ServerConfig{Port: 8080, RequestTimeoutSeconds: 120},
		Keeper:  KeeperConfig{TimeoutSeconds: 30},
		Storage: StorageConfig{Provider: "s3"},
		Publish: PublishConfig{AssetsPrefix: "_dasher-assets"},
		Notify:  NotifyConfig{Provider: "none"},
		History: HistoryConfig{Provider: "none"},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config should validate: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "unknown profile", mutate: func(c *Config) { c.Profile = "staging" }, want: "profile"},
		{name: "invalid port", mutate: func(c *Config) { c.Server.Port = 0 }, want: "server.port"},
		{name: "invalid timeout", mutate: func(c *Config) { c.Server.RequestTimeoutSeconds = 0 }, want: "server.request_timeout_seconds"},
		{name: "invalid keeper timeout", mutate: func(c *Config) { c.Keeper.TimeoutSeconds = -1 }, want: "keeper.timeout_seconds"},
		{name: "negative keeper rate", mutate: func(c *Config) { c.Keeper.RequestsPerSecond = -1 }, want: "keeper.requests_per_second"},
		{name: "unknown storage", mutate: func(c *Config) { c.Storage.Provider = "ftp" }, want: "storage.provider"},
		{name: "local without dir", mutate: func(c *Config) { c.Storage.Provider = "local" }, want: "storage.local_dir"},
		{name: "empty assets prefix", mutate: func(c *Config) { c.Publish.AssetsPrefix = " " }, want: "publish.assets_prefix"},
		{name: "pubsub without topic", mutate: func(c *Config) { c.Notify.Provider = "pubsub" }, want: "notify.topic"},
		{name: "unknown notify", mutate: func(c *Config) { c.Notify.Provider = "kafka" }, want: "notify.provider"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.History.Provider = "postgres" }, want: "history.dsn"},
		{name: "unknown history", mutate: func(c *Config) { c.History.Provider = "sqlite" }, want: "history.provider"},
		{name: "unknown trace exporter", mutate: func(c *Config) { c.Telemetry.Exporter = "jaeger" }, want: "telemetry.exporter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
